package observability_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/spec-kit/support-hub/internal/observability"
)

func TestMetricsRecordsHubActivity(t *testing.T) {
	m := observability.NewMetrics()
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.RecordBroadcast("ReceiveMessage", 3, 1)
	m.RecordCallError("INVALID_SESSION_ID")
	m.RecordRequest("/tickets", "GET", 200, 15*time.Millisecond)

	families, err := m.Gatherer().Gather()
	gt.NoError(t, err).Required()

	values := map[string]float64{}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[fam.GetName()] += metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				values[fam.GetName()] += metric.GetCounter().GetValue()
			}
		}
	}
	gt.Value(t, values["hub_connections"]).Equal(1.0)
	gt.Value(t, values["hub_broadcasts_total"]).Equal(1.0)
	gt.Value(t, values["hub_deliveries_total"]).Equal(4.0)
	gt.Value(t, values["hub_call_errors_total"]).Equal(1.0)
	gt.Value(t, values["http_requests_total"]).Equal(1.0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *observability.Metrics
	m.ConnectionOpened()
	m.RecordBroadcast("x", 1, 0)
	m.RecordDispatchFailure("TicketCreated")
}
