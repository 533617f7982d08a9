package worker

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/events"
	"github.com/spec-kit/support-hub/internal/hub"
	"github.com/spec-kit/support-hub/internal/service"
)

func TestStartNotificationWorkerWithoutRelay(t *testing.T) {
	team := &fakeTeam{}
	dispatcher := events.NewInMemoryDispatcher(nil, nil)
	g, ctx := errgroup.WithContext(context.Background())

	StartNotificationWorker(ctx, g, service.NewNotificationService(dispatcher, team, nil, nil), nil)

	dispatcher.Publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "t1",
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusOpen,
			NewStatus: domain.TicketStatusResolved,
		},
	})

	gt.Array(t, team.calls).Length(1).Required()
	gt.Value(t, team.calls[0].event).Equal(hub.EventTicketStatusChanged)
	changed, ok := team.calls[0].payload.(hub.TicketStatusChangedNotification)
	gt.Bool(t, ok).True()
	gt.Value(t, changed.NewStatus).Equal(domain.TicketStatusResolved)
	gt.NoError(t, g.Wait())
}
