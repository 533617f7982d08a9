package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/events"
	"github.com/spec-kit/support-hub/internal/hub"
)

// TeamBroadcaster pushes an event to every connected agent.
type TeamBroadcaster interface {
	BroadcastTeam(ctx context.Context, event string, payload any) error
}

// NotificationRelay forwards a team notification to every instance,
// including this one.
type NotificationRelay interface {
	Publish(ctx context.Context, event string, payload any) error
}

// NotificationService turns ticket events into hub broadcasts.
type NotificationService struct {
	dispatcher  events.Dispatcher
	broadcaster TeamBroadcaster
	relay       NotificationRelay
	logger      *zap.Logger
}

// NewNotificationService creates the service. When relay is non-nil
// notifications go through it instead of the local hub.
func NewNotificationService(dispatcher events.Dispatcher, broadcaster TeamBroadcaster, relay NotificationRelay, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		relay:       relay,
		logger:      logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSnapshotPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.deliver(ctx, event, hub.EventTicketCreated, ticketNotification(payload.Ticket))
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSnapshotPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.deliver(ctx, event, hub.EventTicketUpdated, ticketNotification(payload.Ticket))
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.deliver(ctx, event, hub.EventTicketStatusChanged, hub.TicketStatusChangedNotification{
		TicketID:  event.TicketID,
		OldStatus: payload.OldStatus,
		NewStatus: payload.NewStatus,
	})
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.deliver(ctx, event, hub.EventTicketAssigned, hub.TicketAssignedNotification{
		TicketID:  event.TicketID,
		AgentID:   payload.AgentID,
		AgentName: payload.AgentName,
	})
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, name string, payload any) error {
	n.logger.Debug("dispatching notification",
		zap.String("event", name),
		zap.String("ticket_id", event.TicketID))
	if n.relay != nil {
		return n.relay.Publish(ctx, name, payload)
	}
	if n.broadcaster == nil {
		return nil
	}
	return n.broadcaster.BroadcastTeam(ctx, name, payload)
}

func ticketNotification(t domain.Ticket) hub.TicketNotification {
	return hub.TicketNotification{
		TicketID:        t.ID,
		Title:           t.Title,
		Priority:        t.Priority,
		Status:          t.Status,
		AssignedAgentID: t.AssignedAgentID,
		SLADueAt:        t.SLADueAt,
		UpdatedAt:       t.UpdatedAt,
	}
}
