package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/api/dto"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/events"
	"github.com/spec-kit/support-hub/internal/repository"
	"github.com/spec-kit/support-hub/internal/rules"
	"github.com/spec-kit/support-hub/internal/validation"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

// TicketService coordinates ticket workflows: validate the request, gate it
// through the rule engine, persist and audit in one transaction, then notify.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	tx         repository.TicketTransactor
	agents     repository.AgentRepository
	validators *validation.Set
	engine     *rules.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Transactor  repository.TicketTransactor
	AgentRepo   repository.AgentRepository
	Validators  *validation.Set
	Engine      *rules.Engine
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		tx:         deps.Transactor,
		agents:     deps.AgentRepo,
		validators: deps.Validators,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreateTicket validates and stores a new ticket with its SLA due date.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Identity, req dto.CreateTicketRequest) (*domain.Ticket, error) {
	if err := validation.Run(ctx, s.validators.CreateTicket, req); err != nil {
		return nil, err
	}

	now := s.engine.Now()
	priority := domain.TicketPriority(req.Priority)
	due := s.engine.ComputeSLADueAt(priority, now)
	ticket := &domain.Ticket{
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Priority:        priority,
		Status:          domain.TicketStatusOpen,
		AssignedAgentID: canonicalID(req.AssignedAgentID),
		SLADueAt:        &due,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if errs := s.engine.ValidateTicket(ticket); len(errs) > 0 {
		return nil, apperrors.NewValidationFailure(validation.ToFieldErrors(errs))
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.TicketStores) error {
		if err := stores.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return s.record(ctx, stores.History, ticket.ID, domain.HistoryActionCreated, actor,
			fmt.Sprintf("Ticket created with priority %s", ticket.Priority))
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.TicketSnapshotPayload{Ticket: *ticket.Clone()},
	})
	return ticket, nil
}

// GetTicket returns a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := requireID("ticket", id); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "ticket", id)
	}
	return ticket, nil
}

// ListTickets validates the query and returns one page plus the total count.
func (s *TicketService) ListTickets(ctx context.Context, q dto.TicketQuery) ([]domain.Ticket, int, error) {
	if err := validation.Run(ctx, s.validators.TicketQuery, q); err != nil {
		return nil, 0, err
	}

	filter := repository.TicketFilter{Page: q.Page, PageSize: q.PageSize}
	if q.Status != nil {
		status, _ := domain.ParseTicketStatus(*q.Status)
		filter.Status = &status
	}
	if q.Priority != nil {
		priority, _ := domain.ParseTicketPriority(*q.Priority)
		filter.Priority = &priority
	}
	if q.Search != nil && strings.TrimSpace(*q.Search) != "" {
		search := strings.TrimSpace(*q.Search)
		filter.Search = &search
	}
	return s.tickets.Query(ctx, filter)
}

// UpdateStatus moves a ticket to a new status if the rules allow it.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Identity, id string, req dto.UpdateStatusRequest) (*domain.Ticket, error) {
	if err := validation.Run(ctx, s.validators.UpdateStatus, req); err != nil {
		return nil, err
	}
	current, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	newStatus := domain.TicketStatus(req.Status)
	if errs := s.engine.ProjectStatusChange(current, newStatus); len(errs) > 0 {
		return nil, ruleViolation(errs)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.TicketStores) error {
		ok, err := stores.Tickets.UpdateStatus(ctx, id, newStatus)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return s.record(ctx, stores.History, id, domain.HistoryActionStatusChanged, actor,
			fmt.Sprintf("Status changed from %s to %s", current.Status, newStatus))
	})
	if err != nil {
		return nil, s.writeFailure(err, rules.GateStatusUpdate, current)
	}

	updated, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: id,
		Actor:    actorOf(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: newStatus,
		},
	})
	s.publishUpdated(ctx, actor, updated)
	return updated, nil
}

// AssignTicket assigns a ticket to an existing agent if the rules allow it.
func (s *TicketService) AssignTicket(ctx context.Context, actor domain.Identity, id string, req dto.AssignTicketRequest) (*domain.Ticket, error) {
	if err := validation.Run(ctx, s.validators.AssignTicket, req); err != nil {
		return nil, err
	}
	current, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	agentID := *canonicalID(&req.AgentID)
	if errs := s.engine.ProjectAssignment(current, agentID); len(errs) > 0 {
		return nil, ruleViolation(errs)
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, notFoundAs(err, "agent", agentID)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.TicketStores) error {
		ok, err := stores.Tickets.Assign(ctx, id, agentID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return s.record(ctx, stores.History, id, domain.HistoryActionAssigned, actor,
			fmt.Sprintf("Assigned to %s", agent.Name))
	})
	if err != nil {
		return nil, s.writeFailure(err, rules.GateAssignment, current)
	}

	updated, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: id,
		Actor:    actorOf(actor),
		Payload: events.TicketAssignedPayload{
			AgentID:   agent.ID,
			AgentName: agent.Name,
		},
	})
	s.publishUpdated(ctx, actor, updated)
	return updated, nil
}

// ListHistory returns a ticket's audit trail, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, id string) ([]domain.TicketHistory, error) {
	if _, err := s.GetTicket(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, id)
}

// TimeRemaining renders the ticket's SLA countdown.
func (s *TicketService) TimeRemaining(ticket *domain.Ticket) *string {
	return s.engine.TimeRemaining(ticket.SLADueAt)
}

func (s *TicketService) record(ctx context.Context, history repository.HistoryWriter, ticketID string, action domain.TicketHistoryAction, actor domain.Identity, details string) error {
	return history.Create(ctx, &domain.TicketHistory{
		TicketID:  ticketID,
		Action:    action,
		Details:   details,
		AgentName: actor.AgentName,
		CreatedAt: s.engine.Now(),
	})
}

// writeFailure reports a ticket resolved after the gate ran the same way the
// gate itself would have.
func (s *TicketService) writeFailure(err error, gate rules.Gate, current *domain.Ticket) error {
	if !errors.Is(err, repository.ErrTicketResolved) {
		return err
	}
	resolved := current.Clone()
	resolved.Status = domain.TicketStatusResolved
	return ruleViolation(s.engine.CheckGate(gate, resolved))
}

func (s *TicketService) publishUpdated(ctx context.Context, actor domain.Identity, ticket *domain.Ticket) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.TicketSnapshotPayload{Ticket: *ticket.Clone()},
	})
}

// publishEvent is fire-and-forget; the dispatcher isolates handler failures.
func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.engine.Now()
	}
	s.dispatcher.Publish(ctx, event)
}

func actorOf(identity domain.Identity) events.Actor {
	return events.Actor{AgentID: identity.AgentID, AgentName: identity.AgentName}
}

// canonicalID trims and lower-cases a uuid reference; blank becomes nil.
func canonicalID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	if parsed, err := uuid.Parse(trimmed); err == nil {
		trimmed = parsed.String()
	}
	return &trimmed
}
