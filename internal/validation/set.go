package validation

import (
	"github.com/spec-kit/support-hub/internal/api/dto"
	"github.com/spec-kit/support-hub/internal/config"
)

// Set maps every request type to its validator. Services receive the set and
// pick the field they need, so a missing validator is a compile error rather
// than a failed lookup at runtime.
type Set struct {
	CreateTicket  Validator[dto.CreateTicketRequest]
	UpdateStatus  Validator[dto.UpdateStatusRequest]
	AssignTicket  Validator[dto.AssignTicketRequest]
	TicketQuery   Validator[dto.TicketQuery]
	CreateSession Validator[dto.CreateSessionRequest]
	SendMessage   Validator[dto.SendMessageRequest]
	MessageCursor Validator[dto.MessageCursorQuery]
}

// NewSet wires the default validators.
func NewSet(agents AgentLookup, cfg config.QueryConfig) *Set {
	optionalAgent := NewAgentReference(agents, "assignedAgentId", false)
	requiredAgent := NewAgentReference(agents, "agentId", true)
	return &Set{
		CreateTicket:  NewCreateTicket(optionalAgent),
		UpdateStatus:  Func[dto.UpdateStatusRequest](UpdateStatus),
		AssignTicket:  NewAssignTicket(requiredAgent),
		TicketQuery:   NewTicketQuery(cfg),
		CreateSession: NewCreateSession(optionalAgent),
		SendMessage:   Func[dto.SendMessageRequest](SendMessage),
		MessageCursor: NewMessageCursor(cfg),
	}
}
