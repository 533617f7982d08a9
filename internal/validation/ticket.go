package validation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/support-hub/internal/api/dto"
	"github.com/spec-kit/support-hub/internal/config"
	"github.com/spec-kit/support-hub/internal/domain"
)

// CreateTicket validates new ticket payloads.
type CreateTicket struct {
	agent Validator[*string]
}

// NewCreateTicket builds the validator; agent checks the optional assignee.
func NewCreateTicket(agent Validator[*string]) *CreateTicket {
	return &CreateTicket{agent: agent}
}

func (v *CreateTicket) Validate(ctx context.Context, req dto.CreateTicketRequest) (Result, error) {
	var res Result
	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		res.Add("title", CodeTitleRequired, "title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		res.Add("title", CodeTitleTooLong, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		res.Add("description", CodeDescriptionTooLong, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if !domain.TicketPriority(req.Priority).IsValid() {
		res.Add("priority", CodeInvalidPriority, "priority must be one of Low, Medium, High, Critical")
	}
	agentRes, err := v.agent.Validate(ctx, req.AssignedAgentID)
	if err != nil {
		return Result{}, err
	}
	res.Merge(agentRes)
	return res, nil
}

// UpdateStatus validates status change payloads.
func UpdateStatus(_ context.Context, req dto.UpdateStatusRequest) (Result, error) {
	var res Result
	if !domain.TicketStatus(req.Status).IsValid() {
		res.Add("status", CodeInvalidStatus, "status must be one of Open, InProgress, Resolved")
	}
	return res, nil
}

// AssignTicket validates assignment payloads by delegating to an agent
// reference validator.
type AssignTicket struct {
	agent Validator[*string]
}

// NewAssignTicket builds the validator; agent must treat the id as required.
func NewAssignTicket(agent Validator[*string]) *AssignTicket {
	return &AssignTicket{agent: agent}
}

func (v *AssignTicket) Validate(ctx context.Context, req dto.AssignTicketRequest) (Result, error) {
	id := req.AgentID
	return v.agent.Validate(ctx, &id)
}

// TicketQuery validates list/search parameters.
type TicketQuery struct {
	cfg config.QueryConfig
}

// NewTicketQuery builds the validator.
func NewTicketQuery(cfg config.QueryConfig) *TicketQuery {
	return &TicketQuery{cfg: cfg}
}

func (v *TicketQuery) Validate(_ context.Context, q dto.TicketQuery) (Result, error) {
	var res Result
	if q.Page < 1 {
		res.Add("page", CodeInvalidPage, "page must be at least 1")
	}
	if q.PageSize < 1 || q.PageSize > v.cfg.MaxPageSize {
		res.Add("pageSize", CodeInvalidPageSize, fmt.Sprintf("page size must be between 1 and %d", v.cfg.MaxPageSize))
	}
	if q.Status != nil {
		if _, ok := domain.ParseTicketStatus(*q.Status); !ok {
			res.Add("status", CodeInvalidStatusFilter, "status filter must be a defined status")
		}
	}
	if q.Priority != nil {
		if _, ok := domain.ParseTicketPriority(*q.Priority); !ok {
			res.Add("priority", CodeInvalidPriorityFilter, "priority filter must be a defined priority")
		}
	}
	if q.Search != nil && utf8.RuneCountInString(*q.Search) > v.cfg.MaxSearchLength {
		res.Add("search", CodeSearchTooLong, fmt.Sprintf("search must be at most %d characters", v.cfg.MaxSearchLength))
	}
	return res, nil
}
