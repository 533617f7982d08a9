package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-hub/internal/api/dto"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/service"
)

// Pagination headers set on ticket listings.
const (
	HeaderTotalCount = "X-Total-Count"
	HeaderPage       = "X-Page"
	HeaderPageSize   = "X-Page-Size"
)

// TicketsHandler exposes agent ticket endpoints.
type TicketsHandler struct {
	service         *service.TicketService
	defaultPageSize int
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, defaultPageSize int) *TicketsHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &TicketsHandler{service: ticketService, defaultPageSize: defaultPageSize}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), identity, req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query := dto.TicketQuery{
		Status:   queryString(c, "status"),
		Priority: queryString(c, "priority"),
		Search:   queryString(c, "search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", h.defaultPageSize),
	}
	tickets, total, err := h.service.ListTickets(c.UserContext(), query)
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketResponse(&tickets[i]))
	}
	c.Set(HeaderTotalCount, strconv.Itoa(total))
	c.Set(HeaderPage, strconv.Itoa(query.Page))
	c.Set(HeaderPageSize, strconv.Itoa(query.PageSize))
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), identity, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// AssignTicket PATCH /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), identity, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	entries, err := h.service.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func (h *TicketsHandler) ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:               ticket.ID,
		Title:            ticket.Title,
		Description:      ticket.Description,
		Priority:         ticket.Priority,
		Status:           ticket.Status,
		AssignedAgentID:  ticket.AssignedAgentID,
		SLADueAt:         ticket.SLADueAt,
		SLATimeRemaining: h.service.TimeRemaining(ticket),
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			Details:   entry.Details,
			AgentName: entry.AgentName,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}
