package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-hub/internal/api/dto"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/service"
)

const defaultMessageLimit = 50

// SessionsHandler exposes chat session endpoints.
type SessionsHandler struct {
	service *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessionService *service.SessionService) *SessionsHandler {
	return &SessionsHandler{service: sessionService}
}

// CreateSession POST /sessions.
func (h *SessionsHandler) CreateSession(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.service.CreateSession(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionResponse(session)})
}

// GetSession GET /sessions/:id.
func (h *SessionsHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.service.GetSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// CloseSession POST /sessions/:id/close.
func (h *SessionsHandler) CloseSession(c *fiber.Ctx) error {
	session, err := h.service.CloseSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// PostMessage POST /sessions/:id/messages.
func (h *SessionsHandler) PostMessage(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, err := h.service.PostMessage(c.UserContext(), identity, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// ListMessages GET /sessions/:id/messages.
func (h *SessionsHandler) ListMessages(c *fiber.Ctx) error {
	query := dto.MessageCursorQuery{
		After: queryString(c, "after"),
		Limit: queryInt(c, "limit", defaultMessageLimit),
	}
	messages, hasMore, err := h.service.ListMessages(c.UserContext(), c.Params("id"), query)
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, messageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": dto.MessagePageResponse{Items: items, HasMore: hasMore}})
}

func sessionResponse(session *domain.Session) dto.SessionResponse {
	return dto.SessionResponse{
		ID:              session.ID,
		UserID:          session.UserID,
		AssignedAgentID: session.AssignedAgentID,
		Status:          session.Status,
		Metadata:        session.Metadata,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
		LastActivityAt:  session.LastActivityAt,
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return dto.MessageResponse{
		ID:          msg.ID,
		SessionID:   msg.SessionID,
		SenderID:    msg.SenderID,
		SenderType:  msg.SenderType,
		Text:        msg.Text,
		Attachments: attachments,
		CreatedAt:   msg.CreatedAt,
	}
}
