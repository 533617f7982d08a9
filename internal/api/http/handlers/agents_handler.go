package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-hub/internal/api/dto"
	"github.com/spec-kit/support-hub/internal/service"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

// AgentsHandler exposes agent login and directory endpoints.
type AgentsHandler struct {
	service *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agentService *service.AgentService) *AgentsHandler {
	return &AgentsHandler{service: agentService}
}

// Login handles POST /auth/agents/login.
func (h *AgentsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	agent, token, exp, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	status, err := h.service.GetAgent(c.UserContext(), agent.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   exp,
		Agent:       agentResponse(status),
	}})
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	agents, err := h.service.ListAgents(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Me GET /agents/me.
func (h *AgentsHandler) Me(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	status, err := h.service.GetAgent(c.UserContext(), identity.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(status)})
}

func agentResponse(status *service.AgentStatus) dto.AgentResponse {
	return dto.AgentResponse{
		ID:         status.Agent.ID,
		Name:       status.Agent.Name,
		Email:      status.Agent.Email,
		Online:     status.Online,
		LastSeenAt: status.Agent.LastSeenAt,
	}
}
