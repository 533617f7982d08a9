package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/m-mizutani/gt"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-hub/internal/api/http"
	"github.com/spec-kit/support-hub/internal/api/http/handlers"
	"github.com/spec-kit/support-hub/internal/auth"
	"github.com/spec-kit/support-hub/internal/config"
	"github.com/spec-kit/support-hub/internal/events"
	"github.com/spec-kit/support-hub/internal/hub"
	"github.com/spec-kit/support-hub/internal/observability"
	"github.com/spec-kit/support-hub/internal/presence"
	"github.com/spec-kit/support-hub/internal/repository/memory"
	"github.com/spec-kit/support-hub/internal/rules"
	"github.com/spec-kit/support-hub/internal/service"
	"github.com/spec-kit/support-hub/internal/validation"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type testServer struct {
	app   *fiber.App
	token string
	grace string
}

func newTestServer(t *testing.T, deps ...handlers.Dependency) *testServer {
	t.Helper()
	cfg := config.Defaults()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.New()

	registry := presence.NewRegistry()
	realtime := hub.New(registry, logger, metrics, cfg.Hub)
	dispatcher := events.NewInMemoryDispatcher(logger, metrics)
	service.NewNotificationService(dispatcher, realtime, nil, logger).RegisterHandlers()

	validators := validation.NewSet(store.Agents(), cfg.Query)
	tokens := auth.NewTokenManager("test-secret", 30)
	agentService := service.NewAgentService(cfg.Presence, service.AgentDependencies{
		AgentRepo: store.Agents(),
		Tokens:    tokens,
		Passwords: auth.NewPasswordHasher(4),
		Presence:  registry,
		Logger:    logger,
	})
	_, err := agentService.EnsureAgent(context.Background(), "Ada", "ada@example.com", "hunter2")
	gt.NoError(t, err).Required()
	grace, err := agentService.EnsureAgent(context.Background(), "Grace", "grace@example.com", "hopper")
	gt.NoError(t, err).Required()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		HistoryRepo: store.TicketHistory(),
		Transactor:  store.Transactor(),
		AgentRepo:   store.Agents(),
		Validators:  validators,
		Engine:      rules.NewEngine(cfg.SLA),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	sessionService := service.NewSessionService(service.SessionDependencies{
		SessionRepo: store.Sessions(),
		MessageRepo: store.Messages(),
		Validators:  validators,
		Broadcaster: realtime,
		Logger:      logger,
	})

	app := fiber.New(fiber.Config{ErrorHandler: httptransport.ErrorHandler(logger, metrics)})
	httptransport.RegisterMiddlewares(app, logger, metrics, time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("support-hub", "test", deps...),
		Agents:         handlers.NewAgentsHandler(agentService),
		Tickets:        handlers.NewTicketsHandler(ticketService, cfg.Query.DefaultPageSize),
		Sessions:       handlers.NewSessionsHandler(sessionService),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewIdentityResolver(tokens, store.Agents())),
	})

	srv := &testServer{app: app, grace: grace.ID}
	resp, body := srv.do(t, http.MethodPost, "/auth/agents/login", map[string]string{
		"email":    "ada@example.com",
		"password": "hunter2",
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	var login struct {
		Data struct {
			AccessToken string `json:"access_token"`
			Agent       struct {
				Name string `json:"name"`
			} `json:"agent"`
		} `json:"data"`
	}
	gt.NoError(t, json.Unmarshal(body, &login)).Required()
	gt.Value(t, login.Data.Agent.Name).Equal("Ada")
	srv.token = login.Data.AccessToken
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		gt.NoError(t, err).Required()
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if s.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	}
	resp, err := s.app.Test(req, -1)
	gt.NoError(t, err).Required()
	body, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()
	return resp, body
}

type errorBody struct {
	Error struct {
		Code   string `json:"code"`
		Errors []struct {
			Property string `json:"property"`
			Code     string `json:"code"`
		} `json:"errors"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var out errorBody
	gt.NoError(t, json.Unmarshal(body, &out)).Required()
	return out
}

func (e errorBody) codes() []string {
	out := []string{}
	for _, fe := range e.Error.Errors {
		out = append(out, fe.Code)
	}
	return out
}

type ticketBody struct {
	Data struct {
		ID               string  `json:"id"`
		Status           string  `json:"status"`
		AssignedAgentID  *string `json:"assigned_agent_id"`
		SLATimeRemaining *string `json:"sla_time_remaining"`
	} `json:"data"`
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	srv.token = ""

	for _, path := range []string{"/tickets", "/agents", "/sessions/8a3e5b9c-1d2f-4e6a-9b7c-0d1e2f3a4b5c"} {
		resp, body := srv.do(t, http.MethodGet, path, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusUnauthorized)
		gt.Value(t, decodeError(t, body).Error.Code).Equal("UNAUTHORIZED")
	}

	srv.token = "not-a-jwt"
	resp, _ := srv.do(t, http.MethodGet, "/tickets", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusUnauthorized)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	srv.token = ""

	resp, body := srv.do(t, http.MethodPost, "/auth/agents/login", map[string]string{"email": "ada@example.com", "password": "nope"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusUnauthorized)
	gt.Value(t, decodeError(t, body).Error.Code).Equal("UNAUTHORIZED")
}

func TestTicketLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/tickets", map[string]any{"title": "Outage", "priority": "Critical"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	failure := decodeError(t, body)
	gt.Value(t, failure.Error.Code).Equal("VALIDATION_FAILED")
	gt.Value(t, failure.codes()).Equal([]string{rules.CodeHighPriorityRequiresAssignment})

	resp, body = srv.do(t, http.MethodPost, "/tickets", map[string]any{"title": "Slow dashboard", "priority": "Low"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	var created ticketBody
	gt.NoError(t, json.Unmarshal(body, &created)).Required()
	gt.Value(t, created.Data.Status).Equal("Open")
	gt.Value(t, created.Data.SLATimeRemaining).NotNil()
	id := created.Data.ID

	resp, body = srv.do(t, http.MethodPatch, "/tickets/"+id+"/status", map[string]string{"status": "InProgress"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	failure = decodeError(t, body)
	gt.Value(t, failure.Error.Code).Equal("OPERATION_NOT_PERMITTED")
	gt.Value(t, failure.codes()).Equal([]string{rules.CodeInProgressRequiresAgent})

	resp, body = srv.do(t, http.MethodPatch, "/tickets/"+id+"/assign", map[string]string{"agent_id": srv.grace})
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	var assigned ticketBody
	gt.NoError(t, json.Unmarshal(body, &assigned)).Required()
	gt.Value(t, *assigned.Data.AssignedAgentID).Equal(srv.grace)

	resp, _ = srv.do(t, http.MethodPatch, "/tickets/"+id+"/status", map[string]string{"status": "InProgress"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	resp, body = srv.do(t, http.MethodGet, "/tickets/"+id+"/history", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	var history struct {
		Data []struct {
			Action    string `json:"action"`
			AgentName string `json:"agent_name"`
		} `json:"data"`
	}
	gt.NoError(t, json.Unmarshal(body, &history)).Required()
	gt.Array(t, history.Data).Length(3).Required()
	gt.Value(t, history.Data[2].Action).Equal("StatusChanged")
	gt.Value(t, history.Data[2].AgentName).Equal("Ada")
}

func TestListTicketsPaginationHeaders(t *testing.T) {
	srv := newTestServer(t)
	for _, title := range []string{"one", "two", "three"} {
		resp, _ := srv.do(t, http.MethodPost, "/tickets", map[string]any{"title": title, "priority": "Medium"})
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	}

	resp, body := srv.do(t, http.MethodGet, "/tickets?page=2&page_size=2&status=open", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	gt.Value(t, resp.Header.Get(handlers.HeaderTotalCount)).Equal("3")
	gt.Value(t, resp.Header.Get(handlers.HeaderPage)).Equal("2")
	gt.Value(t, resp.Header.Get(handlers.HeaderPageSize)).Equal("2")
	var page struct {
		Data []json.RawMessage `json:"data"`
	}
	gt.NoError(t, json.Unmarshal(body, &page)).Required()
	gt.Array(t, page.Data).Length(1)

	resp, body = srv.do(t, http.MethodGet, "/tickets?page=abc&page_size=500&priority=Blocker", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	gt.Value(t, decodeError(t, body).codes()).Equal([]string{
		validation.CodeInvalidPage,
		validation.CodeInvalidPageSize,
		validation.CodeInvalidPriorityFilter,
	})
}

func TestUnknownResources(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/tickets/not-a-uuid", "/tickets/0b4c9d1e-0000-4000-8000-000000000001", "/no/such/route"} {
		resp, body := srv.do(t, http.MethodGet, path, nil)
		gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)
		gt.Value(t, decodeError(t, body).Error.Code).Equal("NOT_FOUND")
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/sessions", map[string]any{"user_id": "3d0c7a52-7b3e-4a54-9f0c-3c2a1c0b9e11"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	var session struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	gt.NoError(t, json.Unmarshal(body, &session)).Required()
	gt.Value(t, session.Data.Status).Equal("Active")
	base := "/sessions/" + session.Data.ID

	for _, text := range []string{"first", "second"} {
		resp, _ = srv.do(t, http.MethodPost, base+"/messages", map[string]any{"text": text})
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	}

	resp, body = srv.do(t, http.MethodGet, base+"/messages?limit=1", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	var page struct {
		Data struct {
			Items []struct {
				Text       string `json:"text"`
				SenderType string `json:"sender_type"`
			} `json:"items"`
			HasMore bool `json:"has_more"`
		} `json:"data"`
	}
	gt.NoError(t, json.Unmarshal(body, &page)).Required()
	gt.Array(t, page.Data.Items).Length(1).Required()
	gt.Value(t, page.Data.Items[0].Text).Equal("first")
	gt.Value(t, page.Data.Items[0].SenderType).Equal("Agent")
	gt.Bool(t, page.Data.HasMore).True()

	resp, _ = srv.do(t, http.MethodPost, base+"/close", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	resp, body = srv.do(t, http.MethodPost, base+"/messages", map[string]any{"text": "too late"})
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	gt.Value(t, decodeError(t, body).codes()).Equal([]string{service.CodeSessionClosed})
}

func TestAgentsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodGet, "/agents/me", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	var me struct {
		Data struct {
			Email  string `json:"email"`
			Online bool   `json:"online"`
		} `json:"data"`
	}
	gt.NoError(t, json.Unmarshal(body, &me)).Required()
	gt.Value(t, me.Data.Email).Equal("ada@example.com")
	gt.Bool(t, me.Data.Online).False()

	resp, body = srv.do(t, http.MethodGet, "/agents", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	var list struct {
		Data []json.RawMessage `json:"data"`
	}
	gt.NoError(t, json.Unmarshal(body, &list)).Required()
	gt.Array(t, list.Data).Length(2)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t,
		handlers.Dependency{Name: "postgres", Pinger: stubPinger{}},
		handlers.Dependency{Name: "redis", Pinger: stubPinger{err: errors.New("connection refused")}},
	)

	resp, _ := srv.do(t, http.MethodGet, "/health/live", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	resp, body := srv.do(t, http.MethodGet, "/health/ready", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusServiceUnavailable)
	gt.String(t, string(body)).Contains("connection refused")

	resp, body = srv.do(t, http.MethodGet, "/metrics", nil)
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	gt.String(t, string(body)).Contains("http_requests_total")
}
