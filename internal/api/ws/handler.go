package ws

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/auth"
	"github.com/spec-kit/support-hub/internal/domain"
)

// PresenceTracker persists agent availability as connections come and go.
type PresenceTracker interface {
	MarkOnline(ctx context.Context, agentID string)
	MarkOffline(ctx context.Context, agentID string)
}

// Config tunes the socket transport.
type Config struct {
	WriteTimeout time.Duration
	Heartbeat    time.Duration
	SendBuffer   int
}

// Handler upgrades authenticated requests and pumps frames to the hub.
type Handler struct {
	hub      Hub
	presence PresenceTracker
	logger   *zap.Logger
	cfg      Config
}

// NewHandler constructs the transport. presence may be nil.
func NewHandler(h Hub, presence PresenceTracker, logger *zap.Logger, cfg Config) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: h, presence: presence, logger: logger, cfg: cfg}
}

// Upgrade returns the fiber handler for the hub endpoint. It must run after
// the auth middleware so the identity is in locals.
func (h *Handler) Upgrade() fiber.Handler {
	serve := websocket.New(h.serve)
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return serve(c)
	}
}

func (h *Handler) serve(conn *websocket.Conn) {
	identity, _ := auth.IdentityFromLocals(conn.Locals(auth.IdentityLocalsKey))
	client := newConnection(uuid.NewString(), identity, conn, h.cfg.WriteTimeout, h.cfg.SendBuffer)

	if err := h.hub.Connect(client); err != nil {
		frame := failed("", asCallError(err))
		_ = conn.WriteJSON(frame)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go client.writeLoop(h.logger)
	h.markOnline(ctx, identity)
	go h.heartbeat(ctx, identity)

	// The socket goes back to the pool once serve returns, so the writer
	// must be gone first.
	defer func() {
		cancel()
		h.hub.Disconnect(client)
		client.shutdown()
		h.markOffline(identity)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket closed unexpectedly",
					zap.String("connection_id", client.ID()),
					zap.Error(err))
			}
			return
		}
		completion := Dispatch(ctx, h.hub, client, msg)
		if err := client.sendJSON(completion); err != nil {
			h.logger.Warn("failed to queue completion",
				zap.String("connection_id", client.ID()),
				zap.String("invocation_id", completion.InvocationID),
				zap.Error(err))
		}
	}
}

// heartbeat refreshes the stored last-seen time so other instances keep
// counting the agent as online.
func (h *Handler) heartbeat(ctx context.Context, identity domain.Identity) {
	if h.presence == nil || h.cfg.Heartbeat <= 0 {
		return
	}
	ticker := time.NewTicker(h.cfg.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.presence.MarkOnline(ctx, identity.AgentID)
		}
	}
}

func (h *Handler) markOnline(ctx context.Context, identity domain.Identity) {
	if h.presence != nil {
		h.presence.MarkOnline(ctx, identity.AgentID)
	}
}

func (h *Handler) markOffline(identity domain.Identity) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.presence.MarkOffline(ctx, identity.AgentID)
}
