// Package hub fans realtime events out to connected agents. Room membership
// lives in a presence.Registry; the hub owns the live client handles and the
// per-connection rate limiters.
package hub

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/support-hub/internal/config"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/observability"
	"github.com/spec-kit/support-hub/internal/presence"
)

// Client is one live connection.
type Client interface {
	ID() string
	Identity() domain.Identity
	Send(env Envelope) error
}

type clientState struct {
	client  Client
	limiter *rate.Limiter
}

// Hub coordinates room membership and broadcasts.
type Hub struct {
	registry *presence.Registry
	logger   *zap.Logger
	metrics  *observability.Metrics
	cfg      config.HubConfig
	now      func() time.Time
	newID    func() string

	mu      sync.RWMutex
	clients map[string]*clientState
}

// Option customises a Hub.
type Option func(*Hub)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// WithIDGenerator replaces the message id generator.
func WithIDGenerator(newID func() string) Option {
	return func(h *Hub) {
		h.newID = newID
	}
}

// New builds a hub on top of registry.
func New(registry *presence.Registry, logger *zap.Logger, metrics *observability.Metrics, cfg config.HubConfig, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
		clients:  make(map[string]*clientState),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registry exposes the presence registry backing the hub.
func (h *Hub) Registry() *presence.Registry {
	return h.registry
}

// Connect registers the client and enrolls it in the team room.
func (h *Hub) Connect(c Client) error {
	identity := c.Identity()
	if identity.IsZero() {
		h.metrics.RecordCallError(CodeAuthenticationRequired)
		return callError(CodeAuthenticationRequired, "an authenticated agent is required")
	}

	h.mu.Lock()
	h.clients[c.ID()] = &clientState{client: c, limiter: h.newLimiter()}
	h.mu.Unlock()

	h.registry.Join(presence.TeamRoom, presence.Member{
		ConnectionID: c.ID(),
		AgentID:      identity.AgentID,
		AgentName:    identity.AgentName,
	})
	h.metrics.ConnectionOpened()
	h.logger.Info("hub client connected",
		zap.String("connection_id", c.ID()),
		zap.String("agent_id", identity.AgentID))
	return nil
}

// Disconnect drops the client from every room it joined.
func (h *Hub) Disconnect(c Client) {
	h.mu.Lock()
	_, known := h.clients[c.ID()]
	delete(h.clients, c.ID())
	h.mu.Unlock()

	rooms := h.registry.Disconnect(c.ID())
	if !known {
		return
	}
	h.metrics.ConnectionClosed()
	h.logger.Info("hub client disconnected",
		zap.String("connection_id", c.ID()),
		zap.Strings("rooms", rooms))
}

// JoinRoom adds the caller to a session room and announces it to the room,
// the caller included.
func (h *Hub) JoinRoom(ctx context.Context, c Client, sessionID string) error {
	return h.call(c, "JoinRoom", func() error {
		identity, err := h.authorize(c)
		if err != nil {
			return err
		}
		room, err := normalizeSessionID(sessionID)
		if err != nil {
			return err
		}
		h.registry.Join(room, presence.Member{
			ConnectionID: c.ID(),
			AgentID:      identity.AgentID,
			AgentName:    identity.AgentName,
		})
		h.broadcast(ctx, room, EventAgentJoined, AgentJoinedNotification{
			SessionID: room,
			AgentID:   identity.AgentID,
			AgentName: identity.AgentName,
			Timestamp: h.timestamp(),
		}, "")
		return nil
	})
}

// LeaveRoom removes the caller from a session room and announces it to the
// remaining members.
func (h *Hub) LeaveRoom(ctx context.Context, c Client, sessionID string) error {
	return h.call(c, "LeaveRoom", func() error {
		identity, err := h.authorize(c)
		if err != nil {
			return err
		}
		room, err := normalizeSessionID(sessionID)
		if err != nil {
			return err
		}
		h.registry.Leave(room, c.ID())
		h.broadcast(ctx, room, EventAgentLeft, AgentLeftNotification{
			SessionID: room,
			AgentID:   identity.AgentID,
			AgentName: identity.AgentName,
			Timestamp: h.timestamp(),
		}, "")
		return nil
	})
}

// SendMessage echoes an agent message to the whole room, sender included.
// The message is not persisted here.
func (h *Hub) SendMessage(ctx context.Context, c Client, sessionID, text string, attachments []domain.Attachment) (*ChatMessage, error) {
	var msg *ChatMessage
	err := h.call(c, "SendMessage", func() error {
		identity, err := h.authorize(c)
		if err != nil {
			return err
		}
		room, err := normalizeSessionID(sessionID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return callError(CodeTextRequired, "message text is required")
		}
		if err := h.allow(c); err != nil {
			return err
		}
		if attachments == nil {
			attachments = []domain.Attachment{}
		}
		msg = &ChatMessage{
			MessageID:   h.newID(),
			SessionID:   room,
			SenderID:    identity.AgentID,
			SenderName:  identity.AgentName,
			SenderType:  domain.SenderTypeAgent,
			Text:        text,
			Attachments: attachments,
			Timestamp:   h.timestamp(),
		}
		h.broadcast(ctx, room, EventReceiveMessage, *msg, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// NotifyTyping tells every other room member whether the caller is typing.
func (h *Hub) NotifyTyping(ctx context.Context, c Client, sessionID string, isTyping bool) error {
	return h.call(c, "NotifyTyping", func() error {
		identity, err := h.authorize(c)
		if err != nil {
			return err
		}
		room, err := normalizeSessionID(sessionID)
		if err != nil {
			return err
		}
		if err := h.allow(c); err != nil {
			return err
		}
		h.broadcast(ctx, room, EventAgentTyping, AgentTypingNotification{
			SessionID: room,
			AgentID:   identity.AgentID,
			AgentName: identity.AgentName,
			IsTyping:  isTyping,
		}, c.ID())
		return nil
	})
}

// BroadcastTeam pushes a server-originated event to every connected agent.
func (h *Hub) BroadcastTeam(ctx context.Context, event string, payload any) (err error) {
	defer h.recoverInto(&err, event)
	h.broadcast(ctx, presence.TeamRoom, event, payload, "")
	return nil
}

// BroadcastRoom pushes a server-originated event to one session room.
func (h *Hub) BroadcastRoom(ctx context.Context, sessionID, event string, payload any) (err error) {
	defer h.recoverInto(&err, event)
	room, err := normalizeSessionID(sessionID)
	if err != nil {
		return err
	}
	h.broadcast(ctx, room, event, payload, "")
	return nil
}

func (h *Hub) call(c Client, method string, fn func() error) (err error) {
	defer h.recoverInto(&err, method)
	err = fn()
	var ce *CallError
	if errors.As(err, &ce) {
		h.metrics.RecordCallError(ce.Code)
		h.logger.Warn("hub call rejected",
			zap.String("method", method),
			zap.String("connection_id", c.ID()),
			zap.String("code", ce.Code))
	}
	return err
}

func (h *Hub) recoverInto(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	h.logger.Error("hub operation panicked",
		zap.String("operation", operation),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()))
	h.metrics.RecordCallError(CodeBroadcastFailed)
	*err = callError(CodeBroadcastFailed, fmt.Sprintf("%s could not be completed", operation))
}

func (h *Hub) authorize(c Client) (domain.Identity, error) {
	identity := c.Identity()
	if identity.IsZero() {
		return domain.Identity{}, callError(CodeAuthenticationRequired, "an authenticated agent is required")
	}
	h.mu.RLock()
	_, ok := h.clients[c.ID()]
	h.mu.RUnlock()
	if !ok {
		return domain.Identity{}, callError(CodeNotConnected, "connection is not registered with the hub")
	}
	return identity, nil
}

func (h *Hub) allow(c Client) error {
	h.mu.RLock()
	state, ok := h.clients[c.ID()]
	h.mu.RUnlock()
	if ok && state.limiter != nil && !state.limiter.Allow() {
		return callError(CodeRateLimited, "too many messages, slow down")
	}
	return nil
}

func (h *Hub) newLimiter() *rate.Limiter {
	if h.cfg.MessagesPerSecond <= 0 {
		return nil
	}
	burst := h.cfg.MessageBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), burst)
}

// broadcast writes the event to a snapshot of the room, skipping exceptID.
// Failed writes are logged and counted; they do not fail the broadcast.
func (h *Hub) broadcast(ctx context.Context, room, event string, payload any, exceptID string) {
	env := Envelope{Type: event, Data: payload}
	members := h.registry.Members(room)

	delivered, failed := 0, 0
	for _, m := range members {
		if m.ConnectionID == exceptID {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		h.mu.RLock()
		state, ok := h.clients[m.ConnectionID]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		if err := state.client.Send(env); err != nil {
			failed++
			h.logger.Warn("hub delivery failed",
				zap.String("event", event),
				zap.String("room", room),
				zap.String("connection_id", m.ConnectionID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	h.metrics.RecordBroadcast(event, delivered, failed)
}

func (h *Hub) timestamp() time.Time {
	return h.now().UTC()
}

func normalizeSessionID(sessionID string) (string, error) {
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return "", callError(CodeInvalidSessionID, "session id is required")
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil || parsed == uuid.Nil {
		return "", callError(CodeInvalidSessionID, "session id must be a valid identifier")
	}
	return parsed.String(), nil
}
