package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/api/dto"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/hub"
	"github.com/spec-kit/support-hub/internal/repository"
	"github.com/spec-kit/support-hub/internal/validation"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

// CodeSessionClosed rejects messages posted to a closed session.
const CodeSessionClosed = "SESSION_CLOSED"

// RoomBroadcaster pushes an event to one session room.
type RoomBroadcaster interface {
	BroadcastRoom(ctx context.Context, sessionID, event string, payload any) error
}

// SessionService manages chat sessions and their persisted messages.
type SessionService struct {
	sessions    repository.SessionRepository
	messages    repository.MessageRepository
	validators  *validation.Set
	broadcaster RoomBroadcaster
	now         func() time.Time
	logger      *zap.Logger
}

// SessionDependencies bundles collaborators for session service.
type SessionDependencies struct {
	SessionRepo repository.SessionRepository
	MessageRepo repository.MessageRepository
	Validators  *validation.Set
	Broadcaster RoomBroadcaster
	Clock       func() time.Time
	Logger      *zap.Logger
}

// NewSessionService constructs the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:    deps.SessionRepo,
		messages:    deps.MessageRepo,
		validators:  deps.Validators,
		broadcaster: deps.Broadcaster,
		now:         now,
		logger:      logger,
	}
}

// CreateSession opens a new chat session.
func (s *SessionService) CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*domain.Session, error) {
	if err := validation.Run(ctx, s.validators.CreateSession, req); err != nil {
		return nil, err
	}
	session := &domain.Session{
		UserID:          *canonicalID(&req.UserID),
		AssignedAgentID: canonicalID(req.AssignedAgentID),
		Status:          domain.SessionStatusActive,
		Metadata:        req.Metadata,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns a single session.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	if err := requireID("session", id); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "session", id)
	}
	return session, nil
}

// CloseSession marks a session closed. Closing twice is a no-op.
func (s *SessionService) CloseSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusClosed {
		return session, nil
	}
	ok, err := s.sessions.Close(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewNotFound("session", map[string]any{"id": id})
	}
	return s.GetSession(ctx, id)
}

// PostMessage persists an agent message and echoes it to the session room.
func (s *SessionService) PostMessage(ctx context.Context, actor domain.Identity, sessionID string, req dto.SendMessageRequest) (*domain.Message, error) {
	if err := validation.Run(ctx, s.validators.SendMessage, req); err != nil {
		return nil, err
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusClosed {
		return nil, apperrors.NewOperationNotPermitted([]apperrors.FieldError{{
			Property: "sessionId",
			Message:  "session is closed",
			Code:     CodeSessionClosed,
		}})
	}

	now := s.now().UTC()
	message := &domain.Message{
		SessionID:   session.ID,
		SenderID:    actor.AgentID,
		SenderType:  domain.SenderTypeAgent,
		Text:        strings.TrimSpace(req.Text),
		Attachments: req.Attachments,
		CreatedAt:   now,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		s.logger.Warn("failed to touch session", zap.String("session_id", session.ID), zap.Error(err))
	}

	s.echo(ctx, actor, message)
	return message, nil
}

// ListMessages pages through a session's messages after an optional cursor.
func (s *SessionService) ListMessages(ctx context.Context, sessionID string, q dto.MessageCursorQuery) ([]domain.Message, bool, error) {
	if err := validation.Run(ctx, s.validators.MessageCursor, q); err != nil {
		return nil, false, err
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, false, err
	}

	cursor := canonicalID(q.After)
	items, hasMore, err := s.messages.ListAfter(ctx, sessionID, cursor, q.Limit)
	if err != nil {
		id := ""
		if cursor != nil {
			id = *cursor
		}
		return nil, false, notFoundAs(err, "message", id)
	}
	return items, hasMore, nil
}

func (s *SessionService) echo(ctx context.Context, actor domain.Identity, message *domain.Message) {
	if s.broadcaster == nil {
		return
	}
	err := s.broadcaster.BroadcastRoom(ctx, message.SessionID, hub.EventReceiveMessage, hub.ChatMessage{
		MessageID:   message.ID,
		SessionID:   message.SessionID,
		SenderID:    message.SenderID,
		SenderName:  actor.AgentName,
		SenderType:  message.SenderType,
		Text:        message.Text,
		Attachments: message.Attachments,
		Timestamp:   message.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("failed to echo message",
			zap.String("session_id", message.SessionID),
			zap.String("message_id", message.ID),
			zap.Error(err))
	}
}
