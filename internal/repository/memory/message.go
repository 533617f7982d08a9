package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/repository"
)

type messageRepository struct {
	mu       sync.RWMutex
	now      func() time.Time
	messages map[string][]domain.Message // session -> messages in insert order
}

var _ repository.MessageRepository = &messageRepository{}

func newMessageRepository(now func() time.Time) *messageRepository {
	return &messageRepository{
		now:      now,
		messages: make(map[string][]domain.Message),
	}
}

func copyMessage(m domain.Message) domain.Message {
	m.Attachments = append([]domain.Attachment{}, m.Attachments...)
	return m
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = r.now()
	}
	if message.Attachments == nil {
		message.Attachments = []domain.Attachment{}
	}
	r.messages[message.SessionID] = append(r.messages[message.SessionID], copyMessage(*message))
	return nil
}

func (r *messageRepository) ListAfter(ctx context.Context, sessionID string, cursor *string, limit int) ([]domain.Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	all := r.messages[sessionID]

	start := 0
	if cursor != nil {
		found := false
		for i, m := range all {
			if m.ID == *cursor {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, false, goerr.Wrap(repository.ErrNotFound, "message cursor not found",
				goerr.V("session_id", sessionID), goerr.V("cursor", *cursor))
		}
	}

	out := []domain.Message{}
	for i := start; i < len(all) && len(out) < limit; i++ {
		out = append(out, copyMessage(all[i]))
	}
	return out, start+len(out) < len(all), nil
}
