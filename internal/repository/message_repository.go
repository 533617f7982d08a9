package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/spec-kit/support-hub/internal/domain"
)

// MessageRepository persists chat messages. Messages are ordered by
// (created_at, id) and paged with a message id cursor.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListAfter(ctx context.Context, sessionID string, cursor *string, limit int) ([]domain.Message, bool, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	const query = `
        INSERT INTO messages (session_id, sender_id, sender_type, text, attachments)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	attachments := message.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	err := r.pool.QueryRow(ctx, query,
		message.SessionID,
		message.SenderID,
		message.SenderType,
		message.Text,
		attachments,
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to insert message", goerr.V("session_id", message.SessionID))
	}
	message.Attachments = attachments
	return nil
}

func (r *messageRepository) ListAfter(ctx context.Context, sessionID string, cursor *string, limit int) ([]domain.Message, bool, error) {
	if limit <= 0 {
		limit = 50
	}

	after := time.Time{}
	afterID := ""
	if cursor != nil {
		err := r.pool.QueryRow(ctx,
			`SELECT created_at, id FROM messages WHERE id=$1 AND session_id=$2`,
			*cursor, sessionID,
		).Scan(&after, &afterID)
		if err != nil {
			return nil, false, goerr.Wrap(notFoundOr(err), "failed to resolve message cursor",
				goerr.V("session_id", sessionID), goerr.V("cursor", *cursor))
		}
	}

	const query = `
        SELECT id, session_id, sender_id, sender_type, text, attachments, created_at
        FROM messages
        WHERE session_id=$1 AND ($2::uuid IS NULL OR (created_at, id) > ($3, $2::uuid))
        ORDER BY created_at ASC, id ASC
        LIMIT $4`
	var cursorArg *string
	if afterID != "" {
		cursorArg = &afterID
	}
	rows, err := r.pool.Query(ctx, query, sessionID, cursorArg, after, limit+1)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to list messages", goerr.V("session_id", sessionID))
	}
	defer rows.Close()

	result := []domain.Message{}
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(
			&message.ID,
			&message.SessionID,
			&message.SenderID,
			&message.SenderType,
			&message.Text,
			&message.Attachments,
			&message.CreatedAt,
		); err != nil {
			return nil, false, goerr.Wrap(err, "failed to scan message")
		}
		if message.Attachments == nil {
			message.Attachments = []domain.Attachment{}
		}
		result = append(result, message)
	}
	if err := rows.Err(); err != nil {
		return nil, false, goerr.Wrap(err, "failed to iterate messages")
	}

	hasMore := len(result) > limit
	if hasMore {
		result = result[:limit]
	}
	return result, hasMore, nil
}
