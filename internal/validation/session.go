package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/spec-kit/support-hub/internal/api/dto"
	"github.com/spec-kit/support-hub/internal/config"
	"github.com/spec-kit/support-hub/internal/domain"
)

// CreateSession validates chat session creation.
type CreateSession struct {
	agent Validator[*string]
}

// NewCreateSession builds the validator; agent checks the optional assignee.
func NewCreateSession(agent Validator[*string]) *CreateSession {
	return &CreateSession{agent: agent}
}

func (v *CreateSession) Validate(ctx context.Context, req dto.CreateSessionRequest) (Result, error) {
	var res Result
	switch userID := strings.TrimSpace(req.UserID); {
	case userID == "":
		res.Add("userId", CodeUserIDRequired, "user id is required")
	default:
		if parsed, err := uuid.Parse(userID); err != nil || parsed == uuid.Nil {
			res.Add("userId", CodeInvalidUserID, "user id must be a valid identifier")
		}
	}
	if raw := bytes.TrimSpace(req.Metadata); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			res.Add("metadata", CodeInvalidMetadata, "metadata must be a JSON object")
		}
	}
	agentRes, err := v.agent.Validate(ctx, req.AssignedAgentID)
	if err != nil {
		return Result{}, err
	}
	res.Merge(agentRes)
	return res, nil
}

// SendMessage validates message payloads, including each attachment.
func SendMessage(_ context.Context, req dto.SendMessageRequest) (Result, error) {
	var res Result
	text := strings.TrimSpace(req.Text)
	switch {
	case text == "":
		res.Add("text", CodeTextRequired, "text is required")
	case utf8.RuneCountInString(text) > maxMessageLength:
		res.Add("text", CodeTextTooLong, fmt.Sprintf("text must be at most %d characters", maxMessageLength))
	}
	for i, att := range req.Attachments {
		res.Merge(validateAttachment(fmt.Sprintf("attachments[%d]", i), att))
	}
	return res, nil
}

func validateAttachment(prefix string, att domain.Attachment) Result {
	var res Result
	if strings.TrimSpace(att.URL) == "" {
		res.Add(prefix+".url", CodeAttachmentURL, "attachment url is required")
	}
	if strings.TrimSpace(att.Name) == "" {
		res.Add(prefix+".name", CodeAttachmentName, "attachment name is required")
	}
	if att.Size < 0 {
		res.Add(prefix+".size", CodeAttachmentSize, "attachment size must not be negative")
	}
	return res
}

// MessageCursor validates message paging parameters.
type MessageCursor struct {
	cfg config.QueryConfig
}

// NewMessageCursor builds the validator.
func NewMessageCursor(cfg config.QueryConfig) *MessageCursor {
	return &MessageCursor{cfg: cfg}
}

func (v *MessageCursor) Validate(_ context.Context, q dto.MessageCursorQuery) (Result, error) {
	var res Result
	if q.After != nil {
		if _, err := uuid.Parse(*q.After); err != nil {
			res.Add("after", CodeInvalidCursor, "cursor must be a message id")
		}
	}
	if q.Limit < 1 || q.Limit > v.cfg.MaxPageSize {
		res.Add("limit", CodeInvalidLimit, fmt.Sprintf("limit must be between 1 and %d", v.cfg.MaxPageSize))
	}
	return res, nil
}
