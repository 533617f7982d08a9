// Package ws carries hub calls and events over WebSocket frames.
package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/hub"
)

// Callable hub methods.
const (
	TargetJoinRoom     = "JoinRoom"
	TargetLeaveRoom    = "LeaveRoom"
	TargetSendMessage  = "SendMessage"
	TargetNotifyTyping = "NotifyTyping"
)

// FrameCompletion is the type of the frame answering an invocation.
const FrameCompletion = "completion"

// Hub is the part of the realtime hub driven by client frames.
type Hub interface {
	Connect(c hub.Client) error
	Disconnect(c hub.Client)
	JoinRoom(ctx context.Context, c hub.Client, sessionID string) error
	LeaveRoom(ctx context.Context, c hub.Client, sessionID string) error
	SendMessage(ctx context.Context, c hub.Client, sessionID, text string, attachments []domain.Attachment) (*hub.ChatMessage, error)
	NotifyTyping(ctx context.Context, c hub.Client, sessionID string, isTyping bool) error
}

// InvocationFrame is a client call.
type InvocationFrame struct {
	InvocationID string          `json:"invocationId"`
	Target       string          `json:"target"`
	Arguments    json.RawMessage `json:"arguments"`
}

// CompletionFrame answers one invocation. Error is set only for the caller.
type CompletionFrame struct {
	Type         string         `json:"type"`
	InvocationID string         `json:"invocationId,omitempty"`
	Result       any            `json:"result,omitempty"`
	Error        *hub.CallError `json:"error,omitempty"`
}

type roomArgs struct {
	SessionID string `json:"sessionId"`
}

type sendMessageArgs struct {
	SessionID   string              `json:"sessionId"`
	Text        string              `json:"text"`
	Attachments []domain.Attachment `json:"attachments"`
}

type typingArgs struct {
	SessionID string `json:"sessionId"`
	IsTyping  bool   `json:"isTyping"`
}

// Dispatch decodes one client frame, runs it against the hub and returns the
// completion to write back.
func Dispatch(ctx context.Context, h Hub, c hub.Client, raw []byte) CompletionFrame {
	var frame InvocationFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return failed("", &hub.CallError{Code: hub.CodeInvalidArguments, Message: "frame is not valid JSON"})
	}

	result, err := invoke(ctx, h, c, frame)
	if err != nil {
		return failed(frame.InvocationID, asCallError(err))
	}
	return CompletionFrame{Type: FrameCompletion, InvocationID: frame.InvocationID, Result: result}
}

func invoke(ctx context.Context, h Hub, c hub.Client, frame InvocationFrame) (any, error) {
	switch frame.Target {
	case TargetJoinRoom:
		var args roomArgs
		if err := decodeArgs(frame.Arguments, &args); err != nil {
			return nil, err
		}
		return nil, h.JoinRoom(ctx, c, args.SessionID)
	case TargetLeaveRoom:
		var args roomArgs
		if err := decodeArgs(frame.Arguments, &args); err != nil {
			return nil, err
		}
		return nil, h.LeaveRoom(ctx, c, args.SessionID)
	case TargetSendMessage:
		var args sendMessageArgs
		if err := decodeArgs(frame.Arguments, &args); err != nil {
			return nil, err
		}
		msg, err := h.SendMessage(ctx, c, args.SessionID, args.Text, args.Attachments)
		if err != nil {
			return nil, err
		}
		return msg, nil
	case TargetNotifyTyping:
		var args typingArgs
		if err := decodeArgs(frame.Arguments, &args); err != nil {
			return nil, err
		}
		return nil, h.NotifyTyping(ctx, c, args.SessionID, args.IsTyping)
	default:
		return nil, &hub.CallError{Code: hub.CodeUnknownMethod, Message: "unknown method " + frame.Target}
	}
}

func decodeArgs(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &hub.CallError{Code: hub.CodeInvalidArguments, Message: "arguments do not match the method"}
	}
	return nil
}

func asCallError(err error) *hub.CallError {
	var ce *hub.CallError
	if errors.As(err, &ce) {
		return ce
	}
	return &hub.CallError{Code: hub.CodeBroadcastFailed, Message: "call could not be completed"}
}

func failed(invocationID string, err *hub.CallError) CompletionFrame {
	return CompletionFrame{Type: FrameCompletion, InvocationID: invocationID, Error: err}
}
