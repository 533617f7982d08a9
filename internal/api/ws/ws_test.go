package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/config"
	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/hub"
	"github.com/spec-kit/support-hub/internal/observability"
	"github.com/spec-kit/support-hub/internal/presence"
)

const sessionID = "8a3e5b9c-1d2f-4e6a-9b7c-0d1e2f3a4b5c"

type fakeWriter struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (f *fakeWriter) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeWriter) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func newTestHub() *hub.Hub {
	return hub.New(presence.NewRegistry(), nil, observability.NewMetrics(), config.HubConfig{})
}

func connect(t *testing.T, h *hub.Hub, id, agentID, name string) *connection {
	t.Helper()
	c := newConnection(id, domain.Identity{AgentID: agentID, AgentName: name}, &fakeWriter{}, time.Second, 16)
	gt.NoError(t, h.Connect(c)).Required()
	return c
}

func drain(c *connection) []hub.Envelope {
	out := []hub.Envelope{}
	for {
		select {
		case payload := <-c.send:
			var env hub.Envelope
			if err := json.Unmarshal(payload, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func frame(target string, args any) []byte {
	raw, _ := json.Marshal(args)
	data, _ := json.Marshal(InvocationFrame{InvocationID: "call-1", Target: target, Arguments: raw})
	return data
}

func TestDispatchRoutesCalls(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()
	ada := connect(t, h, "c1", "a1", "Ada")
	grace := connect(t, h, "c2", "a2", "Grace")

	for _, c := range []*connection{ada, grace} {
		done := Dispatch(ctx, h, c, frame(TargetJoinRoom, map[string]any{"sessionId": sessionID}))
		gt.Value(t, done.Error).Nil()
		gt.Value(t, done.InvocationID).Equal("call-1")
		gt.Value(t, done.Type).Equal(FrameCompletion)
	}
	drain(ada)
	drain(grace)

	done := Dispatch(ctx, h, ada, frame(TargetSendMessage, map[string]any{"sessionId": sessionID, "text": "hi"}))
	gt.Value(t, done.Error).Nil()
	msg, ok := done.Result.(*hub.ChatMessage)
	gt.Bool(t, ok).True()
	gt.Value(t, msg.SenderName).Equal("Ada")

	got := drain(grace)
	gt.Array(t, got).Length(1).Required()
	gt.Value(t, got[0].Type).Equal(hub.EventReceiveMessage)
	gt.Array(t, drain(ada)).Length(1)

	done = Dispatch(ctx, h, ada, frame(TargetNotifyTyping, map[string]any{"sessionId": sessionID, "isTyping": true}))
	gt.Value(t, done.Error).Nil()
	gt.Array(t, drain(ada)).Length(0)
	got = drain(grace)
	gt.Array(t, got).Length(1).Required()
	gt.Value(t, got[0].Type).Equal(hub.EventAgentTyping)

	done = Dispatch(ctx, h, ada, frame(TargetLeaveRoom, map[string]any{"sessionId": sessionID}))
	gt.Value(t, done.Error).Nil()
	gt.Bool(t, h.Registry().IsMember(sessionID, "c1")).False()
}

func TestDispatchErrors(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()
	c := connect(t, h, "c1", "a1", "Ada")

	testCases := map[string]struct {
		raw  []byte
		code string
	}{
		"malformed json":   {raw: []byte(`{"target":`), code: hub.CodeInvalidArguments},
		"unknown target":   {raw: frame("DeleteEverything", map[string]any{}), code: hub.CodeUnknownMethod},
		"wrong arg types":  {raw: frame(TargetJoinRoom, map[string]any{"sessionId": 42}), code: hub.CodeInvalidArguments},
		"missing session":  {raw: frame(TargetJoinRoom, nil), code: hub.CodeInvalidSessionID},
		"empty text":       {raw: frame(TargetSendMessage, map[string]any{"sessionId": sessionID, "text": " "}), code: hub.CodeTextRequired},
		"bad session uuid": {raw: frame(TargetNotifyTyping, map[string]any{"sessionId": "room-1"}), code: hub.CodeInvalidSessionID},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			done := Dispatch(ctx, h, c, tc.raw)
			gt.Value(t, done.Error).NotNil()
			gt.Value(t, done.Error.Code).Equal(tc.code)
			gt.Value(t, done.Result).Nil()
		})
	}
}

func TestAsCallErrorHidesUnexpectedErrors(t *testing.T) {
	ce := asCallError(errors.New("boom"))
	gt.Value(t, ce.Code).Equal(hub.CodeBroadcastFailed)
}

func TestConnectionWriteLoop(t *testing.T) {
	writer := &fakeWriter{}
	c := newConnection("c1", domain.Identity{AgentID: "a1", AgentName: "Ada"}, writer, time.Second, 4)
	go c.writeLoop(zap.NewNop())

	for i := 0; i < 3; i++ {
		gt.NoError(t, c.Send(hub.Envelope{Type: hub.EventAgentJoined})).Required()
	}
	deadline := time.Now().Add(2 * time.Second)
	for writer.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	gt.Value(t, writer.count()).Equal(3)

	c.close()
	gt.Error(t, c.Send(hub.Envelope{Type: hub.EventAgentLeft})).Is(errConnectionClosed)
}

func TestConnectionClosesOnWriteFailure(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broken pipe")}
	c := newConnection("c1", domain.Identity{AgentID: "a1", AgentName: "Ada"}, writer, 0, 4)

	done := make(chan struct{})
	go func() {
		c.writeLoop(zap.NewNop())
		close(done)
	}()
	gt.NoError(t, c.Send(hub.Envelope{Type: hub.EventAgentJoined})).Required()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("write loop did not exit")
	}
	gt.Error(t, c.Send(hub.Envelope{Type: hub.EventAgentJoined})).Is(errConnectionClosed)
}

func TestConnectionRejectsWhenBufferFull(t *testing.T) {
	c := newConnection("c1", domain.Identity{AgentID: "a1", AgentName: "Ada"}, &fakeWriter{}, 0, 1)

	gt.NoError(t, c.Send(hub.Envelope{Type: hub.EventAgentJoined})).Required()
	gt.Error(t, c.Send(hub.Envelope{Type: hub.EventAgentJoined})).Is(errSendBufferFull)
}

func TestConnectionDoesNotWriteAfterClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		writer := &fakeWriter{}
		c := newConnection("c1", domain.Identity{AgentID: "a1", AgentName: "Ada"}, writer, 0, 4)
		gt.NoError(t, c.Send(hub.Envelope{Type: hub.EventReceiveMessage})).Required()
		c.close()

		c.writeLoop(zap.NewNop())
		gt.Value(t, writer.count()).Equal(0)
	}
}

type blockingWriter struct {
	entered chan struct{}
	release chan struct{}
	writes  int
	mu      sync.Mutex
}

func (b *blockingWriter) WriteMessage(int, []byte) error {
	b.mu.Lock()
	b.writes++
	b.mu.Unlock()
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingWriter) SetWriteDeadline(time.Time) error { return nil }

func TestShutdownWaitsForInFlightWrite(t *testing.T) {
	writer := &blockingWriter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	c := newConnection("c1", domain.Identity{AgentID: "a1", AgentName: "Ada"}, writer, 0, 4)
	go c.writeLoop(zap.NewNop())

	gt.NoError(t, c.Send(hub.Envelope{Type: hub.EventReceiveMessage})).Required()
	<-writer.entered
	gt.NoError(t, c.Send(hub.Envelope{Type: hub.EventReceiveMessage})).Required()

	finished := make(chan struct{})
	go func() {
		c.shutdown()
		close(finished)
	}()

	select {
	case <-finished:
		t.Fatal("shutdown returned while a write was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(writer.release)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	gt.Value(t, writer.writes).Equal(1)
}
