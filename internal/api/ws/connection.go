package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/domain"
	"github.com/spec-kit/support-hub/internal/hub"
)

var (
	errConnectionClosed = errors.New("connection closed")
	errSendBufferFull   = errors.New("send buffer full")
)

type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// connection is a hub.Client backed by one socket. Writes go through a
// buffered queue drained by a single writer goroutine, so a slow peer never
// blocks a broadcast.
type connection struct {
	id           string
	identity     domain.Identity
	writer       frameWriter
	writeTimeout time.Duration

	send      chan []byte
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

var _ hub.Client = &connection{}

func newConnection(id string, identity domain.Identity, writer frameWriter, writeTimeout time.Duration, buffer int) *connection {
	if buffer <= 0 {
		buffer = 32
	}
	return &connection{
		id:           id,
		identity:     identity,
		writer:       writer,
		writeTimeout: writeTimeout,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

func (c *connection) ID() string {
	return c.id
}

func (c *connection) Identity() domain.Identity {
	return c.identity
}

func (c *connection) Send(env hub.Envelope) error {
	return c.sendJSON(env)
}

func (c *connection) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errConnectionClosed
	default:
		return errSendBufferFull
	}
}

// writeLoop drains the queue until the connection closes or a write fails.
// It closes stopped on return; nothing touches the writer after that.
func (c *connection) writeLoop(logger *zap.Logger) {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			return
		default:
		}
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if c.closed() {
				return
			}
			if c.writeTimeout > 0 {
				_ = c.writer.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := c.writer.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Warn("websocket write failed",
					zap.String("connection_id", c.id),
					zap.Error(err))
				c.close()
				return
			}
		}
	}
}

func (c *connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// shutdown closes the connection and blocks until the writer has returned.
func (c *connection) shutdown() {
	c.close()
	<-c.stopped
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
