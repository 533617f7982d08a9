package worker

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/service"
)

// RelayMessage is the frame carried on the relay channel.
type RelayMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NotificationRelay fans team notifications out across instances through a
// Redis Pub/Sub channel. Every instance, the publisher included, delivers
// what it receives to its own hub connections.
type NotificationRelay struct {
	client      *redis.Client
	channel     string
	broadcaster service.TeamBroadcaster
	logger      *zap.Logger
}

var _ service.NotificationRelay = &NotificationRelay{}

// NewNotificationRelay builds the relay.
func NewNotificationRelay(client *redis.Client, channel string, broadcaster service.TeamBroadcaster, logger *zap.Logger) *NotificationRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationRelay{
		client:      client,
		channel:     channel,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Publish sends one notification to the channel.
func (r *NotificationRelay) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return goerr.Wrap(err, "failed to encode notification", goerr.V("event", event))
	}
	frame, err := json.Marshal(RelayMessage{Event: event, Data: data})
	if err != nil {
		return goerr.Wrap(err, "failed to encode relay frame", goerr.V("event", event))
	}
	if err := r.client.Publish(ctx, r.channel, frame).Err(); err != nil {
		return goerr.Wrap(err, "failed to publish notification",
			goerr.V("event", event), goerr.V("channel", r.channel))
	}
	return nil
}

// Run subscribes to the channel and delivers until ctx is cancelled.
func (r *NotificationRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return goerr.Wrap(err, "failed to subscribe to relay channel", goerr.V("channel", r.channel))
	}
	r.logger.Info("notification relay subscribed", zap.String("channel", r.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.deliver(ctx, msg.Payload)
		}
	}
}

func (r *NotificationRelay) deliver(ctx context.Context, payload string) {
	var msg RelayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.Event == "" {
		r.logger.Warn("dropping malformed relay frame", zap.String("channel", r.channel), zap.Error(err))
		return
	}
	if err := r.broadcaster.BroadcastTeam(ctx, msg.Event, msg.Data); err != nil {
		r.logger.Warn("relay delivery failed", zap.String("event", msg.Event), zap.Error(err))
	}
}
