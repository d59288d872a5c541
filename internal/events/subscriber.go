package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fundlink/chat-service/internal/service"
	"github.com/fundlink/chat-service/pkg/log"
)

// DomainEvent is a marketplace event published on the Redis events channel.
// The marketplace HTTP layer publishes one when something notification-worthy
// happens (an investment, a proposal decision), addressed to the recipient.
type DomainEvent struct {
	Type    string `json:"type"`
	UserID  int64  `json:"user_id"`
	Content string `json:"content"`
}

// Subscriber consumes marketplace domain events from Redis Pub/Sub and feeds
// them into the notification side-channel.
type Subscriber struct {
	client        *redis.Client
	channel       string
	notifications service.NotificationService
	doneCh        chan struct{}
}

func NewSubscriber(client *redis.Client, channel string, notifications service.NotificationService) *Subscriber {
	if channel == "" {
		channel = "marketplace:events"
	}
	return &Subscriber{
		client:        client,
		channel:       channel,
		notifications: notifications,
		doneCh:        make(chan struct{}),
	}
}

// Done returns a channel that is closed when Run() exits.
func (s *Subscriber) Done() <-chan struct{} { return s.doneCh }

// Run subscribes to the events channel and dispatches notifications until
// ctx is done. Reconnects on receive errors.
func (s *Subscriber) Run(ctx context.Context) {
	defer close(s.doneCh)
	l := log.L()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := s.runSubscription(ctx); err != nil && ctx.Err() == nil {
				l.Warn().Err(err).Msg("events subscription error, reconnecting in 2s")
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
					continue
				}
			}
			return
		}
	}
}

func (s *Subscriber) runSubscription(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Wait for subscription to be active
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	l := log.L()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event DomainEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l.Warn().Err(err).Msg("malformed domain event, skipping")
				continue
			}
			if event.UserID <= 0 {
				l.Warn().Str("event_type", event.Type).Msg("domain event without recipient, skipping")
				continue
			}

			if _, err := s.notifications.Notify(ctx, event.UserID, event.Type, event.Content); err != nil {
				l.Error().Err(err).Int64(log.FieldUserID, event.UserID).Msg("failed to dispatch notification")
			}
		}
	}
}
