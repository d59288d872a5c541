package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fundlink/chat-service/internal/domain"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []DomainEvent
}

func (r *recordingNotifier) Notify(_ context.Context, userID int64, notificationType, content string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, DomainEvent{Type: notificationType, UserID: userID, Content: content})
	return &domain.Notification{UserID: userID, Type: notificationType, Content: content}, nil
}

func (r *recordingNotifier) List(_ context.Context, _ int64) ([]domain.Notification, error) {
	return nil, nil
}

func (r *recordingNotifier) snapshot() []DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DomainEvent, len(r.calls))
	copy(out, r.calls)
	return out
}

func TestSubscriberDispatchesDomainEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	notifier := &recordingNotifier{}
	sub := NewSubscriber(client, "marketplace:events", notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	// Give the subscription time to become active before publishing.
	waitForSubscriber(t, client, "marketplace:events")

	payload, _ := json.Marshal(DomainEvent{
		Type:    domain.NotificationTypeInvestment,
		UserID:  42,
		Content: "Ivan invested in your proposal",
	})
	client.Publish(ctx, "marketplace:events", payload)

	waitFor(t, func() bool { return len(notifier.snapshot()) == 1 })
	got := notifier.snapshot()[0]
	if got.UserID != 42 || got.Type != domain.NotificationTypeInvestment {
		t.Errorf("unexpected dispatch: %+v", got)
	}

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Error("subscriber did not stop on cancel")
	}
}

func TestSubscriberSkipsMalformedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	notifier := &recordingNotifier{}
	sub := NewSubscriber(client, "marketplace:events", notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)
	waitForSubscriber(t, client, "marketplace:events")

	client.Publish(ctx, "marketplace:events", "not-json")
	client.Publish(ctx, "marketplace:events", `{"type":"SYSTEM","user_id":0,"content":"no recipient"}`)

	valid, _ := json.Marshal(DomainEvent{Type: domain.NotificationTypeSystem, UserID: 7, Content: "ok"})
	client.Publish(ctx, "marketplace:events", valid)

	waitFor(t, func() bool { return len(notifier.snapshot()) == 1 })
	if got := notifier.snapshot(); len(got) != 1 || got[0].UserID != 7 {
		t.Errorf("unexpected dispatches: %+v", got)
	}
}

func waitForSubscriber(t *testing.T, client *redis.Client, channel string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		channels, err := client.PubSubChannels(context.Background(), channel).Result()
		if err == nil && len(channels) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("subscriber never registered")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
