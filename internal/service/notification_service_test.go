package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fundlink/chat-service/internal/domain"
)

type fakePusher struct {
	mu        sync.Mutex
	online    map[int64]bool
	delivered []int64
}

func (f *fakePusher) SendToUser(userID int64, _ interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online[userID] {
		return false
	}
	f.delivered = append(f.delivered, userID)
	return true
}

type fakeNotificationRepo struct {
	mu         sync.Mutex
	rows       []domain.Notification
	nextID     int64
	failCreate bool
	listCalls  int
}

func (f *fakeNotificationRepo) Create(_ context.Context, userID int64, notificationType, content string) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errors.New("store unavailable")
	}
	f.nextID++
	n := domain.Notification{
		ID:        f.nextID,
		UserID:    userID,
		Type:      notificationType,
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.rows = append(f.rows, n)
	return &n, nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []domain.Notification
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

type fakeNotificationCache struct {
	mu            sync.Mutex
	entries       map[int64][]domain.Notification
	invalidations int
}

func newFakeNotificationCache() *fakeNotificationCache {
	return &fakeNotificationCache{entries: map[int64][]domain.Notification{}}
}

func (f *fakeNotificationCache) GetNotifications(_ context.Context, userID int64) ([]domain.Notification, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.entries[userID]
	return n, ok, nil
}

func (f *fakeNotificationCache) SetNotifications(_ context.Context, userID int64, notifications []domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[userID] = notifications
	return nil
}

func (f *fakeNotificationCache) InvalidateNotifications(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
	delete(f.entries, userID)
	return nil
}

func TestNotifyPersistsAndPushesWhenOnline(t *testing.T) {
	pusher := &fakePusher{online: map[int64]bool{42: true}}
	repo := &fakeNotificationRepo{}
	notifCache := newFakeNotificationCache()
	svc := NewNotificationService(pusher, repo, notifCache)

	n, err := svc.Notify(context.Background(), 42, domain.NotificationTypeInvestment, "Ivan invested in your proposal")
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if n.ID == 0 {
		t.Error("expected assigned notification id")
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 persisted notification, got %d", len(repo.rows))
	}
	if len(pusher.delivered) != 1 || pusher.delivered[0] != 42 {
		t.Errorf("expected live push to user 42, got %v", pusher.delivered)
	}
	if notifCache.invalidations != 1 {
		t.Errorf("expected cache invalidation, got %d", notifCache.invalidations)
	}
}

func TestNotifyOfflineRecipientFindsItLater(t *testing.T) {
	pusher := &fakePusher{online: map[int64]bool{}}
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(pusher, repo, newFakeNotificationCache())
	ctx := context.Background()

	if _, err := svc.Notify(ctx, 42, domain.NotificationTypeInvestment, "missed while offline"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(pusher.delivered) != 0 {
		t.Error("expected no live delivery for offline user")
	}

	got, err := svc.List(ctx, 42)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 || got[0].Content != "missed while offline" {
		t.Errorf("notification lost for offline user: %v", got)
	}
}

func TestNotifyPersistFailureSkipsPush(t *testing.T) {
	pusher := &fakePusher{online: map[int64]bool{42: true}}
	repo := &fakeNotificationRepo{failCreate: true}
	svc := NewNotificationService(pusher, repo, newFakeNotificationCache())

	if _, err := svc.Notify(context.Background(), 42, domain.NotificationTypeSystem, "x"); err == nil {
		t.Fatal("expected error when persistence fails")
	}
	if len(pusher.delivered) != 0 {
		t.Error("push must not happen when persistence fails")
	}
}

func TestListCachesResult(t *testing.T) {
	pusher := &fakePusher{online: map[int64]bool{}}
	repo := &fakeNotificationRepo{}
	notifCache := newFakeNotificationCache()
	svc := NewNotificationService(pusher, repo, notifCache)
	ctx := context.Background()

	svc.Notify(ctx, 42, domain.NotificationTypeMessage, "a")
	svc.Notify(ctx, 42, domain.NotificationTypeMessage, "b")

	first, err := svc.List(ctx, 42)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(first) != 2 || first[0].Content != "b" {
		t.Fatalf("unexpected list: %v", first)
	}

	before := repo.listCalls
	second, err := svc.List(ctx, 42)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if repo.listCalls != before {
		t.Error("expected second list to be served from cache")
	}
	if len(second) != 2 {
		t.Errorf("unexpected cached list: %v", second)
	}
}

func TestNotifyInvalidatesStaleCache(t *testing.T) {
	pusher := &fakePusher{online: map[int64]bool{}}
	repo := &fakeNotificationRepo{}
	notifCache := newFakeNotificationCache()
	svc := NewNotificationService(pusher, repo, notifCache)
	ctx := context.Background()

	svc.Notify(ctx, 42, domain.NotificationTypeMessage, "a")
	svc.List(ctx, 42) // warm the cache

	svc.Notify(ctx, 42, domain.NotificationTypeMessage, "b")

	got, err := svc.List(ctx, 42)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("stale cache served after new notification: %v", got)
	}
}
