package cache

import (
	"context"

	"github.com/fundlink/chat-service/internal/domain"
)

// ReadState distinguishes the three outcomes of a room cache read. A Miss
// means the caller must fall back to the message store; HitEmpty means the
// store was already consulted and the room legitimately has no messages.
type ReadState int

const (
	Miss ReadState = iota
	Hit
	HitEmpty
)

// MessageCache is the fast path in front of the message store: an
// append-only, per-room list with a TTL window refreshed on write.
// Cache failures must never block delivery; callers degrade to the store.
type MessageCache interface {
	// Append adds one message to the tail of the room's list and refreshes
	// the room's expiry window. Only a live list is extended: appending to
	// a cold or expired room is a no-op, so the next read stays a Miss and
	// repopulates from the store instead of serving a partial history.
	Append(ctx context.Context, roomKey string, msg *domain.Message) error
	// ReadAll returns cached messages in insertion order together with the
	// read state. On error the state is Miss and the caller falls back.
	ReadAll(ctx context.Context, roomKey string) ([]domain.Message, ReadState, error)
	// Populate replaces the room's cached list with a batch fetched from
	// the store, so the next read is a hit. An empty batch records the
	// empty-room marker instead.
	Populate(ctx context.Context, roomKey string, msgs []domain.Message) error
}

// NotificationCache caches a user's notification list between pulls.
type NotificationCache interface {
	GetNotifications(ctx context.Context, userID int64) ([]domain.Notification, bool, error)
	SetNotifications(ctx context.Context, userID int64, notifications []domain.Notification) error
	InvalidateNotifications(ctx context.Context, userID int64) error
}
