package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fundlink/chat-service/internal/domain"
)

// RedisCache implements MessageCache and NotificationCache on a shared
// Redis client. Room lists live under chat:{roomKey}; a sibling
// chat:{roomKey}:empty marker records a read-through that found no rows,
// so an empty room does not re-query the store on every request.
type RedisCache struct {
	client          *redis.Client
	chatTTL         time.Duration
	notificationTTL time.Duration
}

func NewRedisCache(client *redis.Client, chatTTL, notificationTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:          client,
		chatTTL:         chatTTL,
		notificationTTL: notificationTTL,
	}
}

func chatKey(roomKey string) string {
	return "chat:" + roomKey
}

func emptyKey(roomKey string) string {
	return "chat:" + roomKey + ":empty"
}

func notificationKey(userID int64) string {
	return fmt.Sprintf("notifications:%d", userID)
}

// Append extends the room's list only while it is live. Recreating an
// expired or never-populated list here would serve a partial history as
// authoritative, so a cold room stays a Miss until the next read-through.
func (c *RedisCache) Append(ctx context.Context, roomKey string, msg *domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := chatKey(roomKey)
	pushed, err := c.client.RPushX(ctx, key, data).Result()
	if err != nil {
		return fmt.Errorf("failed to append to room cache: %w", err)
	}

	if pushed == 0 {
		// No live list. If the room was cached as empty, the new message
		// is the complete history; otherwise leave the room cold.
		deleted, err := c.client.Del(ctx, emptyKey(roomKey)).Result()
		if err != nil {
			return fmt.Errorf("failed to clear empty marker: %w", err)
		}
		if deleted == 0 {
			return nil
		}
		if err := c.client.RPush(ctx, key, data).Err(); err != nil {
			return fmt.Errorf("failed to append to room cache: %w", err)
		}
	}

	if err := c.client.Expire(ctx, key, c.chatTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh room cache expiry: %w", err)
	}
	return nil
}

func (c *RedisCache) ReadAll(ctx context.Context, roomKey string) ([]domain.Message, ReadState, error) {
	entries, err := c.client.LRange(ctx, chatKey(roomKey), 0, -1).Result()
	if err != nil {
		return nil, Miss, fmt.Errorf("failed to read room cache: %w", err)
	}

	if len(entries) > 0 {
		msgs := make([]domain.Message, 0, len(entries))
		for _, entry := range entries {
			var msg domain.Message
			if err := json.Unmarshal([]byte(entry), &msg); err != nil {
				// A corrupt entry invalidates the whole list; fall back.
				return nil, Miss, fmt.Errorf("failed to unmarshal cached message: %w", err)
			}
			msgs = append(msgs, msg)
		}
		return msgs, Hit, nil
	}

	exists, err := c.client.Exists(ctx, emptyKey(roomKey)).Result()
	if err != nil {
		return nil, Miss, fmt.Errorf("failed to check empty marker: %w", err)
	}
	if exists > 0 {
		return nil, HitEmpty, nil
	}
	return nil, Miss, nil
}

func (c *RedisCache) Populate(ctx context.Context, roomKey string, msgs []domain.Message) error {
	key := chatKey(roomKey)

	if len(msgs) == 0 {
		if err := c.client.Set(ctx, emptyKey(roomKey), "1", c.chatTTL).Err(); err != nil {
			return fmt.Errorf("failed to set empty marker: %w", err)
		}
		return nil
	}

	entries := make([]interface{}, 0, len(msgs))
	for i := range msgs {
		data, err := json.Marshal(&msgs[i])
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		entries = append(entries, data)
	}

	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key, emptyKey(roomKey))
		pipe.RPush(ctx, key, entries...)
		pipe.Expire(ctx, key, c.chatTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to populate room cache: %w", err)
	}
	return nil
}

func (c *RedisCache) GetNotifications(ctx context.Context, userID int64) ([]domain.Notification, bool, error) {
	data, err := c.client.Get(ctx, notificationKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get notification cache: %w", err)
	}

	var notifications []domain.Notification
	if err := json.Unmarshal(data, &notifications); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached notifications: %w", err)
	}
	return notifications, true, nil
}

func (c *RedisCache) SetNotifications(ctx context.Context, userID int64, notifications []domain.Notification) error {
	data, err := json.Marshal(notifications)
	if err != nil {
		return fmt.Errorf("failed to marshal notifications: %w", err)
	}

	if err := c.client.Set(ctx, notificationKey(userID), data, c.notificationTTL).Err(); err != nil {
		return fmt.Errorf("failed to set notification cache: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateNotifications(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, notificationKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate notification cache: %w", err)
	}
	return nil
}
