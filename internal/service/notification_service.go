package service

import (
	"context"
	"fmt"

	"github.com/fundlink/chat-service/internal/audit"
	"github.com/fundlink/chat-service/internal/cache"
	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/internal/repository"
	"github.com/fundlink/chat-service/pkg/log"
)

type notificationService struct {
	pusher        Pusher
	notifications repository.NotificationRepository
	cache         cache.NotificationCache
}

func NewNotificationService(
	pusher Pusher,
	notifications repository.NotificationRepository,
	notifCache cache.NotificationCache,
) NotificationService {
	return &notificationService{
		pusher:        pusher,
		notifications: notifications,
		cache:         notifCache,
	}
}

// Notify persists first. Only then is a live push attempted; a recipient
// without a connection simply finds the notification later via List.
func (s *notificationService) Notify(ctx context.Context, userID int64, notificationType, content string) (*domain.Notification, error) {
	n, err := s.notifications.Create(ctx, userID, notificationType, content)
	if err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	l := log.Ctx(ctx)
	if err := s.cache.InvalidateNotifications(ctx, userID); err != nil {
		l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("notification cache invalidation failed")
	}

	delivered := s.pusher.SendToUser(userID, &domain.NotificationEvent{
		Type:             domain.MsgTypeNotification,
		NotificationType: n.Type,
		Content:          n.Content,
		CreatedAt:        n.CreatedAt,
	})

	audit.LogWithDetail(ctx, audit.ActionNotification, userID, n.Type, "notification created")
	l.Debug().Int64(log.FieldUserID, userID).Bool("delivered_live", delivered).Msg("notification dispatched")

	return n, nil
}

func (s *notificationService) List(ctx context.Context, userID int64) ([]domain.Notification, error) {
	l := log.Ctx(ctx)

	cached, hit, err := s.cache.GetNotifications(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("notification cache read error")
	}
	if hit {
		return cached, nil
	}

	notifications, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	if err := s.cache.SetNotifications(ctx, userID, notifications); err != nil {
		l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("notification cache write failed")
	}
	return notifications, nil
}
