package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/pkg/log"
)

// GormNotificationRepository implements NotificationRepository using GORM.
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, userID int64, notificationType, content string) (*domain.Notification, error) {
	l := log.Ctx(ctx)

	n := &domain.Notification{
		UserID:  userID,
		Type:    notificationType,
		Content: content,
	}
	result := r.db.WithContext(ctx).Create(n)
	if result.Error != nil {
		l.Error().Err(result.Error).Int64(log.FieldUserID, userID).Msg("failed to create notification in db")
		return nil, result.Error
	}

	l.Debug().Int64(log.FieldUserID, userID).Int64("notification_id", n.ID).Msg("notification created in db")
	return n, nil
}

func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	l := log.Ctx(ctx)

	var notifications []domain.Notification
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&notifications)
	if result.Error != nil {
		l.Error().Err(result.Error).Int64(log.FieldUserID, userID).Msg("failed to list notifications from db")
		return nil, result.Error
	}
	return notifications, nil
}
