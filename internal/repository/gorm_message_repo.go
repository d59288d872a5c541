package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, senderID, receiverID, proposalID int64, roomKey, content string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	msg := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		ProposalID: proposalID,
		RoomKey:    roomKey,
		Content:    content,
	}
	result := r.db.WithContext(ctx).Create(msg)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomKey, roomKey).Msg("failed to create message in db")
		return nil, result.Error
	}

	l.Debug().Int64(log.FieldMessageID, msg.ID).Str(log.FieldRoomKey, roomKey).Msg("message created in db")
	return msg, nil
}

func (r *GormMessageRepository) ListByRoom(ctx context.Context, roomKey string) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	var msgs []domain.Message
	result := r.db.WithContext(ctx).
		Where("room_key = ?", roomKey).
		Order("created_at ASC, id ASC").
		Find(&msgs)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomKey, roomKey).Msg("failed to list messages from db")
		return nil, result.Error
	}
	return msgs, nil
}

func (r *GormMessageRepository) MarkRead(ctx context.Context, messageID int64) (*domain.Message, error) {
	l := log.Ctx(ctx)

	var msg domain.Message
	result := r.db.WithContext(ctx).First(&msg, "id = ?", messageID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		l.Error().Err(result.Error).Int64(log.FieldMessageID, messageID).Msg("failed to get message by id")
		return nil, result.Error
	}

	if msg.Read {
		return &msg, nil
	}

	result = r.db.WithContext(ctx).Model(&msg).Update("read", true)
	if result.Error != nil {
		l.Error().Err(result.Error).Int64(log.FieldMessageID, messageID).Msg("failed to mark message read in db")
		return nil, result.Error
	}

	msg.Read = true
	l.Debug().Int64(log.FieldMessageID, messageID).Msg("message marked read in db")
	return &msg, nil
}

func (r *GormMessageRepository) ListCounterparts(ctx context.Context, proposalID, receiverID int64) ([]int64, error) {
	l := log.Ctx(ctx)

	var senderIDs []int64
	result := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("proposal_id = ? AND receiver_id = ?", proposalID, receiverID).
		Distinct("sender_id").
		Order("sender_id ASC").
		Pluck("sender_id", &senderIDs)
	if result.Error != nil {
		l.Error().Err(result.Error).Int64(log.FieldProposalID, proposalID).Msg("failed to list counterparts from db")
		return nil, result.Error
	}
	return senderIDs, nil
}
