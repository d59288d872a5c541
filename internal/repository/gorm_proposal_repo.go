package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/pkg/log"
)

// GormProposalRepository implements ProposalRepository using GORM.
type GormProposalRepository struct {
	db *gorm.DB
}

func NewGormProposalRepository(db *gorm.DB) *GormProposalRepository {
	return &GormProposalRepository{db: db}
}

func (r *GormProposalRepository) MarkNegotiating(ctx context.Context, proposalID int64) (bool, error) {
	l := log.Ctx(ctx)

	// Guarded update: only the UNDER_REVIEW -> NEGOTIATING transition is
	// allowed from here, and only once.
	result := r.db.WithContext(ctx).Model(&domain.Proposal{}).
		Where("id = ? AND status = ?", proposalID, domain.ProposalStatusUnderReview).
		Update("status", domain.ProposalStatusNegotiating)
	if result.Error != nil {
		l.Error().Err(result.Error).Int64(log.FieldProposalID, proposalID).Msg("failed to update proposal status in db")
		return false, result.Error
	}

	if result.RowsAffected > 0 {
		l.Info().Int64(log.FieldProposalID, proposalID).Msg("proposal moved to negotiating")
		return true, nil
	}
	return false, nil
}
