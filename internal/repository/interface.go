package repository

import (
	"context"
	"errors"

	"github.com/fundlink/chat-service/internal/domain"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository is the durable store for chat messages. The read path
// is consulted only on a cache miss.
type MessageRepository interface {
	Create(ctx context.Context, senderID, receiverID, proposalID int64, roomKey, content string) (*domain.Message, error)
	ListByRoom(ctx context.Context, roomKey string) ([]domain.Message, error)
	// MarkRead is idempotent: marking an already-read message again is a
	// no-op, not an error.
	MarkRead(ctx context.Context, messageID int64) (*domain.Message, error)
	// ListCounterparts returns the distinct senders who have messaged the
	// given receiver about a proposal.
	ListCounterparts(ctx context.Context, proposalID, receiverID int64) ([]int64, error)
}

// NotificationRepository is the durable per-user notification mailbox.
type NotificationRepository interface {
	Create(ctx context.Context, userID int64, notificationType, content string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
}

// ProposalRepository exposes the one proposal operation the chat core
// performs: the first-contact status transition. The proposal table is
// owned by the marketplace service.
type ProposalRepository interface {
	// MarkNegotiating moves a proposal from UNDER_REVIEW to NEGOTIATING.
	// Returns true only when the transition actually happened.
	MarkNegotiating(ctx context.Context, proposalID int64) (bool, error)
}
