package domain

import "time"

// Proposal statuses relevant to the chat side effect. The full status machine
// lives in the marketplace service; the chat core only performs the
// "first contact" transition.
const (
	ProposalStatusUnderReview = "UNDER_REVIEW"
	ProposalStatusNegotiating = "NEGOTIATING"
)

// Notification types emitted by the marketplace.
const (
	NotificationTypeInvestment = "INVESTMENT"
	NotificationTypeMessage    = "MESSAGE"
	NotificationTypeSystem     = "SYSTEM"
)

// Message is a persisted chat message. Immutable once created, except for
// the read flag which only ever transitions false -> true.
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"index;not null" json:"sender_id"`
	ReceiverID int64     `gorm:"index;not null" json:"receiver_id"`
	ProposalID int64     `gorm:"index;not null" json:"proposal_id"`
	RoomKey    string    `gorm:"size:128;index;not null" json:"room_key"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Read       bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is a persisted per-user mailbox entry, created by domain
// events (e.g. an investment) and consumed via the pull endpoint.
type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Proposal carries the subset of the marketplace proposal table the chat
// core touches. The table is owned by the marketplace service.
type Proposal struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	FounderID int64     `gorm:"index" json:"founder_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Status    string    `gorm:"size:32;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
