package service

import (
	"context"

	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/internal/hub"
)

// TokenValidator authenticates a bearer credential presented at connection
// time. Satisfied by auth.Validator.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*domain.Identity, error)
}

// Pusher delivers an event to a user's live personal channel, reporting
// whether any connection was there to receive it. Satisfied by hub.Hub.
type Pusher interface {
	SendToUser(userID int64, event interface{}) bool
}

// ChatService drives the per-connection event protocol.
type ChatService interface {
	HandleAuth(ctx context.Context, client *hub.Client, token string) error
	HandleJoinRoom(ctx context.Context, client *hub.Client, ev *domain.JoinRoomEvent) error
	HandleSendMessage(ctx context.Context, client *hub.Client, ev *domain.SendMessageEvent) error
	HandleTyping(ctx context.Context, client *hub.Client, ev *domain.TypingEvent) error
	HandleMarkRead(ctx context.Context, client *hub.Client, ev *domain.MarkReadEvent) error
	HandleDisconnect(ctx context.Context, client *hub.Client)

	// History returns the merged cache-or-store message list for the room
	// between the requester and the counterpart.
	History(ctx context.Context, proposalID, requesterID, counterpartID int64) ([]domain.Message, error)
	// Counterparts lists the distinct users who have messaged the requester
	// about a proposal.
	Counterparts(ctx context.Context, proposalID, receiverID int64) ([]int64, error)
}

// NotificationService is the per-user notification side-channel.
type NotificationService interface {
	// Notify persists the notification first, then best-effort pushes it to
	// the recipient's live personal channel.
	Notify(ctx context.Context, userID int64, notificationType, content string) (*domain.Notification, error)
	List(ctx context.Context, userID int64) ([]domain.Notification, error)
}
