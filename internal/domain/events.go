package domain

import "time"

// WebSocket event types from client.
const (
	MsgTypeAuth        = "auth"
	MsgTypeJoinRoom    = "join_room"
	MsgTypeSendMessage = "send_message"
	MsgTypeTyping      = "typing"
	MsgTypeMarkRead    = "mark_read"
	MsgTypePing        = "ping"
)

// WebSocket event types to client.
const (
	MsgTypeAuthResult     = "auth_result"
	MsgTypeRoomJoined     = "room_joined"
	MsgTypeMessageCreated = "message_created"
	MsgTypeMessageRead    = "message_read"
	MsgTypeNotification   = "notification"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
)

// Error codes
const (
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodePersistence     = "PERSISTENCE_ERROR"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// BaseEvent is the common envelope for all WebSocket events.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events

type AuthEvent struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type JoinRoomEvent struct {
	Type          string `json:"type"`
	ProposalID    int64  `json:"proposal_id"`
	CounterpartID int64  `json:"counterpart_id"`
}

type SendMessageEvent struct {
	Type          string `json:"type"`
	ProposalID    int64  `json:"proposal_id"`
	CounterpartID int64  `json:"counterpart_id"`
	Content       string `json:"content"`
}

type TypingEvent struct {
	Type          string `json:"type"`
	ProposalID    int64  `json:"proposal_id"`
	CounterpartID int64  `json:"counterpart_id"`
}

type MarkReadEvent struct {
	Type          string `json:"type"`
	MessageID     int64  `json:"message_id"`
	ProposalID    int64  `json:"proposal_id"`
	CounterpartID int64  `json:"counterpart_id"`
}

// Server -> Client events

type AuthResultEvent struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	UserID  int64  `json:"user_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Message string `json:"message,omitempty"`
}

type RoomJoinedEvent struct {
	Type          string `json:"type"`
	ProposalID    int64  `json:"proposal_id"`
	CounterpartID int64  `json:"counterpart_id"`
	RoomKey       string `json:"room_key"`
}

// MessageCreatedEvent carries a freshly persisted message to every
// connection in the room, the sender included.
type MessageCreatedEvent struct {
	Type string `json:"type"`
	Message
}

type TypingNoticeEvent struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
}

type MessageReadEvent struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
}

type NotificationEvent struct {
	Type             string    `json:"type"`
	NotificationType string    `json:"notification_type"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
