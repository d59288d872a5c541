package audit

import (
	"context"

	"github.com/fundlink/chat-service/pkg/log"
)

// Audit actions for the chat core.
const (
	ActionAuth         = "chat.auth"
	ActionAuthFailed   = "chat.auth_failed"
	ActionJoinRoom     = "chat.join_room"
	ActionSendMessage  = "chat.send_message"
	ActionMarkRead     = "chat.mark_read"
	ActionDisconnect   = "chat.disconnect"
	ActionNotification = "notification.created"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID int64, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int64(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action string, userID int64, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int64(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
