package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fundlink/chat-service/internal/config"
	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/internal/hub"
	"github.com/fundlink/chat-service/internal/service"
	"github.com/fundlink/chat-service/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub     *hub.Hub
	service service.ChatService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)

	h.hub.Register(client)

	go client.WritePump()

	// A token may arrive in the handshake query instead of an auth event.
	// Validation failure terminates the connection attempt immediately.
	// The read pump never starts on this path, so the registry entry must
	// be released here.
	if token := c.Query("token"); token != "" {
		if err := h.service.HandleAuth(c.Request.Context(), client, token); err != nil {
			h.hub.Unregister(client)
			client.Close()
			return
		}
	}

	go func() {
		client.ReadPump(h.handleEvent)
		h.service.HandleDisconnect(c.Request.Context(), client)
	}()
}

func (h *WSHandler) handleEvent(client *hub.Client, message []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid event format"))
		return
	}

	ctx := log.WithLogger(context.Background(), log.L().With().Str(log.FieldClientID, client.ID).Logger())

	switch base.Type {
	case domain.MsgTypeAuth:
		var ev domain.AuthEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid auth event"))
			return
		}
		if err := h.service.HandleAuth(ctx, client, ev.Token); err != nil {
			// A rejected credential is fatal to the connection attempt.
			client.Close()
		}

	case domain.MsgTypeJoinRoom:
		var ev domain.JoinRoomEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid join_room event"))
			return
		}
		h.service.HandleJoinRoom(ctx, client, &ev)

	case domain.MsgTypeSendMessage:
		var ev domain.SendMessageEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid send_message event"))
			return
		}
		h.service.HandleSendMessage(ctx, client, &ev)

	case domain.MsgTypeTyping:
		var ev domain.TypingEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid typing event"))
			return
		}
		h.service.HandleTyping(ctx, client, &ev)

	case domain.MsgTypeMarkRead:
		var ev domain.MarkReadEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid mark_read event"))
			return
		}
		h.service.HandleMarkRead(ctx, client, &ev)

	case domain.MsgTypePing:
		client.SendEvent(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Unknown event type"))
	}
}
