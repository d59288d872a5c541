package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fundlink/chat-service/internal/auth"
	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/internal/service"
	"github.com/fundlink/chat-service/pkg/response"
)

// HTTPHandler serves the pull-based REST surface: history on reconnect,
// pending notifications, and the list of counterparts for a proposal.
type HTTPHandler struct {
	chat          service.ChatService
	notifications service.NotificationService
	validator     *auth.Validator
}

func NewHTTPHandler(chat service.ChatService, notifications service.NotificationService, validator *auth.Validator) *HTTPHandler {
	return &HTTPHandler{
		chat:          chat,
		notifications: notifications,
		validator:     validator,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api", auth.RequireAuth(h.validator))
	{
		api.GET("/proposals/:id/messages", h.GetMessages)
		api.GET("/proposals/:id/investors", h.GetInvestors)
		api.GET("/notifications", h.GetNotifications)
	}
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetMessages returns the full message history of the room between the
// requester and ?counterpart_id for a proposal, oldest first.
func (h *HTTPHandler) GetMessages(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "not authenticated")
		return
	}

	proposalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, domain.ErrCodeInvalidArgument, "invalid proposal id")
		return
	}

	counterpartID, err := strconv.ParseInt(c.Query("counterpart_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, domain.ErrCodeInvalidArgument, "invalid counterpart_id")
		return
	}

	messages, err := h.chat.History(c.Request.Context(), proposalID, identity.ID, counterpartID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRoomArgs) {
			response.Error(c, http.StatusBadRequest, domain.ErrCodeInvalidArgument, "invalid room arguments")
			return
		}
		response.Error(c, http.StatusInternalServerError, domain.ErrCodeInternalError, "failed to load messages")
		return
	}

	response.Success(c, messages)
}

// GetInvestors lists the distinct users who have messaged the requester
// about a proposal. Founders use it to enumerate their open conversations.
func (h *HTTPHandler) GetInvestors(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "not authenticated")
		return
	}

	proposalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, domain.ErrCodeInvalidArgument, "invalid proposal id")
		return
	}

	investors, err := h.chat.Counterparts(c.Request.Context(), proposalID, identity.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, domain.ErrCodeInternalError, "failed to list investors")
		return
	}

	response.Success(c, investors)
}

func (h *HTTPHandler) GetNotifications(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "not authenticated")
		return
	}

	notifications, err := h.notifications.List(c.Request.Context(), identity.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, domain.ErrCodeInternalError, "failed to list notifications")
		return
	}

	response.Success(c, notifications)
}
