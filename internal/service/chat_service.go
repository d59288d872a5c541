package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/fundlink/chat-service/internal/audit"
	"github.com/fundlink/chat-service/internal/cache"
	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/internal/hub"
	"github.com/fundlink/chat-service/internal/repository"
	"github.com/fundlink/chat-service/pkg/log"
)

type chatService struct {
	hub       *hub.Hub
	validator TokenValidator
	messages  repository.MessageRepository
	proposals repository.ProposalRepository
	cache     cache.MessageCache
	sf        singleflight.Group
}

func NewChatService(
	h *hub.Hub,
	validator TokenValidator,
	messages repository.MessageRepository,
	proposals repository.ProposalRepository,
	msgCache cache.MessageCache,
) ChatService {
	return &chatService{
		hub:       h,
		validator: validator,
		messages:  messages,
		proposals: proposals,
		cache:     msgCache,
	}
}

// HandleAuth validates the credential and fixes the connection's identity
// for its lifetime. On success the connection is subscribed to its personal
// channel; on failure the caller terminates the connection.
func (s *chatService) HandleAuth(ctx context.Context, c *hub.Client, token string) error {
	identity, err := s.validator.Validate(ctx, token)
	if err != nil {
		audit.LogWithDetail(ctx, audit.ActionAuthFailed, 0, err.Error(), "connection rejected")
		c.SendEvent(&domain.AuthResultEvent{
			Type:    domain.MsgTypeAuthResult,
			Success: false,
			Message: err.Error(),
		})
		return err
	}

	c.Session.Authenticate(identity)
	s.hub.Join(c, domain.PersonalChannel(identity.ID))
	audit.Log(ctx, audit.ActionAuth, identity.ID, "connection authenticated")

	return c.SendEvent(&domain.AuthResultEvent{
		Type:    domain.MsgTypeAuthResult,
		Success: true,
		UserID:  identity.ID,
		Name:    identity.Name,
		Role:    identity.Role,
	})
}

func (s *chatService) HandleJoinRoom(ctx context.Context, c *hub.Client, ev *domain.JoinRoomEvent) error {
	identity := c.Session.Identity()
	if identity == nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeUnauthorized, "Not authenticated"))
	}

	roomKey, err := domain.RoomKey(ev.ProposalID, identity.ID, ev.CounterpartID)
	if err != nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid room arguments"))
	}

	// A connection may hold several rooms at once, one per counterpart.
	s.hub.Join(c, roomKey)
	audit.LogWithDetail(ctx, audit.ActionJoinRoom, identity.ID, roomKey, "joined room")

	return c.SendEvent(&domain.RoomJoinedEvent{
		Type:          domain.MsgTypeRoomJoined,
		ProposalID:    ev.ProposalID,
		CounterpartID: ev.CounterpartID,
		RoomKey:       roomKey,
	})
}

func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, ev *domain.SendMessageEvent) error {
	identity := c.Session.Identity()
	if identity == nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeUnauthorized, "Not authenticated"))
	}

	if ev.Content == "" {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Missing required fields"))
	}

	roomKey, err := domain.RoomKey(ev.ProposalID, identity.ID, ev.CounterpartID)
	if err != nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid room arguments"))
	}

	msg, err := s.messages.Create(ctx, identity.ID, ev.CounterpartID, ev.ProposalID, roomKey, ev.Content)
	if err != nil {
		// The error stays local to this connection; no fan-out happens.
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodePersistence, "Failed to send message"))
		return fmt.Errorf("failed to persist message: %w", err)
	}

	l := log.Ctx(ctx)
	if err := s.cache.Append(ctx, roomKey, msg); err != nil {
		// Cache unavailability never blocks delivery.
		l.Warn().Err(err).Str(log.FieldRoomKey, roomKey).Msg("cache append failed")
	}

	// First contact moves the proposal out of its initial status. The full
	// status machine belongs to the marketplace service.
	if _, err := s.proposals.MarkNegotiating(ctx, ev.ProposalID); err != nil {
		l.Warn().Err(err).Int64(log.FieldProposalID, ev.ProposalID).Msg("proposal status update failed")
	}

	audit.LogWithDetail(ctx, audit.ActionSendMessage, identity.ID, roomKey, "message sent")

	// Fan out to everyone in the room, sender included, so every device of
	// the sender renders the same conversation.
	return s.hub.Broadcast(roomKey, &domain.MessageCreatedEvent{
		Type:    domain.MsgTypeMessageCreated,
		Message: *msg,
	}, "")
}

func (s *chatService) HandleTyping(ctx context.Context, c *hub.Client, ev *domain.TypingEvent) error {
	identity := c.Session.Identity()
	if identity == nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeUnauthorized, "Not authenticated"))
	}

	roomKey, err := domain.RoomKey(ev.ProposalID, identity.ID, ev.CounterpartID)
	if err != nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid room arguments"))
	}

	// Transient event: not persisted, no delivery guarantee, sender excluded.
	return s.hub.Broadcast(roomKey, &domain.TypingNoticeEvent{
		Type:   domain.MsgTypeTyping,
		UserID: identity.ID,
	}, c.ID)
}

func (s *chatService) HandleMarkRead(ctx context.Context, c *hub.Client, ev *domain.MarkReadEvent) error {
	identity := c.Session.Identity()
	if identity == nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeUnauthorized, "Not authenticated"))
	}

	roomKey, err := domain.RoomKey(ev.ProposalID, identity.ID, ev.CounterpartID)
	if err != nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Invalid room arguments"))
	}

	msg, err := s.messages.MarkRead(ctx, ev.MessageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeInvalidArgument, "Unknown message"))
		}
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodePersistence, "Failed to mark message as read"))
		return fmt.Errorf("failed to mark message read: %w", err)
	}

	audit.Log(ctx, audit.ActionMarkRead, identity.ID, "message marked read")

	// Cached entries are not rewritten; clients merge read-state from this
	// live event.
	return s.hub.Broadcast(roomKey, &domain.MessageReadEvent{
		Type:      domain.MsgTypeMessageRead,
		MessageID: msg.ID,
	}, "")
}

func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) {
	if userID := c.Session.UserID(); userID != 0 {
		audit.Log(ctx, audit.ActionDisconnect, userID, "connection closed")
	}
}

func (s *chatService) History(ctx context.Context, proposalID, requesterID, counterpartID int64) ([]domain.Message, error) {
	roomKey, err := domain.RoomKey(proposalID, requesterID, counterpartID)
	if err != nil {
		return nil, err
	}

	// Collapse concurrent read-throughs for the same room.
	result, err, _ := s.sf.Do(roomKey, func() (interface{}, error) {
		return s.fetchHistory(ctx, roomKey)
	})
	if err != nil {
		return nil, err
	}

	msgs, ok := result.([]domain.Message)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return msgs, nil
}

func (s *chatService) fetchHistory(ctx context.Context, roomKey string) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	msgs, state, err := s.cache.ReadAll(ctx, roomKey)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldRoomKey, roomKey).Msg("cache read error")
	}
	switch state {
	case cache.Hit:
		return msgs, nil
	case cache.HitEmpty:
		return []domain.Message{}, nil
	}

	msgs, err = s.messages.ListByRoom(ctx, roomKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// One batch write before returning, so the next read is a hit.
	if err := s.cache.Populate(ctx, roomKey, msgs); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomKey, roomKey).Msg("cache populate failed")
	}
	return msgs, nil
}

func (s *chatService) Counterparts(ctx context.Context, proposalID, receiverID int64) ([]int64, error) {
	return s.messages.ListCounterparts(ctx, proposalID, receiverID)
}
