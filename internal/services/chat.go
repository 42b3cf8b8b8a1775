package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kizunalabs/kizuna-backend/internal/clients/redis"
	"github.com/kizunalabs/kizuna-backend/internal/identity"
	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/repos"
	"github.com/kizunalabs/kizuna-backend/internal/sse"
	"github.com/kizunalabs/kizuna-backend/internal/types"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

// ChatService manages one-on-one rooms between matched identities. A pair of
// identities maps to exactly one room regardless of who opened it.
type ChatService interface {
	OpenRoom(ctx context.Context, me identity.Identity, other identity.Identity) (*types.Conversation, error)
	SendMessage(ctx context.Context, sender identity.Identity, conversationID uuid.UUID, content string) (*types.Message, error)
	GetMessages(ctx context.Context, me identity.Identity, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	GetRooms(ctx context.Context, me identity.Identity) ([]*types.Conversation, error)
}

type chatService struct {
	db               *gorm.DB
	log              *logger.Logger
	conversationRepo repos.ConversationRepo
	messageRepo      repos.MessageRepo
	hub              *sse.Hub
	bus              redis.ChatBus
}

func NewChatService(
	db *gorm.DB,
	log *logger.Logger,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	hub *sse.Hub,
	bus redis.ChatBus,
) ChatService {
	serviceLog := log.With("service", "ChatService")
	return &chatService{
		db:               db,
		log:              serviceLog,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		hub:              hub,
		bus:              bus,
	}
}

// CanonicalPair orders two identities so a pair always maps to the same
// (user_a, user_b) row regardless of who initiates.
func CanonicalPair(x, y identity.Identity) (uuid.UUID, uuid.UUID) {
	a, b := x.StorageID(), y.StorageID()
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return a, b
}

func (cs *chatService) OpenRoom(ctx context.Context, me identity.Identity, other identity.Identity) (*types.Conversation, error) {
	if me.Equal(other) {
		return nil, fmt.Errorf("%w: cannot open a room with yourself", apperrors.ErrInvalidArgument)
	}
	userA, userB := CanonicalPair(me, other)

	existing, err := cs.conversationRepo.GetByPair(ctx, nil, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("look up room: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	conv := &types.Conversation{
		ID:        uuid.New(),
		UserAID:   userA,
		UserBID:   userB,
		CreatedAt: time.Now(),
	}
	created, err := cs.conversationRepo.Create(ctx, nil, conv)
	if err != nil {
		// Concurrent open of the same pair trips the unique index; the other
		// caller's row wins.
		if raced, lookupErr := cs.conversationRepo.GetByPair(ctx, nil, userA, userB); lookupErr == nil && raced != nil {
			return raced, nil
		}
		return nil, fmt.Errorf("create room: %w", err)
	}
	return created, nil
}

func (cs *chatService) SendMessage(ctx context.Context, sender identity.Identity, conversationID uuid.UUID, content string) (*types.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content required", apperrors.ErrInvalidArgument)
	}

	conv, err := cs.requireParticipant(ctx, sender, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &types.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       sender.StorageID(),
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if _, err := cs.messageRepo.Create(ctx, nil, []*types.Message{msg}); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	cs.publish(ctx, msg)
	return msg, nil
}

func (cs *chatService) GetMessages(ctx context.Context, me identity.Identity, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	conv, err := cs.requireParticipant(ctx, me, conversationID)
	if err != nil {
		return nil, err
	}
	return cs.messageRepo.GetByConversationID(ctx, nil, conv.ID, limit)
}

func (cs *chatService) GetRooms(ctx context.Context, me identity.Identity) ([]*types.Conversation, error) {
	return cs.conversationRepo.GetByParticipant(ctx, nil, me.StorageID())
}

func (cs *chatService) requireParticipant(ctx context.Context, who identity.Identity, conversationID uuid.UUID) (*types.Conversation, error) {
	conv, err := cs.conversationRepo.GetByID(ctx, nil, conversationID)
	if err != nil {
		return nil, fmt.Errorf("look up room: %w", err)
	}
	if conv == nil {
		return nil, apperrors.ErrNotFound
	}
	id := who.StorageID()
	if conv.UserAID != id && conv.UserBID != id {
		return nil, apperrors.ErrUnauthorized
	}
	return conv, nil
}

// publish emits the event exactly once per instance. With a bus wired, the
// bus forwarder performs the local broadcast when the message echoes back,
// so emitting to the hub here too would double-deliver on the sending
// instance. Delivery is best effort; the message is already durable.
func (cs *chatService) publish(ctx context.Context, msg *types.Message) {
	event := sse.Message{
		Channel: sse.ConversationChannel(msg.ConversationID),
		Event:   sse.EventMessageCreated,
		Data:    msg,
	}
	if cs.bus != nil {
		if err := cs.bus.Publish(ctx, event); err != nil {
			cs.log.Warn("Failed to publish chat event to bus, broadcasting locally", "error", err)
			cs.hub.Broadcast(event)
		}
		return
	}
	cs.hub.Broadcast(event)
}
