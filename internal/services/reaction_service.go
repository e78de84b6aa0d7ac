package services

import (
	"context"
	"errors"
	"time"

	"chathub/internal/domain/message"
	"chathub/internal/events"
	"chathub/internal/proxy"
	"chathub/internal/repository"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
)

// ReactionService aggregates per-message reactions. Every mutation is
// followed by a broadcast of the message's complete grouped view, so clients
// replace state instead of patching it.
type ReactionService struct {
	msgRepo     repository.MessageRepository
	access      *proxy.AccessControl
	broadcaster Broadcaster
}

func NewReactionService(msgRepo repository.MessageRepository, access *proxy.AccessControl, broadcaster Broadcaster) *ReactionService {
	return &ReactionService{msgRepo: msgRepo, access: access, broadcaster: broadcaster}
}

// ReactionState is the broadcast payload for reaction-updated events.
type ReactionState struct {
	MessageID      uuid.UUID               `json:"messageId"`
	ConversationID uuid.UUID               `json:"conversationId"`
	Reactions      []message.ReactionGroup `json:"reactions"`
}

// Add records one user's emoji on a message. Adding the same emoji twice is
// a conflict; the unique index backs this up under concurrency.
func (s *ReactionService) Add(ctx context.Context, userID, messageID uuid.UUID, emoji string) (ReactionState, error) {
	if emoji == "" {
		return ReactionState{}, chathub_errors.ErrInvalidInput
	}

	msg, err := s.authorize(ctx, userID, messageID)
	if err != nil {
		return ReactionState{}, err
	}

	reaction := message.Reaction{
		ID:        uuid.New(),
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	}
	if err := s.msgRepo.AddReaction(ctx, &reaction); err != nil {
		if errors.Is(err, chathub_errors.ErrAlreadyExists) {
			return ReactionState{}, chathub_errors.ErrConflict
		}
		return ReactionState{}, err
	}

	return s.broadcastState(ctx, msg)
}

// Remove deletes one user's emoji from a message. Removing a reaction that
// was never added reports not found.
func (s *ReactionService) Remove(ctx context.Context, userID, messageID uuid.UUID, emoji string) (ReactionState, error) {
	if emoji == "" {
		return ReactionState{}, chathub_errors.ErrInvalidInput
	}

	msg, err := s.authorize(ctx, userID, messageID)
	if err != nil {
		return ReactionState{}, err
	}

	if err := s.msgRepo.RemoveReaction(ctx, messageID, userID, emoji); err != nil {
		return ReactionState{}, err
	}

	return s.broadcastState(ctx, msg)
}

// Grouped returns the message's reactions grouped per emoji, in order of
// each emoji's first appearance on the message.
func (s *ReactionService) Grouped(ctx context.Context, userID, messageID uuid.UUID) ([]message.ReactionGroup, error) {
	if _, err := s.authorize(ctx, userID, messageID); err != nil {
		return nil, err
	}
	return s.grouped(ctx, messageID)
}

func (s *ReactionService) authorize(ctx context.Context, userID, messageID uuid.UUID) (message.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if err := s.access.CanViewConversation(ctx, userID, msg.ConversationID); err != nil {
		return message.Message{}, err
	}
	return msg, nil
}

func (s *ReactionService) grouped(ctx context.Context, messageID uuid.UUID) ([]message.ReactionGroup, error) {
	reactions, err := s.msgRepo.GetMessageReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}

	groups := make([]message.ReactionGroup, 0)
	index := make(map[string]int)
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, message.ReactionGroup{Emoji: r.Emoji})
		}
		groups[i].Count++
		groups[i].UserIDs = append(groups[i].UserIDs, r.UserID)
	}
	return groups, nil
}

func (s *ReactionService) broadcastState(ctx context.Context, msg message.Message) (ReactionState, error) {
	groups, err := s.grouped(ctx, msg.ID)
	if err != nil {
		return ReactionState{}, err
	}
	state := ReactionState{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Reactions:      groups,
	}
	s.broadcaster.BroadcastToConversation(msg.ConversationID, events.New(events.EventReactionUpdated, state))
	return state, nil
}
