package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chathub/internal/domain/conversation"
	"chathub/internal/events"
	"chathub/internal/proxy"
	"chathub/internal/repository"
	chathub_errors "chathub/pkg/errors"
	"chathub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConversationService owns conversation lifecycle and membership. Group
// administration goes through the access guard; direct conversations are
// immutable after creation.
type ConversationService struct {
	db          *gorm.DB
	repo        repository.ConversationRepository
	access      *proxy.AccessControl
	broadcaster Broadcaster
	log         *logger.Logger
}

func NewConversationService(
	db *gorm.DB,
	repo repository.ConversationRepository,
	access *proxy.AccessControl,
	broadcaster Broadcaster,
	log *logger.Logger,
) *ConversationService {
	return &ConversationService{
		db:          db,
		repo:        repo,
		access:      access,
		broadcaster: broadcaster,
		log:         log,
	}
}

// CreateDirect returns the existing direct conversation between the pair if
// one exists, otherwise creates it with both users as admins.
func (s *ConversationService) CreateDirect(ctx context.Context, creatorID, otherID uuid.UUID) (conversation.Conversation, error) {
	if creatorID == otherID {
		return conversation.Conversation{}, chathub_errors.ErrInvalidInput
	}

	existing, err := s.repo.GetDirectConversation(ctx, creatorID, otherID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, chathub_errors.ErrNotFound) {
		return conversation.Conversation{}, err
	}

	now := time.Now()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		Type:      conversation.TypeDirect,
		CreatedBy: uuid.NullUUID{UUID: creatorID, Valid: true},
		CreatedAt: now,
		UpdatedAt: now,
		Participants: []conversation.Participant{
			{UserID: creatorID, Role: conversation.RoleAdmin, IsActive: true, JoinedAt: now},
			{UserID: otherID, Role: conversation.RoleAdmin, IsActive: true, JoinedAt: now},
		},
	}
	if err := s.repo.Create(ctx, &conv); err != nil {
		return conversation.Conversation{}, err
	}
	return conv, nil
}

// CreateGroup creates a group with the creator as admin and the given
// members as regular members. The creator is skipped if listed among the
// members.
func (s *ConversationService) CreateGroup(ctx context.Context, creatorID uuid.UUID, subject string, memberIDs []uuid.UUID) (conversation.Conversation, error) {
	if subject == "" {
		return conversation.Conversation{}, chathub_errors.ErrInvalidInput
	}

	now := time.Now()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		Type:      conversation.TypeGroup,
		Subject:   sql.NullString{String: subject, Valid: true},
		CreatedBy: uuid.NullUUID{UUID: creatorID, Valid: true},
		CreatedAt: now,
		UpdatedAt: now,
		Participants: []conversation.Participant{
			{UserID: creatorID, Role: conversation.RoleAdmin, IsActive: true, JoinedAt: now},
		},
	}
	seen := map[uuid.UUID]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		conv.Participants = append(conv.Participants, conversation.Participant{
			UserID: id, Role: conversation.RoleMember, IsActive: true, JoinedAt: now,
		})
	}

	if err := s.repo.Create(ctx, &conv); err != nil {
		return conversation.Conversation{}, err
	}
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Conversation, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return conversation.Conversation{}, err
	}
	return s.repo.GetByID(ctx, conversationID)
}

func (s *ConversationService) List(ctx context.Context, userID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.GetUserConversations(ctx, userID, page, limit)
}

// AddParticipant adds a user to a group, reactivating a previous membership
// row if the user left before. Admin only.
func (s *ConversationService) AddParticipant(ctx context.Context, actorID, conversationID, userID uuid.UUID) error {
	if _, err := s.requireGroupAdmin(ctx, actorID, conversationID); err != nil {
		return err
	}

	existing, err := s.repo.GetParticipant(ctx, conversationID, userID)
	switch {
	case err == nil:
		if existing.IsActive {
			return chathub_errors.ErrConflict
		}
		return s.repo.ReactivateParticipant(ctx, conversationID, userID, conversation.RoleMember)
	case errors.Is(err, chathub_errors.ErrNotFound):
		return s.repo.AddParticipant(ctx, &conversation.Participant{
			ConversationID: conversationID,
			UserID:         userID,
			Role:           conversation.RoleMember,
			IsActive:       true,
			JoinedAt:       time.Now(),
		})
	default:
		return err
	}
}

// RemoveParticipant deactivates a member's row. Admin only; admins cannot
// remove themselves this way, they leave instead.
func (s *ConversationService) RemoveParticipant(ctx context.Context, actorID, conversationID, userID uuid.UUID) error {
	if actorID == userID {
		return chathub_errors.ErrInvalidInput
	}
	if _, err := s.requireGroupAdmin(ctx, actorID, conversationID); err != nil {
		return err
	}
	return s.repo.DeactivateParticipant(ctx, conversationID, userID)
}

// UpdateRole promotes or demotes a group member. Demoting the last active
// admin is rejected so the group always keeps one.
func (s *ConversationService) UpdateRole(ctx context.Context, actorID, conversationID, userID uuid.UUID, role string) error {
	if role != conversation.RoleAdmin && role != conversation.RoleMember {
		return chathub_errors.ErrInvalidInput
	}
	if _, err := s.requireGroupAdmin(ctx, actorID, conversationID); err != nil {
		return err
	}

	target, err := s.repo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !target.IsActive {
		return chathub_errors.ErrNotFound
	}
	if target.Role == role {
		return nil
	}

	if role == conversation.RoleMember && target.IsAdmin() {
		admins, err := s.repo.CountActiveAdmins(ctx, conversationID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return chathub_errors.ErrInvalidTransition
		}
	}
	return s.repo.UpdateParticipantRole(ctx, conversationID, userID, role)
}

// Leave deactivates the caller's membership. When the last active admin
// leaves a group that still has members, the longest-standing member is
// promoted so the group is never adminless.
func (s *ConversationService) Leave(ctx context.Context, conversationID, userID uuid.UUID) error {
	participant, err := s.repo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !participant.IsActive {
		return chathub_errors.ErrNotFound
	}

	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Type == conversation.TypeDirect {
		return s.repo.DeactivateParticipant(ctx, conversationID, userID)
	}

	leave := func(repo repository.ConversationRepository) error {
		if err := repo.DeactivateParticipant(ctx, conversationID, userID); err != nil {
			return err
		}
		if !participant.IsAdmin() {
			return nil
		}
		admins, err := repo.CountActiveAdmins(ctx, conversationID)
		if err != nil {
			return err
		}
		if admins > 0 {
			return nil
		}
		successor, err := repo.OldestActiveMember(ctx, conversationID)
		if errors.Is(err, chathub_errors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := repo.UpdateParticipantRole(ctx, conversationID, successor.UserID, conversation.RoleAdmin); err != nil {
			return err
		}
		s.log.Logger.Info("promoted successor admin on last admin leaving",
			zap.String("conversation_id", conversationID.String()),
			zap.String("user_id", successor.UserID.String()))
		return nil
	}

	if s.db == nil {
		return leave(s.repo)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return leave(repository.NewConversationRepository(tx))
	})
}

// SetAdminOnlyChat flips the group's admin-only posting flag. Admin only.
func (s *ConversationService) SetAdminOnlyChat(ctx context.Context, actorID, conversationID uuid.UUID, enabled bool) error {
	if _, err := s.requireGroupAdmin(ctx, actorID, conversationID); err != nil {
		return err
	}
	return s.repo.SetAdminOnlyChat(ctx, conversationID, enabled)
}

// MarkRead stamps the caller's conversation-level read cursor and announces
// it to the room so other clients can update receipts.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	at := time.Now()
	if err := s.repo.UpdateLastReadAt(ctx, conversationID, userID, at); err != nil {
		return err
	}
	s.broadcaster.BroadcastToConversation(conversationID, events.New(events.EventMessagesRead, map[string]interface{}{
		"conversationId": conversationID,
		"userId":         userID,
		"readAt":         at,
	}))
	return nil
}

// Participants lists the active members, behind the view guard.
func (s *ConversationService) Participants(ctx context.Context, conversationID, userID uuid.UUID) ([]conversation.Participant, error) {
	if err := s.access.CanViewConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.GetActiveParticipants(ctx, conversationID)
}

// requireGroupAdmin rejects direct conversations and non-admin actors.
func (s *ConversationService) requireGroupAdmin(ctx context.Context, actorID, conversationID uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if conv.Type != conversation.TypeGroup {
		return conversation.Conversation{}, chathub_errors.ErrInvalidInput
	}
	if err := s.access.CanManageGroup(ctx, actorID, conversationID); err != nil {
		return conversation.Conversation{}, err
	}
	return conv, nil
}
