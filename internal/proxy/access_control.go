package proxy

import (
	"context"

	"chathub/internal/domain/conversation"
	"chathub/internal/repository"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
)

// AccessControl evaluates the authorization predicates in front of every
// live action. It is stateless; the participant table is the authority.
type AccessControl struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	threadRepo       repository.ThreadRepository
}

func NewAccessControl(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	threadRepo repository.ThreadRepository,
) *AccessControl {
	return &AccessControl{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		threadRepo:       threadRepo,
	}
}

func (a *AccessControl) CanViewConversation(ctx context.Context, userID, conversationID uuid.UUID) error {
	return a.ensureParticipant(ctx, conversationID, userID)
}

// CanSendMessage checks active participation and, for top-level sends into a
// group with admin-only chat enabled, the admin role. Thread sends are exempt
// from the admin-only restriction.
func (a *AccessControl) CanSendMessage(ctx context.Context, userID, conversationID uuid.UUID, threadID *uuid.UUID) error {
	participant, err := a.conversationRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if err == chathub_errors.ErrNotFound {
			return chathub_errors.ErrForbidden
		}
		return err
	}
	if !participant.IsActive {
		return chathub_errors.ErrForbidden
	}

	if threadID != nil {
		return nil
	}

	conv, err := a.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Type == conversation.TypeGroup && conv.AdminOnlyChat && !participant.IsAdmin() {
		return chathub_errors.ErrForbidden
	}
	return nil
}

// ValidateReply confirms that a reply target exists in the same conversation.
func (a *AccessControl) ValidateReply(ctx context.Context, conversationID, replyToID uuid.UUID) error {
	if _, err := a.messageRepo.GetByIDInConversation(ctx, replyToID, conversationID); err != nil {
		if err == chathub_errors.ErrNotFound {
			return chathub_errors.ErrInvalidInput
		}
		return err
	}
	return nil
}

// ValidateThread confirms that a thread reference exists in the same conversation.
func (a *AccessControl) ValidateThread(ctx context.Context, conversationID, threadID uuid.UUID) error {
	if _, err := a.threadRepo.GetByIDInConversation(ctx, threadID, conversationID); err != nil {
		if err == chathub_errors.ErrNotFound {
			return chathub_errors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (a *AccessControl) CanManageGroup(ctx context.Context, userID, conversationID uuid.UUID) error {
	participant, err := a.conversationRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if err == chathub_errors.ErrNotFound {
			return chathub_errors.ErrForbidden
		}
		return err
	}
	if !participant.IsActive || !participant.IsAdmin() {
		return chathub_errors.ErrForbidden
	}
	return nil
}

func (a *AccessControl) ensureParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	ok, err := a.conversationRepo.IsActiveParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return chathub_errors.ErrForbidden
	}
	return nil
}
