package repository

import (
	"context"
	"time"

	"chathub/internal/domain/conversation"
	"chathub/internal/domain/message"
	"chathub/internal/domain/notification"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetUserConversations(ctx context.Context, userID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error)
	GetDirectConversation(ctx context.Context, userID1, userID2 uuid.UUID) (conversation.Conversation, error)
	TouchLastMessageAt(ctx context.Context, conversationID uuid.UUID, at time.Time) error
	SetAdminOnlyChat(ctx context.Context, conversationID uuid.UUID, enabled bool) error

	AddParticipant(ctx context.Context, p *conversation.Participant) error
	ReactivateParticipant(ctx context.Context, conversationID, userID uuid.UUID, role string) error
	GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Participant, error)
	GetActiveParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error)
	IsActiveParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	UpdateParticipantRole(ctx context.Context, conversationID, userID uuid.UUID, role string) error
	DeactivateParticipant(ctx context.Context, conversationID, userID uuid.UUID) error
	UpdateLastReadAt(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
	CountActiveAdmins(ctx context.Context, conversationID uuid.UUID) (int64, error)
	OldestActiveMember(ctx context.Context, conversationID uuid.UUID) (conversation.Participant, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	GetByIDInConversation(ctx context.Context, id, conversationID uuid.UUID) (message.Message, error)
	GetConversationMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]message.Message, error)
	GetThreadMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]message.Message, error)
	CountThreadUnread(ctx context.Context, threadID, userID uuid.UUID, since *time.Time) (int64, error)

	AddReaction(ctx context.Context, r *message.Reaction) error
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
	GetMessageReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error)
}

type ThreadRepository interface {
	Create(ctx context.Context, t *message.Thread) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Thread, error)
	GetByIDInConversation(ctx context.Context, id, conversationID uuid.UUID) (message.Thread, error)
	GetByParentMessage(ctx context.Context, parentMessageID uuid.UUID) (message.Thread, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]message.Thread, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, s *message.ScheduledMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (message.ScheduledMessage, error)
	ListBySender(ctx context.Context, senderID uuid.UUID, status string) ([]message.ScheduledMessage, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]message.ScheduledMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Cancel(ctx context.Context, id, senderID uuid.UUID) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, onlyUnread bool, page, limit int) ([]notification.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}
