package repository

import (
	"context"
	"errors"
	"time"

	"chathub/internal/domain/message"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chathub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, chathub_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetByIDInConversation(ctx context.Context, id, conversationID uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Where("id = ? AND conversation_id = ?", id, conversationID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, chathub_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

// GetConversationMessages pages backwards from the `before` cursor.
// Ordering is (created_at, id) descending; id breaks same-timestamp ties.
func (r *PostgresMessageRepository) GetConversationMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]message.Message, error) {
	q := r.db.WithContext(ctx).
		Where("conversation_id = ? AND thread_id IS NULL", conversationID)

	if before != nil {
		cursor, err := r.GetByIDInConversation(ctx, *before, conversationID)
		if err != nil {
			return nil, err
		}
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var messages []message.Message
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) GetThreadMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]message.Message, error) {
	var messages []message.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CountThreadUnread counts thread messages from other senders newer than the
// participant's conversation-level read cursor. A nil cursor means the user
// has never marked the conversation read, so every foreign message counts.
func (r *PostgresMessageRepository) CountThreadUnread(ctx context.Context, threadID, userID uuid.UUID, since *time.Time) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("thread_id = ? AND sender_id <> ?", threadID, userID)
	if since != nil {
		q = q.Where("created_at > ?", *since)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresMessageRepository) AddReaction(ctx context.Context, reaction *message.Reaction) error {
	res := r.db.WithContext(ctx).Create(reaction)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chathub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	res := r.db.WithContext(ctx).
		Delete(&message.Reaction{}, "message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chathub_errors.ErrNotFound
	}
	return nil
}

// GetMessageReactions returns reactions in first-reaction order; the grouped
// view derives its emoji ordering from this.
func (r *PostgresMessageRepository) GetMessageReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	var reactions []message.Reaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC, id ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}
