package repository

import (
	"context"
	"errors"

	"chathub/internal/domain/message"
	chathub_errors "chathub/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &PostgresThreadRepository{db: db}
}

func (r *PostgresThreadRepository) Create(ctx context.Context, t *message.Thread) error {
	res := r.db.WithContext(ctx).Create(t)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return chathub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Thread, error) {
	var t message.Thread
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Thread{}, chathub_errors.ErrNotFound
		}
		return message.Thread{}, err
	}
	return t, nil
}

func (r *PostgresThreadRepository) GetByIDInConversation(ctx context.Context, id, conversationID uuid.UUID) (message.Thread, error) {
	var t message.Thread
	err := r.db.WithContext(ctx).
		Where("id = ? AND conversation_id = ?", id, conversationID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Thread{}, chathub_errors.ErrNotFound
		}
		return message.Thread{}, err
	}
	return t, nil
}

func (r *PostgresThreadRepository) GetByParentMessage(ctx context.Context, parentMessageID uuid.UUID) (message.Thread, error) {
	var t message.Thread
	err := r.db.WithContext(ctx).
		Where("parent_message_id = ?", parentMessageID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Thread{}, chathub_errors.ErrNotFound
		}
		return message.Thread{}, err
	}
	return t, nil
}

func (r *PostgresThreadRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]message.Thread, error) {
	var threads []message.Thread
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}
