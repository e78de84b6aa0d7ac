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

type PostgresScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Create(ctx context.Context, s *message.ScheduledMessage) error {
	res := r.db.WithContext(ctx).Create(s)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PostgresScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (message.ScheduledMessage, error) {
	var s message.ScheduledMessage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.ScheduledMessage{}, chathub_errors.ErrNotFound
		}
		return message.ScheduledMessage{}, err
	}
	return s, nil
}

func (r *PostgresScheduleRepository) ListBySender(ctx context.Context, senderID uuid.UUID, status string) ([]message.ScheduledMessage, error) {
	q := r.db.WithContext(ctx).Where("sender_id = ?", senderID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var rows []message.ScheduledMessage
	if err := q.Order("scheduled_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PostgresScheduleRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]message.ScheduledMessage, error) {
	var rows []message.ScheduledMessage
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", message.ScheduleStatusPending, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSent flips PENDING to SENT. The WHERE clause on status is the
// single-owner guard: a second dispatcher that raced on the same row sees
// zero rows affected and must treat the row as already taken.
func (r *PostgresScheduleRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&message.ScheduledMessage{}).
		Where("id = ? AND status = ?", id, message.ScheduleStatusPending).
		Updates(map[string]interface{}{
			"status":  message.ScheduleStatusSent,
			"sent_at": sentAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chathub_errors.ErrConflict
	}
	return nil
}

func (r *PostgresScheduleRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res := r.db.WithContext(ctx).
		Model(&message.ScheduledMessage{}).
		Where("id = ? AND status = ?", id, message.ScheduleStatusPending).
		Updates(map[string]interface{}{
			"status":         message.ScheduleStatusFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chathub_errors.ErrConflict
	}
	return nil
}

// Cancel is scoped to the sender's own pending rows; a row that already left
// PENDING is invisible to it, so cancelling a sent row reports NotFound.
func (r *PostgresScheduleRepository) Cancel(ctx context.Context, id, senderID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&message.ScheduledMessage{}).
		Where("id = ? AND sender_id = ? AND status = ?", id, senderID, message.ScheduleStatusPending).
		Update("status", message.ScheduleStatusCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chathub_errors.ErrNotFound
	}
	return nil
}
