package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ScheduledMessage statuses. Transitions are one-way: PENDING is the only
// non-terminal state.
const (
	ScheduleStatusPending   = "PENDING"
	ScheduleStatusSent      = "SENT"
	ScheduleStatusCancelled = "CANCELLED"
	ScheduleStatusFailed    = "FAILED"
)

// ScheduledMessage represents the scheduled_messages table. Payload fields
// mirror Message so the dispatcher can re-enter the ingestion pipeline with
// an identical send.
type ScheduledMessage struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Type           string    `gorm:"not null"`
	Content        sql.NullString
	FileURL        sql.NullString
	ReplyToID      uuid.NullUUID `gorm:"type:uuid"`
	ThreadID       uuid.NullUUID `gorm:"type:uuid"`
	ScheduledAt    time.Time     `gorm:"not null;index"`
	Status         string        `gorm:"not null;default:PENDING;index"`
	FailureReason  sql.NullString
	SentAt         sql.NullTime
	CreatedAt      time.Time
}

func (ScheduledMessage) TableName() string {
	return "scheduled_messages"
}
