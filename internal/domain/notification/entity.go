package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeNewMessage       = "NEW_MESSAGE"
	TypeThreadReply      = "THREAD_REPLY"
	TypeScheduledMessage = "SCHEDULED_MESSAGE"
)

// Notification represents the notifications table. Rows are created by the
// system only; users mutate nothing but the read flag.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"not null"`
	Title     string    `gorm:"not null"`
	Body      string
	Data      string `gorm:"type:jsonb;default:'{}'"`
	IsRead    bool   `gorm:"not null;default:false;index"`
	CreatedAt time.Time
}

func (Notification) TableName() string {
	return "notifications"
}
