package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	TypeText     = "TEXT"
	TypeImage    = "IMAGE"
	TypeFile     = "FILE"
	TypeLocation = "LOCATION"
)

// Message represents the messages table. Messages are immutable once
// created; ordering is (created_at, id).
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null"`
	Type           string    `gorm:"not null"`
	Content        sql.NullString
	FileURL        sql.NullString
	ReplyToID      uuid.NullUUID `gorm:"type:uuid"`
	ThreadID       uuid.NullUUID `gorm:"type:uuid;index"`
	CreatedAt      time.Time     `gorm:"index"`
}

// Thread represents the threads table. A thread is rooted at a parent
// message; the parent itself keeps thread_id NULL.
type Thread struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ParentMessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Title           sql.NullString
	CreatedBy       uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt       time.Time
}

// Reaction represents the reactions table. The composite unique index is the
// real arbiter for duplicate adds; the service-level existence check is only
// a fast path.
type Reaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_triple"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_triple"`
	Emoji     string    `gorm:"not null;uniqueIndex:idx_reaction_triple"`
	CreatedAt time.Time
}

// ReactionGroup is the aggregated per-emoji view broadcast to clients.
type ReactionGroup struct {
	Emoji   string      `json:"emoji"`
	Count   int         `json:"count"`
	UserIDs []uuid.UUID `json:"userIds"`
}

func (Message) TableName() string {
	return "messages"
}

func (Thread) TableName() string {
	return "threads"
}

func (Reaction) TableName() string {
	return "reactions"
}
