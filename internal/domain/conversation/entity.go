package conversation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	TypeDirect = "DIRECT"
	TypeGroup  = "GROUP"
)

const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Conversation represents the conversations table. Conversations are never
// hard-deleted; lifecycle is driven by participants going inactive.
type Conversation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type          string    `gorm:"not null"`
	Subject       sql.NullString
	AvatarURL     sql.NullString
	AdminOnlyChat bool `gorm:"not null;default:false"`
	LastMessageAt sql.NullTime
	CreatedBy     uuid.NullUUID `gorm:"type:uuid"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Participants []Participant `gorm:"foreignKey:ConversationID"`
}

// Participant represents the participants table. The composite primary key
// doubles as the one-active-row-per-user invariant.
type Participant struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role           string    `gorm:"not null;default:MEMBER"`
	IsActive       bool      `gorm:"not null;default:true"`
	LastReadAt     sql.NullTime
	JoinedAt       time.Time
	LeftAt         sql.NullTime
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "participants"
}

func (p Participant) IsAdmin() bool {
	return p.Role == RoleAdmin
}
