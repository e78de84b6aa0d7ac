package httpdto

import (
	"time"

	"chathub/internal/domain/conversation"
)

type CreateDirectConversationRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type CreateGroupConversationRequest struct {
	Subject   string   `json:"subject" binding:"required"`
	MemberIDs []string `json:"memberIds"`
}

type AddParticipantRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type SetAdminOnlyChatRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type ParticipantView struct {
	UserID     string     `json:"userId"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"isActive"`
	LastReadAt *time.Time `json:"lastReadAt,omitempty"`
	JoinedAt   time.Time  `json:"joinedAt"`
}

type ConversationView struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Subject       string            `json:"subject,omitempty"`
	AvatarURL     string            `json:"avatarUrl,omitempty"`
	AdminOnlyChat bool              `json:"adminOnlyChat"`
	LastMessageAt *time.Time        `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	Participants  []ParticipantView `json:"participants,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []ConversationView `json:"conversations"`
	Total         int64              `json:"total"`
}

func FromParticipant(p conversation.Participant) ParticipantView {
	view := ParticipantView{
		UserID:   p.UserID.String(),
		Role:     p.Role,
		IsActive: p.IsActive,
		JoinedAt: p.JoinedAt,
	}
	if p.LastReadAt.Valid {
		at := p.LastReadAt.Time
		view.LastReadAt = &at
	}
	return view
}

func FromConversation(c conversation.Conversation) ConversationView {
	view := ConversationView{
		ID:            c.ID.String(),
		Type:          c.Type,
		AdminOnlyChat: c.AdminOnlyChat,
		CreatedAt:     c.CreatedAt,
	}
	if c.Subject.Valid {
		view.Subject = c.Subject.String
	}
	if c.AvatarURL.Valid {
		view.AvatarURL = c.AvatarURL.String
	}
	if c.LastMessageAt.Valid {
		at := c.LastMessageAt.Time
		view.LastMessageAt = &at
	}
	for _, p := range c.Participants {
		view.Participants = append(view.Participants, FromParticipant(p))
	}
	return view
}

func FromConversationSlice(items []conversation.Conversation) []ConversationView {
	views := make([]ConversationView, 0, len(items))
	for _, c := range items {
		views = append(views, FromConversation(c))
	}
	return views
}

func FromParticipantSlice(items []conversation.Participant) []ParticipantView {
	views := make([]ParticipantView, 0, len(items))
	for _, p := range items {
		views = append(views, FromParticipant(p))
	}
	return views
}
