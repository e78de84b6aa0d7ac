package httpdto

import (
	"time"

	"chathub/internal/domain/message"
)

type CreateScheduledMessageRequest struct {
	ConversationID string    `json:"conversationId" binding:"required"`
	Type           string    `json:"type"`
	Content        string    `json:"content"`
	FileURL        string    `json:"fileUrl"`
	ReplyToID      string    `json:"replyToId"`
	ThreadID       string    `json:"threadId"`
	ScheduledAt    time.Time `json:"scheduledAt" binding:"required"`
}

type ScheduledMessageView struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	Type           string     `json:"type"`
	Content        string     `json:"content,omitempty"`
	FileURL        string     `json:"fileUrl,omitempty"`
	ReplyToID      string     `json:"replyToId,omitempty"`
	ThreadID       string     `json:"threadId,omitempty"`
	ScheduledAt    time.Time  `json:"scheduledAt"`
	Status         string     `json:"status"`
	FailureReason  string     `json:"failureReason,omitempty"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func FromScheduledMessage(s message.ScheduledMessage) ScheduledMessageView {
	view := ScheduledMessageView{
		ID:             s.ID.String(),
		ConversationID: s.ConversationID.String(),
		SenderID:       s.SenderID.String(),
		Type:           s.Type,
		ScheduledAt:    s.ScheduledAt,
		Status:         s.Status,
		CreatedAt:      s.CreatedAt,
	}
	if s.Content.Valid {
		view.Content = s.Content.String
	}
	if s.FileURL.Valid {
		view.FileURL = s.FileURL.String
	}
	if s.ReplyToID.Valid {
		view.ReplyToID = s.ReplyToID.UUID.String()
	}
	if s.ThreadID.Valid {
		view.ThreadID = s.ThreadID.UUID.String()
	}
	if s.FailureReason.Valid {
		view.FailureReason = s.FailureReason.String
	}
	if s.SentAt.Valid {
		at := s.SentAt.Time
		view.SentAt = &at
	}
	return view
}

func FromScheduledMessageSlice(items []message.ScheduledMessage) []ScheduledMessageView {
	views := make([]ScheduledMessageView, 0, len(items))
	for _, s := range items {
		views = append(views, FromScheduledMessage(s))
	}
	return views
}
