package httpdto

import (
	"time"

	"chathub/internal/domain/message"
	"chathub/internal/services"
)

type CreateThreadRequest struct {
	ParentMessageID string `json:"parentMessageId" binding:"required"`
	Title           string `json:"title"`
}

type ThreadView struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversationId"`
	ParentMessageID string    `json:"parentMessageId"`
	Title           string    `json:"title,omitempty"`
	CreatedBy       string    `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

type ThreadWithUnreadView struct {
	Thread      ThreadView `json:"thread"`
	UnreadCount int64      `json:"unreadCount"`
}

func FromThread(t message.Thread) ThreadView {
	view := ThreadView{
		ID:              t.ID.String(),
		ConversationID:  t.ConversationID.String(),
		ParentMessageID: t.ParentMessageID.String(),
		CreatedBy:       t.CreatedBy.String(),
		CreatedAt:       t.CreatedAt,
	}
	if t.Title.Valid {
		view.Title = t.Title.String
	}
	return view
}

func FromThreadWithUnreadSlice(items []services.ThreadWithUnread) []ThreadWithUnreadView {
	views := make([]ThreadWithUnreadView, 0, len(items))
	for _, t := range items {
		views = append(views, ThreadWithUnreadView{
			Thread:      FromThread(t.Thread),
			UnreadCount: t.UnreadCount,
		})
	}
	return views
}
