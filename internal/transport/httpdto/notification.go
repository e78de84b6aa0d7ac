package httpdto

import (
	"encoding/json"
	"time"

	"chathub/internal/domain/notification"
)

type NotificationView struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsRead    bool            `json:"isRead"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ListNotificationsResponse struct {
	Notifications []NotificationView `json:"notifications"`
	Total         int64              `json:"total"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

func FromNotification(n notification.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID.String(),
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Data:      json.RawMessage(n.Data),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func FromNotificationSlice(items []notification.Notification) []NotificationView {
	views := make([]NotificationView, 0, len(items))
	for _, n := range items {
		views = append(views, FromNotification(n))
	}
	return views
}
