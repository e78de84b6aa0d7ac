package httpdto

import (
	"time"

	"chathub/internal/domain/message"
	"chathub/internal/profile"
	"chathub/internal/services"
)

type SendMessageRequest struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	FileURL   string `json:"fileUrl"`
	ReplyToID string `json:"replyToId"`
	ThreadID  string `json:"threadId"`
}

type MessageView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Type           string    `json:"type"`
	Content        string    `json:"content,omitempty"`
	FileURL        string    `json:"fileUrl,omitempty"`
	ReplyToID      string    `json:"replyToId,omitempty"`
	ThreadID       string    `json:"threadId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type EnrichedMessageView struct {
	Message MessageView           `json:"message"`
	Sender  profile.PublicProfile `json:"sender"`
}

type ListMessagesResponse struct {
	Messages []MessageView `json:"messages"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

func FromMessage(m message.Message) MessageView {
	view := MessageView{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		Type:           m.Type,
		CreatedAt:      m.CreatedAt,
	}
	if m.Content.Valid {
		view.Content = m.Content.String
	}
	if m.FileURL.Valid {
		view.FileURL = m.FileURL.String
	}
	if m.ReplyToID.Valid {
		view.ReplyToID = m.ReplyToID.UUID.String()
	}
	if m.ThreadID.Valid {
		view.ThreadID = m.ThreadID.UUID.String()
	}
	return view
}

func FromMessageSlice(items []message.Message) []MessageView {
	views := make([]MessageView, 0, len(items))
	for _, m := range items {
		views = append(views, FromMessage(m))
	}
	return views
}

func FromEnrichedMessage(e services.EnrichedMessage) EnrichedMessageView {
	return EnrichedMessageView{
		Message: FromMessage(e.Message),
		Sender:  e.Sender,
	}
}
