package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chathub/internal/auth"
	"chathub/internal/domain/message"
	"chathub/internal/events"
	"chathub/internal/proxy"
	"chathub/internal/redis"
	"chathub/internal/registry"
	"chathub/internal/services"
	chathub_errors "chathub/pkg/errors"
	"chathub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// clientMessage is the inbound frame shape.
type clientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

type sendPayload struct {
	ConversationID uuid.UUID  `json:"conversationId"`
	Type           string     `json:"type"`
	Content        string     `json:"content"`
	FileURL        string     `json:"fileUrl"`
	ReplyToID      *uuid.UUID `json:"replyToId"`
	ThreadID       *uuid.UUID `json:"threadId"`
}

type typingPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	IsTyping       bool      `json:"isTyping"`
}

type markReadPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

// Handler upgrades authenticated sockets and dispatches their frames to the
// services. Unknown frame types and rejected actions produce error events;
// the connection stays open.
type Handler struct {
	hub           *Hub
	verifier      *auth.Verifier
	access        *proxy.AccessControl
	chat          *services.ChatService
	conversations *services.ConversationService
	typing        *redis.TypingStore
	registry      *registry.Registry
	log           *logger.Logger
}

func NewHandler(
	hub *Hub,
	verifier *auth.Verifier,
	access *proxy.AccessControl,
	chat *services.ChatService,
	conversations *services.ConversationService,
	typing *redis.TypingStore,
	reg *registry.Registry,
	log *logger.Logger,
) *Handler {
	return &Handler{
		hub:           hub,
		verifier:      verifier,
		access:        access,
		chat:          chat,
		conversations: conversations,
		typing:        typing,
		registry:      reg,
		log:           log,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Connect is the websocket endpoint. The token rides a query parameter
// because browser websocket clients cannot set headers.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	userID, _, err := h.verifier.Verify(token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID, token)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WritePump(ctx)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		h.dispatch(ctx, client, data)
	}

	h.hub.Unregister(client)
}

func (h *Handler) dispatch(ctx context.Context, client *Client, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(client, "", chathub_errors.ErrInvalidInput)
		return
	}

	switch msg.Type {
	case events.ClientJoinConversation:
		h.handleJoin(ctx, client, msg.Payload)
	case events.ClientSendMessage:
		h.handleSend(ctx, client, msg.Payload)
	case events.ClientTyping:
		h.handleTyping(ctx, client, msg.Payload)
	case events.ClientMarkRead:
		h.handleMarkRead(ctx, client, msg.Payload)
	case events.ClientGetOnlineUsers:
		h.handleOnlineUsers(client)
	default:
		h.sendError(client, msg.Type, chathub_errors.ErrInvalidInput)
	}
}

func (h *Handler) handleJoin(ctx context.Context, client *Client, raw json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ConversationID == uuid.Nil {
		h.sendError(client, events.ClientJoinConversation, chathub_errors.ErrInvalidInput)
		return
	}
	if err := h.access.CanViewConversation(ctx, client.UserID, p.ConversationID); err != nil {
		h.sendError(client, events.ClientJoinConversation, err)
		return
	}
	h.hub.JoinConversation(client, p.ConversationID)
}

func (h *Handler) handleSend(ctx context.Context, client *Client, raw json.RawMessage) {
	var p sendPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ConversationID == uuid.Nil {
		h.sendError(client, events.ClientSendMessage, chathub_errors.ErrInvalidInput)
		return
	}
	if p.Type == "" {
		p.Type = message.TypeText
	}

	_, err := h.chat.Send(ctx, services.SendMessageInput{
		ConversationID: p.ConversationID,
		SenderID:       client.UserID,
		Content:        p.Content,
		Type:           p.Type,
		FileURL:        p.FileURL,
		ReplyToID:      p.ReplyToID,
		ThreadID:       p.ThreadID,
		BearerToken:    client.bearer,
	})
	if err != nil {
		h.sendError(client, events.ClientSendMessage, err)
	}
}

func (h *Handler) handleTyping(ctx context.Context, client *Client, raw json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ConversationID == uuid.Nil {
		h.sendError(client, events.ClientTyping, chathub_errors.ErrInvalidInput)
		return
	}
	if err := h.access.CanViewConversation(ctx, client.UserID, p.ConversationID); err != nil {
		h.sendError(client, events.ClientTyping, err)
		return
	}

	if err := h.typing.SetTyping(ctx, p.ConversationID.String(), client.UserID.String(), p.IsTyping); err != nil {
		h.log.Logger.Warn("typing store update failed", zap.Error(err))
	}
	h.hub.BroadcastToConversation(p.ConversationID, events.New(events.EventUserTyping, map[string]interface{}{
		"conversationId": p.ConversationID,
		"userId":         client.UserID,
		"isTyping":       p.IsTyping,
	}))
}

func (h *Handler) handleMarkRead(ctx context.Context, client *Client, raw json.RawMessage) {
	var p markReadPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ConversationID == uuid.Nil {
		h.sendError(client, events.ClientMarkRead, chathub_errors.ErrInvalidInput)
		return
	}
	if err := h.conversations.MarkRead(ctx, p.ConversationID, client.UserID); err != nil {
		h.sendError(client, events.ClientMarkRead, err)
	}
}

func (h *Handler) handleOnlineUsers(client *Client) {
	data, err := json.Marshal(events.New(events.EventOnlineUsers, map[string]interface{}{
		"users": h.registry.ListOnline(),
	}))
	if err != nil {
		return
	}
	client.Send(data)
}

func (h *Handler) sendError(client *Client, action string, err error) {
	payload := events.ErrorPayload{
		Code:    codeFor(err),
		Message: err.Error(),
		Action:  action,
	}
	data, marshalErr := json.Marshal(events.New(events.EventError, payload))
	if marshalErr != nil {
		return
	}
	client.Send(data)
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, chathub_errors.ErrUnauthorized):
		return events.CodeUnauthorized
	case errors.Is(err, chathub_errors.ErrForbidden):
		return events.CodeForbidden
	case errors.Is(err, chathub_errors.ErrNotFound):
		return events.CodeNotFound
	case errors.Is(err, chathub_errors.ErrConflict), errors.Is(err, chathub_errors.ErrAlreadyExists),
		errors.Is(err, chathub_errors.ErrInvalidTransition):
		return events.CodeConflict
	case errors.Is(err, chathub_errors.ErrInvalidInput):
		return events.CodeInvalidInput
	default:
		return events.CodeInternal
	}
}
