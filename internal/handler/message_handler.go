package handler

import (
	"net/http"
	"strconv"

	"chathub/internal/domain/message"
	"chathub/internal/middleware"
	"chathub/internal/services"
	"chathub/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	chat      *services.ChatService
	reactions *services.ReactionService
}

func NewMessageHandler(chat *services.ChatService, reactions *services.ReactionService) *MessageHandler {
	return &MessageHandler{chat: chat, reactions: reactions}
}

// Send is the REST entry into the same pipeline socket sends go through.
func (h *MessageHandler) Send(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	senderID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	in := services.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        req.Content,
		Type:           req.Type,
		FileURL:        req.FileURL,
		BearerToken:    middleware.BearerFromContext(c.Request.Context()),
	}
	if in.Type == "" {
		in.Type = message.TypeText
	}
	if req.ReplyToID != "" {
		id, err := uuid.Parse(req.ReplyToID)
		if err != nil {
			badRequest(c, "invalid reply id")
			return
		}
		in.ReplyToID = &id
	}
	if req.ThreadID != "" {
		id, err := uuid.Parse(req.ThreadID)
		if err != nil {
			badRequest(c, "invalid thread id")
			return
		}
		in.ThreadID = &id
	}

	enriched, err := h.chat.Send(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromEnrichedMessage(enriched)))
}

// List pages conversation messages newest first with an id cursor.
func (h *MessageHandler) List(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	var before *uuid.UUID
	if raw := c.Query("before"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid cursor")
			return
		}
		before = &id
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.chat.Messages(c.Request.Context(), conversationID, userID, before, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(items),
	}))
}

func (h *MessageHandler) AddReaction(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}
	var req httpdto.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	state, err := h.reactions.Add(c.Request.Context(), userID, messageID, req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(state))
}

func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}
	emoji := c.Query("emoji")
	if emoji == "" {
		badRequest(c, "emoji required")
		return
	}
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	state, err := h.reactions.Remove(c.Request.Context(), userID, messageID, emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(state))
}

func (h *MessageHandler) ListReactions(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		badRequest(c, "invalid message id")
		return
	}
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	groups, err := h.reactions.Grouped(c.Request.Context(), userID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(groups))
}
