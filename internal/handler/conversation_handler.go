package handler

import (
	"net/http"
	"strconv"

	"chathub/internal/middleware"
	"chathub/internal/services"
	"chathub/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	service *services.ConversationService
}

func NewConversationHandler(service *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	var req httpdto.CreateDirectConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	otherID, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}
	creatorID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	conv, err := h.service.CreateDirect(c.Request.Context(), creatorID, otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req httpdto.CreateGroupConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	creatorID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	memberIDs := make([]uuid.UUID, 0, len(req.MemberIDs))
	for _, idStr := range req.MemberIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			badRequest(c, "invalid member id")
			return
		}
		memberIDs = append(memberIDs, id)
	}

	conv, err := h.service.CreateGroup(c.Request.Context(), creatorID, req.Subject, memberIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, total, err := h.service.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{
		Conversations: httpdto.FromConversationSlice(items),
		Total:         total,
	}))
}

func (h *ConversationHandler) Get(c *gin.Context) {
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

	conv, err := h.service.Get(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

func (h *ConversationHandler) Participants(c *gin.Context) {
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

	participants, err := h.service.Participants(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromParticipantSlice(participants)))
}

func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}
	var req httpdto.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	newUserID, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}
	actorID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.service.AddParticipant(c.Request.Context(), actorID, conversationID, newUserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"added": true}))
}

func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}
	actorID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.service.RemoveParticipant(c.Request.Context(), actorID, conversationID, targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"removed": true}))
}

func (h *ConversationHandler) UpdateRole(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}
	var req httpdto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.service.UpdateRole(c.Request.Context(), actorID, conversationID, targetID, req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"updated": true}))
}

func (h *ConversationHandler) Leave(c *gin.Context) {
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

	if err := h.service.Leave(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"left": true}))
}

func (h *ConversationHandler) SetAdminOnlyChat(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}
	var req httpdto.SetAdminOnlyChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		badRequest(c, "invalid request")
		return
	}
	actorID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.service.SetAdminOnlyChat(c.Request.Context(), actorID, conversationID, *req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"adminOnlyChat": *req.Enabled}))
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
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

	if err := h.service.MarkRead(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"read": true}))
}
