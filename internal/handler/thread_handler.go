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

type ThreadHandler struct {
	service *services.ThreadService
}

func NewThreadHandler(service *services.ThreadService) *ThreadHandler {
	return &ThreadHandler{service: service}
}

func (h *ThreadHandler) Create(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid conversation id")
		return
	}
	var req httpdto.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	parentID, err := uuid.Parse(req.ParentMessageID)
	if err != nil {
		badRequest(c, "invalid parent message id")
		return
	}
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	thread, err := h.service.Create(c.Request.Context(), userID, conversationID, parentID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromThread(thread)))
}

// List returns the conversation's threads with the caller's unread counts.
func (h *ThreadHandler) List(c *gin.Context) {
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

	items, err := h.service.ListWithUnread(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromThreadWithUnreadSlice(items)))
}

func (h *ThreadHandler) Messages(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("threadId"))
	if err != nil {
		badRequest(c, "invalid thread id")
		return
	}
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.service.Messages(c.Request.Context(), threadID, userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(items),
	}))
}

func (h *ThreadHandler) UnreadCount(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("threadId"))
	if err != nil {
		badRequest(c, "invalid thread id")
		return
	}
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), threadID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountResponse{Count: count}))
}
