package handler

import (
	"net/http"

	"chathub/internal/domain/message"
	"chathub/internal/middleware"
	"chathub/internal/services"
	"chathub/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ScheduleHandler struct {
	service *services.ScheduleService
}

func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	var req httpdto.CreateScheduledMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		badRequest(c, "invalid conversation id")
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

	scheduled, err := h.service.Create(c.Request.Context(), in, req.ScheduledAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromScheduledMessage(scheduled)))
}

func (h *ScheduleHandler) List(c *gin.Context) {
	senderID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	items, err := h.service.ListBySender(c.Request.Context(), senderID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromScheduledMessageSlice(items)))
}

func (h *ScheduleHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid scheduled message id")
		return
	}
	senderID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id, senderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"cancelled": true}))
}
