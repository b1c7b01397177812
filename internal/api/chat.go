package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/middleware"
	"github.com/carhorizon/carhorizon/internal/service"
)

type ChatHandler struct {
	chats  *service.Chats
	logger *zap.Logger
}

func NewChatHandler(chats *service.Chats, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger}
}

type openChatRequest struct {
	CarID          uuid.UUID `json:"car_id" binding:"required"`
	InitiatorCarID uuid.UUID `json:"initiator_car_id" binding:"required"`
}

// Open handles POST /api/chats/open — find or create the conversation
// between the displayed car and the caller's initiator car.
func (h *ChatHandler) Open(c *gin.Context) {
	var req openChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, existing, err := h.chats.Open(c.Request.Context(), middleware.GetUserID(c), req.CarID, req.InitiatorCarID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	c.JSON(status, chat)
}

// Inbox handles GET /api/chats/inbox — the caller's threads, most recent
// activity first, each with its unread flag.
func (h *ChatHandler) Inbox(c *gin.Context) {
	threads, err := h.chats.Inbox(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": threads})
}

func chatIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return uuid.Nil, false
	}
	return id, true
}

// Messages handles GET /api/chats/:chatId/messages
func (h *ChatHandler) Messages(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	messages, err := h.chats.Messages(c.Request.Context(), middleware.GetUserID(c), chatID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// Send handles POST /api/chats/:chatId/messages
func (h *ChatHandler) Send(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.chats.Send(c.Request.Context(), middleware.GetUserID(c), chatID, req.Text)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead handles POST /api/chats/:chatId/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	row, err := h.chats.MarkRead(c.Request.Context(), middleware.GetUserID(c), chatID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// ReadStatus handles GET /api/chats/:chatId/read-status — when the other
// participant last read this chat, null if never.
func (h *ChatHandler) ReadStatus(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	lastRead, err := h.chats.OtherParticipantLastRead(c.Request.Context(), middleware.GetUserID(c), chatID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"last_read_at": lastRead})
}
