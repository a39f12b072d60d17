package handlers

import (
	"net/http"

	"clinic-console-server/internal/models"
	"clinic-console-server/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// MessageHandler handles per-conversation message requests
type MessageHandler struct {
	messages      MessageServiceInterface
	conversations ConversationServiceInterface
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages MessageServiceInterface, conversations ConversationServiceInterface) *MessageHandler {
	return &MessageHandler{messages: messages, conversations: conversations}
}

// visibleConversation enforces the directory visibility rule on direct
// conversation access: an actor may only read or write a conversation its
// role is allowed to observe. An invisible conversation reads as absent.
func (h *MessageHandler) visibleConversation(c *gin.Context, actor models.Actor, conversationID string) bool {
	if _, err := h.conversations.GetVisible(actor, conversationID); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// List handles GET /api/conversations/:id/messages
// Returns the full ordered log, oldest first; empty list for a fresh
// conversation
func (h *MessageHandler) List(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	conversationID := c.Param("id")

	if !h.visibleConversation(c, actor, conversationID) {
		return
	}

	messages, err := h.messages.ListMessages(conversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Send handles POST /api/conversations/:id/messages
func (h *MessageHandler) Send(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	conversationID := c.Param("id")

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content and channel are required"})
		return
	}

	if !h.visibleConversation(c, actor, conversationID) {
		return
	}

	msg, err := h.messages.Send(conversationID, actor.ID, req.Content, req.Channel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// SetStatus handles PATCH /api/conversations/:id/messages/:messageID/status
// The read-receipt path: clients mark messages delivered or read
func (h *MessageHandler) SetStatus(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	conversationID := c.Param("id")
	messageID := c.Param("messageID")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	if !h.visibleConversation(c, actor, conversationID) {
		return
	}

	if err := h.messages.SetStatus(conversationID, messageID, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}
