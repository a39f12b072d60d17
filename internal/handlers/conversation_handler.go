package handlers

import (
	"net/http"

	"clinic-console-server/internal/models"
	"clinic-console-server/pkg/logger"
	"clinic-console-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConversationHandler handles conversation directory requests
type ConversationHandler struct {
	conversations ConversationServiceInterface
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations ConversationServiceInterface) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// List handles GET /api/conversations
// Returns the actor's role-scoped directory, newest activity first
func (h *ConversationHandler) List(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	summaries, err := h.conversations.ListConversations(actor)
	if err != nil {
		logger.Warn("Conversation listing failed",
			zap.String("actor_id", actor.ID),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// Create handles POST /api/conversations
// Patients open their own conversation; staff may open one for a patient
// via the patient_id field
func (h *ConversationHandler) Create(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	var req struct {
		models.CreateConversationRequest
		PatientID string `json:"patient_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conv, err := h.conversations.CreateConversation(actor, req.PatientID, req.Channel, req.Subject, req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conv)
}

// Claim handles POST /api/conversations/:id/claim
// Exactly one of two racing attendants succeeds; the loser gets 409 and
// should refresh its directory
func (h *ConversationHandler) Claim(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	conversationID := c.Param("id")

	conv, err := h.conversations.Claim(actor, conversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// Reassign handles POST /api/conversations/:id/reassign
func (h *ConversationHandler) Reassign(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	conversationID := c.Param("id")

	var req struct {
		AttendantID string `json:"attendant_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.conversations.Reassign(actor, conversationID, req.AttendantID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reassigned"})
}

// SetStatus handles PATCH /api/conversations/:id/status
func (h *ConversationHandler) SetStatus(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	conversationID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	if err := h.conversations.SetStatus(actor, conversationID, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}
