package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"fled-backend/internal/notification/usecase"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notificationUsecase usecase.NotificationUsecase
	logger              zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationUsecase usecase.NotificationUsecase, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationUsecase: notificationUsecase,
		logger:              logger.With().Str("component", "notify_handler").Logger(),
	}
}

// NotifyRequest names the document to notify about
type NotifyRequest struct {
	Collection string `json:"collection"`
	DocID      string `json:"docId"`
}

// Notify sends a push notification for an existing document
// POST /notify
func (h *NotificationHandler) Notify(c *gin.Context) {
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Collection == "" || req.DocID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing collection or docId"})
		return
	}

	result, err := h.notificationUsecase.NotifyDocument(c.Request.Context(), req.Collection, req.DocID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCollection):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid collection"})
		case errors.Is(err, usecase.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		default:
			h.logger.Error().Err(err).Str("collection", req.Collection).Str("doc_id", req.DocID).Msg("notify failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "message": err.Error()})
		}
		return
	}

	if result.Message != "" {
		c.JSON(http.StatusOK, gin.H{"sent": 0, "message": result.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"sent":                 result.Sent,
		"failed":               result.Failed,
		"totalTokens":          result.TotalTokens,
		"invalidTokensRemoved": result.InvalidTokensRemoved,
	})
}

// ListDispatches returns the dispatch audit log
// GET /api/notifications/dispatches?type=task&limit=50&offset=0
func (h *NotificationHandler) ListDispatches(c *gin.Context) {
	eventType := c.Query("type")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, total, err := h.notificationUsecase.ListDispatches(c.Request.Context(), eventType, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dispatches": logs,
		"total":      total,
	})
}
