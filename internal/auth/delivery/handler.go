package delivery

import (
	"net/http"

	"fled-backend/internal/auth/dto"
	"fled-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles principal and device-token HTTP requests
type AuthHandler struct {
	authUsecase usecase.AuthUsecase
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authUsecase usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
	}
}

// Me returns the authenticated principal
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	count, err := h.authUsecase.TokenCount(c.Request.Context(), identity.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.MeResponse{User: identity, Tokens: count})
}

// RegisterFCMToken stores the caller's device token
// POST /api/fcm/register
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	var req dto.RegisterFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	userID := c.GetString(ContextUserID)
	if err := h.authUsecase.RegisterFCMToken(c.Request.Context(), userID, req.Token, req.Device); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token registered"})
}

// UnregisterFCMToken removes a device token
// DELETE /api/fcm/:token
func (h *AuthHandler) UnregisterFCMToken(c *gin.Context) {
	userID := c.GetString(ContextUserID)
	if err := h.authUsecase.UnregisterFCMToken(c.Request.Context(), userID, c.Param("token")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token removed"})
}
