package dto

import authdomain "fled-backend/internal/auth/domain"

// RegisterFCMTokenRequest registers the calling device for push delivery
type RegisterFCMTokenRequest struct {
	Token  string `json:"token" binding:"required"`
	Device string `json:"device"`
}

// MeResponse describes the authenticated principal
type MeResponse struct {
	User   *authdomain.Identity `json:"user"`
	Tokens int                  `json:"tokens"`
}
