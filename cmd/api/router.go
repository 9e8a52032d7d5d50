package api

import (
	"net/http"
	"time"

	"fled-backend/internal/auth/delivery"
	authUsecase "fled-backend/internal/auth/usecase"
	notificationDelivery "fled-backend/internal/notification/delivery"
	notificationUsecase "fled-backend/internal/notification/usecase"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func SetupRoutes(r *gin.Engine, authUc authUsecase.AuthUsecase, notificationUc notificationUsecase.NotificationUsecase, logger zerolog.Logger) {
	authHandler := delivery.NewAuthHandler(authUc)
	notificationHandler := notificationDelivery.NewNotificationHandler(notificationUc, logger)
	requireAuth := delivery.AuthMiddleware(authUc)

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	}

	// Health check (no auth required)
	r.GET("/health", health)

	// Administrative trigger
	r.POST("/notify", requireAuth, notificationHandler.Notify)

	api := r.Group("/api")
	{
		api.GET("/health", health)

		auth := api.Group("/auth")
		{
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		notifications := api.Group("/notifications")
		notifications.Use(requireAuth)
		{
			notifications.POST("/notify", notificationHandler.Notify)
			notifications.GET("/dispatches", notificationHandler.ListDispatches)
		}
	}
}
