package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medilink/handlers"
	"medilink/middleware"
)

// SetupRouter assembles the HTTP surface of the delivery layer. The
// websocket endpoint is mounted separately in main so the gateway owns
// its own auth path.
func SetupRouter(h *handlers.Handlers, jwtSecret string, corsOrigins []string) *gin.Engine {
	router := gin.Default()

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "Medilink delivery layer running", "service": "healthy"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/")
	api.Use(middleware.JWTAuthMiddleware(jwtSecret))

	api.GET("/conversations", h.GetConversations)
	api.GET("/messages/:peerId", h.GetMessages)
	api.POST("/messages", h.SendMessage)
	api.PUT("/messages/read/:peerId", h.MarkRead)

	api.POST("/notifications", h.CreateNotification)
	api.GET("/notifications/unread/:participantId", h.GetUnreadNotifications)
	api.PUT("/notifications/read/:id", h.MarkNotificationRead)

	api.GET("/presence/:participantId", h.GetPresence)

	return router
}
