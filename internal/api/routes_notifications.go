package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quotedesk/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler, stream *handlers.RealtimeHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/:id/read", handler.MarkRead)
		group.GET("/ws", stream.Stream)
	}
}
