package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quotedesk/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, deps Dependencies) {
	health := handlers.Health(deps.DB, deps.Cache)
	r.GET("/health", health)
	r.GET("/api/health", health)
}
