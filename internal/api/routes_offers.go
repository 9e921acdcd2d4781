package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quotedesk/internal/handlers"
)

func registerProjectRoutes(api *gin.RouterGroup, handler *handlers.ProjectHandler) {
	group := api.Group("/projects")
	{
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
	}
}

func registerOfferRoutes(api *gin.RouterGroup, offers *handlers.OfferHandler, links *handlers.ApprovalLinkHandler) {
	group := api.Group("/offers")
	{
		group.POST("", offers.Create)
		group.GET("", offers.List)
		group.GET("/:id", offers.Get)
		group.POST("/:id/send", offers.Send)

		group.POST("/:id/approval-link", links.Create)
		group.GET("/:id/approval-link", links.Get)
		group.GET("/:id/approval-link/qr", links.QRCode)
	}

	linkGroup := api.Group("/approval-links")
	{
		linkGroup.POST("/:id/extend", links.Extend)
		linkGroup.DELETE("/:id", links.Delete)
	}
}
