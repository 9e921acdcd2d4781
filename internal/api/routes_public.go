package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quotedesk/internal/handlers"
	"github.com/charlesng35/quotedesk/internal/middleware"
)

func registerPublicApprovalRoutes(public *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewPublicApprovalHandler(deps.Approvals, deps.Offers, deps.Money)
	limits := deps.RateLimits

	group := public.Group("/approvals")
	group.Use(middleware.NoStore())
	{
		group.GET("/:token",
			middleware.RateLimit(deps.RateStore, middleware.RateLimitConfig{
				Name:   "approval-fetch",
				Limit:  limits.FetchLimit,
				Window: limits.Window,
			}),
			handler.Fetch,
		)
		group.POST("/:token/decision",
			middleware.RateLimit(deps.RateStore, middleware.RateLimitConfig{
				Name:   "approval-decision",
				Limit:  limits.DecisionLimit,
				Window: limits.DecisionWindow,
			}),
			handler.Decide,
		)
	}
}
