package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/approval"
	iauth "github.com/charlesng35/quotedesk/internal/auth"
	"github.com/charlesng35/quotedesk/internal/handlers"
	"github.com/charlesng35/quotedesk/internal/middleware"
	"github.com/charlesng35/quotedesk/internal/realtime"
	"github.com/charlesng35/quotedesk/internal/services"
)

// RateLimits configures the per-IP limits on the public approval endpoints.
// A zero Limit disables the corresponding limiter.
type RateLimits struct {
	FetchLimit     int
	DecisionLimit  int
	Window         time.Duration
	DecisionWindow time.Duration
}

// DefaultRateLimits mirrors the shipped configuration defaults.
var DefaultRateLimits = RateLimits{
	FetchLimit:     60,
	DecisionLimit:  10,
	Window:         time.Minute,
	DecisionWindow: 10 * time.Minute,
}

// Dependencies bundles everything the router wires into handlers.
type Dependencies struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Projects      *services.ProjectService
	Offers        *services.OfferService
	Notifications *services.NotificationService
	Approvals     *approval.Service
	Hub           *realtime.Hub
	RateStore     middleware.RateStore
	RateLimits    RateLimits
	Cache         handlers.Pinger
	Money         handlers.MoneyDisplay
	CORSOrigins   []string
	// DisableMetrics hides the Prometheus scrape endpoint.
	DisableMetrics bool
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return errors.New("database handle must be provided")
	case d.JWT == nil:
		return errors.New("jwt service must be provided")
	case d.Projects == nil, d.Offers == nil:
		return errors.New("project and offer services must be provided")
	case d.Notifications == nil:
		return errors.New("notification service must be provided")
	case d.Approvals == nil:
		return errors.New("approval service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewMemoryRateStore(nil)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.CORSOrigins...))

	registerHealthRoutes(r, deps)
	if !deps.DisableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	registerPublicApprovalRoutes(r.Group("/api/public"), deps)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	offerHandler := handlers.NewOfferHandler(deps.Offers, deps.Money)
	registerProjectRoutes(api, handlers.NewProjectHandler(deps.Projects))
	registerOfferRoutes(api, offerHandler, handlers.NewApprovalLinkHandler(deps.Approvals))
	api.GET("/me/quota", offerHandler.Quota)
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.Notifications), handlers.NewRealtimeHandler(deps.Hub))

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}
