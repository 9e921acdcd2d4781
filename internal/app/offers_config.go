package app

import (
	"strings"
	"time"

	"github.com/charlesng35/quotedesk/internal/api"
)

// RateLimits converts the server rate limit settings into router limits.
func (c ServerConfig) RateLimits() api.RateLimits {
	limits := api.RateLimits{
		FetchLimit:     c.RateLimit.FetchLimit,
		DecisionLimit:  c.RateLimit.DecisionLimit,
		Window:         c.RateLimit.FetchWindow,
		DecisionWindow: c.RateLimit.DecisionWindow,
	}
	if limits.Window <= 0 {
		limits.Window = time.Minute
	}
	if limits.DecisionWindow <= 0 {
		limits.DecisionWindow = 10 * time.Minute
	}
	return limits
}

// HasSecondaryCurrency reports whether amounts should also be shown in a second currency.
func (c OffersConfig) HasSecondaryCurrency() bool {
	secondary := strings.TrimSpace(c.SecondaryCurrency)
	return secondary != "" && c.SecondaryRate > 0 && !strings.EqualFold(secondary, strings.TrimSpace(c.Currency))
}
