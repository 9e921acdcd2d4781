package app

import (
	"strings"

	"github.com/charlesng35/quotedesk/internal/auth"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	issuer := strings.TrimSpace(c.JWT.Issuer)
	if issuer == "" {
		issuer = auth.DefaultIssuer
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         issuer,
		AccessTokenTTL: ttl,
	}
}
