package middleware

import "github.com/gin-gonic/gin"

const (
	// DefaultContentSecurityPolicy restricts resources to same origin. Signatures are rendered from data URLs.
	DefaultContentSecurityPolicy = "default-src 'self'; img-src 'self' data:; frame-ancestors 'none'"
)

// SecurityHeaders applies hardening response headers. Approval links are capabilities, so
// responses never leak the URL through the Referer header.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", DefaultContentSecurityPolicy)
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// NoStore marks responses as uncacheable. Used on public approval endpoints.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
