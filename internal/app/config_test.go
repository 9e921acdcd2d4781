package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quotedesk/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "https://quotes.example.com", cfg.Server.PublicBaseURL)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	require.Equal(t, 30, cfg.Server.RateLimit.FetchLimit)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.FetchWindow)
	require.Equal(t, 5, cfg.Server.RateLimit.DecisionLimit)
	require.Equal(t, 15*time.Minute, cfg.Server.RateLimit.DecisionWindow)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, 20, cfg.Database.MaxOpenConns)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "quotedesk-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "CHF", cfg.Offers.Currency)
	require.Equal(t, "EUR", cfg.Offers.SecondaryCurrency)
	require.InDelta(t, 1.04, cfg.Offers.SecondaryRate, 1e-9)
	require.Equal(t, "de", cfg.Offers.Locale)
	require.True(t, cfg.Offers.HasSecondaryCurrency())

	require.Equal(t, "@every 30m", cfg.Maintenance.CachePurgeSchedule)
	require.Empty(t, cfg.Maintenance.ExpirySweepSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/quotedesk.sqlite", cfg.Database.Path)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 60, cfg.Server.RateLimit.FetchLimit)
	require.Equal(t, 10*time.Minute, cfg.Server.RateLimit.DecisionWindow)
	require.Equal(t, "EUR", cfg.Offers.Currency)
	require.False(t, cfg.Offers.HasSecondaryCurrency())
	require.Equal(t, "@hourly", cfg.Maintenance.ExpirySweepSchedule)
	require.Equal(t, 12*time.Hour, cfg.Auth.JWT.TTL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("QUOTEDESK_SERVER_PORT", "9191")
	t.Setenv("QUOTEDESK_OFFERS_LOCALE", "fr")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "fr", cfg.Offers.Locale)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			Secret: "secret",
			Issuer: "issuer",
			TTL:    30 * time.Minute,
		},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)
	require.Equal(t, auth.DefaultIssuer, jwtCfg.Issuer)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	sqlite := DatabaseConfig{Path: " ./data/test.sqlite "}.ConnectionConfig()
	require.Equal(t, "sqlite", sqlite.Driver)
	require.Equal(t, "./data/test.sqlite", sqlite.Path)

	pg := DatabaseConfig{
		Driver: "PostgreSQL",
		Postgres: DBAuthConfig{
			Host:     "db",
			Port:     5432,
			Database: "quotes",
			Username: "app",
			Password: "pw",
		},
		MySQL: DBAuthConfig{Host: "ignored"},
	}.ConnectionConfig()
	require.Equal(t, "postgres", pg.Driver)
	require.Equal(t, "db", pg.Host)
	require.Equal(t, "quotes", pg.Name)
	require.Equal(t, "app", pg.User)

	my := DatabaseConfig{Driver: "mysql", MySQL: DBAuthConfig{Host: "mysql", Port: 3306}}.ConnectionConfig()
	require.Equal(t, "mysql", my.Host)
	require.Equal(t, 3306, my.Port)
}

func TestServerRateLimits(t *testing.T) {
	limits := ServerConfig{RateLimit: RateLimitConfig{FetchLimit: 5, DecisionLimit: 2}}.RateLimits()
	require.Equal(t, 5, limits.FetchLimit)
	require.Equal(t, time.Minute, limits.Window)
	require.Equal(t, 2, limits.DecisionLimit)
	require.Equal(t, 10*time.Minute, limits.DecisionWindow)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestRedisClientConfig(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{Address: " localhost:6379 ", DB: 3, TLS: true}}.RedisClientConfig()
	require.Equal(t, "localhost:6379", cfg.Address)
	require.Equal(t, 3, cfg.DB)
	require.True(t, cfg.TLS)
}
