package app

import (
	"strings"

	"github.com/charlesng35/quotedesk/internal/database"
)

// ConnectionConfig converts DatabaseConfig into database.Config, picking the credentials for the selected driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		LogQueries:      c.LogQueries,
	}

	var creds *DBAuthConfig
	switch cfg.Driver {
	case "", "sqlite":
		cfg.Driver = "sqlite"
	case "postgres", "postgresql":
		cfg.Driver = "postgres"
		creds = &c.Postgres
	case "mysql":
		creds = &c.MySQL
	}

	if creds != nil {
		cfg.Host = strings.TrimSpace(creds.Host)
		cfg.Port = creds.Port
		cfg.Name = strings.TrimSpace(creds.Database)
		cfg.User = strings.TrimSpace(creds.Username)
		cfg.Password = creds.Password
	}
	return cfg
}
