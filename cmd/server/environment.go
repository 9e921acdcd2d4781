package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/app"
	"github.com/charlesng35/quotedesk/internal/database"
	"github.com/charlesng35/quotedesk/pkg/logger"
)

const jwtSecretKey = "auth.jwt.secret"

// environment is the loaded configuration shared by every command.
type environment struct {
	Config    *app.Config
	Generated map[string]bool
	Log       *zap.Logger
}

func loadEnvironment(configPath string) (*environment, error) {
	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return nil, err
	}

	generated, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return nil, err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	log := logger.WithModule("bootstrap")
	for key := range generated {
		log.Info("generated runtime secret", zap.String("key", key))
	}

	return &environment{Config: cfg, Generated: generated, Log: log}, nil
}

// openDatabase connects, migrates and pins the JWT signing secret so tokens survive restarts.
func (e *environment) openDatabase(ctx context.Context) (*gorm.DB, error) {
	dbCfg := e.Config.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		closeDatabase(db, e.Log)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	configured := e.Config.Auth.JWT.Secret
	if e.Generated[jwtSecretKey] {
		configured = ""
	}
	secret, err := database.ResolveJWTSecret(ctx, db, configured, e.Config.Auth.JWT.Secret)
	if err != nil {
		closeDatabase(db, e.Log)
		return nil, fmt.Errorf("resolve jwt secret: %w", err)
	}
	e.Config.Auth.JWT.Secret = secret

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	if strings.TrimSpace(path) == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return app.LoadConfig(path)
		}
		return app.LoadConfig(filepath.Dir(path))
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config path %q does not exist", path)
	}
	return nil, fmt.Errorf("stat config path: %w", err)
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
