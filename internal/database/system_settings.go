package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/models"
)

const (
	// JWTSecretSetting stores the generated signing secret so tokens survive restarts.
	JWTSecretSetting = "auth.jwt_secret"

	// SchemaRevisionSetting records the schema revision applied by SeedData.
	SchemaRevisionSetting = "schema.revision"

	// SchemaRevision identifies the current model set.
	SchemaRevision = "2"
)

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Take(&setting, "key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

// ResolveJWTSecret returns the persisted signing secret. When none is stored, candidate is saved and returned.
// A configured secret always wins over a stored one.
func ResolveJWTSecret(ctx context.Context, db *gorm.DB, configured, candidate string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		return configured, nil
	}

	current, err := GetSystemSetting(ctx, db, JWTSecretSetting)
	if err != nil {
		return "", err
	}
	if current = strings.TrimSpace(current); current != "" {
		return current, nil
	}

	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", fmt.Errorf("system settings: jwt secret candidate is empty")
	}
	if err := UpsertSystemSetting(ctx, db, JWTSecretSetting, candidate); err != nil {
		return "", err
	}
	return candidate, nil
}
