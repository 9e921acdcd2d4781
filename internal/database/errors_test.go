package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsUniqueConstraintError(t *testing.T) {
	require.False(t, IsUniqueConstraintError(nil))
	require.False(t, IsUniqueConstraintError(errors.New("connection refused")))

	require.True(t, IsUniqueConstraintError(gorm.ErrDuplicatedKey))
	require.True(t, IsUniqueConstraintError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, IsUniqueConstraintError(&pgconn.PgError{Code: "23503", Message: "fk violation"}))
	require.True(t, IsUniqueConstraintError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	require.True(t, IsUniqueConstraintError(errors.New("UNIQUE constraint failed: approval_links.offer_id")))
}

func TestUniqueIndexOnApprovalLinkOffer(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	first := map[string]any{"id": "l1", "offer_id": "o1", "owner_id": "u1", "token": "t1", "expires_at": "2030-01-01 00:00:00"}
	second := map[string]any{"id": "l2", "offer_id": "o1", "owner_id": "u1", "token": "t2", "expires_at": "2030-01-01 00:00:00"}

	require.NoError(t, db.Table("approval_links").Create(first).Error)
	err := db.Table("approval_links").Create(second).Error
	require.Error(t, err)
	require.True(t, IsUniqueConstraintError(err))
}
