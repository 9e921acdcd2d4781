package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/pkg/mail"
)

func seedUser(t *testing.T, db *gorm.DB, id, plan string) *models.User {
	t.Helper()

	user := &models.User{
		BaseModel:   models.BaseModel{ID: id},
		Email:       id + "@example.com",
		DisplayName: id,
		Plan:        plan,
		Currency:    "EUR",
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type capturingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *capturingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}
