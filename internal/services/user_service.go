package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/database"
	"github.com/charlesng35/quotedesk/internal/entitlement"
	"github.com/charlesng35/quotedesk/internal/models"
	apperrors "github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/money"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserEmailTaken indicates another account already uses the email address.
	ErrUserEmailTaken = apperrors.New("USER_EMAIL_TAKEN", "Email address already registered", http.StatusConflict)
	// ErrUnknownPlan indicates the plan id is not in the catalog.
	ErrUnknownPlan = apperrors.New("PLAN_UNKNOWN", "Unknown subscription plan", http.StatusBadRequest)
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Email       string
	DisplayName string
	Plan        string
	CompanyName string
	Currency    string
}

// UserService manages accounts and their subscription plan.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Create provisions a new account. The plan defaults to free and the currency to EUR.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	plan, err := parsePlan(defaultIfEmpty(input.Plan, string(entitlement.PlanFree)))
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(defaultIfEmpty(input.Currency, "EUR")))
	if _, err := money.ParseCurrency(currency); err != nil {
		return nil, apperrors.NewBadRequest("currency must be an ISO 4217 code")
	}

	user := &models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Plan:        string(plan),
		CompanyName: strings.TrimSpace(input.CompanyName),
		Currency:    currency,
		IsActive:    true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, ErrUserEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return user, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// UpdatePlan switches the user's subscription plan.
func (s *UserService) UpdatePlan(ctx context.Context, id, plan string) (*models.User, error) {
	ctx = ensureContext(ctx)

	parsed, err := parsePlan(plan)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("plan", string(parsed))
	if result.Error != nil {
		return nil, fmt.Errorf("user service: update plan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.Get(ctx, id)
}

func parsePlan(raw string) (entitlement.PlanID, error) {
	plan, ok := entitlement.ParsePlanID(raw)
	if !ok {
		return "", ErrUnknownPlan.WithInternal(fmt.Errorf("plan %q", raw))
	}
	return plan, nil
}
