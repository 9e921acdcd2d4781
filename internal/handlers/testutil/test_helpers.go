package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/api"
	"github.com/charlesng35/quotedesk/internal/approval"
	iauth "github.com/charlesng35/quotedesk/internal/auth"
	sharedtestutil "github.com/charlesng35/quotedesk/internal/database/testutil"
	"github.com/charlesng35/quotedesk/internal/handlers"
	"github.com/charlesng35/quotedesk/internal/middleware"
	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/internal/realtime"
	"github.com/charlesng35/quotedesk/internal/services"
	"github.com/charlesng35/quotedesk/pkg/money"
	"github.com/charlesng35/quotedesk/pkg/response"
)

// Clock is an adjustable time source shared by every service in an Env.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T             *testing.T
	DB            *gorm.DB
	Router        *gin.Engine
	JWT           *iauth.JWTService
	Clock         *Clock
	Offers        *services.OfferService
	Projects      *services.ProjectService
	Notifications *services.NotificationService
	Approvals     *approval.Service
	Hub           *realtime.Hub
}

// EnvOption customises NewEnv.
type EnvOption func(*api.Dependencies)

// WithRateLimits overrides the public endpoint limits.
func WithRateLimits(limits api.RateLimits) EnvOption {
	return func(deps *api.Dependencies) {
		deps.RateLimits = limits
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())
	clock := &Clock{now: time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
		Clock:          clock.Now,
	})
	require.NoError(t, err)

	hub := realtime.NewHub()
	notifications, err := services.NewNotificationService(db, hub)
	require.NoError(t, err)
	projects, err := services.NewProjectService(db)
	require.NoError(t, err)
	offers, err := services.NewOfferService(db, services.WithOfferClock(clock.Now))
	require.NoError(t, err)
	store, err := approval.NewGormStore(db)
	require.NoError(t, err)
	approvals, err := approval.NewService(store, offers,
		approval.WithClock(clock.Now),
		approval.WithBaseURL("https://quotes.example.com"),
		approval.WithDecisionRecorder(offers),
		approval.WithNotifier(notifications),
	)
	require.NoError(t, err)

	deps := api.Dependencies{
		DB:            db,
		JWT:           jwtSvc,
		Projects:      projects,
		Offers:        offers,
		Notifications: notifications,
		Approvals:     approvals,
		Hub:           hub,
		RateStore:     middleware.NewMemoryRateStore(clock.Now),
		RateLimits:    api.DefaultRateLimits,
		Money:         handlers.MoneyDisplay{Formatter: money.NewFormatter("en")},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	router, err := api.NewRouter(deps)
	require.NoError(t, err)

	return &Env{
		T:             t,
		DB:            db,
		Router:        router,
		JWT:           jwtSvc,
		Clock:         clock,
		Offers:        offers,
		Projects:      projects,
		Notifications: notifications,
		Approvals:     approvals,
		Hub:           hub,
	}
}

// CreateOwner inserts an active user on plan and returns it with a bearer token.
func (e *Env) CreateOwner(plan string) (*models.User, string) {
	e.T.Helper()

	id := uuid.NewString()
	user := &models.User{
		BaseModel:   models.BaseModel{ID: id},
		Email:       "owner-" + id + "@example.com",
		DisplayName: "Owner",
		Plan:        plan,
		Currency:    "EUR",
		IsActive:    true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)

	return user, e.Token(user)
}

// Token issues a fresh bearer token for user at the current Env clock time.
func (e *Env) Token(user *models.User) string {
	e.T.Helper()

	token, _, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Email: user.Email})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	req.RemoteAddr = "192.0.2.10:40000"

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Data asserts a successful envelope with the expected status and decodes its data into dest.
func Data[T any](t *testing.T, w *httptest.ResponseRecorder, status int, dest *T) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	DecodeInto(t, resp.Data, dest)
}

// ErrorCode asserts a failed envelope with the expected status and returns its error code.
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int) string {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}
