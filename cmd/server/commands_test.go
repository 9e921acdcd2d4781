package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/quotedesk/internal/auth"
	"github.com/charlesng35/quotedesk/internal/database"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "quotedesk.sqlite")
	config := strings.Join([]string{
		"server:",
		"  log_level: error",
		"  public_base_url: https://quotes.example.com",
		"database:",
		"  driver: sqlite",
		"  path: " + dbPath,
		"maintenance:",
		"  cache_purge_schedule: \"\"",
		"  expiry_sweep_schedule: \"\"",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	dir := writeTestConfig(t)

	out, err := execute(t, "--config", dir, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "migrations applied")
	require.FileExists(t, filepath.Join(dir, "data", "quotedesk.sqlite"))
}

func TestUsersCreateAndTokenCommands(t *testing.T) {
	dir := writeTestConfig(t)

	out, err := execute(t, "--config", dir, "users", "create", "--email", "Ada@Example.com", "--name", "Ada", "--plan", "pro")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 3)
	userID := fields[0]
	require.Equal(t, "ada@example.com", fields[1])
	require.Equal(t, "pro", fields[2])

	out, err = execute(t, "--config", dir, "users", "plan", "--user", userID, "--plan", "business")
	require.NoError(t, err)
	require.Contains(t, out, "business")

	out, err = execute(t, "--config", dir, "token", "--user", userID, "--ttl", "1h")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	env, err := loadEnvironment(dir)
	require.NoError(t, err)
	db, err := env.openDatabase(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { closeDatabase(db, env.Log) })

	stored, err := database.GetSystemSetting(context.Background(), db, database.JWTSecretSetting)
	require.NoError(t, err)
	require.Equal(t, stored, env.Config.Auth.JWT.Secret)

	jwtSvc, err := iauth.NewJWTService(env.Config.Auth.JWTServiceConfig())
	require.NoError(t, err)
	claims, err := jwtSvc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
}

func TestUsersCreateRejectsUnknownPlan(t *testing.T) {
	dir := writeTestConfig(t)

	_, err := execute(t, "--config", dir, "users", "create", "--email", "bob@example.com", "--plan", "platinum")
	require.Error(t, err)
}

func TestTokenCommandUnknownUser(t *testing.T) {
	dir := writeTestConfig(t)

	_, err := execute(t, "--config", dir, "token", "--user", "missing")
	require.Error(t, err)
}

func TestMissingConfigPath(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope"), "migrate")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	dir := writeTestConfig(t)

	env, err := loadEnvironment(dir)
	require.NoError(t, err)

	stack, err := bootstrapRuntime(context.Background(), env)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), env.Log) })

	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.Cache)
	require.Equal(t, "https://quotes.example.com/a/abc", stack.Approvals.LinkURL("abc"))

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/offers", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
