package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		AccessTokenTTL: time.Hour,
		Clock:          now,
	})
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123", Email: "owner@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.Equal(current.Add(time.Hour)))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "owner@example.com", claims.Email)
	require.Equal(t, DefaultIssuer, claims.Issuer)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestGenerateAccessTokenCustomTTL(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{Secret: "secret", Clock: func() time.Time { return current }})
	require.NoError(t, err)

	_, expiresAt, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123", TTL: 30 * 24 * time.Hour})
	require.NoError(t, err)
	require.True(t, expiresAt.Equal(current.Add(30*24*time.Hour)))

	_, _, err = svc.GenerateAccessToken(AccessTokenInput{})
	require.Error(t, err)
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateAccessTokenWrongIssuer(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	other, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "elsewhere", Clock: now})
	require.NoError(t, err)
	token, _, err := other.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	svc, err := NewJWTService(JWTConfig{Secret: "secret", Clock: now})
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{Secret: "secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	token, _, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}
