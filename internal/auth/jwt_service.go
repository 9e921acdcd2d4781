package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the validity period of owner tokens when none is configured.
const DefaultAccessTokenTTL = 12 * time.Hour

// DefaultIssuer is stamped on tokens when the configuration leaves it empty.
const DefaultIssuer = "quotedesk"

var (
	// ErrMissingSecret is returned when the service is built without a signing secret.
	ErrMissingSecret = errors.New("jwt: secret must be provided")
	// ErrInvalidIssuer is returned when a token was minted by another issuer.
	ErrInvalidIssuer = errors.New("jwt: invalid issuer")
	// ErrMissingUserID is returned when a token carries no user claim.
	ErrMissingUserID = errors.New("jwt: missing user id claim")
)

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims are the owner claims embedded in issued tokens.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenInput holds the parameters used when generating a new access token.
// A zero TTL uses the service default.
type AccessTokenInput struct {
	UserID string
	Email  string
	TTL    time.Duration
}

// JWTService issues and validates owner bearer tokens.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService constructs a JWTService.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// GenerateAccessToken issues a signed HS256 token for the user.
func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (string, time.Time, error) {
	if input.UserID == "" {
		return "", time.Time{}, errors.New("jwt: user id is required")
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		UserID: input.UserID,
		Email:  input.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.UserID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken parses and validates a signed token, returning its claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenInvalidIssuer) {
			return nil, ErrInvalidIssuer
		}
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return &claims, nil
}
