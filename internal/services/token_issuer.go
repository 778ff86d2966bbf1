package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kxshrx/flynch/internal/config"
	"github.com/kxshrx/flynch/internal/domain"
)

// TokenIssuer mints and verifies session tokens. Verification is
// stateless; resolving the subject against the user store is the
// caller's responsibility.
type TokenIssuer interface {
	// Issue signs a token for the user and returns it with its expiry.
	Issue(user *domain.User) (string, time.Time, error)

	// Verify checks signature and expiry and returns the claims.
	Verify(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents JWT token claims.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// tokenIssuer implements TokenIssuer with HMAC-SHA256 signing.
type tokenIssuer struct {
	config config.SecurityConfig
	secret []byte
}

// NewTokenIssuer creates a new token issuer.
func NewTokenIssuer(cfg config.SecurityConfig) TokenIssuer {
	return &tokenIssuer{
		config: cfg,
		secret: []byte(cfg.GetJWTSecret()),
	}
}

// Issue signs a token for the user and returns it with its expiry.
func (s *tokenIssuer) Issue(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(s.config.GetJWTExpiration())

	claims := &TokenClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "flynch",
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiry, nil
}

// Verify checks signature and expiry and returns the claims.
func (s *tokenIssuer) Verify(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.NewAuthenticationError("TOKEN_EXPIRED", "Token has expired")
		}
		return nil, domain.NewAuthenticationError("INVALID_TOKEN", "Invalid token")
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domain.NewAuthenticationError("INVALID_TOKEN", "Invalid token claims")
	}

	return claims, nil
}
