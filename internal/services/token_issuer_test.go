package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kxshrx/flynch/internal/domain"
)

type testConfig struct {
	jwtSecret     string
	jwtExpiration time.Duration
}

func (t *testConfig) GetJWTSecret() string {
	return t.jwtSecret
}

func (t *testConfig) GetJWTExpiration() time.Duration {
	return t.jwtExpiration
}

func testSecurityConfig() *testConfig {
	return &testConfig{
		jwtSecret:     "test-secret-that-is-32-characters-long",
		jwtExpiration: 30 * time.Minute,
	}
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer(testSecurityConfig())
	user := &domain.User{ID: "user123", Username: "testuser", Email: "test@example.com"}

	signed, expiry, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if signed == "" {
		t.Fatal("Expected a signed token")
	}

	remaining := time.Until(expiry)
	if remaining > 30*time.Minute || remaining < 29*time.Minute {
		t.Errorf("Expected expiry about 30 minutes out, got %v", remaining)
	}

	claims, err := issuer.Verify(signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Username != "testuser" {
		t.Errorf("Expected username testuser, got %s", claims.Username)
	}
	if claims.Subject != "testuser" {
		t.Errorf("Expected subject testuser, got %s", claims.Subject)
	}
}

func TestTokenIssuer_RejectsTamperedToken(t *testing.T) {
	issuer := NewTokenIssuer(testSecurityConfig())
	user := &domain.User{ID: "user123", Username: "testuser"}

	signed, _, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Flip the last signature byte
	tampered := signed[:len(signed)-1]
	if signed[len(signed)-1] == 'A' {
		tampered += "B"
	} else {
		tampered += "A"
	}

	_, err = issuer.Verify(tampered)
	if err == nil {
		t.Fatal("Expected tampered token to be rejected")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Code != "INVALID_TOKEN" {
		t.Errorf("Expected INVALID_TOKEN, got %s", domainErr.Code)
	}
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.jwtExpiration = -time.Minute
	issuer := NewTokenIssuer(cfg)
	user := &domain.User{ID: "user123", Username: "testuser"}

	signed, _, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = issuer.Verify(signed)
	if err == nil {
		t.Fatal("Expected expired token to be rejected")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Code != "TOKEN_EXPIRED" {
		t.Errorf("Expected TOKEN_EXPIRED, got %s", domainErr.Code)
	}
}

func TestTokenIssuer_RejectsForeignSecret(t *testing.T) {
	issuer := NewTokenIssuer(testSecurityConfig())
	other := NewTokenIssuer(&testConfig{
		jwtSecret:     "another-secret-that-is-32-characters-ok",
		jwtExpiration: 30 * time.Minute,
	})
	user := &domain.User{ID: "user123", Username: "testuser"}

	signed, _, err := other.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := issuer.Verify(signed); err == nil {
		t.Error("Expected token signed with a different secret to be rejected")
	}
}

func TestTokenIssuer_RejectsUnsignedAlgorithm(t *testing.T) {
	issuer := NewTokenIssuer(testSecurityConfig())

	claims := &TokenClaims{
		Username: "testuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "testuser",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to build unsigned token: %v", err)
	}

	if _, err := issuer.Verify(unsigned); err == nil {
		t.Error("Expected token with none algorithm to be rejected")
	}
}

func TestTokenIssuer_RejectsEmptySubject(t *testing.T) {
	cfg := testSecurityConfig()
	issuer := NewTokenIssuer(cfg)

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.jwtSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := issuer.Verify(signed); err == nil {
		t.Error("Expected token without a subject to be rejected")
	}
}
