package domain

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents an account holder in the system.
type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name,omitempty"`
	PasswordHash   string     `json:"-"` // Never serialize password hash
	GithubUsername string     `json:"github_username,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// SetPassword hashes and sets the user's password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return NewInternalError("PASSWORD_HASH_FAILED", "Failed to hash password", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies the provided password against the stored hash.
// A malformed stored hash fails the same way as a wrong password.
func (u *User) CheckPassword(password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if err != nil {
		return NewAuthenticationError("INVALID_PASSWORD", "Password does not match")
	}
	return nil
}

// Sanitize returns a copy safe to hand to API consumers.
func (u *User) Sanitize() *User {
	clean := *u
	clean.PasswordHash = ""
	return &clean
}

// Validate validates the user data.
func (u *User) Validate() error {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return NewValidationError("INVALID_EMAIL", "A valid email is required", map[string]interface{}{
			"field": "email",
		})
	}

	if len(u.Username) < 3 {
		return NewValidationError("INVALID_USERNAME", "Username must be at least 3 characters", map[string]interface{}{
			"field": "username",
		})
	}

	return nil
}

// RegisterRequest represents the data needed to create a new account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name,omitempty" binding:"omitempty,max=100"`
}

// LoginRequest represents login credentials. Identifier may be a
// username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents the mutable profile fields.
type UpdateProfileRequest struct {
	FullName       *string `json:"full_name,omitempty" binding:"omitempty,max=100"`
	GithubUsername *string `json:"github_username,omitempty" binding:"omitempty,max=100"`
}

// TokenResponse is the payload returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}
