package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/repository"
)

// AuthService defines the interface for authentication operations.
// Following Interface Segregation Principle.
type AuthService interface {
	// Register creates a new user account. It does not log the user in.
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)

	// Login authenticates by username or email and returns a session token.
	Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenResponse, error)

	// ValidateToken verifies a token and resolves its subject to a live user.
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)

	// CurrentUser returns the public projection for a username.
	CurrentUser(ctx context.Context, username string) (*domain.User, error)

	// UpdateProfile updates the mutable profile fields for a username.
	UpdateProfile(ctx context.Context, username string, req domain.UpdateProfileRequest) (*domain.User, error)

	// Logout ends a session from the client's perspective. Tokens are
	// stateless and stay valid until expiry; there is no revocation list.
	Logout(ctx context.Context, userID string) error
}

// authService implements AuthService interface.
type authService struct {
	userRepo repository.UserRepository
	issuer   TokenIssuer
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, issuer TokenIssuer) AuthService {
	return &authService{
		userRepo: userRepo,
		issuer:   issuer,
	}
}

// Register creates a new user account.
func (s *authService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if len(req.Password) < 8 {
		return nil, domain.NewValidationError("INVALID_PASSWORD", "Password must be at least 8 characters", map[string]interface{}{
			"field": "password",
		})
	}

	// Check if user already exists
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewInternalError("USER_CHECK_FAILED", "Failed to check user existence", err)
	}
	if exists {
		return nil, domain.NewConflictError("EMAIL_EXISTS", "A user with this email already exists")
	}

	exists, err = s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, domain.NewInternalError("USER_CHECK_FAILED", "Failed to check user existence", err)
	}
	if exists {
		return nil, domain.NewConflictError("USERNAME_EXISTS", "A user with this username already exists")
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		FullName:  strings.TrimSpace(req.FullName),
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	// The unique indexes close the race the exists checks leave open
	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, uniqueViolationToConflict(err)
		}
		return nil, domain.NewInternalError("USER_CREATION_FAILED", "Failed to create user", err)
	}

	return user.Sanitize(), nil
}

// Login authenticates by username or email and returns a session token.
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)

	// Resolve by username first, then by email. Both misses produce the
	// same error as a wrong password.
	user, err := s.userRepo.GetByUsername(ctx, identifier)
	if err != nil {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(identifier))
		if err != nil {
			return nil, domain.NewAuthenticationError("INVALID_CREDENTIALS", "Incorrect username or password")
		}
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, domain.NewAuthenticationError("INVALID_CREDENTIALS", "Incorrect username or password")
	}

	if !user.IsActive {
		return nil, domain.NewAuthenticationError("ACCOUNT_INACTIVE", "Account is inactive")
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, domain.NewInternalError("LOGIN_UPDATE_FAILED", "Failed to record login", err)
	}

	token, expiry, err := s.issuer.Issue(user)
	if err != nil {
		return nil, domain.NewInternalError("TOKEN_GENERATION_FAILED", "Failed to generate session token", err)
	}

	return &domain.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(expiry).Seconds()),
		User:        user.Sanitize(),
	}, nil
}

// ValidateToken verifies a token and resolves its subject to a live user.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := s.issuer.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, domain.NewAuthenticationError("USER_NOT_FOUND", "User no longer exists")
	}

	if !user.IsActive {
		return nil, domain.NewAuthenticationError("ACCOUNT_INACTIVE", "Account is inactive")
	}

	return user.Sanitize(), nil
}

// CurrentUser returns the public projection for a username.
func (s *authService) CurrentUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, domain.NewNotFoundError("USER_NOT_FOUND", "User not found")
	}
	return user.Sanitize(), nil
}

// UpdateProfile updates the mutable profile fields for a username.
func (s *authService) UpdateProfile(
	ctx context.Context,
	username string,
	req domain.UpdateProfileRequest,
) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, domain.NewNotFoundError("USER_NOT_FOUND", "User not found")
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.GithubUsername != nil {
		user.GithubUsername = strings.TrimSpace(*req.GithubUsername)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, domain.NewInternalError("PROFILE_UPDATE_FAILED", "Failed to update profile", err)
	}

	return user.Sanitize(), nil
}

// Logout ends a session from the client's perspective.
func (s *authService) Logout(_ context.Context, _ string) error {
	// Session tokens cannot be revoked server-side; they lapse at expiry.
	return nil
}

// uniqueViolationToConflict maps a constraint failure to the matching
// conflict error.
func uniqueViolationToConflict(err error) *domain.Error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return domain.NewConflictError("EMAIL_EXISTS", "A user with this email already exists")
	case strings.Contains(msg, "users.username"):
		return domain.NewConflictError("USERNAME_EXISTS", "A user with this username already exists")
	default:
		return domain.NewConflictError("USER_EXISTS", "A user with these credentials already exists")
	}
}
