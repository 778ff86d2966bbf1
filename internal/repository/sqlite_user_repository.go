package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kxshrx/flynch/internal/domain"

	"github.com/pocketbase/dbx"
)

// sqliteUserRepository implements UserRepository on SQLite via dbx.
type sqliteUserRepository struct {
	db *dbx.DB
}

// NewSQLiteUserRepository creates a new SQLite user repository.
func NewSQLiteUserRepository(db *dbx.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

type userRow struct {
	ID             string        `db:"id"`
	Username       string        `db:"username"`
	Email          string        `db:"email"`
	FullName       string        `db:"full_name"`
	PasswordHash   string        `db:"password_hash"`
	GithubUsername string        `db:"github_username"`
	IsActive       bool          `db:"is_active"`
	CreatedAt      int64         `db:"created_at"`
	UpdatedAt      int64         `db:"updated_at"`
	LastLogin      sql.NullInt64 `db:"last_login"`
}

// Create inserts a new user. The unique indexes on username and email
// make duplicate registration an atomic failure; callers can detect it
// with IsUniqueViolation.
func (r *sqliteUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	params := dbx.Params{
		"id":              user.ID,
		"username":        user.Username,
		"email":           user.Email,
		"full_name":       user.FullName,
		"password_hash":   user.PasswordHash,
		"github_username": user.GithubUsername,
		"is_active":       user.IsActive,
		"created_at":      user.CreatedAt.Unix(),
		"updated_at":      user.UpdatedAt.Unix(),
	}
	if user.LastLogin != nil {
		params["last_login"] = user.LastLogin.Unix()
	}

	if _, err := r.db.Insert(tableUsers, params).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *sqliteUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	return r.getOne(ctx, dbx.HashExp{"id": id})
}

// GetByEmail retrieves a user by email address.
func (r *sqliteUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, fmt.Errorf("user email cannot be empty")
	}
	return r.getOne(ctx, dbx.HashExp{"email": email})
}

// GetByUsername retrieves a user by username.
func (r *sqliteUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	return r.getOne(ctx, dbx.HashExp{"username": username})
}

// Update updates an existing user.
func (r *sqliteUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if user.ID == "" {
		return fmt.Errorf("user ID cannot be empty for update")
	}

	user.UpdatedAt = time.Now().UTC()

	params := dbx.Params{
		"username":        user.Username,
		"email":           user.Email,
		"full_name":       user.FullName,
		"github_username": user.GithubUsername,
		"is_active":       user.IsActive,
		"updated_at":      user.UpdatedAt.Unix(),
	}
	if user.PasswordHash != "" {
		params["password_hash"] = user.PasswordHash
	}
	if user.LastLogin != nil {
		params["last_login"] = user.LastLogin.Unix()
	}

	result, err := r.db.Update(tableUsers, params, dbx.HashExp{"id": user.ID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}

	return nil
}

// Delete deletes a user by ID.
func (r *sqliteUserRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	result, err := r.db.Delete(tableUsers, dbx.HashExp{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	return nil
}

// ExistsByEmail checks if a user exists with the given email.
func (r *sqliteUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, fmt.Errorf("email cannot be empty")
	}
	return r.exists(ctx, dbx.HashExp{"email": email})
}

// ExistsByUsername checks if a user exists with the given username.
func (r *sqliteUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, fmt.Errorf("username cannot be empty")
	}
	return r.exists(ctx, dbx.HashExp{"username": username})
}

func (r *sqliteUserRepository) getOne(ctx context.Context, cond dbx.HashExp) (*domain.User, error) {
	var row userRow
	err := r.db.Select().From(tableUsers).Where(cond).WithContext(ctx).One(&row)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return rowToUser(&row), nil
}

func (r *sqliteUserRepository) exists(ctx context.Context, cond dbx.HashExp) (bool, error) {
	var count int
	err := r.db.Select("COUNT(*)").From(tableUsers).Where(cond).WithContext(ctx).Row(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

// rowToUser converts a database row to a domain.User.
func rowToUser(row *userRow) *domain.User {
	user := &domain.User{
		ID:             row.ID,
		Username:       row.Username,
		Email:          row.Email,
		FullName:       row.FullName,
		PasswordHash:   row.PasswordHash,
		GithubUsername: row.GithubUsername,
		IsActive:       row.IsActive,
		CreatedAt:      time.Unix(row.CreatedAt, 0).UTC(),
		UpdatedAt:      time.Unix(row.UpdatedAt, 0).UTC(),
	}
	if row.LastLogin.Valid {
		t := time.Unix(row.LastLogin.Int64, 0).UTC()
		user.LastLogin = &t
	}
	return user
}
