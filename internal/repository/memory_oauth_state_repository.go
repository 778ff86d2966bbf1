package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kxshrx/flynch/internal/domain"
)

// memoryOAuthStateRepository provides an in-memory implementation of
// OAuthStateRepository. States only live for a few minutes, so process
// memory suffices; a restart merely aborts in-flight flows.
type memoryOAuthStateRepository struct {
	byValue map[string]*domain.OAuthState
	byUser  map[string]string
	mutex   sync.Mutex
}

// NewMemoryOAuthStateRepository creates a new in-memory OAuth state repository.
func NewMemoryOAuthStateRepository() OAuthStateRepository {
	return &memoryOAuthStateRepository{
		byValue: make(map[string]*domain.OAuthState),
		byUser:  make(map[string]string),
	}
}

// Create stores a new state, superseding any pending state for the same user.
func (r *memoryOAuthStateRepository) Create(_ context.Context, state *domain.OAuthState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// A fresh initiation invalidates the user's previous state
	if prev, exists := r.byUser[state.UserID]; exists {
		delete(r.byValue, prev)
	}

	r.byValue[state.State] = state
	r.byUser[state.UserID] = state.State

	return nil
}

// Consume atomically removes and returns the state with the given value.
// The removal happens under the lock, so concurrent callbacks with the
// same value cannot both succeed.
func (r *memoryOAuthStateRepository) Consume(_ context.Context, value string) (*domain.OAuthState, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	state, exists := r.byValue[value]
	if !exists {
		return nil, fmt.Errorf("oauth state: %w", ErrNotFound)
	}

	delete(r.byValue, value)
	if r.byUser[state.UserID] == value {
		delete(r.byUser, state.UserID)
	}

	return state, nil
}

// DeleteExpired removes all expired states.
func (r *memoryOAuthStateRepository) DeleteExpired(_ context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	for value, state := range r.byValue {
		if state.ExpiresAt.Before(now) {
			delete(r.byValue, value)
			if r.byUser[state.UserID] == value {
				delete(r.byUser, state.UserID)
			}
		}
	}

	return nil
}
