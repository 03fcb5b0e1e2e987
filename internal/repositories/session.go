package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// SessionTokenKey is the store key holding the API bearer token.
const SessionTokenKey = "session.token"

// SessionRepository persists the authenticated session on top of a [models.Store].
type SessionRepository struct {
	store models.Store
}

// NewSessionRepository creates a new [SessionRepository]
func NewSessionRepository(store models.Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// Token returns the stored token or [shared.ErrNotAuthenticated] when there is none.
func (r *SessionRepository) Token(ctx context.Context) (string, error) {
	token, ok, err := r.store.Get(ctx, SessionTokenKey)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(token) == "" {
		return "", shared.ErrNotAuthenticated
	}
	return token, nil
}

// SaveToken stores token, replacing any previous session.
func (r *SessionRepository) SaveToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}
	return r.store.Set(ctx, SessionTokenKey, token)
}

// Clear forgets the stored token.
func (r *SessionRepository) Clear(ctx context.Context) error {
	return r.store.Remove(ctx, SessionTokenKey)
}

// Authenticated reports whether a token is stored.
func (r *SessionRepository) Authenticated(ctx context.Context) bool {
	_, err := r.Token(ctx)
	return err == nil
}
