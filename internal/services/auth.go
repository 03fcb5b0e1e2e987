package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// Session is the result of a successful login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// AuthService wraps the /api/auth endpoints.
type AuthService struct {
	client *Client
}

// NewAuthService creates a new [AuthService]
func NewAuthService(client *Client) *AuthService {
	return &AuthService{client: client}
}

// Login exchanges credentials for a session token.
// Rejected credentials are reported as [shared.ErrAuthFailed].
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password", shared.ErrMissingArgument)
	}

	var session Session
	err := s.client.requestData(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{"email": email, "password": password}, &session)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailed, apiErr.Message)
	}
	if err != nil {
		return nil, err
	}
	if session.Token == "" {
		return nil, fmt.Errorf("%w: login response has no token", shared.ErrAPIRequest)
	}
	return &session, nil
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	if !s.client.Authenticated() {
		return nil, shared.ErrNotAuthenticated
	}

	var user models.User
	if err := s.client.requestData(ctx, http.MethodGet, "/api/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
