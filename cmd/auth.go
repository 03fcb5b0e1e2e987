package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/cadence/internal/repositories"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

// resolveToken prefers a stored session over the configured token.
func resolveToken(ctx context.Context, session *repositories.SessionRepository, config *shared.Config) (string, error) {
	token, err := session.Token(ctx)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		return "", err
	}
	return config.API.Token, nil
}

// AuthLogin exchanges credentials for a session token and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or CADENCE_PASSWORD is required", shared.ErrMissingArgument)
	}

	r.logger.Info("logging in", "email", email, "base_url", r.client.BaseURL())

	session, err := r.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if err := r.session.SaveToken(ctx, session.Token); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.token = session.Token
	if err := r.build(r.logger); err != nil {
		return err
	}

	r.logger.Info("authentication successful", "user", session.User.ID)
	return r.writePlain("✓ Logged in as %s <%s>\n", session.User.DisplayName, session.User.Email)
}

// AuthLogout forgets the session token and purges locally read notification IDs.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.manager.SetAuthenticated(ctx, false); err != nil {
		return fmt.Errorf("failed to clear read overlay: %w", err)
	}
	if err := r.session.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	r.token = ""
	if err := r.build(r.logger); err != nil {
		return err
	}

	r.logger.Info("logged out")
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports the authenticated user, if any.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	user, err := r.auth.Me(ctx)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		r.writePlain("Authentication: ✗ Not authenticated\n")
		return r.writePlain("Run 'cadence auth login' to sign in\n")
	}
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	r.writePlain("User: %s <%s>\n", user.DisplayName, user.Email)
	if user.Role != "" {
		r.writePlain("Role: %s\n", user.Role)
	}
	return r.writePlain("API: %s (circuit %s)\n", r.client.BaseURL(), r.client.State())
}
