package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

// splitPath separates a raw "path?query" argument for [services.Client.Do].
func splitPath(raw string) (string, url.Values, error) {
	if raw == "" {
		return "", nil, fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	path, rawQuery, _ := strings.Cut(raw, "?")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid query: %v", shared.ErrInvalidArgument, err)
	}
	return path, query, nil
}

func (r *Runner) writeResponse(resp *services.Response, pretty bool) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON() {
		var data any
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return r.writeJSON(data, pretty)
	}

	if err := r.writeBytes(resp.Body); err != nil {
		return err
	}
	return r.writeBytes([]byte("\n"))
}

// APIGet makes a direct GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, query, err := splitPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.client.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil && resp == nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	r.logger.Debug("response", "status", resp.StatusCode, "request_id", resp.RequestID)
	return r.writeResponse(resp, cmd.Bool("pretty"))
}

// APIPost makes a direct POST request to the backend
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, query, err := splitPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}
	data := cmd.String("data")
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var payload any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.client.Do(ctx, http.MethodPost, path, query, payload)
	if err != nil && resp == nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	r.logger.Debug("response", "status", resp.StatusCode, "request_id", resp.RequestID)
	return r.writeResponse(resp, true)
}
