package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/paging"
	"github.com/desertthunder/cadence/internal/shared"
)

// NotificationService wraps the /api/notifications endpoints.
type NotificationService struct {
	client *Client
}

// NewNotificationService creates a new [NotificationService]
func NewNotificationService(client *Client) *NotificationService {
	return &NotificationService{client: client}
}

// List fetches one page of the inbox, newest first.
func (s *NotificationService) List(ctx context.Context, page, size int) (*paging.Page[models.Notification], error) {
	resp, err := s.client.request(ctx, http.MethodGet, "/api/notifications", pageQuery(page, size, "size"), nil)
	if err != nil {
		return nil, err
	}
	return paging.Decode[models.Notification](resp.Body)
}

// Fetcher adapts List to a [paging.Fetcher].
func (s *NotificationService) Fetcher() paging.Fetcher[models.Notification] {
	return func(ctx context.Context, req paging.Request) (*paging.Page[models.Notification], error) {
		return s.List(ctx, req.Page, req.Limit)
	}
}

// UnreadCount returns the server-side unread count.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := s.client.requestData(ctx, http.MethodGet, "/api/notifications/unread-count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkAsRead marks a single notification read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: notification id", shared.ErrMissingArgument)
	}
	_, err := s.client.request(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
	return err
}

// MarkAllAsRead marks every notification read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context) error {
	_, err := s.client.request(ctx, http.MethodPut, "/api/notifications/read-all", nil, nil)
	return err
}
