package models

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/cadence/internal/shared"
)

// Validator is implemented by request payloads that can be checked client-side.
type Validator interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Store is a minimal persistent string key/value capability.
// Implementations include an in-memory map and a SQLite-backed repository.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error) // Get returns the value for key and whether it exists
	Set(ctx context.Context, key, value string) error                       // Set creates or replaces the value for key
	Remove(ctx context.Context, key string) error                           // Remove deletes key; removing a missing key is not an error
}

// NotificationType categorizes notifications for display.
type NotificationType string

const (
	NotificationSubmission NotificationType = "SUBMISSION"
	NotificationPlaylist   NotificationType = "PLAYLIST"
	NotificationSystem     NotificationType = "SYSTEM"
)

// Notification is a single inbox entry.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
	Link      string           `json:"link,omitempty"`
}

// Song is a catalog track.
type Song struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	Genre       string `json:"genre,omitempty"`
	DurationSec int    `json:"duration"`
	AudioURL    string `json:"audioUrl,omitempty"`
}

// Playlist is a named, ordered collection of songs owned by a user.
type Playlist struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Public      bool      `json:"public"`
	SongCount   int       `json:"songCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// Validate checks that the playlist can be created.
func (p Playlist) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: playlist name must be at most 100 characters", shared.ErrInvalidInput)
	}
	return nil
}

// SubmissionStatus is the review state of a submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionApproved SubmissionStatus = "APPROVED"
	SubmissionRejected SubmissionStatus = "REJECTED"
)

// Submission is a song proposed by a creator for inclusion in the catalog.
type Submission struct {
	ID          string           `json:"id,omitempty"`
	Title       string           `json:"title"`
	Artist      string           `json:"artist"`
	Album       string           `json:"album,omitempty"`
	Genre       string           `json:"genre,omitempty"`
	AudioURL    string           `json:"audioUrl"`
	Status      SubmissionStatus `json:"status,omitempty"`
	SubmittedAt time.Time        `json:"submittedAt,omitzero"`
}

// Validate checks required fields and that the audio URL is absolute http(s).
func (s Submission) Validate() error {
	switch {
	case strings.TrimSpace(s.Title) == "":
		return fmt.Errorf("%w: submission title is required", shared.ErrInvalidInput)
	case strings.TrimSpace(s.Artist) == "":
		return fmt.Errorf("%w: submission artist is required", shared.ErrInvalidInput)
	case strings.TrimSpace(s.AudioURL) == "":
		return fmt.Errorf("%w: submission audio URL is required", shared.ErrInvalidInput)
	}

	u, err := url.Parse(s.AudioURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: submission audio URL must be an http(s) URL: %q", shared.ErrInvalidInput, s.AudioURL)
	}
	return nil
}

// User is the authenticated account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role,omitempty"`
}
