package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/paging"
)

// CatalogService wraps the song, playlist and submission endpoints.
type CatalogService struct {
	client *Client
}

// NewCatalogService creates a new [CatalogService]
func NewCatalogService(client *Client) *CatalogService {
	return &CatalogService{client: client}
}

func getPage[T any](ctx context.Context, c *Client, path string, req paging.Request) (*paging.Page[T], error) {
	resp, err := c.request(ctx, http.MethodGet, path, pageQuery(req.Page, req.Limit, "limit"), nil)
	if err != nil {
		return nil, err
	}
	return paging.Decode[T](resp.Body)
}

// Songs fetches a page of the catalog. It satisfies [paging.Fetcher].
func (s *CatalogService) Songs(ctx context.Context, req paging.Request) (*paging.Page[models.Song], error) {
	return getPage[models.Song](ctx, s.client, "/api/songs", req)
}

// Playlists fetches a page of the user's playlists. It satisfies [paging.Fetcher].
func (s *CatalogService) Playlists(ctx context.Context, req paging.Request) (*paging.Page[models.Playlist], error) {
	return getPage[models.Playlist](ctx, s.client, "/api/playlists", req)
}

// Submissions fetches a page of the user's own submissions. It satisfies [paging.Fetcher].
func (s *CatalogService) Submissions(ctx context.Context, req paging.Request) (*paging.Page[models.Submission], error) {
	return getPage[models.Submission](ctx, s.client, "/api/submissions/mine", req)
}

// CreatePlaylist validates and creates a playlist.
func (s *CatalogService) CreatePlaylist(ctx context.Context, p models.Playlist) (*models.Playlist, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]any{"name": p.Name, "description": p.Description, "public": p.Public}
	var created models.Playlist
	if err := s.client.requestData(ctx, http.MethodPost, "/api/playlists", nil, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// SubmitSong validates and submits a song for review.
func (s *CatalogService) SubmitSong(ctx context.Context, sub models.Submission) (*models.Submission, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"title":    sub.Title,
		"artist":   sub.Artist,
		"album":    sub.Album,
		"genre":    sub.Genre,
		"audioUrl": sub.AudioURL,
	}
	var created models.Submission
	if err := s.client.requestData(ctx, http.MethodPost, "/api/submissions", nil, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
