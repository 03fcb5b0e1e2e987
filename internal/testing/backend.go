package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/cadence/internal/models"
)

// Backend is an in-memory fake of the cadence REST API served over httptest.
type Backend struct {
	mu     sync.Mutex
	Server *httptest.Server

	Token    string
	Email    string
	Password string
	User     models.User

	Notifications []models.Notification
	Songs         []models.Song
	Playlists     []models.Playlist
	Submissions   []models.Submission

	// OmitPageInfo drops pageInfo from paged responses so clients fall back to the page size heuristic.
	OmitPageInfo bool

	// Fail maps a route pattern such as "PUT /api/notifications/read-all" to a forced status code.
	Fail map[string]int

	hits map[string]int
}

// NewBackend starts a Backend seeded with one user. The server is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		Token:    "test-token",
		Email:    "listener@cadence.test",
		Password: "hunter2",
		User:     models.User{ID: "u1", Email: "listener@cadence.test", DisplayName: "Listener"},
		Fail:     make(map[string]int),
		hits:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("GET /api/auth/me", b.authed(b.handleMe))
	mux.HandleFunc("GET /api/notifications", b.authed(b.handleNotifications))
	mux.HandleFunc("GET /api/notifications/unread-count", b.authed(b.handleUnreadCount))
	mux.HandleFunc("PUT /api/notifications/{id}/read", b.authed(b.handleMarkRead))
	mux.HandleFunc("PUT /api/notifications/read-all", b.authed(b.handleMarkAll))
	mux.HandleFunc("GET /api/songs", b.authed(b.handleSongs))
	mux.HandleFunc("GET /api/playlists", b.authed(b.handlePlaylists))
	mux.HandleFunc("POST /api/playlists", b.authed(b.handleCreatePlaylist))
	mux.HandleFunc("GET /api/submissions/mine", b.authed(b.handleSubmissions))
	mux.HandleFunc("POST /api/submissions", b.authed(b.handleSubmit))

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the server base URL.
func (b *Backend) URL() string { return b.Server.URL }

// Hits returns how many requests matched pattern.
func (b *Backend) Hits(pattern string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[pattern]
}

// SeedNotifications replaces the inbox with n unread notifications n1..nN, newest first.
func (b *Backend) SeedNotifications(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.Notifications = make([]models.Notification, n)
	for i := range b.Notifications {
		b.Notifications[i] = models.Notification{
			ID:        fmt.Sprintf("n%d", i+1),
			Type:      models.NotificationSystem,
			Title:     fmt.Sprintf("Notice %d", i+1),
			Message:   "Something happened",
			CreatedAt: start.Add(-time.Duration(i) * time.Hour),
		}
	}
}

// SeedSongs replaces the catalog with n songs s1..sN.
func (b *Backend) SeedSongs(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Songs = make([]models.Song, n)
	for i := range b.Songs {
		b.Songs[i] = models.Song{
			ID:          fmt.Sprintf("s%d", i+1),
			Title:       fmt.Sprintf("Song %d", i+1),
			Artist:      "Artist",
			Album:       "Album",
			Genre:       "Indie",
			DurationSec: 180 + i,
		}
	}
}

// SetFail forces every request matching pattern to fail with status.
func (b *Backend) SetFail(pattern string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Fail[pattern] = status
}

// SetOmitPageInfo toggles pageInfo in paged responses.
func (b *Backend) SetOmitPageInfo(omit bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.OmitPageInfo = omit
}

// Unread returns the number of unread notifications held by the server.
func (b *Backend) Unread() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unreadLocked()
}

func (b *Backend) unreadLocked() int {
	count := 0
	for _, n := range b.Notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func (b *Backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+b.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// intercept records the hit and writes a forced failure if one is configured.
func (b *Backend) intercept(w http.ResponseWriter, r *http.Request) bool {
	b.mu.Lock()
	b.hits[r.Pattern]++
	status, fail := b.Fail[r.Pattern]
	b.mu.Unlock()

	if fail {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
	}
	return fail
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	if body.Email != b.Email || body.Password != b.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}
	writeData(w, http.StatusOK, map[string]any{"token": b.Token, "user": b.User})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}
	writeData(w, http.StatusOK, b.User)
}

func (b *Backend) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writePage(w, r, "size", b.Notifications, b.OmitPageInfo)
}

func (b *Backend) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeData(w, http.StatusOK, map[string]int{"count": b.unreadLocked()})
}

func (b *Backend) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := r.PathValue("id")
	for i := range b.Notifications {
		if b.Notifications[i].ID == id {
			b.Notifications[i].IsRead = true
			writeData(w, http.StatusOK, b.Notifications[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "notification not found"})
}

func (b *Backend) handleMarkAll(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.Notifications {
		b.Notifications[i].IsRead = true
	}
	writeData(w, http.StatusOK, map[string]bool{"ok": true})
}

func (b *Backend) handleSongs(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writePage(w, r, "limit", b.Songs, b.OmitPageInfo)
}

func (b *Backend) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writePage(w, r, "limit", b.Playlists, b.OmitPageInfo)
}

func (b *Backend) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}

	var p models.Playlist
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p.ID = fmt.Sprintf("p%d", len(b.Playlists)+1)
	p.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.Playlists = append(b.Playlists, p)
	writeData(w, http.StatusCreated, p)
}

func (b *Backend) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writePage(w, r, "limit", b.Submissions, b.OmitPageInfo)
}

func (b *Backend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if b.intercept(w, r) {
		return
	}

	var s models.Submission
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil || s.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "title is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	s.ID = fmt.Sprintf("sub%d", len(b.Submissions)+1)
	s.Status = models.SubmissionPending
	s.SubmittedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.Submissions = append(b.Submissions, s)
	writeData(w, http.StatusCreated, s)
}

func writePage[T any](w http.ResponseWriter, r *http.Request, limitKey string, all []T, omitInfo bool) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, err := strconv.Atoi(r.URL.Query().Get(limitKey))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if page < 0 {
		page = 0
	}

	start := min(page*limit, len(all))
	end := min(start+limit, len(all))
	content := append([]T{}, all[start:end]...)

	data := map[string]any{"content": content}
	if !omitInfo {
		totalPages := (len(all) + limit - 1) / limit
		data["pageInfo"] = map[string]any{"page": page, "totalPages": totalPages, "hasNext": page < totalPages-1}
	}
	writeData(w, http.StatusOK, data)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
