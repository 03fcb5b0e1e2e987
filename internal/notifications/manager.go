package notifications

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/clock"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/paging"
	"github.com/desertthunder/cadence/internal/repositories"
	"github.com/desertthunder/cadence/internal/shared"
)

const (
	DefaultPageSize      = 20
	DefaultPollInterval  = 60 * time.Second
	DefaultDebounceDelay = time.Second
	DefaultSettleDelay   = 500 * time.Millisecond
)

// Service is the backend notification API consumed by [Manager].
type Service interface {
	List(ctx context.Context, page, size int) (*paging.Page[models.Notification], error)
	UnreadCount(ctx context.Context) (int, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context) error
}

// ManagerOpts configures a [Manager]. Zero durations and sizes fall back to the package defaults.
type ManagerOpts struct {
	Service       Service
	Store         models.Store
	Clock         clock.Clock
	Logger        *log.Logger
	PageSize      int
	PollInterval  time.Duration
	DebounceDelay time.Duration
	SettleDelay   time.Duration
}

// Snapshot is a point-in-time copy of the manager's state.
type Snapshot struct {
	Notifications []models.Notification
	UnreadCount   int
	Page          int
	HasMore       bool
	Loading       bool
	Authenticated bool
	Err           error
}

// Manager owns the notification list, the unread count and the read overlay for one session.
//
// The mutex is never held across backend calls or timer callbacks; it is held while the read
// overlay is written. Each login starts a new
// session generation; responses and timers from an older generation are dropped.
type Manager struct {
	mu           sync.Mutex
	service      Service
	overlay      *ReadOverlay
	clock        clock.Clock
	logger       *log.Logger
	pageSize     int
	pollInterval time.Duration
	settleDelay  time.Duration

	notifications []models.Notification
	unread        int
	page          int
	hasMore       bool
	loading       bool
	authenticated bool
	err           error

	session   uint64
	lifecycle context.Context
	cancel    context.CancelFunc
	poll      clock.Timer
	settle    clock.Timer
	refresh   *clock.Debouncer
	listeners []func(Snapshot)
}

// NewManager creates an unauthenticated [Manager].
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("%w: notification service is required", shared.ErrMissingConfig)
	}
	if opts.Store == nil {
		opts.Store = repositories.NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	m := &Manager{
		service:      opts.Service,
		overlay:      NewReadOverlay(opts.Store),
		clock:        opts.Clock,
		logger:       shared.WithLogger(opts.Logger, "component", "notifications"),
		pageSize:     opts.PageSize,
		pollInterval: opts.PollInterval,
		settleDelay:  opts.SettleDelay,
		lifecycle:    context.Background(),
		cancel:       func() {},
	}
	m.refresh = clock.NewDebouncer(opts.Clock, opts.DebounceDelay, func() {
		_ = m.FetchUnreadCount(m.lifecycleContext())
	})
	return m, nil
}

// Overlay returns the manager's read overlay.
func (m *Manager) Overlay() *ReadOverlay { return m.overlay }

// FetchUnreadCount replaces the unread count with the server's value.
// On failure the previous count is kept and the error is logged and returned.
func (m *Manager) FetchUnreadCount(ctx context.Context) error {
	m.mu.Lock()
	if !m.authenticated {
		m.mu.Unlock()
		return nil
	}
	session := m.session
	m.mu.Unlock()

	count, err := m.service.UnreadCount(ctx)
	if err != nil {
		m.logger.Warn("failed to fetch unread count", "error", err)
		return err
	}

	m.mu.Lock()
	if session != m.session {
		m.mu.Unlock()
		return nil
	}
	m.unread = max(count, 0)
	m.mu.Unlock()

	m.logger.Debug("unread count refreshed", "count", count)
	m.notify()
	return nil
}

// FetchNotifications loads page and merges it with the read overlay.
// Page 0 replaces the list; later pages append. It is a no-op while another fetch is in flight.
func (m *Manager) FetchNotifications(ctx context.Context, page int) error {
	m.mu.Lock()
	if !m.authenticated || m.loading {
		m.mu.Unlock()
		return nil
	}
	m.loading = true
	session := m.session
	size := m.pageSize
	m.mu.Unlock()
	m.notify()

	result, err := m.service.List(ctx, page, size)
	if err == nil && result == nil {
		err = &paging.DecodeError{Reason: "service returned no page"}
	}

	var ids []string
	if err == nil {
		var overlayErr error
		ids, overlayErr = m.overlay.IDs(ctx)
		if overlayErr != nil {
			m.logger.Warn("ignoring unreadable read overlay", "error", overlayErr)
		}
	}

	m.mu.Lock()
	if session != m.session {
		m.mu.Unlock()
		return nil
	}
	m.loading = false

	if err != nil {
		m.err = err
		m.mu.Unlock()
		m.logger.Warn("failed to fetch notifications", "page", page, "error", err)
		m.notify()
		return err
	}

	merged := MergeReadState(result.Content, ids)
	if page == 0 {
		m.notifications = merged
	} else {
		m.notifications = append(m.notifications, merged...)
	}
	m.page = page
	m.hasMore = paging.HasMore(result, size)
	m.err = nil
	m.mu.Unlock()

	m.notify()
	return nil
}

// FetchNextPage appends the page after the last one fetched, if the server reported more.
func (m *Manager) FetchNextPage(ctx context.Context) error {
	m.mu.Lock()
	next, more := m.page+1, m.hasMore
	m.mu.Unlock()

	if !more {
		return nil
	}
	return m.FetchNotifications(ctx, next)
}

// MarkAsRead optimistically marks id read.
//
// The ID is written to the overlay before the optimistic state is published, so a concurrent
// first-page fetch merges it as read. If the backend rejects the request the list and count are
// restored to their previous values; the overlay entry stays. Unknown and already read IDs are
// ignored.
func (m *Manager) MarkAsRead(ctx context.Context, id string) error {
	m.mu.Lock()
	if !m.authenticated {
		m.mu.Unlock()
		return nil
	}

	idx := slices.IndexFunc(m.notifications, func(n models.Notification) bool { return n.ID == id })
	if idx < 0 || m.notifications[idx].IsRead {
		m.mu.Unlock()
		return nil
	}

	if err := m.overlay.Add(ctx, id); err != nil {
		m.logger.Warn("failed to persist read state", "id", id, "error", err)
	}

	prevList, prevCount := slices.Clone(m.notifications), m.unread
	m.notifications = slices.Clone(m.notifications)
	m.notifications[idx].IsRead = true
	m.unread = max(m.unread-1, 0)
	session := m.session
	m.mu.Unlock()
	m.notify()

	if err := m.service.MarkAsRead(ctx, id); err != nil {
		m.rollback(session, prevList, prevCount)
		m.logger.Warn("mark as read failed, rolled back", "id", id, "error", err)
		return err
	}

	m.mu.Lock()
	current := session == m.session
	m.mu.Unlock()
	if current {
		m.refresh.Trigger()
	}
	return nil
}

// MarkAllAsRead optimistically marks every held notification read and zeroes the count.
//
// After the backend accepts the request the first page and the count are re-fetched once the
// settle delay has passed. It is a no-op when nothing is unread.
func (m *Manager) MarkAllAsRead(ctx context.Context) error {
	m.mu.Lock()
	if !m.authenticated || m.unread == 0 {
		m.mu.Unlock()
		return nil
	}

	prevList, prevCount := slices.Clone(m.notifications), m.unread
	var unreadIDs []string
	updated := make([]models.Notification, len(m.notifications))
	for i, n := range m.notifications {
		if !n.IsRead {
			unreadIDs = append(unreadIDs, n.ID)
			n.IsRead = true
		}
		updated[i] = n
	}
	if err := m.overlay.Add(ctx, unreadIDs...); err != nil {
		m.logger.Warn("failed to persist read state", "count", len(unreadIDs), "error", err)
	}

	m.notifications = updated
	m.unread = 0
	session := m.session
	m.mu.Unlock()
	m.notify()

	if err := m.service.MarkAllAsRead(ctx); err != nil {
		m.rollback(session, prevList, prevCount)
		m.logger.Warn("mark all as read failed, rolled back", "error", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session != m.session {
		return nil
	}
	if m.settle != nil {
		m.settle.Stop()
	}
	lifecycle := m.lifecycle
	m.settle = m.clock.AfterFunc(m.settleDelay, func() {
		if !m.isSession(session) {
			return
		}
		_ = m.FetchNotifications(lifecycle, 0)
		_ = m.FetchUnreadCount(lifecycle)
	})
	return nil
}

func (m *Manager) rollback(session uint64, list []models.Notification, count int) {
	m.mu.Lock()
	if session != m.session {
		m.mu.Unlock()
		return
	}
	m.notifications = list
	m.unread = count
	m.mu.Unlock()
	m.notify()
}

// SetAuthenticated starts or ends a session.
//
// Starting a session begins polling the unread count every poll interval under a context derived
// from ctx. Ending one stops every timer, clears the list and count, and purges the read overlay.
func (m *Manager) SetAuthenticated(ctx context.Context, authenticated bool) error {
	if authenticated {
		m.mu.Lock()
		if m.authenticated {
			m.mu.Unlock()
			return nil
		}
		m.authenticated = true
		m.session++
		m.lifecycle, m.cancel = context.WithCancel(ctx)
		m.schedulePollLocked()
		m.mu.Unlock()

		m.logger.Debug("session started", "poll_interval", m.pollInterval)
		m.notify()
		return nil
	}

	m.mu.Lock()
	m.teardownLocked()
	m.notifications = nil
	m.unread = 0
	m.page = 0
	m.hasMore = false
	m.err = nil
	m.mu.Unlock()

	err := m.overlay.Clear(ctx)
	if err != nil {
		m.logger.Error("failed to purge read overlay", "error", err)
	}
	m.logger.Debug("session ended")
	m.notify()
	return err
}

// teardownLocked invalidates the current session and stops its timers.
func (m *Manager) teardownLocked() {
	m.authenticated = false
	m.loading = false
	m.session++
	m.cancel()
	m.lifecycle, m.cancel = context.Background(), func() {}
	if m.poll != nil {
		m.poll.Stop()
		m.poll = nil
	}
	if m.settle != nil {
		m.settle.Stop()
		m.settle = nil
	}
	m.refresh.Stop()
}

func (m *Manager) schedulePollLocked() {
	session := m.session
	lifecycle := m.lifecycle
	m.poll = m.clock.AfterFunc(m.pollInterval, func() {
		if !m.isSession(session) {
			return
		}
		_ = m.FetchUnreadCount(lifecycle)

		m.mu.Lock()
		defer m.mu.Unlock()
		if session == m.session && m.authenticated {
			m.schedulePollLocked()
		}
	})
}

func (m *Manager) isSession(session uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated && session == m.session
}

func (m *Manager) lifecycleContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lifecycle
}

// Refresh re-fetches the unread count and the first page.
func (m *Manager) Refresh(ctx context.Context) error {
	return errors.Join(m.FetchUnreadCount(ctx), m.FetchNotifications(ctx, 0))
}

// Close stops all timers and cancels background work. Held state and the overlay are kept.
func (m *Manager) Close() {
	m.mu.Lock()
	m.teardownLocked()
	m.mu.Unlock()
	m.notify()
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Notifications: slices.Clone(m.notifications),
		UnreadCount:   m.unread,
		Page:          m.page,
		HasMore:       m.hasMore,
		Loading:       m.loading,
		Authenticated: m.authenticated,
		Err:           m.err,
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// Callbacks run without the manager lock held and may call back into the manager.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify() {
	m.mu.Lock()
	if len(m.listeners) == 0 {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
