package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/cadence/internal/clock"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/paging"
	"github.com/desertthunder/cadence/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend unavailable")

type fakeService struct {
	mu           sync.Mutex
	pages        map[int]*paging.Page[models.Notification]
	count        int
	listErr      error
	countErr     error
	markErr      error
	markAllErr   error
	listCalls    int
	countCalls   int
	markCalls    []string
	markAllCalls int
	listGate     chan struct{}
	listStarted  chan struct{}
}

func (f *fakeService) List(_ context.Context, page, _ int) (*paging.Page[models.Notification], error) {
	f.mu.Lock()
	f.listCalls++
	gate, started := f.listGate, f.listStarted
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if p, ok := f.pages[page]; ok {
		return &paging.Page[models.Notification]{Content: append([]models.Notification(nil), p.Content...), Info: p.Info}, nil
	}
	return &paging.Page[models.Notification]{Content: []models.Notification{}}, nil
}

func (f *fakeService) UnreadCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

func (f *fakeService) MarkAsRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls = append(f.markCalls, id)
	return f.markErr
}

func (f *fakeService) MarkAllAsRead(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAllCalls++
	return f.markAllErr
}

func (f *fakeService) counts() (list, count, markAll int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.countCalls, f.markAllCalls
}

func unread(n int) []models.Notification {
	out := make([]models.Notification, n)
	for i := range out {
		out[i] = models.Notification{
			ID:        fmt.Sprintf("n%d", i+1),
			Type:      models.NotificationSystem,
			Title:     fmt.Sprintf("Notice %d", i+1),
			CreatedAt: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
		}
	}
	return out
}

type fixture struct {
	svc   *fakeService
	store *repositories.MemoryStore
	clock *clock.Fake
	m     *Manager
}

// newFixture returns an authenticated manager holding items with count unread on the server.
func newFixture(t *testing.T, items []models.Notification, count int) *fixture {
	t.Helper()

	svc := &fakeService{
		pages: map[int]*paging.Page[models.Notification]{0: {Content: items}},
		count: count,
	}
	store := repositories.NewMemoryStore()
	fc := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	m, err := NewManager(ManagerOpts{Service: svc, Store: store, Clock: fc})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	ctx := context.Background()
	require.NoError(t, m.SetAuthenticated(ctx, true))
	require.NoError(t, m.Refresh(ctx))

	return &fixture{svc: svc, store: store, clock: fc, m: m}
}

func TestNewManager(t *testing.T) {
	_, err := NewManager(ManagerOpts{})
	assert.Error(t, err)

	m, err := NewManager(ManagerOpts{Service: &fakeService{}})
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, DefaultPageSize, m.pageSize)
	assert.Equal(t, DefaultPollInterval, m.pollInterval)
	assert.Equal(t, DefaultSettleDelay, m.settleDelay)
}

func TestManagerUnauthenticated(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{count: 4}
	m, err := NewManager(ManagerOpts{Service: svc, Clock: clock.NewFake(time.Now())})
	require.NoError(t, err)

	assert.NoError(t, m.FetchUnreadCount(ctx))
	assert.NoError(t, m.FetchNotifications(ctx, 0))
	assert.NoError(t, m.MarkAsRead(ctx, "n1"))
	assert.NoError(t, m.MarkAllAsRead(ctx))

	list, count, markAll := svc.counts()
	assert.Zero(t, list)
	assert.Zero(t, count)
	assert.Zero(t, markAll)
	assert.False(t, m.Snapshot().Authenticated)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh loads list and count", func(t *testing.T) {
		f := newFixture(t, unread(3), 3)
		snap := f.m.Snapshot()
		assert.Len(t, snap.Notifications, 3)
		assert.Equal(t, 3, snap.UnreadCount)
		assert.True(t, snap.Authenticated)
		assert.False(t, snap.HasMore)
	})

	t.Run("overlay masks server lag", func(t *testing.T) {
		f := newFixture(t, unread(2), 2)
		require.NoError(t, f.m.Overlay().Add(ctx, "n2"))

		require.NoError(t, f.m.FetchNotifications(ctx, 0))
		snap := f.m.Snapshot()
		assert.False(t, snap.Notifications[0].IsRead)
		assert.True(t, snap.Notifications[1].IsRead)
	})

	t.Run("corrupt overlay is ignored", func(t *testing.T) {
		f := newFixture(t, unread(1), 1)
		require.NoError(t, f.store.Set(ctx, OverlayKey, "nope"))

		require.NoError(t, f.m.FetchNotifications(ctx, 0))
		assert.False(t, f.m.Snapshot().Notifications[0].IsRead)
	})

	t.Run("later pages append", func(t *testing.T) {
		items := unread(3)
		f := newFixture(t, nil, 3)
		f.svc.mu.Lock()
		f.svc.pages[0] = &paging.Page[models.Notification]{Content: items[:2], Info: &paging.Info{Page: 0, TotalPages: 2}}
		f.svc.pages[1] = &paging.Page[models.Notification]{Content: items[2:], Info: &paging.Info{Page: 1, TotalPages: 2}}
		f.svc.mu.Unlock()

		require.NoError(t, f.m.FetchNotifications(ctx, 0))
		assert.True(t, f.m.Snapshot().HasMore)

		require.NoError(t, f.m.FetchNextPage(ctx))
		snap := f.m.Snapshot()
		assert.Len(t, snap.Notifications, 3)
		assert.Equal(t, 1, snap.Page)
		assert.False(t, snap.HasMore)

		listBefore, _, _ := f.svc.counts()
		require.NoError(t, f.m.FetchNextPage(ctx))
		listAfter, _, _ := f.svc.counts()
		assert.Equal(t, listBefore, listAfter)
	})

	t.Run("count failure keeps previous count", func(t *testing.T) {
		f := newFixture(t, unread(2), 2)
		f.svc.mu.Lock()
		f.svc.countErr = errBackend
		f.svc.mu.Unlock()

		assert.ErrorIs(t, f.m.FetchUnreadCount(ctx), errBackend)
		assert.Equal(t, 2, f.m.Snapshot().UnreadCount)
	})

	t.Run("list failure is captured", func(t *testing.T) {
		f := newFixture(t, unread(2), 2)
		f.svc.mu.Lock()
		f.svc.listErr = errBackend
		f.svc.mu.Unlock()

		assert.ErrorIs(t, f.m.FetchNotifications(ctx, 0), errBackend)
		snap := f.m.Snapshot()
		assert.ErrorIs(t, snap.Err, errBackend)
		assert.Len(t, snap.Notifications, 2)
		assert.False(t, snap.Loading)
	})

	t.Run("no duplicate in-flight fetch", func(t *testing.T) {
		f := newFixture(t, unread(1), 1)
		gate, started := make(chan struct{}), make(chan struct{})
		f.svc.mu.Lock()
		f.svc.listGate, f.svc.listStarted = gate, started
		f.svc.mu.Unlock()

		done := make(chan error, 1)
		go func() { done <- f.m.FetchNotifications(ctx, 0) }()
		<-started

		before, _, _ := f.svc.counts()
		assert.NoError(t, f.m.FetchNotifications(ctx, 0))
		after, _, _ := f.svc.counts()
		assert.Equal(t, before, after)
		assert.True(t, f.m.Snapshot().Loading)

		close(gate)
		require.NoError(t, <-done)
	})
}

func TestMarkAsRead(t *testing.T) {
	ctx := context.Background()

	t.Run("optimistic update and overlay", func(t *testing.T) {
		f := newFixture(t, unread(3), 3)

		require.NoError(t, f.m.MarkAsRead(ctx, "n2"))
		snap := f.m.Snapshot()
		assert.True(t, snap.Notifications[1].IsRead)
		assert.Equal(t, 2, snap.UnreadCount)

		has, err := f.m.Overlay().Has(ctx, "n2")
		require.NoError(t, err)
		assert.True(t, has)
		assert.Equal(t, []string{"n2"}, f.svc.markCalls)
	})

	t.Run("unknown and read ids are ignored", func(t *testing.T) {
		f := newFixture(t, unread(2), 2)
		require.NoError(t, f.m.MarkAsRead(ctx, "n1"))
		require.NoError(t, f.m.MarkAsRead(ctx, "n1"))
		require.NoError(t, f.m.MarkAsRead(ctx, "missing"))

		assert.Equal(t, []string{"n1"}, f.svc.markCalls)
		assert.Equal(t, 1, f.m.Snapshot().UnreadCount)
	})

	t.Run("unread count floors at zero", func(t *testing.T) {
		f := newFixture(t, unread(4), 1)

		for _, id := range []string{"n1", "n2", "n3", "n4"} {
			require.NoError(t, f.m.MarkAsRead(ctx, id))
			assert.GreaterOrEqual(t, f.m.Snapshot().UnreadCount, 0)
		}
		assert.Equal(t, 0, f.m.Snapshot().UnreadCount)
	})

	t.Run("rollback restores list and count but keeps overlay", func(t *testing.T) {
		f := newFixture(t, unread(3), 3)
		f.svc.mu.Lock()
		f.svc.markErr = errBackend
		f.svc.mu.Unlock()

		before := f.m.Snapshot()
		err := f.m.MarkAsRead(ctx, "n1")
		require.ErrorIs(t, err, errBackend)

		after := f.m.Snapshot()
		assert.Equal(t, before.Notifications, after.Notifications)
		assert.Equal(t, before.UnreadCount, after.UnreadCount)

		has, err := f.m.Overlay().Has(ctx, "n1")
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("listeners see optimistic and rolled back states", func(t *testing.T) {
		f := newFixture(t, unread(1), 1)
		f.svc.mu.Lock()
		f.svc.markErr = errBackend
		f.svc.mu.Unlock()

		var counts []int
		f.m.OnChange(func(s Snapshot) { counts = append(counts, s.UnreadCount) })

		_ = f.m.MarkAsRead(ctx, "n1")
		assert.Equal(t, []int{0, 1}, counts)
	})

	t.Run("concurrent first page fetch keeps the optimistic read", func(t *testing.T) {
		f := newFixture(t, unread(2), 2)
		gate, started := make(chan struct{}), make(chan struct{})
		f.svc.mu.Lock()
		f.svc.listGate, f.svc.listStarted = gate, started
		f.svc.mu.Unlock()

		done := make(chan error, 1)
		go func() { done <- f.m.FetchNotifications(ctx, 0) }()
		<-started

		var release sync.Once
		f.m.OnChange(func(s Snapshot) {
			for _, n := range s.Notifications {
				if n.ID == "n1" && n.IsRead {
					release.Do(func() { close(gate) })
				}
			}
		})

		require.NoError(t, f.m.MarkAsRead(ctx, "n1"))
		require.NoError(t, <-done)

		snap := f.m.Snapshot()
		require.Len(t, snap.Notifications, 2)
		assert.True(t, snap.Notifications[0].IsRead)
		assert.Equal(t, 1, snap.UnreadCount)
	})

	t.Run("debounced unread refresh", func(t *testing.T) {
		f := newFixture(t, unread(5), 5)
		_, baseline, _ := f.svc.counts()

		for _, id := range []string{"n1", "n2", "n3", "n4", "n5"} {
			require.NoError(t, f.m.MarkAsRead(ctx, id))
			f.clock.Advance(50 * time.Millisecond)
		}

		// last mark happened 50ms ago; the window closes 950ms from now
		f.clock.Advance(900 * time.Millisecond)
		_, count, _ := f.svc.counts()
		assert.Equal(t, baseline, count, "no refresh inside the quiet window")

		f.clock.Advance(50 * time.Millisecond)
		_, count, _ = f.svc.counts()
		assert.Equal(t, baseline+1, count, "exactly one refresh after the window")

		f.clock.Advance(10 * time.Second)
		_, count, _ = f.svc.counts()
		assert.Equal(t, baseline+1, count)
	})

	t.Run("failed mark does not schedule refresh", func(t *testing.T) {
		f := newFixture(t, unread(1), 1)
		f.svc.mu.Lock()
		f.svc.markErr = errBackend
		f.svc.mu.Unlock()
		_, baseline, _ := f.svc.counts()

		_ = f.m.MarkAsRead(ctx, "n1")
		f.clock.Advance(5 * time.Second)
		_, count, _ := f.svc.counts()
		assert.Equal(t, baseline, count)
	})
}

func TestMarkAllAsRead(t *testing.T) {
	ctx := context.Background()

	t.Run("no-op when nothing is unread", func(t *testing.T) {
		f := newFixture(t, unread(2), 0)
		require.NoError(t, f.m.MarkAllAsRead(ctx))
		_, _, markAll := f.svc.counts()
		assert.Zero(t, markAll)
	})

	t.Run("success settles then re-fetches", func(t *testing.T) {
		items := unread(3)
		items[1].IsRead = true
		f := newFixture(t, items, 2)
		listBase, countBase, _ := f.svc.counts()

		require.NoError(t, f.m.MarkAllAsRead(ctx))
		snap := f.m.Snapshot()
		assert.Equal(t, 0, snap.UnreadCount)
		for _, n := range snap.Notifications {
			assert.True(t, n.IsRead)
		}

		ids, err := f.m.Overlay().IDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"n1", "n3"}, ids)

		f.svc.mu.Lock()
		f.svc.count = 0
		f.svc.mu.Unlock()

		f.clock.Advance(400 * time.Millisecond)
		list, count, markAll := f.svc.counts()
		assert.Equal(t, 1, markAll)
		assert.Equal(t, listBase, list)
		assert.Equal(t, countBase, count)

		f.clock.Advance(100 * time.Millisecond)
		list, count, _ = f.svc.counts()
		assert.Equal(t, listBase+1, list)
		assert.Equal(t, countBase+1, count)

		snap = f.m.Snapshot()
		assert.Equal(t, 0, snap.UnreadCount)
		for _, n := range snap.Notifications {
			assert.True(t, n.IsRead, "overlay keeps %s read", n.ID)
		}
	})

	t.Run("rollback on bulk failure", func(t *testing.T) {
		f := newFixture(t, unread(3), 3)
		f.svc.mu.Lock()
		f.svc.markAllErr = errBackend
		f.svc.mu.Unlock()

		var seen []int
		f.m.OnChange(func(s Snapshot) { seen = append(seen, s.UnreadCount) })

		before := f.m.Snapshot()
		err := f.m.MarkAllAsRead(ctx)
		require.ErrorIs(t, err, errBackend)
		assert.Equal(t, []int{0, 3}, seen)

		after := f.m.Snapshot()
		assert.Equal(t, 3, after.UnreadCount)
		assert.Equal(t, before.Notifications, after.Notifications)
		for _, n := range after.Notifications {
			assert.False(t, n.IsRead)
		}
	})
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("polls unread count on an interval", func(t *testing.T) {
		f := newFixture(t, unread(1), 1)
		_, baseline, _ := f.svc.counts()

		f.clock.Advance(59 * time.Second)
		_, count, _ := f.svc.counts()
		assert.Equal(t, baseline, count)

		f.clock.Advance(time.Second)
		_, count, _ = f.svc.counts()
		assert.Equal(t, baseline+1, count)

		f.clock.Advance(2 * time.Minute)
		_, count, _ = f.svc.counts()
		assert.Equal(t, baseline+3, count)
	})

	t.Run("logout clears state, purges overlay and stops timers", func(t *testing.T) {
		f := newFixture(t, unread(3), 3)
		require.NoError(t, f.m.MarkAsRead(ctx, "n1"))
		require.NoError(t, f.m.MarkAllAsRead(ctx))
		_, baseline, _ := f.svc.counts()

		require.NoError(t, f.m.SetAuthenticated(ctx, false))
		snap := f.m.Snapshot()
		assert.Empty(t, snap.Notifications)
		assert.Zero(t, snap.UnreadCount)
		assert.False(t, snap.Authenticated)

		_, ok, _ := f.store.Get(ctx, OverlayKey)
		assert.False(t, ok)
		assert.Zero(t, f.clock.Pending())

		f.clock.Advance(5 * time.Minute)
		_, count, _ := f.svc.counts()
		assert.Equal(t, baseline, count)
	})

	t.Run("response after logout is discarded", func(t *testing.T) {
		f := newFixture(t, unread(2), 2)
		gate, started := make(chan struct{}), make(chan struct{})
		f.svc.mu.Lock()
		f.svc.listGate, f.svc.listStarted = gate, started
		f.svc.mu.Unlock()

		done := make(chan error, 1)
		go func() { done <- f.m.FetchNotifications(ctx, 0) }()
		<-started

		require.NoError(t, f.m.SetAuthenticated(ctx, false))
		close(gate)
		require.NoError(t, <-done)

		assert.Empty(t, f.m.Snapshot().Notifications)
	})

	t.Run("login is idempotent", func(t *testing.T) {
		f := newFixture(t, unread(1), 1)
		require.NoError(t, f.m.SetAuthenticated(ctx, true))
		assert.Equal(t, 1, f.clock.Pending(), "only one poll timer")
	})

	t.Run("close keeps state but stops polling", func(t *testing.T) {
		f := newFixture(t, unread(2), 2)
		require.NoError(t, f.m.Overlay().Add(ctx, "n1"))
		_, baseline, _ := f.svc.counts()

		f.m.Close()
		f.clock.Advance(5 * time.Minute)
		_, count, _ := f.svc.counts()
		assert.Equal(t, baseline, count)
		assert.Len(t, f.m.Snapshot().Notifications, 2)

		has, err := f.m.Overlay().Has(ctx, "n1")
		require.NoError(t, err)
		assert.True(t, has)
	})
}
