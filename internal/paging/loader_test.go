package paging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(prefix string, n int) []item {
	out := make([]item, n)
	for i := range out {
		out[i] = item{ID: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return out
}

// scripted returns a fetcher that serves pages from the map and counts calls.
func scripted(pages map[int]*Page[item], calls *atomic.Int32) Fetcher[item] {
	return func(_ context.Context, req Request) (*Page[item], error) {
		calls.Add(1)
		if p, ok := pages[req.Page]; ok {
			return p, nil
		}
		return &Page[item]{Content: []item{}}, nil
	}
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("starts idle", func(t *testing.T) {
		l := NewLoader(scripted(nil, new(atomic.Int32)), LoaderOpts{})
		snap := l.Snapshot()
		assert.Equal(t, StateIdle, snap.State)
		assert.Equal(t, DefaultLimit, snap.Limit)
		assert.True(t, snap.HasMore)
		assert.Empty(t, snap.Items)
	})

	t.Run("twenty then five", func(t *testing.T) {
		calls := new(atomic.Int32)
		l := NewLoader(scripted(map[int]*Page[item]{
			0: {Content: makeItems("p0", 20)},
			1: {Content: makeItems("p1", 5)},
		}, calls), LoaderOpts{Limit: 20})

		require.NoError(t, l.LoadMore(ctx, 0))
		snap := l.Snapshot()
		assert.True(t, snap.HasMore)
		assert.Equal(t, 1, snap.Page)
		assert.Equal(t, StateLoaded, snap.State)

		require.NoError(t, l.Next(ctx))
		snap = l.Snapshot()
		assert.False(t, snap.HasMore)
		assert.Len(t, snap.Items, 25)
		assert.Equal(t, StateExhausted, snap.State)
		assert.Equal(t, "p1-4", snap.Items[24].ID)

		require.NoError(t, l.Next(ctx))
		assert.Equal(t, int32(2), calls.Load(), "exhausted loader must not fetch")
	})

	t.Run("page info decides exhaustion", func(t *testing.T) {
		l := NewLoader(scripted(map[int]*Page[item]{
			0: {Content: makeItems("p0", 2), Info: &Info{Page: 0, TotalPages: 2}},
			1: {Content: makeItems("p1", 2), Info: &Info{Page: 1, TotalPages: 2}},
		}, new(atomic.Int32)), LoaderOpts{Limit: 20})

		require.NoError(t, l.Next(ctx))
		assert.True(t, l.Snapshot().HasMore)
		require.NoError(t, l.Next(ctx))
		snap := l.Snapshot()
		assert.False(t, snap.HasMore)
		assert.Len(t, snap.Items, 4)
	})

	t.Run("initial page replaces items", func(t *testing.T) {
		l := NewLoader(scripted(map[int]*Page[item]{
			0: {Content: makeItems("p0", 2), Info: &Info{Page: 0, TotalPages: 5}},
		}, new(atomic.Int32)), LoaderOpts{Limit: 2})

		require.NoError(t, l.LoadMore(ctx, 0))
		require.NoError(t, l.LoadMore(ctx, 0))
		assert.Len(t, l.Snapshot().Items, 2)
	})

	t.Run("failure latches", func(t *testing.T) {
		boom := errors.New("boom")
		calls := new(atomic.Int32)
		l := NewLoader[item](func(context.Context, Request) (*Page[item], error) {
			calls.Add(1)
			return nil, boom
		}, LoaderOpts{})

		err := l.Next(ctx)
		require.ErrorIs(t, err, boom)

		snap := l.Snapshot()
		assert.Equal(t, StateFailed, snap.State)
		assert.False(t, snap.HasMore)
		assert.ErrorIs(t, snap.Err, boom)

		assert.NoError(t, l.Next(ctx))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("nil page is malformed", func(t *testing.T) {
		l := NewLoader[item](func(context.Context, Request) (*Page[item], error) {
			return nil, nil
		}, LoaderOpts{})

		err := l.Next(ctx)
		assert.ErrorIs(t, err, ErrMalformedPage)
		assert.Equal(t, StateFailed, l.Snapshot().State)
	})

	t.Run("reset is idempotent from every state", func(t *testing.T) {
		expect := func(t *testing.T, l *Loader[item]) {
			snap := l.Snapshot()
			assert.Empty(t, snap.Items)
			assert.Equal(t, 3, snap.Page)
			assert.True(t, snap.HasMore)
			assert.NoError(t, snap.Err)
			assert.False(t, snap.Loading)
			assert.Equal(t, StateIdle, snap.State)
		}

		opts := LoaderOpts{InitialPage: 3, Limit: 2}
		ok := scripted(map[int]*Page[item]{3: {Content: makeItems("a", 2)}}, new(atomic.Int32))
		short := scripted(map[int]*Page[item]{3: {Content: makeItems("a", 1)}}, new(atomic.Int32))
		failing := func(context.Context, Request) (*Page[item], error) { return nil, errors.New("down") }

		idle := NewLoader(ok, opts)
		idle.Reset()
		expect(t, idle)

		loaded := NewLoader(ok, opts)
		require.NoError(t, loaded.Next(ctx))
		loaded.Reset()
		loaded.Reset()
		expect(t, loaded)

		exhausted := NewLoader(short, opts)
		require.NoError(t, exhausted.Next(ctx))
		exhausted.Reset()
		expect(t, exhausted)

		failed := NewLoader(failing, opts)
		_ = failed.Next(ctx)
		failed.Reset()
		expect(t, failed)
	})

	t.Run("refresh recovers from failure", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		l := NewLoader[item](func(context.Context, Request) (*Page[item], error) {
			if fail.Load() {
				return nil, errors.New("down")
			}
			return &Page[item]{Content: makeItems("x", 1)}, nil
		}, LoaderOpts{})

		require.Error(t, l.Next(ctx))
		fail.Store(false)
		require.NoError(t, l.Refresh(ctx))
		snap := l.Snapshot()
		assert.Len(t, snap.Items, 1)
		assert.Equal(t, StateExhausted, snap.State)
	})

	t.Run("no duplicate in-flight fetch", func(t *testing.T) {
		calls := new(atomic.Int32)
		started := make(chan struct{})
		release := make(chan struct{})
		l := NewLoader[item](func(context.Context, Request) (*Page[item], error) {
			calls.Add(1)
			close(started)
			<-release
			return &Page[item]{Content: makeItems("a", 20)}, nil
		}, LoaderOpts{Limit: 20})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Next(ctx))
		}()

		<-started
		assert.Equal(t, StateLoading, l.Snapshot().State)
		assert.NoError(t, l.LoadMore(ctx, 0))
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.Len(t, l.Snapshot().Items, 20)
	})

	t.Run("reset discards in-flight response", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		l := NewLoader[item](func(context.Context, Request) (*Page[item], error) {
			close(started)
			<-release
			return &Page[item]{Content: makeItems("stale", 3)}, nil
		}, LoaderOpts{})

		done := make(chan error, 1)
		go func() { done <- l.Next(ctx) }()

		<-started
		l.Reset()
		close(release)

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("LoadMore did not return")
		}

		snap := l.Snapshot()
		assert.Empty(t, snap.Items)
		assert.Equal(t, StateIdle, snap.State)
	})

	t.Run("on change sees transitions", func(t *testing.T) {
		l := NewLoader(scripted(map[int]*Page[item]{0: {Content: makeItems("a", 1)}}, new(atomic.Int32)), LoaderOpts{})

		var states []State
		l.OnChange(func(s Snapshot[item]) { states = append(states, s.State) })

		require.NoError(t, l.Next(ctx))
		l.Reset()
		assert.Equal(t, []State{StateLoading, StateExhausted, StateIdle}, states)
	})

	t.Run("snapshot items are copies", func(t *testing.T) {
		l := NewLoader(scripted(map[int]*Page[item]{0: {Content: makeItems("a", 1)}}, new(atomic.Int32)), LoaderOpts{})
		require.NoError(t, l.Next(ctx))

		snap := l.Snapshot()
		snap.Items[0].ID = "mutated"
		assert.Equal(t, "a-0", l.Snapshot().Items[0].ID)
	})
}

func TestState(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
