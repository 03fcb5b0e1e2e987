package paging

import (
	"context"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/shared"
)

// DefaultLimit is the page size used when LoaderOpts.Limit is not set.
const DefaultLimit = 20

// State is the loader's position in its state machine.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a loader's state.
type Snapshot[T any] struct {
	Items   []T
	Page    int
	Limit   int
	HasMore bool
	Loading bool
	Err     error
	State   State
}

// LoaderOpts configures a [Loader].
type LoaderOpts struct {
	InitialPage int
	Limit       int
	Logger      *log.Logger
}

// Loader accumulates pages from a [Fetcher].
//
// The mutex is never held while the fetcher runs. A Reset bumps a generation counter so
// a response that arrives afterwards is dropped.
type Loader[T any] struct {
	mu          sync.Mutex
	fetch       Fetcher[T]
	logger      *log.Logger
	initialPage int
	limit       int

	items   []T
	page    int
	hasMore bool
	loading bool
	loaded  bool
	err     error
	gen     uint64

	listeners []func(Snapshot[T])
	sentinel  *Sentinel
}

// NewLoader creates a Loader in the idle state.
func NewLoader[T any](fetch Fetcher[T], opts LoaderOpts) *Loader[T] {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.InitialPage < 0 {
		opts.InitialPage = 0
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &Loader[T]{
		fetch:       fetch,
		logger:      opts.Logger,
		initialPage: opts.InitialPage,
		limit:       opts.Limit,
		page:        opts.InitialPage,
		hasMore:     true,
	}
}

// LoadMore fetches page and merges it into the collection.
//
// It is a no-op returning nil while a fetch is in flight, after exhaustion, or once an
// error has been latched. A fetch failure latches [StateFailed] and is returned.
func (l *Loader[T]) LoadMore(ctx context.Context, page int) error {
	l.mu.Lock()
	if l.loading || !l.hasMore || l.err != nil {
		l.mu.Unlock()
		return nil
	}
	l.loading = true
	gen := l.gen
	limit := l.limit
	l.mu.Unlock()
	l.notify()

	result, err := l.fetch(ctx, Request{Page: page, Limit: limit})
	if err == nil && result == nil {
		err = &DecodeError{Reason: "fetcher returned no page"}
	}

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		l.logger.Debug("discarding stale page", "page", page)
		return nil
	}

	l.loading = false
	if err != nil {
		l.err = err
		l.hasMore = false
		l.mu.Unlock()
		l.logger.Warn("page fetch failed", "page", page, "error", err)
		l.notify()
		return err
	}

	if page == l.initialPage {
		l.items = append([]T(nil), result.Content...)
	} else {
		l.items = append(l.items, result.Content...)
	}
	l.loaded = true
	l.hasMore = HasMore(result, limit)
	if l.hasMore {
		l.page = page + 1
	}
	count, more := len(l.items), l.hasMore
	l.mu.Unlock()

	l.logger.Debug("page loaded", "page", page, "received", len(result.Content), "total", count, "has_more", more)
	l.notify()
	return nil
}

// Next loads the page at the current cursor.
func (l *Loader[T]) Next(ctx context.Context) error {
	l.mu.Lock()
	page := l.page
	l.mu.Unlock()
	return l.LoadMore(ctx, page)
}

// Reset returns the loader to the idle state and discards any in-flight response.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	l.gen++
	l.items = nil
	l.page = l.initialPage
	l.hasMore = true
	l.loading = false
	l.loaded = false
	l.err = nil
	l.mu.Unlock()
	l.notify()
}

// Refresh resets the loader and fetches the initial page.
func (l *Loader[T]) Refresh(ctx context.Context) error {
	l.Reset()
	return l.LoadMore(ctx, l.initialPage)
}

// Snapshot returns a copy of the current state.
func (l *Loader[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Loader[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(l.items))
	copy(items, l.items)

	return Snapshot[T]{
		Items:   items,
		Page:    l.page,
		Limit:   l.limit,
		HasMore: l.hasMore,
		Loading: l.loading,
		Err:     l.err,
		State:   l.stateLocked(),
	}
}

func (l *Loader[T]) stateLocked() State {
	switch {
	case l.loading:
		return StateLoading
	case l.err != nil:
		return StateFailed
	case !l.loaded:
		return StateIdle
	case l.hasMore:
		return StateLoaded
	default:
		return StateExhausted
	}
}

// OnChange registers fn to receive a snapshot after every state transition.
// Callbacks run on the goroutine that caused the transition, without the loader lock held.
func (l *Loader[T]) OnChange(fn func(Snapshot[T])) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Loader[T]) notify() {
	l.mu.Lock()
	if len(l.listeners) == 0 {
		l.mu.Unlock()
		return
	}
	snap := l.snapshotLocked()
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Sentinel returns the loader's visibility sentinel, which calls [Loader.Next] when it fires.
func (l *Loader[T]) Sentinel() *Sentinel {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sentinel == nil {
		l.sentinel = NewSentinel(l.Next)
	}
	return l.sentinel
}
