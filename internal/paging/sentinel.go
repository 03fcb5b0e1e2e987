package paging

import (
	"context"
	"sync"
)

// Sentinel tracks the visibility of the last rendered item and fires a trigger each time
// that item enters the view.
type Sentinel struct {
	mu       sync.Mutex
	trigger  func(context.Context) error
	key      string
	attached bool
	visible  bool
}

// NewSentinel returns a detached Sentinel that calls trigger when it fires.
func NewSentinel(trigger func(context.Context) error) *Sentinel {
	return &Sentinel{trigger: trigger}
}

// Attach observes the item identified by key. Attaching a different key drops the previous
// observation, so the new item starts out not visible.
func (s *Sentinel) Attach(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached && s.key == key {
		return
	}
	s.key = key
	s.attached = true
	s.visible = false
}

// Observe records a visibility change for key and reports whether the trigger ran.
// Reports for an item other than the attached one are ignored.
func (s *Sentinel) Observe(ctx context.Context, key string, visible bool) bool {
	s.mu.Lock()
	if !s.attached || s.key != key {
		s.mu.Unlock()
		return false
	}
	fire := visible && !s.visible
	s.visible = visible
	s.mu.Unlock()

	if fire {
		_ = s.trigger(ctx)
	}
	return fire
}

// Detach stops observing.
func (s *Sentinel) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	s.attached = false
	s.visible = false
}

// Key returns the attached key, or "" when detached.
func (s *Sentinel) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}
