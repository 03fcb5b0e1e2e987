package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/cadence/internal/models"
)

// OverlayKey is the store key holding the JSON array of locally read notification IDs.
const OverlayKey = "readNotifications"

// ErrCorruptOverlay reports a stored overlay value that is not a JSON array of strings.
var ErrCorruptOverlay = errors.New("corrupt read overlay")

// ReadOverlay is the persisted set of notification IDs marked read on this device.
type ReadOverlay struct {
	mu    sync.Mutex
	store models.Store
}

// NewReadOverlay creates a [ReadOverlay] backed by store.
func NewReadOverlay(store models.Store) *ReadOverlay {
	return &ReadOverlay{store: store}
}

// IDs returns the stored IDs in insertion order.
//
// A corrupt value yields no IDs together with an error wrapping [ErrCorruptOverlay].
func (o *ReadOverlay) IDs(ctx context.Context) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.load(ctx)
}

func (o *ReadOverlay) load(ctx context.Context) ([]string, error) {
	raw, ok, err := o.store.Get(ctx, OverlayKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptOverlay, err)
	}
	return ids, nil
}

// Has reports whether id is in the overlay.
func (o *ReadOverlay) Has(ctx context.Context, id string) (bool, error) {
	ids, err := o.IDs(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, id), nil
}

// Add records ids, skipping ones already present. A corrupt stored value is replaced.
func (o *ReadOverlay) Add(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	current, err := o.load(ctx)
	if err != nil && !errors.Is(err, ErrCorruptOverlay) {
		return err
	}

	seen := make(map[string]struct{}, len(current)+len(ids))
	for _, id := range current {
		seen[id] = struct{}{}
	}

	changed := err != nil
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		current = append(current, id)
		changed = true
	}

	if !changed {
		return nil
	}
	if current == nil {
		current = []string{}
	}

	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	if err := o.store.Set(ctx, OverlayKey, string(data)); err != nil {
		return fmt.Errorf("failed to write overlay: %w", err)
	}
	return nil
}

// Clear removes the overlay entirely.
func (o *ReadOverlay) Clear(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.Remove(ctx, OverlayKey); err != nil {
		return fmt.Errorf("failed to clear overlay: %w", err)
	}
	return nil
}

// MergeReadState returns a copy of list where every notification whose ID is in ids is read.
// Server-side read state is never downgraded.
func MergeReadState(list []models.Notification, ids []string) []models.Notification {
	read := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		read[id] = struct{}{}
	}

	merged := make([]models.Notification, len(list))
	for i, n := range list {
		if _, ok := read[n.ID]; ok {
			n.IsRead = true
		}
		merged[i] = n
	}
	return merged
}
