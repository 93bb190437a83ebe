package stats

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

var _ Store = (*MemStore)(nil)

// MemStore keeps totals in process memory. Individual turns are not retained.
type MemStore struct {
	mu     sync.RWMutex
	totals map[string]*Totals
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{totals: make(map[string]*Totals)}
}

// RecordTurn implements [Store].
func (m *MemStore) RecordTurn(_ context.Context, t Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tot, ok := m.totals[t.UserID]
	if !ok {
		tot = &Totals{UserID: t.UserID}
		m.totals[t.UserID] = tot
	}
	tot.Turns++
	if t.Reverse {
		tot.Reverse++
	}
	if t.Mode == "arcade" {
		tot.BestArcade = max(tot.BestArcade, t.Index)
	}
	if t.Terminated {
		tot.Terminations++
	}
	tot.BestIndex = max(tot.BestIndex, t.Index)
	if t.At.After(tot.LastPlayed) {
		tot.LastPlayed = t.At
	}
	return nil
}

// Totals implements [Store].
func (m *MemStore) Totals(_ context.Context, userID string) (Totals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tot, ok := m.totals[userID]
	if !ok {
		return Totals{}, ErrUnknownPlayer
	}
	return *tot, nil
}

// Top implements [Store].
func (m *MemStore) Top(_ context.Context, limit int) ([]Totals, error) {
	m.mu.RLock()
	out := make([]Totals, 0, len(m.totals))
	for _, tot := range m.totals {
		out = append(out, *tot)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Totals) int {
		if c := cmp.Compare(b.Turns, a.Turns); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
