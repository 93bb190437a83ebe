// Package mock provides a recording test double for [stats.Store].
//
// Typical usage:
//
//	store := &mock.Store{RecordTurnErr: errors.New("down")}
//	// inject store into the system under test …
//	if got := store.CallCount("RecordTurn"); got != 1 { … }
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/jielong/pkg/stats"
)

var _ stats.Store = (*Store)(nil)

// Call records the name and arguments of a single method invocation.
type Call struct {
	Method string
	Args   []any
}

// Store is a configurable [stats.Store]. Exported fields control the return
// values; all methods are safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	calls []Call
	turns []stats.Turn

	// RecordTurnErr is returned by RecordTurn when non-nil. Turns are only
	// kept when it is nil.
	RecordTurnErr error

	TotalsResult stats.Totals
	TotalsErr    error

	TopResult []stats.Totals
	TopErr    error
}

// RecordTurn implements [stats.Store].
func (s *Store) RecordTurn(_ context.Context, t stats.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "RecordTurn", Args: []any{t}})
	if s.RecordTurnErr != nil {
		return s.RecordTurnErr
	}
	s.turns = append(s.turns, t)
	return nil
}

// Totals implements [stats.Store].
func (s *Store) Totals(_ context.Context, userID string) (stats.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "Totals", Args: []any{userID}})
	return s.TotalsResult, s.TotalsErr
}

// Top implements [stats.Store].
func (s *Store) Top(_ context.Context, limit int) ([]stats.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "Top", Args: []any{limit}})
	return s.TopResult, s.TopErr
}

// Turns returns the successfully recorded turns.
func (s *Store) Turns() []stats.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stats.Turn(nil), s.turns...)
}

// Calls returns a copy of all recorded invocations.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how often method was called.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls and turns.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.turns = nil
}
