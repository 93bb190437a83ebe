// Package stats defines the play statistics store for word-chain sessions.
//
// Every accepted turn is recorded as a [Turn]. Stores aggregate turns into
// per-player [Totals] and serve a leaderboard. Implementations must be safe
// for concurrent use.
package stats

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownPlayer is returned by [Store.Totals] for a player without turns.
var ErrUnknownPlayer = errors.New("stats: unknown player")

// Turn is one accepted chain turn.
type Turn struct {
	Channel string
	UserID  string
	Word    string

	// Mode is the session kind: "normal", "pk" or "arcade".
	Mode string

	// Reverse marks a turn played backwards.
	Reverse bool

	// Index is the turn's position in the current run.
	Index int

	// Terminated marks a turn that left no continuation.
	Terminated bool

	At time.Time
}

// Totals aggregates a player's turns.
type Totals struct {
	UserID string

	// Turns is the number of accepted turns; Reverse counts the ones
	// played backwards.
	Turns   int64
	Reverse int64

	// Terminations counts turns that ended a chain.
	Terminations int64

	// BestIndex is the highest turn index the player reached; BestArcade
	// only counts arcade sessions.
	BestIndex  int
	BestArcade int

	LastPlayed time.Time
}

// Store persists turns and aggregates them.
type Store interface {
	// RecordTurn stores one accepted turn.
	RecordTurn(ctx context.Context, t Turn) error

	// Totals returns the aggregate of userID or [ErrUnknownPlayer].
	Totals(ctx context.Context, userID string) (Totals, error)

	// Top returns up to limit players ordered by turns, most first. Ties are
	// broken by user ID.
	Top(ctx context.Context, limit int) ([]Totals, error)
}
