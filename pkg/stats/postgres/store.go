package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/jielong/pkg/stats"
)

var _ stats.Store = (*Store)(nil)

// Store keeps every turn in jielong_turns and maintains per-player totals
// in jielong_players within the same transaction.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, verifies the connection and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RecordTurn implements [stats.Store].
func (s *Store) RecordTurn(ctx context.Context, t stats.Turn) error {
	const insertTurn = `
		INSERT INTO jielong_turns
		    (channel_id, user_id, word, mode, reverse, turn_index, terminated, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	const upsertPlayer = `
		INSERT INTO jielong_players
		    (user_id, turns, reverse_turns, terminations, best_index, best_arcade, last_played)
		VALUES ($1, 1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
		    turns         = jielong_players.turns + 1,
		    reverse_turns = jielong_players.reverse_turns + EXCLUDED.reverse_turns,
		    terminations  = jielong_players.terminations + EXCLUDED.terminations,
		    best_index    = GREATEST(jielong_players.best_index, EXCLUDED.best_index),
		    best_arcade   = GREATEST(jielong_players.best_arcade, EXCLUDED.best_arcade),
		    last_played   = GREATEST(jielong_players.last_played, EXCLUDED.last_played)`

	bestArcade := 0
	if t.Mode == "arcade" {
		bestArcade = t.Index
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertTurn,
			t.Channel, t.UserID, t.Word, t.Mode, t.Reverse, t.Index, t.Terminated, t.At,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, upsertPlayer,
			t.UserID, count(t.Reverse), count(t.Terminated), t.Index, bestArcade, t.At,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("stats store: record turn: %w", err)
	}
	return nil
}

// Totals implements [stats.Store].
func (s *Store) Totals(ctx context.Context, userID string) (stats.Totals, error) {
	const q = `
		SELECT user_id, turns, reverse_turns, terminations, best_index, best_arcade, last_played
		FROM   jielong_players
		WHERE  user_id = $1`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return stats.Totals{}, fmt.Errorf("stats store: totals: %w", err)
	}
	tot, err := pgx.CollectExactlyOneRow(rows, scanTotals)
	if errors.Is(err, pgx.ErrNoRows) {
		return stats.Totals{}, stats.ErrUnknownPlayer
	}
	if err != nil {
		return stats.Totals{}, fmt.Errorf("stats store: totals: %w", err)
	}
	return tot, nil
}

// Top implements [stats.Store]. A non-positive limit returns every player.
func (s *Store) Top(ctx context.Context, limit int) ([]stats.Totals, error) {
	const q = `
		SELECT user_id, turns, reverse_turns, terminations, best_index, best_arcade, last_played
		FROM   jielong_players
		ORDER  BY turns DESC, user_id
		LIMIT  $1`

	var arg any
	if limit > 0 {
		arg = limit
	}
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("stats store: top: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanTotals)
	if err != nil {
		return nil, fmt.Errorf("stats store: scan rows: %w", err)
	}
	if out == nil {
		out = []stats.Totals{}
	}
	return out, nil
}

func scanTotals(row pgx.CollectableRow) (stats.Totals, error) {
	var t stats.Totals
	err := row.Scan(&t.UserID, &t.Turns, &t.Reverse, &t.Terminations, &t.BestIndex, &t.BestArcade, &t.LastPlayed)
	return t, err
}

func count(b bool) int {
	if b {
		return 1
	}
	return 0
}
