// Package postgres provides a PostgreSQL-backed [stats.Store].
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.RecordTurn(ctx, turn)
//	top, _ := store.Top(ctx, 10)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlTurns = `
CREATE TABLE IF NOT EXISTS jielong_turns (
    id          BIGSERIAL    PRIMARY KEY,
    channel_id  TEXT         NOT NULL,
    user_id     TEXT         NOT NULL,
    word        TEXT         NOT NULL,
    mode        TEXT         NOT NULL DEFAULT 'normal',
    reverse     BOOLEAN      NOT NULL DEFAULT FALSE,
    turn_index  INTEGER      NOT NULL DEFAULT 0,
    terminated  BOOLEAN      NOT NULL DEFAULT FALSE,
    played_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jielong_turns_user_id
    ON jielong_turns (user_id);

CREATE INDEX IF NOT EXISTS idx_jielong_turns_channel_played
    ON jielong_turns (channel_id, played_at);
`

const ddlPlayers = `
CREATE TABLE IF NOT EXISTS jielong_players (
    user_id       TEXT         PRIMARY KEY,
    turns         BIGINT       NOT NULL DEFAULT 0,
    reverse_turns BIGINT       NOT NULL DEFAULT 0,
    terminations  BIGINT       NOT NULL DEFAULT 0,
    best_index    INTEGER      NOT NULL DEFAULT 0,
    best_arcade   INTEGER      NOT NULL DEFAULT 0,
    last_played   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jielong_players_turns
    ON jielong_players (turns DESC, user_id);
`

// Migrate creates the statistics tables if they do not exist. It is
// idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlTurns, ddlPlayers} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
