// Package journal persists a record of every mutating board operation to
// Postgres, for observability and post-hoc analysis. It is not the board's
// authoritative state — Board itself stays purely in-memory — so a
// missing or unreachable database never blocks gameplay.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS board_event (
	id          BIGSERIAL PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	board_id    TEXT NOT NULL,
	actor_id    TEXT NOT NULL,
	kind        TEXT NOT NULL,
	row_idx     INT,
	col_idx     INT,
	detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_board_event_board_id ON board_event(board_id, occurred_at DESC);
`

// EventKind classifies a journaled operation.
type EventKind string

const (
	EventFlip          EventKind = "flip"
	EventTransform     EventKind = "transform"
	EventWaitForChange EventKind = "wait_for_change"
)

// Journal appends board operation records to Postgres.
type Journal struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and ensures the board_event table exists. If
// databaseURL is empty, Open returns (nil, nil): callers should treat a nil
// *Journal as "no persistence configured" and skip logging to it.
func Open(ctx context.Context, databaseURL string) (*Journal, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "journal")
	return &Journal{pool: pool}, nil
}

// Close closes the connection pool. Safe to call on a nil Journal.
func (j *Journal) Close() {
	if j != nil && j.pool != nil {
		j.pool.Close()
	}
}

// RecordFlip appends a flip event. Errors are the caller's to decide
// whether to log; a journal write failure never unwinds the flip itself.
func (j *Journal) RecordFlip(ctx context.Context, boardID, actorID string, row, col int) error {
	if j == nil || j.pool == nil {
		return nil
	}
	_, err := j.pool.Exec(ctx, `
		INSERT INTO board_event (board_id, actor_id, kind, row_idx, col_idx)
		VALUES ($1, $2, $3, $4, $5)`,
		boardID, actorID, EventFlip, row, col)
	return err
}

// RecordTransform appends a transform event.
func (j *Journal) RecordTransform(ctx context.Context, boardID, actorID, detail string) error {
	if j == nil || j.pool == nil {
		return nil
	}
	_, err := j.pool.Exec(ctx, `
		INSERT INTO board_event (board_id, actor_id, kind, detail)
		VALUES ($1, $2, $3, $4)`,
		boardID, actorID, EventTransform, detail)
	return err
}

// RecordWaitForChange appends a record of one resolved waitForChange call
// (by publish or by timeout), for coarse activity metrics on how often
// observers are polling a board.
func (j *Journal) RecordWaitForChange(ctx context.Context, boardID, actorID string) error {
	if j == nil || j.pool == nil {
		return nil
	}
	_, err := j.pool.Exec(ctx, `
		INSERT INTO board_event (board_id, actor_id, kind)
		VALUES ($1, $2, $3)`,
		boardID, actorID, EventWaitForChange)
	return err
}

// Event is one row read back from the journal for the events API.
type Event struct {
	ID         int64  `json:"id"`
	OccurredAt string `json:"occurred_at"`
	BoardID    string `json:"board_id"`
	ActorID    string `json:"actor_id"`
	Kind       string `json:"kind"`
	Row        *int   `json:"row,omitempty"`
	Col        *int   `json:"col,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ListRecent returns the most recent events for a board, newest first.
func (j *Journal) ListRecent(ctx context.Context, boardID string, limit int) ([]Event, error) {
	if j == nil || j.pool == nil {
		return []Event{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := j.pool.Query(ctx, `
		SELECT id, occurred_at, board_id, actor_id, kind, row_idx, col_idx, detail
		FROM board_event
		WHERE board_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`,
		boardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var occurredAt time.Time
		var row, col *int
		if err := rows.Scan(&e.ID, &occurredAt, &e.BoardID, &e.ActorID, &e.Kind, &row, &col, &e.Detail); err != nil {
			return nil, err
		}
		e.OccurredAt = occurredAt.UTC().Format(time.RFC3339)
		e.Row, e.Col = row, col
		out = append(out, e)
	}
	return out, rows.Err()
}
