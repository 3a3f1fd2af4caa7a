// Package postgres stores the transcript journal in a PostgreSQL table.
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//	_ = store.Append(ctx, journal.Entry{SiteID: "kitchen", Text: "lights on"})
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/hermes-asr/internal/journal"
)

var _ journal.Journal = (*Store)(nil)

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS asr_transcripts (
    id           BIGSERIAL         PRIMARY KEY,
    site_id      TEXT              NOT NULL,
    session_id   TEXT              NOT NULL DEFAULT '',
    text         TEXT              NOT NULL,
    likelihood   DOUBLE PRECISION  NOT NULL DEFAULT 0,
    seconds      DOUBLE PRECISION  NOT NULL DEFAULT 0,
    timestamp    TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_asr_transcripts_site_timestamp
    ON asr_transcripts (site_id, timestamp DESC);
`

// Migrate creates the journal table and its index. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlTranscripts); err != nil {
		return fmt.Errorf("journal migrate: %w", err)
	}
	return nil
}

// Store is a [journal.Journal] backed by a [pgxpool.Pool].
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, pings the server and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal store: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Append implements [journal.Journal].
func (s *Store) Append(ctx context.Context, e journal.Entry) error {
	const q = `
		INSERT INTO asr_transcripts
		    (site_id, session_id, text, likelihood, seconds, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.pool.Exec(ctx, q, e.SiteID, e.SessionID, e.Text, e.Likelihood, e.Seconds, ts)
	if err != nil {
		return fmt.Errorf("journal store: append: %w", err)
	}
	return nil
}

// Recent implements [journal.Journal].
func (s *Store) Recent(ctx context.Context, siteID string, limit int) ([]journal.Entry, error) {
	q := `
		SELECT site_id, session_id, text, likelihood, seconds, timestamp
		FROM   asr_transcripts
		WHERE  ($1 = '' OR site_id = $1)
		ORDER  BY timestamp DESC, id DESC`
	args := []any{siteID}
	if limit > 0 {
		q += "\n\t\tLIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal store: recent: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (journal.Entry, error) {
		var e journal.Entry
		err := row.Scan(&e.SiteID, &e.SessionID, &e.Text, &e.Likelihood, &e.Seconds, &e.Timestamp)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("journal store: scan rows: %w", err)
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return entries, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
