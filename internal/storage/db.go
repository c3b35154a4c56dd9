// Package storage keeps feed cursors and chat subscriptions in PostgreSQL.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS feeds (
    url            TEXT PRIMARY KEY,
    kind           TEXT NOT NULL DEFAULT 'generic',
    last_seen_time TIMESTAMPTZ NOT NULL DEFAULT to_timestamp(0),
    last_seen_link TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subscriptions (
    feed_url   TEXT NOT NULL REFERENCES feeds (url) ON DELETE CASCADE,
    chat_id    BIGINT NOT NULL,
    chat_name  TEXT NOT NULL DEFAULT '',
    activated  BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (feed_url, chat_id)
);

CREATE INDEX IF NOT EXISTS subscriptions_chat_id_idx ON subscriptions (chat_id);
`

// Connect opens dsn, retrying with exponential backoff until maxWait elapses,
// and makes sure the schema exists.
func Connect(ctx context.Context, dsn string, maxWait time.Duration) (*sqlx.DB, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = maxWait

	var db *sqlx.DB
	connect := func() error {
		var err error
		db, err = sqlx.ConnectContext(ctx, "postgres", dsn)
		if err != nil {
			slog.Warn("database not ready", "err", err)
		}
		return err
	}

	if err := backoff.Retry(connect, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
