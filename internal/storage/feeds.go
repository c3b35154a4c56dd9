package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/0x0BSoD/chatfeed/internal/model"
)

type FeedStorage struct {
	db *sqlx.DB
}

func NewFeedStorage(db *sqlx.DB) *FeedStorage {
	return &FeedStorage{db: db}
}

type dbFeed struct {
	URL          string    `db:"url"`
	Kind         string    `db:"kind"`
	LastSeenTime time.Time `db:"last_seen_time"`
	LastSeenLink string    `db:"last_seen_link"`
}

// Cursor returns the stored cursor of feedURL. Unknown feeds get the initial
// cursor.
func (s *FeedStorage) Cursor(ctx context.Context, feedURL string) (model.FeedCursor, error) {
	var cursor model.FeedCursor
	err := s.db.GetContext(ctx, &cursor,
		`SELECT url, last_seen_time, last_seen_link FROM feeds WHERE url = $1`, feedURL)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewFeedCursor(feedURL), nil
	}
	if err != nil {
		return model.FeedCursor{}, err
	}

	cursor.LastSeenTime = cursor.LastSeenTime.UTC()
	return cursor, nil
}

// SetCursor moves the cursor of feedURL. A position older than the stored one
// is ignored.
func (s *FeedStorage) SetCursor(ctx context.Context, feedURL string, at time.Time, link string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET last_seen_time = $2, last_seen_link = $3
		 WHERE url = $1 AND last_seen_time <= $2`,
		feedURL, at.UTC(), link)
	return err
}

// ActiveFeeds lists the feeds that have at least one activated subscription.
func (s *FeedStorage) ActiveFeeds(ctx context.Context) ([]model.Feed, error) {
	var feeds []dbFeed
	if err := s.db.SelectContext(ctx, &feeds,
		`SELECT f.url, f.kind, f.last_seen_time, f.last_seen_link
		 FROM feeds f
		 WHERE EXISTS (SELECT 1 FROM subscriptions s WHERE s.feed_url = f.url AND s.activated)
		 ORDER BY f.url`); err != nil {
		return nil, err
	}

	return lo.Map(feeds, func(f dbFeed, _ int) model.Feed { return f.toModel() }), nil
}

// Cursors lists every feed with an activated subscription together with its cursor.
func (s *FeedStorage) Cursors(ctx context.Context) ([]model.FeedCursor, error) {
	var cursors []model.FeedCursor
	if err := s.db.SelectContext(ctx, &cursors,
		`SELECT f.url, f.last_seen_time, f.last_seen_link
		 FROM feeds f
		 WHERE EXISTS (SELECT 1 FROM subscriptions s WHERE s.feed_url = f.url AND s.activated)
		 ORDER BY f.url`); err != nil {
		return nil, err
	}
	return cursors, nil
}

func (f dbFeed) toModel() model.Feed {
	kind := model.FeedKind(f.Kind)
	if kind != model.FeedDigest {
		kind = model.FeedGeneric
	}
	return model.Feed{URL: f.URL, Kind: kind}
}
