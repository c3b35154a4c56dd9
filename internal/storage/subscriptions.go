package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/0x0BSoD/chatfeed/internal/model"
)

type SubscriptionStorage struct {
	db *sqlx.DB
}

func NewSubscriptionStorage(db *sqlx.DB) *SubscriptionStorage {
	return &SubscriptionStorage{db: db}
}

// Subscribe binds chatID to feed. The feed's cursor is created at the epoch
// on its first subscription. Re-subscribing reactivates a retired pair.
// It returns the feed as stored, whose kind stays the one of its first
// subscription, and reports false when the chat already had an active
// subscription.
func (s *SubscriptionStorage) Subscribe(ctx context.Context, feed model.Feed, chatID int64, chatName string) (model.Feed, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Feed{}, false, err
	}
	defer tx.Rollback() //nolint:errcheck

	kind := feed.Kind
	if kind == "" {
		kind = model.FeedGeneric
	}

	stored := dbFeed{URL: feed.URL}
	if err := tx.QueryRowxContext(ctx,
		`INSERT INTO feeds (url, kind) VALUES ($1, $2)
		 ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
		 RETURNING kind`,
		feed.URL, string(kind)).Scan(&stored.Kind); err != nil {
		return model.Feed{}, false, fmt.Errorf("insert feed: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO subscriptions (feed_url, chat_id, chat_name) VALUES ($1, $2, $3)
		 ON CONFLICT (feed_url, chat_id) DO UPDATE
		 SET activated = TRUE, chat_name = EXCLUDED.chat_name
		 WHERE NOT subscriptions.activated`,
		feed.URL, chatID, chatName)
	if err != nil {
		return model.Feed{}, false, fmt.Errorf("insert subscription: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return model.Feed{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return model.Feed{}, false, err
	}
	return stored.toModel(), affected > 0, nil
}

func (s *SubscriptionStorage) Subscribers(ctx context.Context, feedURL string) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := s.db.SelectContext(ctx, &subs,
		`SELECT feed_url, chat_id, chat_name, activated, created_at
		 FROM subscriptions WHERE feed_url = $1 ORDER BY created_at`, feedURL); err != nil {
		return nil, err
	}
	return subs, nil
}

// Deactivate retires the (feedURL, chatID) pair only; the chat's other
// subscriptions are untouched.
func (s *SubscriptionStorage) Deactivate(ctx context.Context, feedURL string, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET activated = FALSE WHERE feed_url = $1 AND chat_id = $2`,
		feedURL, chatID)
	return err
}

// ChatSubscriptions lists the active subscriptions of chatID.
func (s *SubscriptionStorage) ChatSubscriptions(ctx context.Context, chatID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := s.db.SelectContext(ctx, &subs,
		`SELECT feed_url, chat_id, chat_name, activated, created_at
		 FROM subscriptions WHERE chat_id = $1 AND activated ORDER BY feed_url`, chatID); err != nil {
		return nil, err
	}
	return subs, nil
}

