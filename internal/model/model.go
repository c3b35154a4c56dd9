// Package model defines the data structures shared by the feed relay: feeds and
// their entries, the per-feed delivery cursor, chat subscriptions and the
// classified outcome of a single message send.
package model

import "time"

type FeedKind string

const (
	FeedGeneric FeedKind = "generic"
	FeedDigest  FeedKind = "digest"
)

type Feed struct {
	URL  string
	Kind FeedKind
}

func (f Feed) IsDigest() bool {
	return f.Kind == FeedDigest
}

// FeedCursor is the persisted position of the newest entry delivered for a feed.
// The zero value is the initial cursor of a freshly subscribed feed.
type FeedCursor struct {
	FeedURL      string    `db:"url"`
	LastSeenTime time.Time `db:"last_seen_time"`
	LastSeenLink string    `db:"last_seen_link"`
}

func NewFeedCursor(feedURL string) FeedCursor {
	return FeedCursor{FeedURL: feedURL, LastSeenTime: time.Unix(0, 0).UTC()}
}

// Subscription binds one chat to one feed. Activation is scoped to the pair.
type Subscription struct {
	FeedURL   string    `db:"feed_url"`
	ChatID    int64     `db:"chat_id"`
	ChatName  string    `db:"chat_name"`
	Activated bool      `db:"activated"`
	CreatedAt time.Time `db:"created_at"`
}

type Entry struct {
	Published time.Time
	Link      string
	Title     string
	RichBody  string
	Digest    bool
}

type Status uint8

const (
	StatusSuccess Status = iota
	StatusTransient
	StatusPermanent
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTransient:
		return "transient"
	case StatusPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of sending one message to one chat.
type Outcome struct {
	Status Status
	Err    error
}

func Delivered() Outcome {
	return Outcome{Status: StatusSuccess}
}

func Transient(err error) Outcome {
	return Outcome{Status: StatusTransient, Err: err}
}

func Permanent(err error) Outcome {
	return Outcome{Status: StatusPermanent, Err: err}
}
