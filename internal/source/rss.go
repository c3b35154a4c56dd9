// Package source fetches RSS/Atom feeds and turns their items into relay entries.
package source

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/samber/lo"

	"github.com/0x0BSoD/chatfeed/internal/model"
)

// FetchError reports a feed that could not be downloaded or parsed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// contextTransport injects a context into every outgoing request so that
// context cancellation and deadlines propagate through the rss library.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

type RSSSource struct {
	// Limit keeps only the newest Limit items of a fetch. Zero keeps all.
	Limit   int
	Timeout time.Duration

	load func(ctx context.Context, url string) (*rss.Feed, error)
}

func NewRSSSource(limit int, timeout time.Duration) *RSSSource {
	s := &RSSSource{Limit: limit, Timeout: timeout}
	s.load = s.loadFeed
	return s
}

// Fetch returns the entries of feed published at or after since, oldest first.
func (s *RSSSource) Fetch(ctx context.Context, feed model.Feed, since time.Time) ([]model.Entry, error) {
	parsed, err := s.load(ctx, feed.URL)
	if err != nil {
		return nil, &FetchError{URL: feed.URL, Err: err}
	}

	return s.entries(feed, parsed.Items, since), nil
}

func (s *RSSSource) entries(feed model.Feed, items []*rss.Item, since time.Time) []model.Entry {
	dated := lo.Filter(items, func(item *rss.Item, _ int) bool {
		return item != nil && !item.Date.IsZero() && !item.Date.Before(since)
	})

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Date.Before(dated[j].Date)
	})

	if s.Limit > 0 && len(dated) > s.Limit {
		dated = dated[len(dated)-s.Limit:]
	}

	return lo.Map(dated, func(item *rss.Item, _ int) model.Entry {
		entry := model.Entry{
			Published: item.Date.UTC(),
			Link:      strings.TrimSpace(item.Link),
			Title:     strings.TrimSpace(item.Title),
		}
		if feed.IsDigest() {
			entry.Digest = true
			entry.RichBody = itemText(item)
		}
		return entry
	})
}

// itemText returns the richest available text for an item.
// Content (full body) is preferred over Summary (short excerpt).
func itemText(item *rss.Item) string {
	if c := strings.TrimSpace(item.Content); c != "" {
		return c
	}
	return strings.TrimSpace(item.Summary)
}

func (s *RSSSource) loadFeed(ctx context.Context, url string) (*rss.Feed, error) {
	client := &http.Client{
		Transport: contextTransport{ctx: ctx, base: http.DefaultTransport},
		Timeout:   s.Timeout,
	}
	return rss.FetchByClient(url, client)
}

// Probe checks that url serves a parsable feed.
func Probe(url string, timeout time.Duration) error {
	if _, err := rss.FetchByClient(url, &http.Client{Timeout: timeout}); err != nil {
		return &FetchError{URL: url, Err: err}
	}
	return nil
}
