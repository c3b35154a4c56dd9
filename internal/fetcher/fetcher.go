// Package fetcher runs poll cycles: every feed is fetched, its new entries are
// selected against the stored cursor and handed to the notifier one by one.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0x0BSoD/chatfeed/internal/model"
	"github.com/0x0BSoD/chatfeed/internal/notifier"
)

const defaultWorkers = 2

type CursorStore interface {
	Cursor(ctx context.Context, feedURL string) (model.FeedCursor, error)
	SetCursor(ctx context.Context, feedURL string, at time.Time, link string) error
}

type Source interface {
	Fetch(ctx context.Context, feed model.Feed, since time.Time) ([]model.Entry, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, feed model.Feed, entry model.Entry) notifier.Result
}

type FeedReport struct {
	FeedURL     string
	Delivered   int
	Deactivated int
	// Skipped is set when the feed was not fully processed because the
	// cycle was stopped.
	Skipped bool
	Err     error
}

type CycleReport struct {
	Count    int
	Duration time.Duration
	Feeds    []FeedReport
}

type Fetcher struct {
	cursors    CursorStore
	source     Source
	dispatcher Dispatcher
	log        *slog.Logger

	workers  int
	lookback time.Duration

	mu      sync.Mutex
	stopped bool
	cycles  map[int]context.CancelFunc
	nextID  int
}

func New(
	cursors CursorStore,
	source Source,
	dispatcher Dispatcher,
	workers int,
	lookback time.Duration,
	log *slog.Logger,
) *Fetcher {
	if workers < 1 {
		workers = defaultWorkers
	}
	if log == nil {
		log = slog.Default()
	}

	return &Fetcher{
		cursors:    cursors,
		source:     source,
		dispatcher: dispatcher,
		log:        log,
		workers:    workers,
		lookback:   lookback,
		cycles:     make(map[int]context.CancelFunc),
	}
}

// Stop asks running and future cycles to stop picking up new work. Calls that
// are already in flight are allowed to finish.
func (f *Fetcher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = true
	for _, cancel := range f.cycles {
		cancel()
	}
}

func (f *Fetcher) track(cancel context.CancelFunc) (untrack func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		cancel()
		return func() {}
	}

	id := f.nextID
	f.nextID++
	f.cycles[id] = cancel

	return func() {
		f.mu.Lock()
		delete(f.cycles, id)
		f.mu.Unlock()
	}
}

// RunCycle processes every feed once and blocks until all of them are done.
func (f *Fetcher) RunCycle(ctx context.Context, feeds []model.Feed) CycleReport {
	started := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer f.track(cancel)()

	report := CycleReport{Count: len(feeds), Feeds: make([]FeedReport, len(feeds))}

	if ctx.Err() != nil {
		for i, feed := range feeds {
			report.Feeds[i] = FeedReport{FeedURL: feed.URL, Skipped: true}
		}
		report.Duration = time.Since(started)
		f.log.Info("cycle stopped before start", "feeds", len(feeds))
		return report
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < min(f.workers, len(feeds)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Feeds[i] = f.processFeed(ctx, feeds[i])
			}
		}()
	}

	for i := range feeds {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(started)
	f.log.Info("finished cycle", "feeds", report.Count, "duration", report.Duration)

	return report
}

func (f *Fetcher) processFeed(ctx context.Context, feed model.Feed) (rep FeedReport) {
	rep.FeedURL = feed.URL

	defer func() {
		if r := recover(); r != nil {
			rep.Err = fmt.Errorf("panic while processing feed: %v", r)
			f.log.Error("feed processing panicked", "feed", feed.URL, "panic", r)
		}
	}()

	if ctx.Err() != nil {
		rep.Skipped = true
		return rep
	}

	// Blocking calls are not interrupted by Stop, only the checks between them.
	callCtx := context.WithoutCancel(ctx)

	cursor, err := f.cursors.Cursor(callCtx, feed.URL)
	if err != nil {
		rep.Err = fmt.Errorf("load cursor: %w", err)
		f.log.Error("failed to load cursor", "feed", feed.URL, "err", err)
		return rep
	}

	entries, err := f.source.Fetch(callCtx, feed, since(cursor, f.lookback))
	if err != nil {
		rep.Err = err
		f.log.Error("failed to fetch feed", "feed", feed.URL, "err", err)
		return rep
	}

	for _, decision := range Select(cursor, entries) {
		if !decision.ShouldDeliver {
			continue
		}
		if ctx.Err() != nil {
			rep.Skipped = true
			return rep
		}

		entry := decision.Entry
		res := f.dispatcher.Dispatch(ctx, feed, entry)
		rep.Delivered += res.Delivered
		rep.Deactivated += res.Deactivated

		if res.Interrupted {
			// Chats that were not reached get the entry next cycle.
			rep.Skipped = true
			return rep
		}
		if !res.OK() {
			// Left for the next cycle, together with everything newer.
			f.log.Warn("entry not delivered to any chat",
				"feed", feed.URL, "link", entry.Link, "failed", res.Failed)
			return rep
		}

		if err := f.cursors.SetCursor(callCtx, feed.URL, entry.Published, entry.Link); err != nil {
			rep.Err = fmt.Errorf("store cursor: %w", err)
			f.log.Error("failed to store cursor", "feed", feed.URL, "link", entry.Link, "err", err)
			return rep
		}
		cursor.LastSeenTime, cursor.LastSeenLink = entry.Published, entry.Link
	}

	return rep
}
