// Package notifier fans a single feed entry out to every chat subscribed to the
// feed and retires subscriptions whose chats can no longer be reached.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/0x0BSoD/chatfeed/internal/model"
)

type SubscriptionStore interface {
	Subscribers(ctx context.Context, feedURL string) ([]model.Subscription, error)
	Deactivate(ctx context.Context, feedURL string, chatID int64) error
}

type Channel interface {
	Send(ctx context.Context, chatID int64, text string) model.Outcome
}

type Reporter interface {
	Notify(msg string)
}

// Result counts what happened to one entry across its subscribers.
type Result struct {
	Delivered   int
	Failed      int
	Deactivated int
	// Interrupted is set when ctx was cancelled before every activated
	// subscriber had been attempted.
	Interrupted bool
}

func (r Result) OK() bool {
	return r.Delivered > 0
}

type Notifier struct {
	subscriptions SubscriptionStore
	channel       Channel
	formatter     *Formatter
	reporter      Reporter
	log           *slog.Logger
}

func New(
	subscriptions SubscriptionStore,
	channel Channel,
	formatter *Formatter,
	reporter Reporter,
	log *slog.Logger,
) *Notifier {
	if formatter == nil {
		formatter = NewFormatter(nil, log)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		subscriptions: subscriptions,
		channel:       channel,
		formatter:     formatter,
		reporter:      reporter,
		log:           log,
	}
}

// Dispatch offers entry to every activated subscriber of feed. A cancelled ctx
// stops further sends but never interrupts the one in flight; the result is
// then marked Interrupted.
func (n *Notifier) Dispatch(ctx context.Context, feed model.Feed, entry model.Entry) Result {
	var res Result

	callCtx := context.WithoutCancel(ctx)

	subs, err := n.subscriptions.Subscribers(callCtx, feed.URL)
	if err != nil {
		n.log.Error("failed to load subscribers", "feed", feed.URL, "err", err)
		return res
	}

	active := lo.Filter(subs, func(s model.Subscription, _ int) bool { return s.Activated })
	if len(active) == 0 {
		return res
	}

	text := n.formatter.Format(callCtx, entry)

	for _, sub := range active {
		if ctx.Err() != nil {
			res.Interrupted = true
			n.log.Info("fanout interrupted", "feed", feed.URL, "link", entry.Link, "delivered", res.Delivered)
			break
		}

		outcome := n.send(callCtx, sub.ChatID, text)
		switch outcome.Status {
		case model.StatusSuccess:
			res.Delivered++
		case model.StatusPermanent:
			res.Failed++
			if n.deactivate(callCtx, sub, outcome.Err) {
				res.Deactivated++
			}
		default:
			res.Failed++
			n.log.Warn("failed to send entry, skipping chat for this cycle",
				"feed", feed.URL, "chat_id", sub.ChatID, "link", entry.Link, "err", outcome.Err)
		}
	}

	return res
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string) (outcome model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = model.Transient(fmt.Errorf("panic while sending: %v", r))
		}
	}()
	return n.channel.Send(ctx, chatID, text)
}

func (n *Notifier) deactivate(ctx context.Context, sub model.Subscription, cause error) bool {
	n.log.Error("chat is unreachable, deactivating subscription",
		"feed", sub.FeedURL, "chat_id", sub.ChatID, "err", cause)

	if err := n.subscriptions.Deactivate(ctx, sub.FeedURL, sub.ChatID); err != nil {
		n.log.Error("failed to deactivate subscription", "feed", sub.FeedURL, "chat_id", sub.ChatID, "err", err)
		return false
	}

	if n.reporter != nil {
		n.reporter.Notify(fmt.Sprintf("subscription of chat %d (%s) to %s disabled: %v",
			sub.ChatID, sub.ChatName, sub.FeedURL, cause))
	}
	return true
}
