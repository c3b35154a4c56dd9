package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/0x0BSoD/chatfeed/internal/botkit"
	"github.com/0x0BSoD/chatfeed/internal/model"
)

type SubscriptionLister interface {
	ChatSubscriptions(ctx context.Context, chatID int64) ([]model.Subscription, error)
}

type CursorLister interface {
	Cursors(ctx context.Context) ([]model.FeedCursor, error)
}

func ViewCmdListURL(storage SubscriptionLister) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		subs, err := storage.ChatSubscriptions(ctx, update.Message.Chat.ID)
		if err != nil {
			return err
		}

		return reply(bot, update.Message.Chat.ID, formatSubscriptions(subs))
	}
}

// ViewCmdAllURL shows every relayed feed with its delivery cursor.
func ViewCmdAllURL(storage CursorLister) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		cursors, err := storage.Cursors(ctx)
		if err != nil {
			return err
		}

		return reply(bot, update.Message.Chat.ID, formatCursors(cursors))
	}
}

func formatSubscriptions(subs []model.Subscription) string {
	if len(subs) == 0 {
		return "There are no subscriptions in this chat."
	}

	var b strings.Builder
	b.WriteString("Subscriptions of this chat:\n")
	for _, s := range subs {
		fmt.Fprintf(&b, "\n<code>/removeurl %s</code>", html.EscapeString(s.FeedURL))
	}
	return b.String()
}

func formatCursors(cursors []model.FeedCursor) string {
	if len(cursors) == 0 {
		return "No feeds are relayed."
	}

	var b strings.Builder
	for i, c := range cursors {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "url: <code>%s</code>\nlast_update: %s\nlast_url: <code>%s</code>",
			html.EscapeString(c.FeedURL),
			c.LastSeenTime.UTC().Format(time.RFC3339),
			html.EscapeString(c.LastSeenLink))
	}
	return b.String()
}
