package bot

import (
	"context"
	"errors"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/0x0BSoD/chatfeed/internal/botkit"
	"github.com/0x0BSoD/chatfeed/internal/model"
)

const removeURLUsage = "Usage:\n<code>/removeurl url</code>\n<code>/removeurl @chat url</code>"

type Unsubscriber interface {
	ChatSubscriptions(ctx context.Context, chatID int64) ([]model.Subscription, error)
	Deactivate(ctx context.Context, feedURL string, chatID int64) error
}

func ViewCmdRemoveURL(storage Unsubscriber) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		msg := update.Message

		args, err := parseURLArgs(msg.CommandArguments())
		if err != nil {
			return reply(bot, msg.Chat.ID, removeURLUsage)
		}

		chatID, name, err := resolveChat(bot, msg, args.ChatName)
		if errors.Is(err, errNotChatAdmin) {
			return reply(bot, msg.Chat.ID, fmt.Sprintf(
				"Only administrators of %s can change its subscriptions.", html.EscapeString(args.ChatName)))
		}
		if err != nil {
			return reply(bot, msg.Chat.ID, fmt.Sprintf("I don't know chat %s.", html.EscapeString(args.ChatName)))
		}

		subs, err := storage.ChatSubscriptions(ctx, chatID)
		if err != nil {
			return err
		}

		if !lo.ContainsBy(subs, func(s model.Subscription) bool { return s.FeedURL == args.URL }) {
			return reply(bot, msg.Chat.ID, fmt.Sprintf(
				"%s is not in the subscriptions of %s. Check them with /listurl.",
				html.EscapeString(args.URL), html.EscapeString(name)))
		}

		if err := storage.Deactivate(ctx, args.URL, chatID); err != nil {
			return err
		}

		return reply(bot, msg.Chat.ID, fmt.Sprintf("Removed %s from the subscriptions of %s.",
			html.EscapeString(args.URL), html.EscapeString(name)))
	}
}
