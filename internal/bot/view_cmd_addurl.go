package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/0x0BSoD/chatfeed/internal/botkit"
	"github.com/0x0BSoD/chatfeed/internal/model"
	"github.com/0x0BSoD/chatfeed/internal/source"
)

const feedProbeTimeout = 15 * time.Second

const addURLUsage = "Usage:\n<code>/addurl url</code>\n<code>/addurl @chat url</code>\n" +
	"Append <code>digest</code> to relay only the newest item with its full text."

type Subscriber interface {
	Subscribe(ctx context.Context, feed model.Feed, chatID int64, chatName string) (model.Feed, bool, error)
}

func ViewCmdAddURL(storage Subscriber) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		msg := update.Message

		args, err := parseURLArgs(msg.CommandArguments())
		if err != nil {
			return reply(bot, msg.Chat.ID, addURLUsage)
		}

		chatID, name, err := resolveChat(bot, msg, args.ChatName)
		if errors.Is(err, errNotChatAdmin) {
			return reply(bot, msg.Chat.ID, fmt.Sprintf(
				"Only administrators of %s can change its subscriptions.", html.EscapeString(args.ChatName)))
		}
		if err != nil {
			return reply(bot, msg.Chat.ID, fmt.Sprintf("I don't have access to chat %s.", html.EscapeString(args.ChatName)))
		}

		if err := source.Probe(args.URL, feedProbeTimeout); err != nil {
			return reply(bot, msg.Chat.ID, fmt.Sprintf(
				"Sorry, %s doesn't look like an RSS feed.", html.EscapeString(args.URL)))
		}

		stored, created, err := storage.Subscribe(ctx, model.Feed{URL: args.URL, Kind: args.Kind}, chatID, name)
		if err != nil {
			return err
		}

		return reply(bot, msg.Chat.ID, addURLReply(args, name, stored, created))
	}
}

func addURLReply(args urlArgs, chatName string, stored model.Feed, created bool) string {
	url, name := html.EscapeString(args.URL), html.EscapeString(chatName)

	text := fmt.Sprintf("Added %s to the subscriptions of %s.", url, name)
	if !created {
		text = fmt.Sprintf("%s is already in the subscriptions of %s.", url, name)
	}
	if stored.Kind != args.Kind {
		text += fmt.Sprintf(" The feed is relayed as <code>%s</code> for every chat, not as <code>%s</code>.",
			stored.Kind, args.Kind)
	}
	return text
}
