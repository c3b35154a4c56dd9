package bot

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/0x0BSoD/chatfeed/internal/bot/middleware"
	"github.com/0x0BSoD/chatfeed/internal/model"
)

const parseModeHTML = "HTML"

var (
	errUsage        = errors.New("bad arguments")
	errNotChatAdmin = errors.New("caller is not an administrator of the chat")
)

type urlArgs struct {
	ChatName string
	URL      string
	Kind     model.FeedKind
}

// parseURLArgs accepts "[@chat] <url> [digest]".
func parseURLArgs(raw string) (urlArgs, error) {
	fields := strings.Fields(raw)

	args := urlArgs{Kind: model.FeedGeneric}
	if n := len(fields); n > 0 && strings.EqualFold(fields[n-1], string(model.FeedDigest)) {
		args.Kind = model.FeedDigest
		fields = fields[:n-1]
	}

	switch len(fields) {
	case 1:
		args.URL = fields[0]
	case 2:
		if !strings.HasPrefix(fields[0], "@") {
			return urlArgs{}, errUsage
		}
		args.ChatName, args.URL = fields[0], fields[1]
	default:
		return urlArgs{}, errUsage
	}

	normalized, err := normalizeURL(args.URL)
	if err != nil {
		return urlArgs{}, err
	}
	args.URL = normalized

	return args, nil
}

func normalizeURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%q is not a valid url", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// chatName picks the most readable name of the chat a command came from.
func chatName(msg *tgbotapi.Message) string {
	switch {
	case msg.Chat.UserName != "":
		return "@" + msg.Chat.UserName
	case msg.Chat.Title != "":
		return msg.Chat.Title
	case msg.From != nil:
		return msg.From.FirstName
	default:
		return ""
	}
}

type chatResolver interface {
	middleware.AdminLister
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// resolveChat returns the chat the command targets: the named one when given,
// otherwise the chat the command was sent in. A named chat is only returned to
// its administrators.
func resolveChat(api chatResolver, msg *tgbotapi.Message, name string) (int64, string, error) {
	if name == "" {
		return msg.Chat.ID, chatName(msg), nil
	}

	chat, err := api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: name},
	})
	if err != nil {
		return 0, "", err
	}

	ok, err := middleware.IsChatAdmin(api, chat.ID, msg.From)
	if err != nil {
		return 0, "", fmt.Errorf("list administrators of %s: %w", name, err)
	}
	if !ok {
		return 0, "", errNotChatAdmin
	}
	return chat.ID, name, nil
}

func reply(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseModeHTML
	_, err := bot.Send(msg)
	return err
}
