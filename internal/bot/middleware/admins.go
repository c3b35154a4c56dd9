package middleware

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/0x0BSoD/chatfeed/internal/botkit"
)

type AdminLister interface {
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
}

// IsChatAdmin reports whether user administers chatID.
func IsChatAdmin(api AdminLister, chatID int64, user *tgbotapi.User) (bool, error) {
	if user == nil {
		return false, nil
	}

	admins, err := api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return false, err
	}

	for _, admin := range admins {
		if admin.User != nil && admin.User.ID == user.ID {
			return true, nil
		}
	}
	return false, nil
}

// AdminsOnlyInGroups lets everyone through in private chats and only chat
// administrators in groups and channels.
func AdminsOnlyInGroups(next botkit.ViewFunc) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if update.Message.Chat.IsPrivate() {
			return next(ctx, bot, update)
		}

		ok, err := IsChatAdmin(bot, update.Message.Chat.ID, update.Message.From)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return next(ctx, bot, update)
	}
}

// ChatOnly lets through commands sent from chatID.
func ChatOnly(chatID int64, next botkit.ViewFunc) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if chatID == 0 || update.Message.Chat.ID != chatID {
			return nil
		}
		return next(ctx, bot, update)
	}
}
