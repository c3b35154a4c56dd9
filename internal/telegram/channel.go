// Package telegram delivers relay messages through the Telegram bot API and
// classifies every failure as transient or permanent for the caller.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/0x0BSoD/chatfeed/internal/model"
)

const parseModeHTML = "HTML"

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

type Channel struct {
	bot     Sender
	limiter *rate.Limiter
}

// NewChannel sends through bot at no more than perSecond messages per second.
// A non-positive perSecond disables limiting.
func NewChannel(bot Sender, perSecond int) *Channel {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Every(time.Second / time.Duration(perSecond))
	}
	return &Channel{bot: bot, limiter: rate.NewLimiter(limit, 1)}
}

func (c *Channel) Send(ctx context.Context, chatID int64, text string) model.Outcome {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Transient(fmt.Errorf("wait for send slot: %w", err))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseModeHTML

	if _, err := c.bot.Send(msg); err != nil {
		outcome := Classify(err)
		if outcome.Status == model.StatusTransient && c.chatGone(chatID, err) {
			return model.Permanent(err)
		}
		return outcome
	}
	return model.Delivered()
}

// chatGone confirms a bare bad request by looking the chat up: when the bot API
// refuses to describe the chat as well, the bot can never post there again.
func (c *Channel) chatGone(chatID int64, sendErr error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(sendErr, &apiErr) || apiErr.Code != http.StatusBadRequest {
		return false
	}
	if apiErr.MigrateToChatID != 0 || apiErr.RetryAfter != 0 {
		return false
	}

	_, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden
}

// Classify maps a bot API error to an outcome. Only answers that say the chat
// itself is gone for the bot are permanent.
func Classify(err error) model.Outcome {
	if err == nil {
		return model.Delivered()
	}

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return model.Transient(err)
	}

	switch {
	case apiErr.Code == http.StatusForbidden:
		// bot was blocked, kicked, or is no longer a member of the chat
		return model.Permanent(err)
	case apiErr.MigrateToChatID != 0:
		// the group became a supergroup under a new id
		return model.Permanent(err)
	default:
		return model.Transient(err)
	}
}
