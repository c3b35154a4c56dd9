package telegram_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/chatfeed/internal/model"
	"github.com/0x0BSoD/chatfeed/internal/telegram"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected model.Status
	}{
		{
			name:     "no error",
			expected: model.StatusSuccess,
		},
		{
			name:     "network error",
			err:      errors.New("dial tcp: i/o timeout"),
			expected: model.StatusTransient,
		},
		{
			name:     "blocked by user",
			err:      &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"},
			expected: model.StatusPermanent,
		},
		{
			name:     "wrapped kicked from group",
			err:      fmt.Errorf("send: %w", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was kicked from the group chat"}),
			expected: model.StatusPermanent,
		},
		{
			name: "group migrated",
			err: &tgbotapi.Error{
				Code:               400,
				Message:            "Bad Request: group chat was upgraded to a supergroup chat",
				ResponseParameters: tgbotapi.ResponseParameters{MigrateToChatID: -100123},
			},
			expected: model.StatusPermanent,
		},
		{
			name: "rate limited",
			err: &tgbotapi.Error{
				Code:               429,
				Message:            "Too Many Requests: retry after 5",
				ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 5},
			},
			expected: model.StatusTransient,
		},
		{
			name:     "server error",
			err:      &tgbotapi.Error{Code: 502, Message: "Bad Gateway"},
			expected: model.StatusTransient,
		},
		{
			name:     "malformed message",
			err:      &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"},
			expected: model.StatusTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := telegram.Classify(tt.err)
			assert.Equal(t, tt.expected, outcome.Status)
			assert.Equal(t, tt.err, outcome.Err)
		})
	}
}

type fakeSender struct {
	sent    []tgbotapi.MessageConfig
	err     error
	chatErr error
	lookups []int64
}

func (f *fakeSender) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	f.lookups = append(f.lookups, config.ChatID)
	if f.chatErr != nil {
		return tgbotapi.Chat{}, f.chatErr
	}
	return tgbotapi.Chat{ID: config.ChatID}, nil
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestChannel_Send(t *testing.T) {
	sender := &fakeSender{}
	ch := telegram.NewChannel(sender, 0)

	outcome := ch.Send(context.Background(), 42, "<b>hello</b>")

	assert.Equal(t, model.StatusSuccess, outcome.Status)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, "<b>hello</b>", sender.sent[0].Text)
	assert.Equal(t, "HTML", sender.sent[0].ParseMode)
}

func TestChannel_SendPermanent(t *testing.T) {
	ch := telegram.NewChannel(&fakeSender{err: &tgbotapi.Error{Code: 403, Message: "Forbidden"}}, 10)

	outcome := ch.Send(context.Background(), 42, "text")

	assert.Equal(t, model.StatusPermanent, outcome.Status)
}

func TestChannel_SendCancelledWhileWaiting(t *testing.T) {
	sender := &fakeSender{}
	ch := telegram.NewChannel(sender, 1)

	require.Equal(t, model.StatusSuccess, ch.Send(context.Background(), 1, "first").Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := ch.Send(ctx, 1, "second")

	assert.Equal(t, model.StatusTransient, outcome.Status)
	assert.Len(t, sender.sent, 1)
}

func TestChannel_SendBadRequestChecksChat(t *testing.T) {
	badRequest := &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}

	tests := []struct {
		name     string
		sendErr  error
		chatErr  error
		expected model.Status
		lookedUp bool
	}{
		{
			name:     "chat lookup rejected",
			sendErr:  badRequest,
			chatErr:  &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"},
			expected: model.StatusPermanent,
			lookedUp: true,
		},
		{
			name:     "chat lookup forbidden",
			sendErr:  badRequest,
			chatErr:  &tgbotapi.Error{Code: 403, Message: "Forbidden: bot is not a member of the channel chat"},
			expected: model.StatusPermanent,
			lookedUp: true,
		},
		{
			name:     "chat exists",
			sendErr:  &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"},
			expected: model.StatusTransient,
			lookedUp: true,
		},
		{
			name:     "chat lookup unreachable",
			sendErr:  badRequest,
			chatErr:  errors.New("dial tcp: i/o timeout"),
			expected: model.StatusTransient,
			lookedUp: true,
		},
		{
			name:     "server error",
			sendErr:  &tgbotapi.Error{Code: 502, Message: "Bad Gateway"},
			expected: model.StatusTransient,
		},
		{
			name: "rate limited",
			sendErr: &tgbotapi.Error{
				Code:               400,
				Message:            "Bad Request: retry later",
				ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 3},
			},
			expected: model.StatusTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{err: tt.sendErr, chatErr: tt.chatErr}

			outcome := telegram.NewChannel(sender, 0).Send(context.Background(), 42, "text")

			assert.Equal(t, tt.expected, outcome.Status)
			assert.Equal(t, tt.sendErr, outcome.Err)
			if tt.lookedUp {
				assert.Equal(t, []int64{42}, sender.lookups)
			} else {
				assert.Empty(t, sender.lookups)
			}
		})
	}
}
