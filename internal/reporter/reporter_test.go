package reporter_test

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/chatfeed/internal/reporter"
)

type recordingSender struct {
	sent []tgbotapi.MessageConfig
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.sent = append(r.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestReporter_Notify(t *testing.T) {
	sender := &recordingSender{}

	reporter.New(sender, 99).Notify("feed disabled")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(99), sender.sent[0].ChatID)
	assert.Equal(t, "feed disabled", sender.sent[0].Text)
}

func TestReporter_NotifyDisabled(t *testing.T) {
	sender := &recordingSender{}

	reporter.New(sender, 0).Notify("ignored")

	var nilReporter *reporter.Reporter
	nilReporter.Notify("ignored")

	assert.Empty(t, sender.sent)
}
