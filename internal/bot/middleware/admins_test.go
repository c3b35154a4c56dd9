package middleware_test

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/chatfeed/internal/bot/middleware"
)

type fakeAdmins struct {
	admins map[int64][]int64
	err    error
	asked  []int64
}

func (f *fakeAdmins) GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error) {
	f.asked = append(f.asked, config.ChatID)
	if f.err != nil {
		return nil, f.err
	}
	members := []tgbotapi.ChatMember{{Status: "administrator"}}
	for _, id := range f.admins[config.ChatID] {
		members = append(members, tgbotapi.ChatMember{User: &tgbotapi.User{ID: id}, Status: "administrator"})
	}
	return members, nil
}

func TestIsChatAdmin(t *testing.T) {
	api := &fakeAdmins{admins: map[int64][]int64{-100: {7, 8}}}

	tests := []struct {
		name   string
		chatID int64
		user   *tgbotapi.User
		want   bool
	}{
		{name: "admin", chatID: -100, user: &tgbotapi.User{ID: 8}, want: true},
		{name: "member", chatID: -100, user: &tgbotapi.User{ID: 9}},
		{name: "admin of another chat", chatID: -200, user: &tgbotapi.User{ID: 7}},
		{name: "no sender", chatID: -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := middleware.IsChatAdmin(api, tt.chatID, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestIsChatAdmin_LookupFails(t *testing.T) {
	api := &fakeAdmins{err: errors.New("Bad Request: chat not found")}

	ok, err := middleware.IsChatAdmin(api, -100, &tgbotapi.User{ID: 7})

	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, []int64{-100}, api.asked)
}
