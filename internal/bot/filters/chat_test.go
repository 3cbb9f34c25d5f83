package filters

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

type fakeRegistrar struct {
	ok   bool
	seen []int64
}

func (f *fakeRegistrar) EnsureUser(_ context.Context, userID int64) bool {
	f.seen = append(f.seen, userID)
	return f.ok
}

func privateMessage(userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
		Text: "привет",
	}
}

func TestCheckAccess(t *testing.T) {
	ctx := context.Background()
	reg := &fakeRegistrar{ok: true}
	f := NewChatFilter(reg)

	assert.True(t, f.CheckAccess(ctx, privateMessage(42)))
	assert.Equal(t, []int64{42}, reg.seen)

	group := privateMessage(43)
	group.Chat = &tgbotapi.Chat{ID: -100, Type: "supergroup"}
	assert.False(t, f.CheckAccess(ctx, group))

	botMsg := privateMessage(44)
	botMsg.From.IsBot = true
	assert.False(t, f.CheckAccess(ctx, botMsg))

	assert.False(t, f.CheckAccess(ctx, nil))
	assert.False(t, f.CheckAccess(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1, Type: "private"}}))

	assert.Equal(t, []int64{42}, reg.seen)
}

func TestCheckAccessRegistrationFailure(t *testing.T) {
	f := NewChatFilter(&fakeRegistrar{ok: false})
	assert.False(t, f.CheckAccess(context.Background(), privateMessage(42)))
}

func TestCheckAccessWithoutRegistrar(t *testing.T) {
	f := NewChatFilter(nil)
	assert.True(t, f.CheckAccess(context.Background(), privateMessage(42)))
	assert.True(t, f.CheckCallback(context.Background(), &tgbotapi.CallbackQuery{From: &tgbotapi.User{ID: 42}}))
	assert.False(t, f.CheckCallback(context.Background(), &tgbotapi.CallbackQuery{}))
}
