package middleware

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestShorten(t *testing.T) {
	assert.Equal(t, "привет", shorten("привет"))

	long := strings.Repeat("я", 60)
	got := shorten(long)
	assert.Equal(t, strings.Repeat("я", maxLoggedText)+"...", got)
}

func TestLoggersTolerateNil(t *testing.T) {
	assert.NotPanics(t, func() {
		LogMessage(nil)
		LogMessage(&tgbotapi.Message{Text: "без чата"})
		LogMessage(&tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "без отправителя"})
		LogCallback(nil)
		LogCallback(&tgbotapi.CallbackQuery{Data: "add:1"})
	})
}

func TestRecoverFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverFromPanic(7)
		panic("boom")
	})
}
