// Package filters решает, какие сообщения бот обрабатывает.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// UserRegistrar создаёт строку пользователя при первом обращении.
type UserRegistrar interface {
	EnsureUser(ctx context.Context, userID int64) bool
}

// ChatFilter пропускает только личные сообщения от людей.
type ChatFilter struct {
	users UserRegistrar // nil — магазин выключен, регистрировать некого
}

func NewChatFilter(users UserRegistrar) *ChatFilter {
	return &ChatFilter{users: users}
}

// CheckAccess проверяет сообщение и регистрирует отправителя.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil || message.From.IsBot {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
		}).Debug("deny: нет отправителя или отправитель бот")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	})

	if !message.Chat.IsPrivate() {
		logger.Debug("deny: не личный чат")
		return false
	}

	return f.ensure(ctx, message.From.ID, logger)
}

// CheckCallback регистрирует автора нажатия кнопки.
func (f *ChatFilter) CheckCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) bool {
	if cq == nil || cq.From == nil {
		return false
	}
	logger := log.WithFields(log.Fields{"component": "ChatFilter", "user_id": cq.From.ID})
	return f.ensure(ctx, cq.From.ID, logger)
}

func (f *ChatFilter) ensure(ctx context.Context, userID int64, logger *log.Entry) bool {
	if f.users == nil {
		return true
	}
	if !f.users.EnsureUser(ctx, userID) {
		// Без строки пользователя магазин работать не сможет
		logger.Error("deny: не удалось зарегистрировать пользователя")
		return false
	}
	return true
}
