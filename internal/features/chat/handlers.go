// Package chat — handlers.go обрабатывает /clear и свободный текст.
package chat

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gamestore-bot/internal/common"
)

// Handler передаёт сообщения пользователя модели.
type Handler struct {
	service *Service
	bot     common.Sender
}

func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleClear обрабатывает /clear.
func (h *Handler) HandleClear(ctx context.Context, chatID, userID int64) {
	if err := h.service.Clear(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка очистки контекста")
		h.sendMessage(chatID, "❌ Не удалось очистить контекст")
		return
	}
	h.sendMessage(chatID, "🧹 Контекст очищен")
}

// HandleText отвечает на обычное сообщение. Пока модель думает, в чате висит «печатает…».
func (h *Handler) HandleText(ctx context.Context, chatID, userID int64, text string) {
	if _, err := h.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Debug("Не удалось отправить typing")
	}

	answer, err := h.service.Chat(ctx, userID, text)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка ответа модели")
		h.sendMessage(chatID, "⚠️ Не получилось получить ответ, попробуйте ещё раз")
		return
	}
	if answer == "" {
		answer = "🤷"
	}
	h.sendMessage(chatID, answer)
}

// sendMessage отправляет текст, при необходимости несколькими сообщениями.
func (h *Handler) sendMessage(chatID int64, text string) {
	for _, part := range common.SplitMessage(text, common.MaxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := h.bot.Send(msg); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
			return
		}
	}
}
