// Package middleware содержит промежуточные обработчики для логирования
// и восстановления после паники.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// maxLoggedText — сколько символов текста попадает в лог.
const maxLoggedText = 50

// shorten обрезает строку по символам, а не по байтам, чтобы не резать кириллицу.
func shorten(text string) string {
	runes := []rune(text)
	if len(runes) <= maxLoggedText {
		return text
	}
	return string(runes[:maxLoggedText]) + "..."
}

// LogMessage логирует входящее сообщение.
// Записывает: user_id, chat_id, username, текст (первые 50 символов).
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.Chat == nil {
		return
	}

	fields := log.Fields{
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"text":      shorten(message.Text),
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.UserName
	}
	log.WithFields(fields).Debug("Входящее сообщение")
}

// LogCallback логирует нажатие inline-кнопки.
func LogCallback(cq *tgbotapi.CallbackQuery) {
	if cq == nil {
		return
	}

	fields := log.Fields{"data": cq.Data}
	if cq.From != nil {
		fields["user_id"] = cq.From.ID
	}
	if cq.Message != nil && cq.Message.Chat != nil {
		fields["chat_id"] = cq.Message.Chat.ID
		fields["message_id"] = cq.Message.MessageID
	}
	log.WithFields(fields).Debug("Нажата кнопка")
}
