// Package chat — service.go: один ход диалога и очистка контекста.
package chat

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Service ведёт диалоги пользователей с моделью.
type Service struct {
	history      HistoryStore
	completer    Completer
	systemPrompt string
	maxHistory   int
}

// NewService создаёт сервис диалогов. Пустой systemPrompt заменяется на DefaultSystemPrompt,
// maxHistory <= 0 на DefaultHistoryLimit.
func NewService(history HistoryStore, completer Completer, systemPrompt string, maxHistory int) *Service {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if maxHistory <= 0 {
		maxHistory = DefaultHistoryLimit
	}
	return &Service{
		history:      history,
		completer:    completer,
		systemPrompt: systemPrompt,
		maxHistory:   maxHistory,
	}
}

// Chat выполняет один ход:
//  1. пустая история получает системное сообщение;
//  2. добавляется сообщение пользователя, история обрезается до maxHistory;
//  3. модель получает всю историю;
//  4. ответ добавляется в историю, она снова обрезается.
//
// Если модель ответила ошибкой, сообщение пользователя остаётся в истории.
func (s *Service) Chat(ctx context.Context, userID int64, text string) (string, error) {
	history, err := s.history.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		history = []Message{{Role: RoleSystem, Content: s.systemPrompt}}
	}

	history = append(history, Message{Role: RoleUser, Content: text})
	history = truncate(history, s.maxHistory)
	if err := s.history.Save(ctx, userID, history); err != nil {
		return "", err
	}

	answer, err := s.completer.Complete(ctx, history)
	if err != nil {
		return "", fmt.Errorf("ход диалога пользователя %d: %w", userID, err)
	}

	history = append(history, Message{Role: RoleAssistant, Content: answer})
	history = truncate(history, s.maxHistory)
	if err := s.history.Save(ctx, userID, history); err != nil {
		// Ответ уже получен, отдаём его пользователю
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось сохранить ответ в историю")
	}

	return answer, nil
}

// Clear удаляет историю. Следующий ход начнётся с системного сообщения.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.history.Clear(ctx, userID)
}

// History возвращает текущую историю пользователя.
func (s *Service) History(ctx context.Context, userID int64) ([]Message, error) {
	return s.history.Get(ctx, userID)
}
