// Package store — dialog.go: пошаговое добавление игры админом.
// Шаг диалога хранится в users.status, введённые значения — в temp_*,
// поэтому диалог переживает перезапуск бота.
package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"serotonyl.ru/gamestore-bot/internal/common"
)

// Возможные состояния админ-диалога
const (
	StatusIdle           = ""                 // Нет активного диалога
	StatusAwaitGameName  = "await_game_name"  // Ждём название игры
	StatusAwaitGamePrice = "await_game_price" // Ждём цену
	StatusAwaitGameDesc  = "await_game_desc"  // Ждём описание
)

// emptyDescription — ввод, означающий «без описания».
const emptyDescription = "-"

// DialogResult — итог очередного шага диалога.
type DialogResult struct {
	Next   string // Новое состояние (StatusIdle — диалог завершён)
	GameID int64  // ID добавленной игры на последнем шаге
}

// InDialog сообщает, ждёт ли бот от пользователя ввода для /addgame.
func InDialog(u *User) bool {
	if u == nil {
		return false
	}
	switch u.Status {
	case StatusAwaitGameName, StatusAwaitGamePrice, StatusAwaitGameDesc:
		return true
	}
	return false
}

// StartAddGame начинает диалог с чистыми черновиками.
func (s *Service) StartAddGame(ctx context.Context, userID int64) bool {
	if !s.ClearTemp(ctx, userID) {
		return false
	}
	return s.SetStatus(ctx, userID, StatusAwaitGameName)
}

// CancelDialog сбрасывает шаг и черновики.
func (s *Service) CancelDialog(ctx context.Context, userID int64) bool {
	ok := s.ClearTemp(ctx, userID)
	return s.SetStatus(ctx, userID, StatusIdle) && ok
}

// AdvanceAddGame обрабатывает ввод на текущем шаге.
// При некорректном вводе шаг не меняется, возвращается common.ErrInvalidInput
// или common.ErrInvalidAmount. Занятое название сбрасывает диалог
// и возвращает common.ErrAlreadyExists.
func (s *Service) AdvanceAddGame(ctx context.Context, u *User, input string) (*DialogResult, error) {
	input = strings.TrimSpace(input)

	switch u.Status {
	case StatusAwaitGameName:
		if input == "" {
			return nil, common.ErrInvalidInput
		}
		if !s.SetTempName(ctx, u.ID, input) || !s.SetStatus(ctx, u.ID, StatusAwaitGamePrice) {
			return nil, common.ErrStorage
		}
		return &DialogResult{Next: StatusAwaitGamePrice}, nil

	case StatusAwaitGamePrice:
		price, err := strconv.ParseInt(input, 10, 64)
		if err != nil || price <= 0 {
			return nil, common.ErrInvalidAmount
		}
		if !s.SetTempPrice(ctx, u.ID, price) || !s.SetStatus(ctx, u.ID, StatusAwaitGameDesc) {
			return nil, common.ErrStorage
		}
		return &DialogResult{Next: StatusAwaitGameDesc}, nil

	case StatusAwaitGameDesc:
		if u.TempName == nil || u.TempPrice == nil {
			// Черновик потерян: начинаем заново
			s.CancelDialog(ctx, u.ID)
			return nil, common.ErrInvalidInput
		}
		desc := input
		if desc == emptyDescription {
			desc = ""
		}
		id, err := s.AddGame(ctx, *u.TempName, *u.TempPrice, desc)
		s.CancelDialog(ctx, u.ID)
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return nil, common.ErrAlreadyExists
			}
			return nil, err
		}
		return &DialogResult{Next: StatusIdle, GameID: id}, nil
	}

	return nil, common.ErrInvalidInput
}
