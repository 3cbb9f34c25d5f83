// Package store — repository.go описывает контракт хранилища магазина.
// Реализации: PostgresRepository (pgx) и SQLiteRepository (database/sql + modernc).
package store

import (
	"context"
	"fmt"
	"time"

	"serotonyl.ru/gamestore-bot/internal/common"
)

// Repository — операции с таблицами users, games, orders, failed_orders.
// Ошибки возвращаются как есть; перевод в bool/nil делает Service.
type Repository interface {
	// --- Пользователи ---
	AddUser(ctx context.Context, userID int64) (bool, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	UpdateUserField(ctx context.Context, userID int64, field UserField, value any) (bool, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AddUserBalance(ctx context.Context, userID int64, amount int64) (bool, error)
	ListUsers(ctx context.Context) ([]*User, error)
	ListAdminIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int64, error)

	// --- Игры ---
	AddGame(ctx context.Context, name string, price int64, description string) (int64, error)
	GetGame(ctx context.Context, gameID int64) (*Game, error)
	ListAvailableGames(ctx context.Context) ([]*Game, error)
	ListGames(ctx context.Context) ([]*Game, error)
	UpdateGameField(ctx context.Context, gameID int64, field GameField, value any) (bool, error)
	CountGames(ctx context.Context) (int64, error)

	// --- Корзина и заказы ---
	AddToCart(ctx context.Context, userID, gameID int64) error
	GetCart(ctx context.Context, userID int64) ([]*OrderLine, error)
	UpdateCartItem(ctx context.Context, orderID, userID int64, delta int) (bool, error)
	RemoveFromCart(ctx context.Context, orderID, userID int64) (bool, error)
	Checkout(ctx context.Context, userID int64, at time.Time) (bool, error)
	GetOrderHistory(ctx context.Context, userID int64, limit int) ([]*OrderLine, error)
	TotalSales(ctx context.Context) (int64, error)

	// --- Журнал неудачных заказов (только запись) ---
	AddFailedOrder(ctx context.Context, userID int64, details string) error
}

// UserField — поле users, которое разрешено менять через UpdateUserField.
type UserField string

const (
	UserBalance   UserField = "balance"
	UserStatus    UserField = "status"
	UserAdmin     UserField = "admin"
	UserTempName  UserField = "temp_name"
	UserTempPrice UserField = "temp_price"
	UserTempDesc  UserField = "temp_desc"
)

// GameField — поле games, которое разрешено менять через UpdateGameField.
type GameField string

const (
	GamePrice       GameField = "price"
	GameDescription GameField = "description"
	GameStatus      GameField = "status"
)

type fieldKind int

const (
	kindInt fieldKind = iota
	kindNullableInt
	kindString
	kindNullableString
	kindBool
)

// Имя колонки берётся только из этих таблиц, никогда из ввода.
var userColumns = map[UserField]fieldKind{
	UserBalance:   kindInt,
	UserStatus:    kindString,
	UserAdmin:     kindBool,
	UserTempName:  kindNullableString,
	UserTempPrice: kindNullableInt,
	UserTempDesc:  kindNullableString,
}

var gameColumns = map[GameField]fieldKind{
	GamePrice:       kindInt,
	GameDescription: kindString,
	GameStatus:      kindBool,
}

// userColumn проверяет поле и приводит значение к типу колонки.
func userColumn(field UserField, value any) (string, any, error) {
	kind, ok := userColumns[field]
	if !ok {
		return "", nil, fmt.Errorf("users.%s: %w", field, common.ErrUnknownField)
	}
	v, err := normalizeValue(kind, value)
	if err != nil {
		return "", nil, fmt.Errorf("users.%s: %w", field, err)
	}
	return string(field), v, nil
}

// gameColumn проверяет поле и приводит значение к типу колонки.
// Статус игры хранится числом 1/0, поэтому bool превращается в int.
func gameColumn(field GameField, value any) (string, any, error) {
	kind, ok := gameColumns[field]
	if !ok {
		return "", nil, fmt.Errorf("games.%s: %w", field, common.ErrUnknownField)
	}
	v, err := normalizeValue(kind, value)
	if err != nil {
		return "", nil, fmt.Errorf("games.%s: %w", field, err)
	}
	if field == GameStatus {
		if v.(bool) {
			return string(field), int16(1), nil
		}
		return string(field), int16(0), nil
	}
	return string(field), v, nil
}

func normalizeValue(kind fieldKind, value any) (any, error) {
	if value == nil {
		if kind == kindNullableInt || kind == kindNullableString {
			return nil, nil
		}
		return nil, fmt.Errorf("значение не может быть NULL")
	}

	switch kind {
	case kindInt, kindNullableInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case *int64:
			if v == nil {
				return normalizeValue(kind, nil)
			}
			return *v, nil
		}
	case kindString, kindNullableString:
		switch v := value.(type) {
		case string:
			return v, nil
		case *string:
			if v == nil {
				return normalizeValue(kind, nil)
			}
			return *v, nil
		}
	case kindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("неподходящий тип значения %T", value)
}
