// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки хранилища
var (
	// ErrNotFound — запись не найдена
	ErrNotFound = errors.New("запись не найдена")
	// ErrStorage — хранилище не смогло выполнить операцию (подробности в логе)
	ErrStorage = errors.New("ошибка хранилища")
	// ErrAlreadyExists — нарушение уникальности (пользователь или игра уже есть)
	ErrAlreadyExists = errors.New("запись уже существует")
	// ErrUnknownField — поле не входит в разрешённый набор
	ErrUnknownField = errors.New("недопустимое поле")
)

// Ошибки магазина (корзина, оформление)
var (
	// ErrEmptyCart — корзина пуста
	ErrEmptyCart = errors.New("корзина пуста")
	// ErrInsufficientBalance — недостаточно средств на балансе
	ErrInsufficientBalance = errors.New("недостаточно средств на балансе")
	// ErrGameUnavailable — игра не найдена или снята с продажи
	ErrGameUnavailable = errors.New("игра недоступна")
	// ErrInvalidAmount — некорректная сумма или цена
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrCheckoutFailed — не удалось перевести корзину в заказ
	ErrCheckoutFailed = errors.New("не удалось оформить заказ")
	// ErrInvalidInput — ввод в админ-диалоге не распознан
	ErrInvalidInput = errors.New("некорректный ввод")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
)
