// Package store — render.go формирует тексты и inline-клавиатуры магазина.
package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/gamestore-bot/internal/common"
)

// Действия inline-кнопок. Формат callback data: "<действие>:<id>" или "checkout".
const (
	ActionAdd      = "add" // id игры
	ActionInc      = "inc" // id строки заказа
	ActionDec      = "dec"
	ActionDel      = "del"
	ActionCheckout = "checkout"
)

// CallbackData собирает callback data для кнопки.
func CallbackData(action string, id int64) string {
	return action + ":" + strconv.FormatInt(id, 10)
}

// ParseCallback разбирает callback data. Для checkout id = 0.
func ParseCallback(data string) (string, int64, error) {
	if data == ActionCheckout {
		return ActionCheckout, 0, nil
	}
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, fmt.Errorf("неизвестный callback %q", data)
	}
	switch action {
	case ActionAdd, ActionInc, ActionDec, ActionDel:
	default:
		return "", 0, fmt.Errorf("неизвестное действие %q", action)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("некорректный id в callback %q", data)
	}
	return action, id, nil
}

// FormatCatalog — список доступных игр.
//
// Формат:
//
//	🎮 Каталог игр
//
//	1. Doom — 300 монет
//	   Классический шутер
func FormatCatalog(games []*Game) string {
	if len(games) == 0 {
		return "🎮 Каталог пока пуст"
	}
	var sb strings.Builder
	sb.WriteString("🎮 Каталог игр\n\n")
	for i, g := range games {
		sb.WriteString(fmt.Sprintf("%d. %s — %s\n", i+1, g.Name, common.FormatBalance(g.Price)))
		if g.Description != "" {
			sb.WriteString("   " + g.Description + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// CatalogKeyboard — по кнопке «в корзину» на каждую игру.
func CatalogKeyboard(games []*Game) *tgbotapi.InlineKeyboardMarkup {
	if len(games) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(games))
	for _, g := range games {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 "+g.Name, CallbackData(ActionAdd, g.ID)),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// FormatCart — содержимое корзины с итогом.
func FormatCart(lines []*OrderLine) string {
	if len(lines) == 0 {
		return "🛒 Корзина пуста"
	}
	var sb strings.Builder
	var items int64
	for _, l := range lines {
		items += int64(l.Count)
	}
	sb.WriteString(fmt.Sprintf("🛒 Ваша корзина: %d %s\n\n", items, common.PluralizeGames(items)))
	writeLines(&sb, lines, nil)
	sb.WriteString("\nИтого: " + common.FormatBalance(CartTotal(lines)))
	return sb.String()
}

// CartKeyboard — ряд ➖ ➕ ❌ на каждую строку и кнопка оформления.
func CartKeyboard(lines []*OrderLine) *tgbotapi.InlineKeyboardMarkup {
	if len(lines) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(lines)+1)
	for _, l := range lines {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➖ "+l.Name, CallbackData(ActionDec, l.OrderID)),
			tgbotapi.NewInlineKeyboardButtonData("➕", CallbackData(ActionInc, l.OrderID)),
			tgbotapi.NewInlineKeyboardButtonData("❌", CallbackData(ActionDel, l.OrderID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Оформить заказ", ActionCheckout),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// FormatReceipt — сообщение об успешной покупке.
func FormatReceipt(r *Receipt) string {
	var sb strings.Builder
	sb.WriteString("✅ Заказ оформлен!\n\n")
	writeLines(&sb, r.Lines, nil)
	sb.WriteString("\nСписано: " + common.FormatBalance(r.Total))
	sb.WriteString("\nОстаток: " + common.FormatBalance(r.NewBalance))
	return sb.String()
}

// FormatOrders — история оформленных заказов.
func FormatOrders(lines []*OrderLine, loc *time.Location) string {
	if len(lines) == 0 {
		return "📦 У вас пока нет заказов"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 Последние заказы (%d)\n\n", len(lines)))
	writeLines(&sb, lines, loc)
	return strings.TrimRight(sb.String(), "\n")
}

func writeLines(sb *strings.Builder, lines []*OrderLine, loc *time.Location) {
	for _, l := range lines {
		if l.Date != nil {
			sb.WriteString(common.FormatDateTime(*l.Date, loc) + " | ")
		}
		sb.WriteString(fmt.Sprintf("%s × %d = %s\n", l.Name, l.Count, common.FormatBalance(l.Subtotal())))
	}
}

// FormatStats — сводка для /stats и ежедневного отчёта.
func FormatStats(st *Stats) string {
	return fmt.Sprintf(
		"📊 Статистика магазина\n\n"+
			"Пользователей: %s\n"+
			"Игр в каталоге: %s\n"+
			"Продажи: %s",
		common.FormatNumber(st.Users),
		common.FormatNumber(st.Games),
		common.FormatBalance(st.Sales),
	)
}

// FormatGamesAdmin — все игры с ID и статусом, для /games.
func FormatGamesAdmin(games []*Game) string {
	if len(games) == 0 {
		return "Игр пока нет. Добавьте первую: /addgame"
	}
	var sb strings.Builder
	sb.WriteString("🗂 Все игры\n\n")
	for _, g := range games {
		mark := "🟢"
		if !g.Active {
			mark = "🔴"
		}
		sb.WriteString(fmt.Sprintf("%s #%d %s — %s\n", mark, g.ID, g.Name, common.FormatBalance(g.Price)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatUsersAdmin — пользователи с балансами, для /users.
func FormatUsersAdmin(users []*User) string {
	if len(users) == 0 {
		return "Пользователей пока нет"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 Пользователи (%d)\n\n", len(users)))
	for _, u := range users {
		line := fmt.Sprintf("%d — %s", u.ID, common.FormatBalance(u.Balance))
		if u.Admin {
			line += " 👑"
		}
		sb.WriteString(line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
