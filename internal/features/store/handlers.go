// Package store — handlers.go обрабатывает команды магазина и нажатия inline-кнопок.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gamestore-bot/internal/common"
)

// Handler обрабатывает команды магазина.
type Handler struct {
	service *Service
	bot     common.Sender
	loc     *time.Location // Часовой пояс для дат заказов
}

// NewHandler создаёт обработчик магазина.
func NewHandler(service *Service, bot common.Sender, loc *time.Location) *Handler {
	return &Handler{service: service, bot: bot, loc: loc}
}

// adminCommands — команды, доступные только администраторам.
var adminCommands = map[string]bool{
	"addgame":  true,
	"cancel":   true,
	"editgame": true,
	"disable":  true,
	"enable":   true,
	"give":     true,
	"stats":    true,
	"users":    true,
	"games":    true,
}

// IsAdminCommand сообщает, относится ли команда к админке.
func IsAdminCommand(cmd string) bool {
	return adminCommands[cmd]
}

// ============================================================================
// Команды покупателя
// ============================================================================

// HandleCatalog обрабатывает /catalog.
func (h *Handler) HandleCatalog(ctx context.Context, chatID int64) {
	games := h.service.ListAvailableGames(ctx)
	h.sendWithKeyboard(chatID, FormatCatalog(games), CatalogKeyboard(games))
}

// HandleCart обрабатывает /cart.
func (h *Handler) HandleCart(ctx context.Context, chatID, userID int64) {
	lines := h.service.GetCart(ctx, userID)
	h.sendWithKeyboard(chatID, FormatCart(lines), CartKeyboard(lines))
}

// HandleCheckout обрабатывает /checkout: списывает баланс и оформляет корзину.
func (h *Handler) HandleCheckout(ctx context.Context, chatID, userID int64) {
	h.sendMessage(chatID, h.purchase(ctx, userID))
}

// HandleBalance обрабатывает /balance.
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	balance, ok := h.service.GetBalance(ctx, userID)
	if !ok {
		h.sendMessage(chatID, "❌ Не удалось получить баланс")
		return
	}
	h.sendMessage(chatID, "💰 Ваш баланс: "+common.FormatBalance(balance))
}

// HandleOrders обрабатывает /orders.
func (h *Handler) HandleOrders(ctx context.Context, chatID, userID int64) {
	lines := h.service.OrderHistory(ctx, userID, DefaultHistoryLimit)
	h.sendMessage(chatID, FormatOrders(lines, h.loc))
}

func (h *Handler) purchase(ctx context.Context, userID int64) string {
	receipt, err := h.service.Purchase(ctx, userID)
	switch {
	case err == nil:
		return FormatReceipt(receipt)
	case errors.Is(err, common.ErrEmptyCart):
		return "🛒 Корзина пуста. Загляните в /catalog"
	case errors.Is(err, common.ErrGameUnavailable):
		return "❌ Часть игр снята с продажи и убрана из корзины. Проверьте /cart и оформите заказ ещё раз"
	case errors.Is(err, common.ErrInsufficientBalance):
		balance, _ := h.service.GetBalance(ctx, userID)
		return fmt.Sprintf("❌ %s\nНа счёте: %s",
			common.ErrInsufficientBalance.Error(), common.FormatBalance(balance))
	default:
		return "❌ " + common.ErrCheckoutFailed.Error() + ", попробуйте позже"
	}
}

// ============================================================================
// Inline-кнопки
// ============================================================================

// HandleCallback обрабатывает нажатие кнопки каталога или корзины.
func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.From == nil {
		return
	}
	userID := cq.From.ID

	action, id, err := ParseCallback(cq.Data)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Неизвестный callback")
		h.answer(cq.ID, "Неизвестное действие")
		return
	}

	switch action {
	case ActionAdd:
		if err := h.service.AddToCart(ctx, userID, id); err != nil {
			if errors.Is(err, common.ErrGameUnavailable) {
				h.answer(cq.ID, "❌ Игра недоступна")
			} else {
				h.answer(cq.ID, "❌ Не удалось добавить в корзину")
			}
			return
		}
		h.answer(cq.ID, "🛒 Добавлено в корзину")

	case ActionInc, ActionDec, ActionDel:
		var ok bool
		switch action {
		case ActionInc:
			ok = h.service.UpdateCartItem(ctx, id, userID, 1)
		case ActionDec:
			ok = h.service.UpdateCartItem(ctx, id, userID, -1)
		default:
			ok = h.service.RemoveFromCart(ctx, id, userID)
		}
		if !ok {
			h.answer(cq.ID, "Позиция уже не в корзине")
		} else {
			h.answer(cq.ID, "")
		}
		h.refreshCart(ctx, cq.Message, userID)

	case ActionCheckout:
		h.answer(cq.ID, "")
		text := h.purchase(ctx, userID)
		h.refreshCart(ctx, cq.Message, userID)
		if cq.Message != nil && cq.Message.Chat != nil {
			h.sendMessage(cq.Message.Chat.ID, text)
		}
	}
}

// refreshCart перерисовывает сообщение с корзиной после изменения.
func (h *Handler) refreshCart(ctx context.Context, msg *tgbotapi.Message, userID int64) {
	if msg == nil || msg.Chat == nil {
		return
	}
	lines := h.service.GetCart(ctx, userID)
	text := FormatCart(lines)

	var edit tgbotapi.Chattable
	if kb := CartKeyboard(lines); kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, text, *kb)
	} else {
		// Без reply_markup Telegram убирает клавиатуру
		edit = tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	}
	if _, err := h.bot.Request(edit); err != nil {
		log.WithError(err).WithField("chat_id", msg.Chat.ID).Warn("Не удалось обновить корзину")
	}
}

// ============================================================================
// Админка
// ============================================================================

// HandleAdminCommand обрабатывает команды администратора.
// Вызывающий проверяет IsAdminCommand заранее.
func (h *Handler) HandleAdminCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	if !h.service.IsAdmin(ctx, userID) {
		h.sendMessage(chatID, "⛔ "+common.ErrNotAdmin.Error())
		return
	}

	switch cmd {
	case "addgame":
		if !h.service.StartAddGame(ctx, userID) {
			h.sendMessage(chatID, "❌ Не удалось начать добавление игры")
			return
		}
		h.sendMessage(chatID, "📝 Введите название игры (или /cancel)")

	case "cancel":
		h.service.CancelDialog(ctx, userID)
		h.sendMessage(chatID, "Отменено")

	case "editgame":
		h.handleEditGame(ctx, chatID, args)

	case "disable", "enable":
		gameID, ok := parseID(args)
		if !ok {
			h.sendMessage(chatID, fmt.Sprintf("Использование: /%s <id игры>", cmd))
			return
		}
		if !h.service.SetGameActive(ctx, gameID, cmd == "enable") {
			h.sendMessage(chatID, "❌ Игра не найдена")
			return
		}
		if cmd == "enable" {
			h.sendMessage(chatID, fmt.Sprintf("🟢 Игра #%d снова в продаже", gameID))
		} else {
			h.sendMessage(chatID, fmt.Sprintf("🔴 Игра #%d снята с продажи", gameID))
		}

	case "give":
		h.handleGive(ctx, chatID, args)

	case "stats":
		st, err := h.service.Stats(ctx)
		if err != nil {
			log.WithError(err).Error("Ошибка получения статистики")
			h.sendMessage(chatID, "❌ Не удалось получить статистику")
			return
		}
		h.sendMessage(chatID, FormatStats(st))

	case "users":
		h.sendMessage(chatID, FormatUsersAdmin(h.service.ListUsers(ctx)))

	case "games":
		h.sendMessage(chatID, FormatGamesAdmin(h.service.ListGames(ctx)))
	}
}

// handleEditGame: /editgame <id> price|desc <значение>
func (h *Handler) handleEditGame(ctx context.Context, chatID int64, args []string) {
	const usage = "Использование: /editgame <id> price|desc <значение>"
	if len(args) < 3 {
		h.sendMessage(chatID, usage)
		return
	}
	gameID, ok := parseID(args[:1])
	if !ok {
		h.sendMessage(chatID, usage)
		return
	}

	var updated bool
	switch strings.ToLower(args[1]) {
	case "price":
		price, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil || price <= 0 {
			h.sendMessage(chatID, "❌ "+common.ErrInvalidAmount.Error())
			return
		}
		updated = h.service.SetGamePrice(ctx, gameID, price)
	case "desc":
		updated = h.service.SetGameDescription(ctx, gameID, strings.Join(args[2:], " "))
	default:
		h.sendMessage(chatID, usage)
		return
	}

	if !updated {
		h.sendMessage(chatID, "❌ Игра не найдена")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Игра #%d обновлена", gameID))
}

// handleGive: /give <user_id> <сумма>. Отрицательная сумма списывает.
func (h *Handler) handleGive(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.sendMessage(chatID, "Использование: /give <user_id> <сумма>")
		return
	}
	target, ok := parseID(args[:1])
	if !ok {
		h.sendMessage(chatID, "❌ Некорректный user_id")
		return
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount == 0 || amount > MaxGiveAmount || amount < -MaxGiveAmount {
		h.sendMessage(chatID, fmt.Sprintf("❌ Некорректная сумма (от 1 до %s по модулю)",
			common.FormatNumber(MaxGiveAmount)))
		return
	}
	current, ok := h.service.GetBalance(ctx, target)
	if !ok {
		h.sendMessage(chatID, "❌ Пользователь не найден")
		return
	}
	if (amount > 0 && current > math.MaxInt64-amount) || (amount < 0 && current < math.MinInt64-amount) {
		h.sendMessage(chatID, "❌ Баланс вышел бы за допустимые пределы")
		return
	}
	if !h.service.AddUserBalance(ctx, target, amount) {
		h.sendMessage(chatID, "❌ Пользователь не найден")
		return
	}
	balance, _ := h.service.GetBalance(ctx, target)
	h.sendMessage(chatID, fmt.Sprintf("✅ %s пользователю %d. Баланс: %s",
		common.FormatAmount(amount), target, common.FormatBalance(balance)))
}

// HandleDialogInput продолжает /addgame. false — пользователь не в диалоге,
// сообщение нужно обработать дальше.
func (h *Handler) HandleDialogInput(ctx context.Context, chatID int64, user *User, text string) bool {
	if !InDialog(user) {
		return false
	}

	res, err := h.service.AdvanceAddGame(ctx, user, text)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrInvalidAmount):
		h.sendMessage(chatID, "❌ Цена должна быть целым положительным числом. Попробуйте ещё раз")
		return true
	case errors.Is(err, common.ErrAlreadyExists):
		h.sendMessage(chatID, "❌ Игра с таким названием уже есть. Начните заново: /addgame")
		return true
	case errors.Is(err, common.ErrInvalidInput):
		if user.Status == StatusAwaitGameDesc {
			h.sendMessage(chatID, "❌ Черновик потерян. Начните заново: /addgame")
		} else {
			h.sendMessage(chatID, "❌ Название не может быть пустым")
		}
		return true
	default:
		h.sendMessage(chatID, "❌ Не удалось сохранить игру, диалог сброшен")
		return true
	}

	switch res.Next {
	case StatusAwaitGamePrice:
		h.sendMessage(chatID, "💰 Введите цену (целое число)")
	case StatusAwaitGameDesc:
		h.sendMessage(chatID, "📄 Введите описание (или «-», чтобы оставить пустым)")
	default:
		h.sendMessage(chatID, fmt.Sprintf("✅ Игра добавлена, ID %d", res.GameID))
	}
	return true
}

func parseID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// answer отвечает на callback, чтобы у кнопки пропали «часики».
func (h *Handler) answer(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.WithError(err).Debug("Не удалось ответить на callback")
	}
}

// sendWithKeyboard режет длинный текст на части; клавиатура идёт с последней.
func (h *Handler) sendWithKeyboard(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	parts := common.SplitMessage(text, common.MaxMessageLength)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if kb != nil && i == len(parts)-1 {
			msg.ReplyMarkup = *kb
		}
		if _, err := h.bot.Send(msg); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
			return
		}
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	h.sendWithKeyboard(chatID, text, nil)
}
