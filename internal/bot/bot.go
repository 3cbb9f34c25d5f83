// Package bot содержит главный модуль бота — приём апдейтов и маршрутизацию команд.
// bot.go разбирает сообщения и нажатия кнопок и передаёт их обработчикам магазина и чата.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gamestore-bot/internal/bot/filters"
	"serotonyl.ru/gamestore-bot/internal/bot/middleware"
	"serotonyl.ru/gamestore-bot/internal/common"
	"serotonyl.ru/gamestore-bot/internal/config"
	"serotonyl.ru/gamestore-bot/internal/features/chat"
	"serotonyl.ru/gamestore-bot/internal/features/store"
)

// API — часть *tgbotapi.BotAPI, нужная боту.
type API interface {
	common.Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api API
	cfg *config.Config

	chatFilter *filters.ChatFilter

	storeService *store.Service // nil, если магазин выключен
	storeHandler *store.Handler
	chatHandler  *chat.Handler // nil, если чат выключен

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт бота. storeService/storeHandler и chatHandler могут быть nil,
// если соответствующая функция выключена флагом.
func New(
	api API,
	cfg *config.Config,
	chatFilter *filters.ChatFilter,
	storeService *store.Service,
	storeHandler *store.Handler,
	chatHandler *chat.Handler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 1
	}

	return &Bot{
		api:          api,
		cfg:          cfg,
		chatFilter:   chatFilter,
		storeService: storeService,
		storeHandler: storeHandler,
		chatHandler:  chatHandler,
		parser:       NewCommandParser(),
		inflight:     make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram. Возвращается после отмены ctx
// и завершения всех начатых обработчиков.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	defer b.drain()

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// drain ждёт, пока освободятся все слоты обработчиков.
func (b *Bot) drain() {
	for i := 0; i < cap(b.inflight); i++ {
		b.inflight <- struct{}{}
	}
	for i := 0; i < cap(b.inflight); i++ {
		<-b.inflight
	}
}

func (b *Bot) storeEnabled() bool {
	return b.storeService != nil && b.storeHandler != nil
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	// Обрабатываем только текстовые сообщения
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	message := update.Message

	// Логируем входящее
	middleware.LogMessage(message)

	// Только личка, отправитель регистрируется в users
	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// Парсим команду
	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	log.WithFields(log.Fields{
		"isCommand": isCommand,
		"cmd":       cmd,
		"args":      args,
	}).Debug("parsed command")

	if isCommand && b.routeCommand(ctx, chatID, userID, cmd, args) {
		return
	}

	// Незавершённый /addgame забирает текст себе
	if b.storeEnabled() && !isCommand {
		if user := b.storeService.GetUser(ctx, userID); b.storeHandler.HandleDialogInput(ctx, chatID, user, message.Text) {
			return
		}
	}

	// Всё остальное, включая незнакомые команды, уходит модели
	if b.chatHandler != nil {
		b.chatHandler.HandleText(ctx, chatID, userID, message.Text)
		return
	}
	b.sendMessage(chatID, "Не понимаю. Список команд: /help")
}

// handleCallback обрабатывает нажатие inline-кнопки.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	middleware.LogCallback(cq)

	if !b.storeEnabled() || !b.chatFilter.CheckCallback(ctx, cq) {
		return
	}
	b.storeHandler.HandleCallback(ctx, cq)
}

// routeCommand маршрутизирует команду к нужному обработчику.
// false — команда неизвестна боту.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) bool {
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	switch cmd {
	case "start", "help":
		b.sendMessage(chatID, b.helpText(ctx, userID))
		return true

	case "clear":
		if b.chatHandler == nil {
			b.sendMessage(chatID, "💬 Чат с нейросетью отключён")
			return true
		}
		b.chatHandler.HandleClear(ctx, chatID, userID)
		return true
	}

	if !b.storeEnabled() {
		return false
	}

	switch cmd {
	case "catalog":
		b.storeHandler.HandleCatalog(ctx, chatID)
	case "cart":
		b.storeHandler.HandleCart(ctx, chatID, userID)
	case "checkout":
		b.storeHandler.HandleCheckout(ctx, chatID, userID)
	case "balance":
		b.storeHandler.HandleBalance(ctx, chatID, userID)
	case "orders":
		b.storeHandler.HandleOrders(ctx, chatID, userID)
	default:
		if !store.IsAdminCommand(cmd) {
			return false
		}
		b.storeHandler.HandleAdminCommand(ctx, chatID, userID, cmd, args)
	}
	return true
}

func (b *Bot) helpText(ctx context.Context, userID int64) string {
	var sb strings.Builder
	sb.WriteString("🤖 Я — полноценная нейросеть и магазин игр.\n\n")
	if b.chatHandler != nil {
		sb.WriteString("Задавай любые вопросы, как в ChatGPT.\n")
		sb.WriteString("/clear — очистить контекст\n")
	}
	if b.storeEnabled() {
		sb.WriteString("\n🎮 Магазин\n" +
			"/catalog — каталог игр\n" +
			"/cart — корзина\n" +
			"/checkout — оформить заказ\n" +
			"/balance — баланс\n" +
			"/orders — мои заказы\n")
		if b.storeService.IsAdmin(ctx, userID) {
			sb.WriteString("\n👑 Админка\n" +
				"/addgame — добавить игру (/cancel — отменить)\n" +
				"/editgame <id> price|desc <значение>\n" +
				"/disable <id>, /enable <id>\n" +
				"/give <user_id> <сумма>\n" +
				"/stats, /users, /games\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	for _, part := range common.SplitMessage(text, common.MaxMessageLength) {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
			return
		}
	}
}

// SendMessageToUser отправляет сообщение пользователю (для ежедневного отчёта).
func (b *Bot) SendMessageToUser(userID int64, text string) {
	for _, part := range common.SplitMessage(text, common.MaxMessageLength) {
		if _, err := b.api.Send(tgbotapi.NewMessage(userID, part)); err != nil {
			log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
			return
		}
	}
	log.WithField("user_id", userID).Debug("message sent")
}
