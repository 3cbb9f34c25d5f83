// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: открывает хранилище магазина и историю диалогов,
// создаёт сервисы, обработчики, фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gamestore-bot/internal/bot"
	"serotonyl.ru/gamestore-bot/internal/bot/filters"
	"serotonyl.ru/gamestore-bot/internal/common"
	"serotonyl.ru/gamestore-bot/internal/config"
	"serotonyl.ru/gamestore-bot/internal/db/postgres"
	"serotonyl.ru/gamestore-bot/internal/db/redis"
	"serotonyl.ru/gamestore-bot/internal/db/sqlite"
	"serotonyl.ru/gamestore-bot/internal/features/chat"
	"serotonyl.ru/gamestore-bot/internal/features/store"
	"serotonyl.ru/gamestore-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler // nil, если отчёт выключен
	BotAPI    *tgbotapi.BotAPI

	closers []func()
}

// SetupLogging настраивает формат и уровень логов.
func SetupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("Неизвестный APP_LOG_LEVEL, используем debug")
		lvl = log.DebugLevel
	}
	log.SetLevel(lvl)
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	loc := common.LoadLocation(cfg.AppTimezone)

	// === 1. Хранилище магазина ===
	var storeService *store.Service
	if cfg.FeatureStoreEnabled {
		repo, err := a.openStore(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		storeService = store.NewService(repo, cfg)
		if n := storeService.BootstrapAdmins(ctx); n > 0 {
			log.WithField("admins", n).Info("Администраторы из ADMIN_IDS отмечены")
		}
	}

	// === 2. История диалогов и модель ===
	var chatService *chat.Service
	if cfg.FeatureChatEnabled {
		history, err := a.openHistory(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		completer := chat.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAITemperature)
		chatService = chat.NewService(history, completer, cfg.ChatSystemPrompt, cfg.ChatHistoryLimit)
	}

	// === 3. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development" && log.IsLevelEnabled(log.TraceLevel)
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)
	a.BotAPI = botAPI

	// === 4. Обработчики и фильтры ===
	var (
		storeHandler *store.Handler
		chatHandler  *chat.Handler
		registrar    filters.UserRegistrar
	)
	if storeService != nil {
		storeHandler = store.NewHandler(storeService, botAPI, loc)
		registrar = storeService
	}
	if chatService != nil {
		chatHandler = chat.NewHandler(chatService, botAPI)
	}
	chatFilter := filters.NewChatFilter(registrar)

	// === 5. Собираем бота ===
	a.Bot = bot.New(botAPI, cfg, chatFilter, storeService, storeHandler, chatHandler)

	// === 6. Планировщик задач ===
	if cfg.FeatureReportEnabled && storeService != nil {
		a.Scheduler = jobs.NewScheduler(storeService, cfg.ReportCron, loc, a.Bot.SendMessageToUser)
	}

	log.WithFields(log.Fields{
		"store":  storeService != nil,
		"chat":   chatService != nil,
		"report": a.Scheduler != nil,
	}).Info("Компоненты собраны")
	return a, nil
}

// openStore подключает выбранный DB_DRIVER и возвращает репозиторий магазина.
func (a *App) openStore(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к SQLite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		return store.NewSQLiteRepository(db), nil

	default:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return store.NewPostgresRepository(pool), nil
	}
}

// openHistory выбирает, где хранить историю диалогов.
func (a *App) openHistory(ctx context.Context, cfg *config.Config) (chat.HistoryStore, error) {
	if cfg.ChatHistoryBackend != config.HistoryRedis {
		return chat.NewMemoryHistory(), nil
	}

	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return chat.NewRedisHistory(client, cfg.ChatHistoryTTL), nil
}

// Run запускает планировщик и бота. Блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
		defer a.Scheduler.Stop()
	}

	a.Bot.Start(ctx)
	return nil
}

// Close освобождает соединения в обратном порядке открытия.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
