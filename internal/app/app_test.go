package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/gamestore-bot/internal/config"
	"serotonyl.ru/gamestore-bot/internal/features/chat"
	"serotonyl.ru/gamestore-bot/internal/features/store"
)

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	SetupLogging("warn")
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	SetupLogging("шум")
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestOpenStoreSQLite(t *testing.T) {
	a := &App{}
	defer a.Close()

	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "store.db"),
		AdminIDs:   []int64{42},
	}
	repo, err := a.openStore(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &store.SQLiteRepository{}, repo)
	assert.Len(t, a.closers, 1)

	svc := store.NewService(repo, cfg)
	assert.Equal(t, 1, svc.BootstrapAdmins(context.Background()))
	assert.True(t, svc.IsAdmin(context.Background(), 42))
}

func TestOpenHistory(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		a := &App{}
		h, err := a.openHistory(context.Background(), &config.Config{ChatHistoryBackend: config.HistoryMemory})
		require.NoError(t, err)
		assert.IsType(t, &chat.MemoryHistory{}, h)
		assert.Empty(t, a.closers)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		a := &App{}
		defer a.Close()

		h, err := a.openHistory(context.Background(), &config.Config{
			ChatHistoryBackend: config.HistoryRedis,
			RedisAddr:          mr.Addr(),
			ChatHistoryTTL:     time.Hour,
		})
		require.NoError(t, err)
		assert.IsType(t, &chat.RedisHistory{}, h)
		assert.Len(t, a.closers, 1)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		a := &App{}
		_, err := a.openHistory(context.Background(), &config.Config{
			ChatHistoryBackend: config.HistoryRedis,
			RedisAddr:          "127.0.0.1:1",
		})
		assert.Error(t, err)
		assert.Empty(t, a.closers)
	})
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	var order []int
	a := &App{closers: []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}}
	a.Close()
	a.Close()

	assert.Equal(t, []int{2, 1}, order)
}
