package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "store.db")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.InDelta(t, 0.7, cfg.OpenAITemperature, 1e-9)
	assert.Equal(t, 100, cfg.ChatHistoryLimit)
	assert.Equal(t, HistoryMemory, cfg.ChatHistoryBackend)
	assert.Equal(t, time.Duration(0), cfg.ChatHistoryTTL)
	assert.Equal(t, 1, cfg.BotMaxInflight)
	assert.Empty(t, cfg.AdminIDs)
}

func TestLoadParsesAdminIDs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_IDS", " 42, 7 ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{42, 7}, cfg.AdminIDs)
	assert.True(t, cfg.IsAdminID(7))
	assert.False(t, cfg.IsAdminID(8))
}

func TestLoadRejectsBadAdminIDs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_IDS", "42,abc")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresToken(t *testing.T) {
	setBaseEnv(t)
	// t.Setenv восстановит значение после теста
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DBDriver:                DriverPostgres,
			DBPassword:              "secret",
			DBMaxConns:              10,
			DBMinConns:              1,
			OpenAIAPIKey:            "sk-test",
			FeatureChatEnabled:      true,
			ChatHistoryLimit:        100,
			ChatHistoryBackend:      HistoryMemory,
			BotMaxInflight:          1,
			BotUpdateTimeoutSeconds: 60,
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"postgres without password", func(c *Config) { c.DBPassword = "" }},
		{"min above max conns", func(c *Config) { c.DBMinConns = 20 }},
		{"sqlite without path", func(c *Config) { c.DBDriver = DriverSQLite; c.SQLitePath = " " }},
		{"chat without key", func(c *Config) { c.OpenAIAPIKey = "" }},
		{"zero history limit", func(c *Config) { c.ChatHistoryLimit = 0 }},
		{"unknown history backend", func(c *Config) { c.ChatHistoryBackend = "disk" }},
		{"zero inflight", func(c *Config) { c.BotMaxInflight = 0 }},
		{"zero poll timeout", func(c *Config) { c.BotUpdateTimeoutSeconds = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateChatDisabledNeedsNoKey(t *testing.T) {
	cfg := Config{
		DBDriver:                DriverSQLite,
		SQLitePath:              "store.db",
		FeatureChatEnabled:      false,
		ChatHistoryLimit:        100,
		ChatHistoryBackend:      HistoryMemory,
		BotMaxInflight:          1,
		BotUpdateTimeoutSeconds: 60,
	}
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 5432, DBName: "n", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", cfg.DatabaseDSN())
}
