package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultStoragePath, settings.StoragePath)
	assert.Equal(t, 5*time.Minute, settings.MarketsInterval)
	assert.Equal(t, time.Minute, settings.AlertsInterval)
	assert.Equal(t, 10*time.Second, settings.Indexer.Timeout)
	assert.Equal(t, DefaultRateLimit, settings.Indexer.RateLimit)
	assert.False(t, settings.Telegram.Enabled)
	assert.Empty(t, settings.Telegram.Users)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHAINTRADER_STORAGE_PATH", ":memory:")
	t.Setenv("CHAINTRADER_MARKETS_INTERVAL", "1d")
	t.Setenv("CHAINTRADER_ALERTS_INTERVAL", "30s")
	t.Setenv("CHAINTRADER_INDEXER_EXCHANGE_URL", "http://localhost:4444")
	t.Setenv("CHAINTRADER_INDEXER_RATE_LIMIT", "2.5")
	t.Setenv("CHAINTRADER_TELEGRAM_ENABLED", "true")
	t.Setenv("CHAINTRADER_TELEGRAM_TOKEN", "token")
	t.Setenv("CHAINTRADER_TELEGRAM_USERS", "1, 42,")

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":memory:", settings.StoragePath)
	assert.Equal(t, 24*time.Hour, settings.MarketsInterval)
	assert.Equal(t, 30*time.Second, settings.AlertsInterval)
	assert.Equal(t, "http://localhost:4444", settings.Indexer.ExchangeURL)
	assert.Equal(t, 2.5, settings.Indexer.RateLimit)
	assert.True(t, settings.Telegram.Enabled)
	assert.Equal(t, "token", settings.Telegram.Token)
	assert.Equal(t, []int{1, 42}, settings.Telegram.Users)
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	configFile := filepath.Join(dir, "chaintrader.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
fee_recipient: inj1fees
alerts_interval: 2m
indexer:
  chronos_url: http://chronos.local
telegram:
  users: [7, 8]
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CHAINTRADER_ALERTS_INTERVAL=90s\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CHAINTRADER_ALERTS_INTERVAL") })

	settings, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, "inj1fees", settings.FeeRecipient)
	assert.Equal(t, "http://chronos.local", settings.Indexer.ChronosURL)
	assert.Equal(t, []int{7, 8}, settings.Telegram.Users)
	assert.Equal(t, 90*time.Second, settings.AlertsInterval, "environment wins over the file")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing config file", func(t *testing.T) {
		chdir(t, t.TempDir())
		_, err := Load("does-not-exist.yaml")
		require.Error(t, err)
	})

	t.Run("invalid interval", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("CHAINTRADER_ALERTS_INTERVAL", "soon")
		_, err := Load("")
		require.ErrorContains(t, err, "alerts_interval")
	})

	t.Run("non positive interval", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("CHAINTRADER_MARKETS_INTERVAL", "0s")
		_, err := Load("")
		require.ErrorContains(t, err, "must be positive")
	})

	t.Run("invalid user id", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("CHAINTRADER_TELEGRAM_USERS", "1,abc")
		_, err := Load("")
		require.ErrorContains(t, err, "abc")
	})

	t.Run("telegram without token", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("CHAINTRADER_TELEGRAM_ENABLED", "true")
		_, err := Load("")
		require.ErrorContains(t, err, "TELEGRAM_TOKEN")
	})
}
