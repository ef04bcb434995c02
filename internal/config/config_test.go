package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
trading:
  mode: dry_run
  allow_live_trading: true
  starting_balance: 25000
exchange:
  name: binance
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "dry_run", cfg.Trading.Mode)
	assert.True(t, cfg.Trading.AllowLiveTrading)
	assert.Equal(t, 25_000.0, cfg.Trading.StartingBalance)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.001, cfg.Trading.SlippageRate)
	assert.Equal(t, "trades.csv", cfg.Trading.TradeLogPath)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad mode":       "trading:\n  mode: yolo\n",
		"bad balance":    "trading:\n  starting_balance: -5\n",
		"bad slippage":   "trading:\n  slippage_rate: 1.5\n",
		"bad commission": "trading:\n  commission_rate: -0.1\n",
		"bad exchange":   "exchange:\n  name: kraken\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefaultFallsBackSafely(t *testing.T) {
	cfg, reason := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotEmpty(t, reason)
	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.False(t, cfg.Trading.AllowLiveTrading)
	assert.Equal(t, 10_000.0, cfg.Trading.StartingBalance)

	cfg, reason = LoadOrDefault(writeConfig(t, "trading:\n  mode: paper\n"))
	assert.Empty(t, reason)
	assert.Equal(t, "paper", cfg.Trading.Mode)
}

func TestDefaultIsNeverLive(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.False(t, cfg.Trading.AllowLiveTrading)
	assert.NoError(t, cfg.Validate())
}
