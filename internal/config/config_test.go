package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.RunEveryNMinutes)
	assert.False(t, cfg.RunWhenMarketClosed)
	assert.False(t, cfg.UseManyModels)
	assert.Equal(t, 10000.0, cfg.InitialBalance)
	assert.Equal(t, 8001, cfg.Port)
	assert.Contains(t, cfg.Watchlist, "AAPL")
}

func TestLoad_MissingAPIKeyIsFatal(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("RUN_EVERY_N_MINUTES", "5")
	t.Setenv("RUN_EVEN_WHEN_MARKET_IS_CLOSED", "true")
	t.Setenv("USE_MANY_MODELS", "true")
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("GROK_API_KEY", "gk-key")
	t.Setenv("WATCHLIST", " aapl, msft ,,tsla ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.RunEveryNMinutes)
	assert.True(t, cfg.RunWhenMarketClosed)
	assert.True(t, cfg.UseManyModels)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, cfg.Watchlist)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.RunEveryNMinutes = 0 }},
		{"negative balance", func(c *Config) { c.InitialBalance = -1 }},
		{"empty watchlist", func(c *Config) { c.Watchlist = nil }},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }},
		{"many models without deepseek key", func(c *Config) { c.UseManyModels = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DatabasePath:     "./data/test.db",
				RunEveryNMinutes: 60,
				InitialBalance:   10000,
				OpenAIAPIKey:     "key",
				Watchlist:        []string{"AAPL"},
			}
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
