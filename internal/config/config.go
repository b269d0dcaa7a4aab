package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	Port         int
	LogLevel     string
	DevMode      bool

	// Trading floor
	RunEveryNMinutes       int
	RunWhenMarketClosed    bool
	UseManyModels          bool
	InitialBalance         float64
	Watchlist              []string
	DecisionTimeoutSeconds int

	// Model credentials
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	DeepSeekAPIKey string
	GeminiAPIKey   string
	GrokAPIKey     string

	// Optional news feed
	NewsAPIKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "./data/trading_floor.db"),
		Port:         getEnvAsInt("GO_PORT", 8001),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DevMode:      getEnvAsBool("DEV_MODE", false),

		RunEveryNMinutes:       getEnvAsInt("RUN_EVERY_N_MINUTES", 60),
		RunWhenMarketClosed:    getEnvAsBool("RUN_EVEN_WHEN_MARKET_IS_CLOSED", false),
		UseManyModels:          getEnvAsBool("USE_MANY_MODELS", false),
		InitialBalance:         getEnvAsFloat("INITIAL_BALANCE", 10000),
		Watchlist:              getEnvAsList("WATCHLIST", "AAPL,MSFT,GOOGL,AMZN,NVDA,TSLA,SPY"),
		DecisionTimeoutSeconds: getEnvAsInt("DECISION_TIMEOUT_SECONDS", 120),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		DeepSeekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GrokAPIKey:     getEnv("GROK_API_KEY", ""),

		NewsAPIKey: getEnv("FINNHUB_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
// Missing decision-model credentials are a startup error: without them
// no trader can run a cycle, so failing fast beats a silent no-op loop.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if c.RunEveryNMinutes <= 0 {
		return fmt.Errorf("RUN_EVERY_N_MINUTES must be positive, got %d", c.RunEveryNMinutes)
	}

	if c.InitialBalance <= 0 {
		return fmt.Errorf("INITIAL_BALANCE must be positive, got %.2f", c.InitialBalance)
	}

	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.UseManyModels {
		if c.DeepSeekAPIKey == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY is required when USE_MANY_MODELS is set")
		}
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when USE_MANY_MODELS is set")
		}
		if c.GrokAPIKey == "" {
			return fmt.Errorf("GROK_API_KEY is required when USE_MANY_MODELS is set")
		}
	}

	if len(c.Watchlist) == 0 {
		return fmt.Errorf("WATCHLIST must contain at least one symbol")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(value))); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)

	var items []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.ToUpper(strings.TrimSpace(part))
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
