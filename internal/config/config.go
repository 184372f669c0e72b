package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           int
	DevMode        bool
	DatabasePath   string // transaction ledger database
	HistoryDir     string // per-symbol price history databases
	FinnhubAPIKey  string
	CoinGeckoURL   string
	LogLevel       string
	QuoteCacheTTL  time.Duration
	CryptoPrevTZ   string // reference timezone for crypto previous-close selection
	HistoryPeriod  string // default lookback for downloaded price series
	SeriesSyncSpec string // cron spec for the daily series refresh
	RiskFreeRate   float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 8080),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/ledger.db"),
		HistoryDir:     getEnv("HISTORY_DIR", "./data/history"),
		FinnhubAPIKey:  getEnv("FINNHUB_API_KEY", ""),
		CoinGeckoURL:   getEnv("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		QuoteCacheTTL:  getEnvAsDuration("QUOTE_CACHE_TTL", 30*time.Second),
		CryptoPrevTZ:   getEnv("CRYPTO_PREV_CLOSE_TZ", "America/New_York"),
		HistoryPeriod:  getEnv("HISTORY_PERIOD", "5y"),
		SeriesSyncSpec: getEnv("SERIES_SYNC_SPEC", "0 0 22 * * MON-FRI"),
		RiskFreeRate:   getEnvAsFloat("RISK_FREE_RATE", 0.02),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.HistoryDir == "" {
		return fmt.Errorf("HISTORY_DIR is required")
	}

	// Note: Finnhub key optional, live quotes degrade to stored closes without it

	if _, err := time.LoadLocation(c.CryptoPrevTZ); err != nil {
		return fmt.Errorf("invalid CRYPTO_PREV_CLOSE_TZ %q: %w", c.CryptoPrevTZ, err)
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
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
