package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
)

type Config struct {
	// API settings
	APIAddr  string
	APIKey   string
	DevMode  bool
	LogLevel string

	// Program settings
	ProgramID string
	// Owner and FeeBps initialize the config at startup when Owner is set
	Owner  string
	FeeBps uint64

	// Redis settings; empty disables the cache, pub/sub and flags
	RedisAddr string

	// ClickHouse settings; empty addr disables the event store
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	RecentSwapsLimit int
	HTTPTimeout      time.Duration
}

func Load() *Config {
	return &Config{
		// API
		APIAddr:  getEnv("API_ADDR", ":8090"),
		APIKey:   getEnv("API_KEY", ""),
		DevMode:  getBoolEnv("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Program
		ProgramID: getEnv("AMM_PROGRAM_ID", constants.DefaultProgramID),
		Owner:     getEnv("AMM_OWNER", ""),
		FeeBps:    uint64(getIntEnv("AMM_FEE_BPS", 30)),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "amm"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		RecentSwapsLimit: getIntEnv("RECENT_SWAPS_LIMIT", constants.MaxRecentSwaps),
		HTTPTimeout:      getDurationEnv("HTTP_TIMEOUT", 10*time.Second),
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR is required")
	}
	if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("AMM_PROGRAM_ID is not a valid public key: %w", err)
	}
	if c.Owner != "" {
		if _, err := solana.PublicKeyFromBase58(c.Owner); err != nil {
			return fmt.Errorf("AMM_OWNER is not a valid public key: %w", err)
		}
	}
	if c.FeeBps >= constants.BasisPoints {
		return fmt.Errorf("AMM_FEE_BPS must be below %d", constants.BasisPoints)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.RecentSwapsLimit < 1 || c.RecentSwapsLimit > 1000 {
		return fmt.Errorf("RECENT_SWAPS_LIMIT must be between 1 and 1000")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// ProgramKey returns the parsed program id. Call after Validate.
func (c *Config) ProgramKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
