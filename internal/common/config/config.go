package config

import (
	"os"
	"strconv"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port          string
	Environment   string
	ReadTimeout   int
	WriteTimeout  int
	PatternDBPath string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		Environment:   getEnv("ENV", "development"),
		ReadTimeout:   getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout:  getEnvAsInt("WRITE_TIMEOUT", 10),
		PatternDBPath: getEnv("PATTERN_DB_PATH", "data/db/patterns.db"),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
