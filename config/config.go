// Package config loads application configuration from .env files and
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Port        int
	DBPath      string
	DataPath    string
	LogDir      string
	Verbose     bool
	WindowStart string // "HH:MM" override of the working window
	WindowEnd   string
}

// Load loads the configuration from a .env file (when present) and
// environment variables.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	dataPath := getEnv("DATA_PATH", "./data")
	logDir := filepath.Join(dataPath, "logs")

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		log.Warn().Err(err).Str("path", dataPath).Msg("Failed to create data directory")
	}

	port, _ := strconv.Atoi(getEnv("PORT", "8080"))

	cfg := &AppConfig{
		Port:        port,
		DBPath:      getEnv("DB_PATH", filepath.Join(dataPath, "sla.db")),
		DataPath:    dataPath,
		LogDir:      getEnv("LOGS_FOLDER", logDir),
		Verbose:     getEnvBool("VERBOSE", false),
		WindowStart: getEnv("WORK_WINDOW_START", ""),
		WindowEnd:   getEnv("WORK_WINDOW_END", ""),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
