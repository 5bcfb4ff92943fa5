package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath     string
	DataDir    string // home of the recovery state file
	ServerPort string
	LogLevel   string

	RecoveryRequiredSeconds int
	RecoveryMaxPauseSeconds int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:                  getEnv("DB_PATH", "lifequest.db"),
		DataDir:                 getEnv("DATA_DIR", "."),
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		RecoveryRequiredSeconds: getEnvInt("RECOVERY_REQUIRED_SECONDS", 8*60*60),
		RecoveryMaxPauseSeconds: getEnvInt("RECOVERY_MAX_PAUSE_SECONDS", 5*60),
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("data_dir", cfg.DataDir).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("recovery_required_seconds", cfg.RecoveryRequiredSeconds).
		Int("recovery_max_pause_seconds", cfg.RecoveryMaxPauseSeconds).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
