package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	NatsURL      string
	NatsToken    string
	LogLevel     string
	GeminiAPIKey string
	Model        string
	ImageModel   string
}

func Load() Config {
	return Config{
		Port:         envInt("PROMPTMINER_PORT", 8760),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		GeminiAPIKey: envStr("GEMINI_API_KEY", ""),
		Model:        envStr("PROMPTMINER_MODEL", "gemini-2.5-flash"),
		ImageModel:   envStr("PROMPTMINER_IMAGE_MODEL", "gemini-2.0-flash-exp-image-generation"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
