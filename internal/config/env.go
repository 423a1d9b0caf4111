package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment variables that override file values.
const (
	EnvWebhookURL = "CAMWATCH_WEBHOOK_URL"
	EnvSenderID   = "CAMWATCH_SENDER_ID"
	EnvLogLevel   = "LOG_LEVEL"
)

// LoadEnv loads variables from .env files in the working directory into the
// process environment. Missing files are skipped.
func LoadEnv(logger *logrus.Logger) {
	files := []string{".env", ".env.local"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger == nil {
		return
	}
	if len(loaded) == 0 {
		logger.Debug("No local env files loaded; relying on process environment")
	} else {
		logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
}

// ApplyEnv overlays environment overrides onto cfg. getenv is usually
// os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvWebhookURL)); v != "" {
		cfg.Webhook.URL = v
	}
	if v := strings.TrimSpace(getenv(EnvSenderID)); v != "" {
		cfg.Webhook.SenderID = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
