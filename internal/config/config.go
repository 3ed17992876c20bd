package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings, read from the environment.
type Config struct {
	Addr             string
	DBPath           string
	JWTSecret        string
	TokenTTL         time.Duration
	CORSOrigins      []string
	BaseURL          string
	OpenAIKey        string
	OpenAIBaseURL    string
	SMTPHost         string
	SMTPPort         string
	SMTPUser         string
	SMTPPass         string
	MailFrom         string
	LogLevel         string
	SchedulerEnabled bool
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() Config {
	_ = godotenv.Load()

	ttl := 7 * 24 * time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ttl = d
		}
	}

	scheduler := true
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			scheduler = b
		}
	}

	return Config{
		Addr:             getenv("ADDR", ":8080"),
		DBPath:           getenv("DB_PATH", "expenses.db"),
		JWTSecret:        getenv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:         ttl,
		CORSOrigins:      splitOrigins(getenv("CORS_ORIGINS", "http://localhost:3000")),
		BaseURL:          getenv("BASE_URL", "http://localhost:8080"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getenv("SMTP_PORT", "587"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
		MailFrom:         getenv("MAIL_FROM", "no-reply@localhost"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		SchedulerEnabled: scheduler,
	}
}

func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
