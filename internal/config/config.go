package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/timerstate"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string

	TickInterval         time.Duration
	BreakPolicy          timerstate.BreakPolicy
	DefaultPauseMinutes  int
	Location             *time.Location
	NotificationsEnabled bool
	NotifyWebhookURL     string
	ShareBaseURL         string
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/pomodoro.db"),
		JWTSecret:     getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:      time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),

		TickInterval:         time.Duration(getEnvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		BreakPolicy:          getEnvBreakPolicy("BREAK_POLICY"),
		DefaultPauseMinutes:  getEnvPositiveInt("DEFAULT_PAUSE_MINUTES", model.DefaultPauseMinutes),
		Location:             getEnvLocation("TIMEZONE"),
		NotificationsEnabled: getEnvBool("NOTIFICATIONS_ENABLED", true),
		NotifyWebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
		ShareBaseURL:         getEnv("SHARE_BASE_URL", "http://localhost:5173/"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvPositiveInt(key string, fallback int) int {
	if parsed := getEnvInt(key, fallback); parsed > 0 {
		return parsed
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}

func getEnvBreakPolicy(key string) timerstate.BreakPolicy {
	policy, err := timerstate.ParseBreakPolicy(os.Getenv(key))
	if err != nil {
		log.Printf("config %s: %v; using %s", key, err, timerstate.BreakPolicyAuto)
		return timerstate.BreakPolicyAuto
	}
	return policy
}

func getEnvLocation(key string) *time.Location {
	value := os.Getenv(key)
	if value == "" {
		return time.Local
	}

	loc, err := time.LoadLocation(value)
	if err != nil {
		log.Printf("config %s: %v; using local time", key, err)
		return time.Local
	}
	return loc
}
