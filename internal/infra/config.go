package infra

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment
// variables. Provider credentials stay optional here: their absence is a
// recoverable precondition surfaced by the orchestrator, not a boot failure.
type Config struct {
	AppEnv string
	Port   string

	ReplicateAPIToken string
	ReplicateBaseURL  string
	XAIAPIKey         string
	XAIBaseURL        string

	OutputDir     string
	RecentsPath   string
	DatabaseURL   string
	DefaultLocale string

	PollInterval    time.Duration
	PollMaxAttempts int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	outputDir := getEnv("OUTPUT_DIR", filepath.Join(os.TempDir(), "funmoji"))
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		XAIAPIKey:         os.Getenv("XAI_API_KEY"),
		XAIBaseURL:        getEnv("XAI_BASE_URL", "https://api.x.ai"),

		OutputDir:     outputDir,
		RecentsPath:   getEnv("RECENTS_PATH", filepath.Join(outputDir, "recents.json")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),

		PollInterval:    time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 1500)),
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 60),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
