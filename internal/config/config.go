package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"articleforge/internal/throttle"
)

// minAPIKeyLength guards against placeholder values like "changeme".
const minAPIKeyLength = 30

type Config struct {
	Port       string
	Production bool

	Provider string
	APIKey   string
	Model    string

	ArticlesDir       string
	CORSOrigins       []string
	RedisURL          string
	GenerationTimeout time.Duration

	Throttle throttle.Config

	GenerateRateLimit int
	GeneralRateLimit  int
	RateLimitWindow   time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	defaults := throttle.DefaultConfig()

	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		Production:  getEnv("GIN_MODE", "debug") == "release",
		Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		Model:       os.Getenv("LLM_MODEL"),
		ArticlesDir: getEnv("ARTICLES_DIR", "articles"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.GenerationTimeout, err = getDuration("GENERATION_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.Throttle.Floor, err = getDuration("THROTTLE_FLOOR", defaults.Floor); err != nil {
		return nil, err
	}
	if cfg.Throttle.Ceiling, err = getDuration("THROTTLE_CEILING", defaults.Ceiling); err != nil {
		return nil, err
	}
	if cfg.Throttle.Decrement, err = getDuration("THROTTLE_DECREMENT", defaults.Decrement); err != nil {
		return nil, err
	}
	if cfg.Throttle.Step, err = getDuration("THROTTLE_STEP", defaults.Step); err != nil {
		return nil, err
	}
	if cfg.GenerateRateLimit, err = getInt("GENERATE_RATE_LIMIT", 1); err != nil {
		return nil, err
	}
	if cfg.GeneralRateLimit, err = getInt("GENERAL_RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	cfg.APIKey = validateAPIKey(cfg.rawAPIKey())

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AIEnabled reports whether an upstream credential is available.
func (c *Config) AIEnabled() bool {
	return c.APIKey != ""
}

func (c *Config) rawAPIKey() string {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		return key
	}
	switch c.Provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func validateAPIKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		slog.Warn("upstream API key is not configured")
		return ""
	}
	if len(key) < minAPIKeyLength {
		slog.Warn("upstream API key too short, ignoring it", "length", len(key))
		return ""
	}
	return key
}

func validate(cfg *Config) error {
	switch cfg.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("LLM_PROVIDER: unknown provider %q (valid: openai, anthropic)", cfg.Provider)
	}
	if cfg.Throttle.Floor <= 0 {
		return fmt.Errorf("THROTTLE_FLOOR must be positive, got %v", cfg.Throttle.Floor)
	}
	if cfg.Throttle.Ceiling < cfg.Throttle.Floor {
		return fmt.Errorf("THROTTLE_CEILING (%v) must not be below THROTTLE_FLOOR (%v)", cfg.Throttle.Ceiling, cfg.Throttle.Floor)
	}
	if cfg.Throttle.Decrement < 0 {
		return fmt.Errorf("THROTTLE_DECREMENT must not be negative, got %v", cfg.Throttle.Decrement)
	}
	if cfg.Throttle.Step < 0 {
		return fmt.Errorf("THROTTLE_STEP must not be negative, got %v", cfg.Throttle.Step)
	}
	if cfg.GenerateRateLimit < 1 || cfg.GeneralRateLimit < 1 {
		return fmt.Errorf("rate limits must be at least 1")
	}
	if cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", cfg.RateLimitWindow)
	}
	if cfg.ArticlesDir == "" {
		return fmt.Errorf("ARTICLES_DIR must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
