// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported values for the pluggable backends.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	RunnerDocker  = "docker"
	RunnerProcess = "process"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       slog.Level
	RandomSeed     int64 // 0 = seed from the clock

	LLM             LLMConfig
	Store           StoreConfig
	Runner          RunnerConfig
	RateLimit       RateLimitConfig
	ConversationLog ConversationLogConfig

	PromptCatalogPath string
	GRPCHealthAddr    string
	MetricsEnabled    bool
}

// LLMConfig selects the chat-completion provider and models.
type LLMConfig struct {
	Provider     string
	APIKey       string
	BaseURL      string
	ProblemModel string
	TutorModel   string
	ChatModel    string
	Timeout      time.Duration
}

// StoreConfig selects where tracker state is kept.
type StoreConfig struct {
	Backend       string
	DBPath        string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// RunnerConfig controls code execution.
type RunnerConfig struct {
	Backend   string
	Image     string
	Runtime   string // Docker runtime: "" = default (runc), "runsc" = gVisor
	Python    string
	Timeout   time.Duration
	MaxOutput int
}

// RateLimitConfig throttles LLM-backed routes per client.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// ConversationLogConfig controls NDJSON logging of tutor exchanges.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderGroq))

	cfg := &Config{
		Port:           getEnv("PORT", "5001"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "https://*.netlify.app", "https://codeedgeai.netlify.app"}),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		RandomSeed:     int64(getEnvInt("RANDOM_SEED", 0)),
		LLM: LLMConfig{
			Provider:     provider,
			APIKey:       apiKeyFor(provider),
			BaseURL:      getEnv("LLM_BASE_URL", defaultBaseURL(provider)),
			ProblemModel: getEnv("LLM_MODEL_PROBLEM", defaultModel(provider, "llama3-70b-8192")),
			TutorModel:   getEnv("LLM_MODEL_TUTOR", defaultModel(provider, "llama3-70b-8192")),
			ChatModel:    getEnv("LLM_MODEL_CHAT", defaultModel(provider, "llama-3.3-70b-versatile")),
			Timeout:      getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
			DBPath:        getEnv("DB_PATH", "./data/codeedge.db"),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Runner: RunnerConfig{
			Backend:   strings.ToLower(getEnv("CODE_RUNNER", RunnerDocker)),
			Image:     getEnv("CODE_RUNNER_IMAGE", "python:3.12-alpine"),
			Runtime:   getEnv("CODE_RUNNER_RUNTIME", ""),
			Python:    getEnv("PYTHON_BIN", "python3"),
			Timeout:   getEnvDuration("CODE_RUNNER_TIMEOUT", 10*time.Second),
			MaxOutput: getEnvInt("CODE_RUNNER_MAX_OUTPUT", 64*1024),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000),
		},
		PromptCatalogPath: getEnv("PROMPT_CATALOG_PATH", ""),
		GRPCHealthAddr:    getEnv("GRPC_HEALTH_ADDR", ""),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLM.Provider)
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("STORE_BACKEND %q is not supported", c.Store.Backend)
	}
	switch c.Runner.Backend {
	case RunnerDocker, RunnerProcess:
	default:
		return fmt.Errorf("CODE_RUNNER %q is not supported", c.Runner.Backend)
	}
	if c.Runner.Timeout <= 0 {
		return fmt.Errorf("CODE_RUNNER_TIMEOUT must be > 0")
	}
	if c.Runner.MaxOutput <= 0 {
		return fmt.Errorf("CODE_RUNNER_MAX_OUTPUT must be > 0")
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be >= 0")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

func apiKeyFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return getEnv("ANTHROPIC_API_KEY", "")
	case ProviderOpenAI:
		return getEnv("OPENAI_API_KEY", "")
	default:
		return getEnv("GROQ_API_KEY", "")
	}
}

func defaultBaseURL(provider string) string {
	if provider == ProviderGroq {
		return "https://api.groq.com/openai/v1"
	}
	return ""
}

func defaultModel(provider, groqModel string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	default:
		return groqModel
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
