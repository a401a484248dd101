package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the HealthRadar server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ingest   IngestConfig
	SMS      SMSConfig
	Archive  ArchiveConfig
	AI       AIConfig
}

type ServerConfig struct {
	Port              int
	Env               string
	RequestsPerMinute int
	MaxUploadBytes    int64
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// IngestConfig tunes the upload pipeline.
type IngestConfig struct {
	GroupSize      int
	GroupPause     time.Duration
	SettleDelay    time.Duration
	NotifyEvery    int64
	CounterBackend string
}

// SMSConfig configures the TextBee gateway. SMS is disabled unless the API key
// and device ID are both set.
type SMSConfig struct {
	BaseURL      string
	APIKey       string
	DeviceID     string
	ContactsFile string
	SendInterval time.Duration
	Timeout      time.Duration
}

// Enabled reports whether enough gateway settings are present to send messages.
func (c SMSConfig) Enabled() bool {
	return c.BaseURL != "" && c.APIKey != "" && c.DeviceID != ""
}

// ArchiveConfig configures the optional S3 copy of raw uploads.
type ArchiveConfig struct {
	Bucket      string
	Prefix      string
	Region      string
	EndpointURL string
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	OpenRouter       OpenRouterConfig
	Ollama           OllamaConfig
	VLLM             VLLMConfig
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
	Gemini           GeminiConfig
}

type OpenRouterConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type AnthropicConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

var validProviders = map[string]bool{
	"openrouter": true,
	"ollama":     true,
	"vllm":       true,
	"openai":     true,
	"anthropic":  true,
	"gemini":     true,
}

var validCounterBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables without validating
// it, so callers can override values (such as connection URLs taken from
// flags) before calling Validate.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              envInt("HEALTHRADAR_PORT", 8080),
			Env:               envString("HEALTHRADAR_ENV", "development"),
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
			MaxUploadBytes:    int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Ingest: IngestConfig{
			GroupSize:      envInt("INGEST_GROUP_SIZE", 10),
			GroupPause:     envDuration("INGEST_GROUP_PAUSE", 500*time.Millisecond),
			SettleDelay:    envDuration("INGEST_SETTLE_DELAY", 2*time.Second),
			NotifyEvery:    int64(envInt("NOTIFY_EVERY_UPLOADS", 4)),
			CounterBackend: envString("UPLOAD_COUNTER_BACKEND", "memory"),
		},
		SMS: SMSConfig{
			BaseURL:      envString("TEXTBEE_BASE_URL", "https://api.textbee.dev/api/v1"),
			APIKey:       os.Getenv("TEXTBEE_API_KEY"),
			DeviceID:     os.Getenv("TEXTBEE_DEVICE_ID"),
			ContactsFile: envString("SMS_CONTACTS_FILE", "configs/contacts.yaml"),
			SendInterval: envDuration("SMS_SEND_INTERVAL", 2*time.Second),
			Timeout:      envDuration("SMS_TIMEOUT", 30*time.Second),
		},
		Archive: ArchiveConfig{
			Bucket:      os.Getenv("ARCHIVE_S3_BUCKET"),
			Prefix:      envString("ARCHIVE_S3_PREFIX", "uploads"),
			Region:      envString("AWS_REGION", "ap-southeast-1"),
			EndpointURL: os.Getenv("AWS_ENDPOINT_URL"),
		},
		AI: AIConfig{
			Provider:         os.Getenv("AI_PROVIDER"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 120*time.Second),
			OpenRouter: OpenRouterConfig{
				BaseURL: envString("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
				APIKey:  os.Getenv("OPENROUTER_API_KEY"),
				Model:   envString("OPENROUTER_MODEL", "moonshotai/kimi-dev-72b:free"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000"),
				Model:   envString("VLLM_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Anthropic: AnthropicConfig{
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
			},
		},
	}
}

// Validate reports the first missing or invalid setting.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Ingest.GroupSize <= 0 {
		return fmt.Errorf("INGEST_GROUP_SIZE must be positive, got %d", c.Ingest.GroupSize)
	}
	if c.Ingest.NotifyEvery <= 0 {
		return fmt.Errorf("NOTIFY_EVERY_UPLOADS must be positive, got %d", c.Ingest.NotifyEvery)
	}
	if !validCounterBackends[c.Ingest.CounterBackend] {
		return fmt.Errorf("UPLOAD_COUNTER_BACKEND must be one of memory, redis; got %q", c.Ingest.CounterBackend)
	}

	if c.SMS.BaseURL != "" && !isHTTPURL(c.SMS.BaseURL) {
		return fmt.Errorf("TEXTBEE_BASE_URL must start with http:// or https://, got %q", c.SMS.BaseURL)
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of openrouter, ollama, vllm, openai, anthropic, gemini; got %q", c.AI.Provider)
	}

	switch {
	case c.AI.Provider == "openrouter" && c.AI.OpenRouter.APIKey == "":
		return fmt.Errorf("OPENROUTER_API_KEY is required when AI_PROVIDER is openrouter")
	case c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "":
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	case c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "":
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	case c.AI.Provider == "gemini" && c.AI.Gemini.APIKey == "":
		return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
