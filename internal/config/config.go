package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

type Config struct {
	// Languages (BCP 47)
	SourceLang string
	TargetLang string

	// Baidu Fanyi
	BaiduAppID  string
	BaiduSecret string
	BaiduURL    string
	BaiduMaxRPS int

	// DeepL
	DeepLAPIKey string
	DeepLURL    string
	DeepLMaxRPS int

	// Claude translation
	AnthropicAPIKey string
	AnthropicModel  string
	AnthropicURL    string
	AnthropicMaxRPS int

	// Pseudo-localization
	PseudoMaxRPS int

	// Run behaviour
	RequestTimeout time.Duration
	MaxInFlight    int
	FailurePolicy  string
	PipelineFile   string

	// Logging
	LogLevel  string
	LogFormat string

	// HTTP service
	Port          string
	DoctranAPIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		SourceLang: envOr("SOURCE_LANG", "en"),
		TargetLang: envOr("TARGET_LANG", "zh"),

		BaiduAppID:  os.Getenv("BAIDU_FANYI_APPID"),
		BaiduSecret: os.Getenv("BAIDU_FANYI_SECRET"),
		BaiduURL:    os.Getenv("BAIDU_FANYI_URL"),
		BaiduMaxRPS: envInt("BAIDU_FANYI_MAX_RPS", 1),

		DeepLAPIKey: os.Getenv("DEEPL_API_KEY"),
		DeepLURL:    os.Getenv("DEEPL_API_URL"),
		DeepLMaxRPS: envInt("DEEPL_MAX_RPS", 5),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		AnthropicURL:    os.Getenv("ANTHROPIC_API_URL"),
		AnthropicMaxRPS: envInt("ANTHROPIC_MAX_RPS", 2),

		PseudoMaxRPS: envInt("PSEUDO_MAX_RPS", 50),

		RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxInFlight:    envInt("MAX_IN_FLIGHT", 0),
		FailurePolicy:  envOr("FAILURE_POLICY", "recover"),
		PipelineFile:   os.Getenv("DOCTRAN_PIPELINE"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),

		Port:          envOr("PORT", "8090"),
		DoctranAPIKey: os.Getenv("DOCTRAN_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.BaiduMaxRPS <= 0 {
		cfg.BaiduMaxRPS = 1
	}
	if cfg.DeepLMaxRPS <= 0 {
		cfg.DeepLMaxRPS = 5
	}
	if cfg.AnthropicMaxRPS <= 0 {
		cfg.AnthropicMaxRPS = 2
	}
	if cfg.PseudoMaxRPS <= 0 {
		cfg.PseudoMaxRPS = 50
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxInFlight < 0 {
		cfg.MaxInFlight = 0
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	cfg.FailurePolicy = strings.ToLower(cfg.FailurePolicy)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	return cfg
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if _, err := language.Parse(c.SourceLang); err != nil {
		return fmt.Errorf("SOURCE_LANG %q is not a valid language tag", c.SourceLang)
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("TARGET_LANG %q is not a valid language tag", c.TargetLang)
	}
	switch c.FailurePolicy {
	case "recover", "abort":
	default:
		return fmt.Errorf("FAILURE_POLICY must be recover or abort, got %q", c.FailurePolicy)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// ValidateBackend checks that the credentials for a work variant are set.
// Variants without a remote backend need nothing.
func (c Config) ValidateBackend(work string) error {
	switch work {
	case "baidu_fanyi":
		if c.BaiduAppID == "" {
			return fmt.Errorf("BAIDU_FANYI_APPID is required")
		}
		if c.BaiduSecret == "" {
			return fmt.Errorf("BAIDU_FANYI_SECRET is required")
		}
	case "deepl":
		if c.DeepLAPIKey == "" {
			return fmt.Errorf("DEEPL_API_KEY is required")
		}
	case "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	}
	return nil
}

// ValidateServe checks the settings the HTTP service needs.
func (c Config) ValidateServe() error {
	if c.DoctranAPIKey == "" {
		return fmt.Errorf("DOCTRAN_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
