package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Notion destination
	NotionToken      string
	NotionParentPage string

	// Auth
	NotepressAPIKey string

	// Claude analysis
	AnthropicAPIKey string
	AnthropicModel  string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Formatting policy overrides; zero values defer to policy file or
	// built-in defaults.
	PolicyFile    string
	BlockCap      int
	GateThreshold float64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8091"),

		NotionToken:      os.Getenv("NOTION_TOKEN"),
		NotionParentPage: os.Getenv("NOTION_PARENT_PAGE"),

		NotepressAPIKey: os.Getenv("NOTEPRESS_API_KEY"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		PolicyFile:    os.Getenv("FORMAT_POLICY_FILE"),
		BlockCap:      envInt("FORMAT_BLOCK_CAP", 0),
		GateThreshold: envFloat("FORMAT_GATE_THRESHOLD", 0),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
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

	return cfg
}

func (c Config) Validate() error {
	if c.NotionToken == "" {
		return fmt.Errorf("NOTION_TOKEN is required")
	}
	if c.NotionParentPage == "" {
		return fmt.Errorf("NOTION_PARENT_PAGE is required")
	}
	if c.NotepressAPIKey == "" {
		return fmt.Errorf("NOTEPRESS_API_KEY is required")
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.GateThreshold < 0 || c.GateThreshold > 1 {
		return fmt.Errorf("FORMAT_GATE_THRESHOLD must be in [0,1], got %g", c.GateThreshold)
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
