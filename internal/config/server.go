package config

import (
	"fmt"
	"time"
)

// ServerConfig holds the API server settings read from the environment.
type ServerConfig struct {
	Port              int
	APIKey            string
	DatabaseURL       string
	TemplatesDir      string
	QualityConfigPath string
	MaxConcurrent     int
	TaskTimeout       time.Duration
	TaskRetention     time.Duration
	PDFExport         bool
	MaxUploadBytes    int64
	// Model and FallbackModel override the LLM defaults; "none" as the
	// fallback disables the retry.
	Model         string
	FallbackModel string
}

// Server defaults.
const (
	DefaultPort           = 8000
	DefaultMaxConcurrent  = 4
	DefaultTaskTimeout    = 10 * time.Minute
	DefaultTaskRetention  = 24 * time.Hour
	DefaultMaxUploadBytes = 5 << 20
)

// LoadServerConfig reads the server configuration from environment variables.
// GEMINI_API_KEY is required; DATABASE_URL is optional (in-memory tasks otherwise).
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Port:              EnvInt("PORT", DefaultPort),
		APIKey:            EnvString("GEMINI_API_KEY", ""),
		DatabaseURL:       EnvString("DATABASE_URL", ""),
		TemplatesDir:      EnvString("SCRIPTGEN_TEMPLATES_DIR", ""),
		QualityConfigPath: EnvString("SCRIPTGEN_QUALITY_CONFIG", ""),
		MaxConcurrent:     EnvInt("SCRIPTGEN_MAX_CONCURRENT", DefaultMaxConcurrent),
		TaskTimeout:       EnvDuration("SCRIPTGEN_TASK_TIMEOUT", DefaultTaskTimeout),
		TaskRetention:     EnvDuration("SCRIPTGEN_TASK_RETENTION", DefaultTaskRetention),
		PDFExport:         EnvBool("SCRIPTGEN_PDF_EXPORT", false),
		MaxUploadBytes:    int64(EnvInt("SCRIPTGEN_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		Model:             EnvString("SCRIPTGEN_MODEL", ""),
		FallbackModel:     EnvString("SCRIPTGEN_FALLBACK_MODEL", ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and numeric ranges.
func (c *ServerConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("SCRIPTGEN_MAX_CONCURRENT must be at least 1, got: %d", c.MaxConcurrent)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("SCRIPTGEN_TASK_TIMEOUT must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("SCRIPTGEN_MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
