// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultServerURL is the API base URL used when neither a flag nor a config file sets one.
const DefaultServerURL = "http://localhost:8000"

// DefaultPollInterval is how often the editor checks generation status.
const DefaultPollInterval = 2 * time.Second

// ExportFormats lists the formats accepted by the export endpoint.
var ExportFormats = []string{"txt", "md", "html", "json", "pdf"}

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Connection
	Server string `json:"server,omitempty"` // API base URL
	Token  string `json:"token,omitempty"`  // Bearer token for authenticated servers

	// Generation defaults
	Template           string `json:"template,omitempty"`            // Template id
	HighlightedConcept string `json:"highlighted_concept,omitempty"` // Concept to explain with an analogy
	PreviousTopic      string `json:"previous_topic,omitempty"`      // Topic of the previous episode

	// Output
	ExportFormat string `json:"export_format,omitempty"` // txt, md, html, json or pdf
	OutDir       string `json:"out_dir,omitempty"`       // Directory for exported files

	// Behavior
	PollInterval string `json:"poll_interval,omitempty"` // Go duration, e.g. "2s"
	Verbose      bool   `json:"verbose,omitempty"`       // Print the full validation report
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Server != "" {
		u, err := url.Parse(c.Server)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config error: 'server' must be an http(s) URL, got %q", c.Server)
		}
	}

	if c.ExportFormat != "" && !IsExportFormat(c.ExportFormat) {
		return fmt.Errorf("config error: 'export_format' must be one of %s", strings.Join(ExportFormats, ", "))
	}

	if c.PollInterval != "" {
		d, err := time.ParseDuration(c.PollInterval)
		if err != nil {
			return fmt.Errorf("config error: invalid 'poll_interval': %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: 'poll_interval' must be positive")
		}
	}

	if c.OutDir != "" {
		if info, err := os.Stat(c.OutDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: out_dir is not a directory: %s", c.OutDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Server == "" {
		result.Server = defaults.Server
	}
	if result.Token == "" {
		result.Token = defaults.Token
	}
	if result.Template == "" {
		result.Template = defaults.Template
	}
	if result.HighlightedConcept == "" {
		result.HighlightedConcept = defaults.HighlightedConcept
	}
	if result.PreviousTopic == "" {
		result.PreviousTopic = defaults.PreviousTopic
	}
	if result.ExportFormat == "" {
		result.ExportFormat = defaults.ExportFormat
	}
	if result.OutDir == "" {
		result.OutDir = defaults.OutDir
	}
	if result.PollInterval == "" {
		result.PollInterval = defaults.PollInterval
	}

	// Last-resort values
	// ExportFormat stays empty when unset: generate only exports on request.
	if result.Server == "" {
		result.Server = DefaultServerURL
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// PollEvery returns the configured poll interval, or DefaultPollInterval when unset or invalid.
func (c *Config) PollEvery() time.Duration {
	if c.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// IsExportFormat reports whether format is a supported export format.
func IsExportFormat(format string) bool {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, f := range ExportFormats {
		if f == format {
			return true
		}
	}
	return false
}
