package config

import "fmt"

// SearchConfig holds the Google Custom Search credentials used for topic research.
type SearchConfig struct {
	APIKey   string
	EngineID string
}

// LoadSearchConfig reads GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX.
// The API key falls back to GEMINI_API_KEY, which works when both APIs are
// enabled on the same Google Cloud project.
func LoadSearchConfig() (*SearchConfig, error) {
	cfg := &SearchConfig{
		APIKey:   EnvString("GOOGLE_SEARCH_API_KEY", EnvString("GEMINI_API_KEY", "")),
		EngineID: EnvString("GOOGLE_SEARCH_CX", ""),
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_SEARCH_API_KEY environment variable is required for topic research")
	}
	if cfg.EngineID == "" {
		return nil, fmt.Errorf("GOOGLE_SEARCH_CX environment variable is required for topic research")
	}
	return cfg, nil
}
