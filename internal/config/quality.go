package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/jonathan/script-generator/internal/analysis"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/quality.yaml
var defaultQuality []byte

// LoadQuality returns the quality thresholds. The embedded defaults are applied
// first and the file at path, when non-empty, overrides individual fields.
func LoadQuality(path string) (analysis.QualityThresholds, error) {
	var th analysis.QualityThresholds
	if err := yaml.Unmarshal(defaultQuality, &th); err != nil {
		return th, fmt.Errorf("failed to parse default quality config: %w", err)
	}
	if path == "" {
		return th, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("failed to read quality config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &th); err != nil {
		return th, fmt.Errorf("failed to parse quality config %s: %w", path, err)
	}
	if th.MinWordCount < 0 || th.MinFleschScore < 0 || th.MaxSentenceLength <= 0 {
		return th, fmt.Errorf("quality config %s: thresholds must be non-negative and max_sentence_length positive", path)
	}
	return th, nil
}
