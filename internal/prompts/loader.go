// Package prompts holds the LLM prompt templates used by the script pipeline.
// Each JSON file is a flat object of key to template text, embedded at compile
// time. Placeholders use the {{.Name}} form.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Set is one parsed prompt file.
type Set map[string]string

// Key returns the template for key.
func (s Set) Key(key string) (string, bool) {
	tmpl, ok := s[key]
	return tmpl, ok
}

// Keys returns the keys in the set, sorted.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var (
	cacheMu sync.RWMutex
	cache   = map[string]Set{}
)

// Load returns the parsed prompt file. Results are cached per file name.
func Load(filename string) (Set, error) {
	cacheMu.RLock()
	set, ok := cache[filename]
	cacheMu.RUnlock()
	if ok {
		return set, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = set
	cacheMu.Unlock()
	return set, nil
}

// ClearCache drops parsed files. Used by tests.
func ClearCache() {
	cacheMu.Lock()
	cache = map[string]Set{}
	cacheMu.Unlock()
}

// Get returns the template stored under key in filename (e.g. "scriptwriter.json").
func Get(filename, key string) (string, error) {
	set, err := Load(filename)
	if err != nil {
		return "", err
	}
	tmpl, ok := set.Key(key)
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return tmpl, nil
}

// MustGet is Get for prompts the binary cannot run without.
func MustGet(filename, key string) string {
	tmpl, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return tmpl
}

// Format substitutes {{.Key}} placeholders. Placeholders with no value in data
// are left as is.
func Format(tmpl string, data map[string]string) string {
	if len(data) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Render is Get followed by Format.
func Render(filename, key string, data map[string]string) (string, error) {
	tmpl, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	return Format(tmpl, data), nil
}

// List returns the sorted prompt keys in filename.
func List(filename string) ([]string, error) {
	set, err := Load(filename)
	if err != nil {
		return nil, err
	}
	return set.Keys(), nil
}
