package ratelimit

import (
	"strings"
	"time"

	"github.com/jonathan/script-generator/internal/config"
)

// Rule is the limit applied to one endpoint. Paths ending in "/" match by prefix.
type Rule struct {
	Path   string
	Method string
	Limit  int           // requests per window; 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity, defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration // buckets unused this long are dropped
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	Rules           []Rule
}

// DefaultConfig is used when no configuration is supplied.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		Rules:           DefaultRules(),
	}
}

// LoadConfig reads RATE_LIMIT_* environment variables over the defaults.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = config.EnvBool("RATE_LIMIT_ENABLED", true)
	cfg.DefaultLimit = config.EnvInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = config.EnvDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = config.EnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.IdleTTL = config.EnvDuration("RATE_LIMIT_IDLE_TTL", cfg.IdleTTL)
	cfg.Whitelist = ipSet(config.EnvList("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = ipSet(config.EnvList("RATE_LIMIT_BLACKLIST"))
	if limit := config.EnvInt("RATE_LIMIT_GENERATE_PER_HOUR", 0); limit > 0 {
		for i := range cfg.Rules {
			if cfg.Rules[i].Path == "/api/generate-script" {
				cfg.Rules[i].Limit = limit
			}
		}
	}
	return cfg
}

// DefaultRules returns the per-endpoint limits.
func DefaultRules() []Rule {
	return []Rule{
		// LLM-backed generation is the expensive call.
		{Path: "/api/generate-script", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},

		{Path: "/api/export-script", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/upload-file", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/api/validate-script", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},

		// Polling every two seconds from several sessions.
		{Path: "/api/script-status/", Method: "GET", Limit: 600, Window: time.Minute, Burst: 60},

		{Path: "/health", Method: "GET", Limit: 0},
	}
}

// Match returns the rule for path and method, or nil when the default applies.
// Exact matches win over prefix matches.
func Match(path, method string, rules []Rule) *Rule {
	for i := range rules {
		if rules[i].Method == method && rules[i].Path == path {
			return &rules[i]
		}
	}
	for i := range rules {
		r := &rules[i]
		if r.Method == method && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r
		}
	}
	return nil
}

func ipSet(ips []string) map[string]bool {
	set := make(map[string]bool, len(ips))
	for _, ip := range ips {
		set[ip] = true
	}
	return set
}
