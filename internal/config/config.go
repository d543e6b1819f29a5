// Package config loads application configuration from an optional JSON or YAML file
// overlaid with environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v4"
)

// Duration is a time.Duration that reads from strings such as "30s" in JSON and YAML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the application configuration. All fields are optional in files.
type Config struct {
	// Servers
	Port      int `json:"port,omitempty" yaml:"port,omitempty"`             // application API port
	LaTeXPort int `json:"latex_port,omitempty" yaml:"latex_port,omitempty"` // compilation service port

	// Collaborators
	DatabaseURL       string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	GeminiAPIKey      string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	RedisURL          string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`                     // enables cross-process status events
	CompileServiceURL string `json:"compile_service_url,omitempty" yaml:"compile_service_url,omitempty"` // remote compiler, local when empty

	// LaTeX toolchain
	LaTeXEngine        string   `json:"latex_engine,omitempty" yaml:"latex_engine,omitempty"`
	LaTeXTimeout       Duration `json:"latex_timeout,omitempty" yaml:"latex_timeout,omitempty"`
	LaTeXMaxConcurrent int      `json:"latex_max_concurrent,omitempty" yaml:"latex_max_concurrent,omitempty"`

	// Generation
	GenerationMode       string            `json:"generation_mode,omitempty" yaml:"generation_mode,omitempty"`
	GenerationAITimeout  Duration          `json:"generation_ai_timeout,omitempty" yaml:"generation_ai_timeout,omitempty"`
	GenerationStaleAfter Duration          `json:"generation_stale_after,omitempty" yaml:"generation_stale_after,omitempty"` // idle time before an unfinished run may be restarted
	Models               map[string]string `json:"models,omitempty" yaml:"models,omitempty"`                                 // tier -> model name

	// Logging
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                 8080,
		LaTeXPort:            8081,
		LaTeXEngine:          "pdflatex",
		LaTeXTimeout:         Duration(30 * time.Second),
		LaTeXMaxConcurrent:   2,
		GenerationMode:       "template",
		GenerationStaleAfter: Duration(10 * time.Minute),
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// Load reads path (skipped when empty), applies environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	cfg.ApplyEnv()
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file, or YAML when the extension is .yaml or .yml.
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
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return &cfg, nil
}

// ApplyEnv overrides fields with any environment variables that are set.
// Malformed numeric or duration values are ignored.
func (c *Config) ApplyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDuration := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" {
			var d Duration
			if err := d.UnmarshalText([]byte(v)); err == nil {
				*dst = d
			}
		}
	}

	setInt("PORT", &c.Port)
	setInt("LATEX_PORT", &c.LaTeXPort)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("GEMINI_API_KEY", &c.GeminiAPIKey)
	setString("REDIS_URL", &c.RedisURL)
	setString("COMPILE_SERVICE_URL", &c.CompileServiceURL)
	setString("LATEX_ENGINE", &c.LaTeXEngine)
	setDuration("LATEX_TIMEOUT", &c.LaTeXTimeout)
	setInt("LATEX_MAX_CONCURRENT", &c.LaTeXMaxConcurrent)
	setString("GENERATION_MODE", &c.GenerationMode)
	setDuration("GENERATION_AI_TIMEOUT", &c.GenerationAITimeout)
	setDuration("GENERATION_STALE_AFTER", &c.GenerationStaleAfter)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FORMAT", &c.LogFormat)
}

// MergeWithDefaults returns a copy of c with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.LaTeXPort == 0 {
		result.LaTeXPort = defaults.LaTeXPort
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.CompileServiceURL == "" {
		result.CompileServiceURL = defaults.CompileServiceURL
	}
	if result.LaTeXEngine == "" {
		result.LaTeXEngine = defaults.LaTeXEngine
	}
	if result.LaTeXTimeout == 0 {
		result.LaTeXTimeout = defaults.LaTeXTimeout
	}
	if result.LaTeXMaxConcurrent == 0 {
		result.LaTeXMaxConcurrent = defaults.LaTeXMaxConcurrent
	}
	if result.GenerationMode == "" {
		result.GenerationMode = defaults.GenerationMode
	}
	if result.GenerationAITimeout == 0 {
		result.GenerationAITimeout = defaults.GenerationAITimeout
	}
	if result.GenerationStaleAfter == 0 {
		result.GenerationStaleAfter = defaults.GenerationStaleAfter
	}
	if len(result.Models) == 0 && len(defaults.Models) > 0 {
		result.Models = make(map[string]string, len(defaults.Models))
		for k, v := range defaults.Models {
			result.Models[k] = v
		}
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}
	return result
}

// Validate checks value ranges and enumerations. Required collaborators are checked by the
// commands that need them.
func (c *Config) Validate() error {
	for name, port := range map[string]int{"port": c.Port, "latex_port": c.LaTeXPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("config error: '%s' must be between 0 and 65535, got %d", name, port)
		}
	}
	if c.LaTeXTimeout < 0 || c.GenerationAITimeout < 0 || c.GenerationStaleAfter < 0 {
		return fmt.Errorf("config error: timeouts must be non-negative")
	}
	if c.LaTeXMaxConcurrent < 0 {
		return fmt.Errorf("config error: 'latex_max_concurrent' must be non-negative")
	}
	switch c.GenerationMode {
	case "", "template", "ai", "enhanced":
	default:
		return fmt.Errorf("config error: 'generation_mode' must be one of template, ai, enhanced, got %q", c.GenerationMode)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be text or json, got %q", c.LogFormat)
	}
	for _, raw := range []string{c.CompileServiceURL, c.RedisURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: invalid URL %q", raw)
		}
	}
	for tier := range c.Models {
		switch tier {
		case "lite", "standard", "advanced":
		default:
			return fmt.Errorf("config error: unknown model tier %q", tier)
		}
	}
	return nil
}
