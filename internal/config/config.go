// Package config provides configuration management for autopilot.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	aperrors "github.com/talentops/autopilot/internal/errors"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
	// Dir is the autopilot configuration directory.
	Dir = ".autopilot"
	// DBFileName is the default SQLite database file name.
	DBFileName = "autopilot.db"
	// LocksDirName is the run-lock directory under Dir.
	LocksDirName = "locks"
)

// FallbackModel is used when neither config nor environment name a model.
const FallbackModel = "gpt-5.2"

// Budget bounds and defaults for one job invocation.
const (
	DefaultLimit = 5
	MinLimit     = 1
	MaxLimit     = 100

	DefaultMaxRuntimeSeconds = 1200
	MinMaxRuntimeSeconds     = 10
	MaxMaxRuntimeSeconds     = 12 * 60 * 60

	DefaultMaxIterations   = 40
	DefaultMaxOutputTokens = 2000
)

// AgentConfig configures the tool-loop executor endpoint.
type AgentConfig struct {
	BaseURL         string `yaml:"base_url"`
	Token           string `yaml:"token,omitempty"`
	ReasoningEffort string `yaml:"reasoning_effort"`
}

// StoreConfig configures the persistence store.
type StoreConfig struct {
	// Dialect is "sqlite" (default) or "postgres".
	Dialect string `yaml:"dialect"`
	// DSN is the database path (sqlite) or connection string (postgres).
	// Empty means the default path under the config directory.
	DSN string `yaml:"dsn,omitempty"`
}

// Config represents the autopilot configuration.
type Config struct {
	// Version is the config file version.
	Version int `yaml:"version"`

	// Model settings.
	Model         string `yaml:"model"`
	FallbackModel string `yaml:"fallback_model,omitempty"`

	// Agent endpoint.
	Agent AgentConfig `yaml:"agent"`

	// Store settings.
	Store StoreConfig `yaml:"store"`

	// Per-run defaults, overridable by CLI flags.
	Limit             int  `yaml:"limit"`
	MaxRuntimeSeconds int  `yaml:"max_runtime_seconds"`
	MaxIterations     int  `yaml:"max_iterations"`
	MaxOutputTokens   int  `yaml:"max_output_tokens"`
	WebSearch         bool `yaml:"web_search"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version:       1,
		Model:         "",
		FallbackModel: FallbackModel,
		Agent: AgentConfig{
			BaseURL:         "http://localhost:8787",
			ReasoningEffort: "medium",
		},
		Store:             StoreConfig{Dialect: "sqlite"},
		Limit:             DefaultLimit,
		MaxRuntimeSeconds: DefaultMaxRuntimeSeconds,
		MaxIterations:     DefaultMaxIterations,
		MaxOutputTokens:   DefaultMaxOutputTokens,
		WebSearch:         true,
	}
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir, ConfigFileName)
}

// DBPath returns the effective database DSN for the config.
func (c *Config) DBPath() string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	return filepath.Join(Dir, DBFileName)
}

// LocksDir returns the run-lock directory.
func LocksDir() string {
	return filepath.Join(Dir, LocksDirName)
}

// RequireInit returns an error if autopilot was not initialized in the
// current directory.
func RequireInit() error {
	if _, err := os.Stat(Dir); os.IsNotExist(err) {
		return aperrors.New(aperrors.CodeNotInitialized, "autopilot is not initialized here").
			WithFix("run 'autopilot init' first")
	}
	return nil
}

// Load reads the config file, falling back to defaults when it does not
// exist. Budgets are clamped to their valid ranges.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, aperrors.Wrap(aperrors.CodeConfigInvalid, "parse config", err).
			WithFix("fix or delete " + Path())
	}

	cfg.Clamp()
	return cfg, nil
}

// Save writes the config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(Path(), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Clamp forces all budgets into their valid ranges.
func (c *Config) Clamp() {
	c.Limit = ClampLimit(c.Limit)
	c.MaxRuntimeSeconds = ClampRuntimeSeconds(c.MaxRuntimeSeconds)
	c.MaxIterations = ClampIterations(c.MaxIterations)
	c.MaxOutputTokens = ClampOutputTokens(c.MaxOutputTokens)
}

// ResolveModel returns the model to use: configured model, else fallback.
func (c *Config) ResolveModel() string {
	if c.Model != "" {
		return c.Model
	}
	if c.FallbackModel != "" {
		return c.FallbackModel
	}
	return FallbackModel
}

// ClampLimit clamps the per-run unit limit to [1, 100].
func ClampLimit(v int) int {
	return clamp(v, MinLimit, MaxLimit)
}

// ClampRuntimeSeconds clamps the wall-clock budget to [10s, 12h].
func ClampRuntimeSeconds(v int) int {
	return clamp(v, MinMaxRuntimeSeconds, MaxMaxRuntimeSeconds)
}

// ClampIterations clamps the tool-loop iteration budget to [1, 200].
func ClampIterations(v int) int {
	return clamp(v, 1, 200)
}

// ClampOutputTokens clamps the per-step output budget to [64, 200000].
func ClampOutputTokens(v int) int {
	return clamp(v, 64, 200000)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
