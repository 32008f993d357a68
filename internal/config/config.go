// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/quillchat/quill/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete quill configuration.
type Config struct {
	Version string `toml:"version"`

	// Backend (Ollama) configuration
	Backend BackendConfig `toml:"backend"`

	// Generation parameters sent with every prompt
	Generation GenerationConfig `toml:"generation"`

	// Markdown rendering configuration
	Render RenderConfig `toml:"render"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// BackendConfig contains the Ollama connection settings.
type BackendConfig struct {
	// URL is the Ollama server base URL
	URL string `toml:"url"`
	// Model is the model used for generation
	Model string `toml:"model"`
	// TimeoutSecs bounds non-streaming requests (health check, model list)
	TimeoutSecs int `toml:"timeout_secs"`
}

// GenerationConfig contains sampling parameters.
type GenerationConfig struct {
	// Temperature controls sampling randomness (0.0-2.0, 0 = backend default)
	Temperature float64 `toml:"temperature"`
	// TopP is the nucleus sampling threshold (0.0-1.0, 0 = backend default)
	TopP float64 `toml:"top_p"`
	// TopK limits sampling to the K most likely tokens (0 = backend default)
	TopK int `toml:"top_k"`
	// MaxTokens caps response length (0 = unlimited)
	MaxTokens int `toml:"max_tokens"`
	// Format is the output mode, e.g. "json" (empty = free text)
	Format string `toml:"format"`
}

// RenderConfig controls the markdown pipeline.
type RenderConfig struct {
	// AllowRawHTML passes generator-embedded HTML through without the
	// allow-list sanitizer. Off by default.
	AllowRawHTML bool `toml:"allow_raw_html"`
	// WrapWidth is the word-wrap column for rendered markdown (0 = auto)
	WrapWidth int `toml:"wrap_width"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// ShowStats displays per-turn generation statistics under responses
	ShowStats bool `toml:"show_stats"`
	// ShowTimestamps displays message timestamps in the transcript
	ShowTimestamps bool `toml:"show_timestamps"`
	// CompactMode reduces message padding
	CompactMode bool `toml:"compact_mode"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Backend: BackendConfig{
			URL:         "http://127.0.0.1:11434",
			Model:       "llama3.2",
			TimeoutSecs: 30,
		},
		Generation: GenerationConfig{
			Temperature: 0.8,
			TopP:        0.9,
			TopK:        40,
		},
		Render: RenderConfig{
			AllowRawHTML: false,
			WrapWidth:    0,
		},
		UI: UIConfig{
			ShowStats:      true,
			ShowTimestamps: false,
			CompactMode:    false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the quill configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".quill"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes permissions on the config file.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads the configuration from the default file. Missing files fall
// back to defaults; environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads the configuration from an explicit path. A missing
// file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		fillDefaults(cfg)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills zero-valued required fields after a partial decode.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = def.Backend.URL
	}
	if cfg.Backend.Model == "" {
		cfg.Backend.Model = def.Backend.Model
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = def.Backend.TimeoutSecs
	}
}

// =============================================================================
// SAVE
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to an explicit path.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
// SECURITY: Files are created with 0600 permissions.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# quill configuration file\n")
	buf.WriteString("# Generated by quill - edit with care\n\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.URL != "" {
		parsed, err := url.Parse(c.Backend.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "backend.url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Backend.URL),
			})
		}
	}

	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: "must not be negative",
		})
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "generation.temperature",
			Message: "must be between 0.0 and 2.0",
		})
	}

	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "generation.top_p",
			Message: "must be between 0.0 and 1.0",
		})
	}

	if c.Generation.TopK < 0 {
		errs = append(errs, ValidationError{
			Field:   "generation.top_k",
			Message: "must not be negative",
		})
	}

	if c.Generation.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "generation.max_tokens",
			Message: "must not be negative",
		})
	}

	if c.Generation.Format != "" && c.Generation.Format != "json" {
		errs = append(errs, ValidationError{
			Field:   "generation.format",
			Message: fmt.Sprintf("invalid format '%s', must be empty or 'json'", c.Generation.Format),
		})
	}

	if c.Render.WrapWidth < 0 {
		errs = append(errs, ValidationError{
			Field:   "render.wrap_width",
			Message: "must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - QUILL_URL: overrides backend.url
//   - QUILL_MODEL: overrides backend.model
//   - QUILL_TEMPERATURE: overrides generation.temperature
//   - QUILL_MAX_TOKENS: overrides generation.max_tokens
//   - QUILL_ALLOW_RAW_HTML: set to "1" or "true" to disable the HTML allow-list
//   - QUILL_SHOW_STATS: set to "1" or "true" to show per-turn statistics
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("QUILL_URL"); u != "" {
		c.Backend.URL = u
	}

	if model := os.Getenv("QUILL_MODEL"); model != "" {
		c.Backend.Model = model
	}

	if temp := os.Getenv("QUILL_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			c.Generation.Temperature = v
		}
	}

	if max := os.Getenv("QUILL_MAX_TOKENS"); max != "" {
		if v, err := strconv.Atoi(max); err == nil {
			c.Generation.MaxTokens = v
		}
	}

	if raw := os.Getenv("QUILL_ALLOW_RAW_HTML"); raw != "" {
		c.Render.AllowRawHTML = raw == "1" || strings.ToLower(raw) == "true"
	}

	if stats := os.Getenv("QUILL_SHOW_STATS"); stats != "" {
		c.UI.ShowStats = stats == "1" || strings.ToLower(stats) == "true"
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
