// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for gptstream.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/gptstream/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete gptstream configuration.
type Config struct {
	// API configuration
	API APIConfig `toml:"api"`

	// Chat request parameters
	Chat ChatConfig `toml:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// APIConfig contains the provider endpoint configuration.
type APIConfig struct {
	// BaseURL is the API base URL
	BaseURL string `toml:"base_url"`
	// Key is the bearer token sent on every request
	Key string `toml:"key"`
	// StreamTimeoutSecs bounds connection establishment for a stream
	StreamTimeoutSecs int `toml:"stream_timeout_secs"`
	// RequestsPerMinute rate-limits outgoing requests
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// ChatConfig contains the completion request parameters.
type ChatConfig struct {
	// Model is the completion model name
	Model string `toml:"model"`
	// Temperature for sampling
	Temperature float64 `toml:"temperature"`
	// MaxTokens caps the completion length
	MaxTokens int `toml:"max_tokens"`
	// Stop sequences terminate generation server-side
	Stop []string `toml:"stop"`
}

// UIConfig contains display configuration.
type UIConfig struct {
	// WordWrap is the markdown wrap column
	WordWrap int `toml:"word_wrap"`
	// CodeStyle is the chroma style used for code segments
	CodeStyle string `toml:"code_style"`
	// HistoryFile stores the REPL input history ("" = default path)
	HistoryFile string `toml:"history_file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "https://api.openai.com",
			StreamTimeoutSecs: 10,
			RequestsPerMinute: 20,
		},
		Chat: ChatConfig{
			Model:       "gpt-3.5-turbo",
			Temperature: 0.7,
			MaxTokens:   2048,
			Stop:        []string{"\n\n\n"},
		},
		UI: UIConfig{
			WordWrap:  80,
			CodeStyle: "monokai",
		},
	}
}

// StreamTimeout returns the configured stream timeout as a duration.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.API.StreamTimeoutSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the configuration directory (~/.gptstream).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".gptstream"), nil
}

// Path returns the full path of the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err == nil {
		if err := LoadTOML(cfg, path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	fillDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation, applying defaults for missing values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overlays environment variables onto the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GPTSTREAM_API_KEY"); v != "" {
		cfg.API.Key = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.API.Key == "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("GPTSTREAM_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("GPTSTREAM_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
}

// fillDefaults fills in defaults for any zero values.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = def.API.BaseURL
	}
	if cfg.API.StreamTimeoutSecs == 0 {
		cfg.API.StreamTimeoutSecs = def.API.StreamTimeoutSecs
	}
	if cfg.API.RequestsPerMinute == 0 {
		cfg.API.RequestsPerMinute = def.API.RequestsPerMinute
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = def.Chat.Model
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = def.Chat.Temperature
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = def.Chat.MaxTokens
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = def.UI.WordWrap
	}
	if cfg.UI.CodeStyle == "" {
		cfg.UI.CodeStyle = def.UI.CodeStyle
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default TOML file atomically.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file atomically. The file is
// created with 0600: it may contain the API key.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: "must be an http(s) URL"})
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{Field: "chat.temperature", Message: "must be between 0 and 2"})
	}
	if c.Chat.MaxTokens < 0 {
		errs = append(errs, ValidationError{Field: "chat.max_tokens", Message: "cannot be negative"})
	}
	if c.API.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "api.requests_per_minute", Message: "cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
