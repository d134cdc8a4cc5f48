// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.API.BaseURL != "https://api.openai.com" {
		t.Errorf("base URL = %q", cfg.API.BaseURL)
	}
	if cfg.Chat.Model != "gpt-3.5-turbo" {
		t.Errorf("model = %q", cfg.Chat.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[api]
base_url = "http://localhost:8080"
key = "test-key"

[chat]
model = "gpt-4"
temperature = 0.2

[ui]
word_wrap = 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("base URL = %q", cfg.API.BaseURL)
	}
	if cfg.Chat.Model != "gpt-4" {
		t.Errorf("model = %q", cfg.Chat.Model)
	}
	if cfg.Chat.Temperature != 0.2 {
		t.Errorf("temperature = %v", cfg.Chat.Temperature)
	}
	// Unset fields fall back to defaults.
	if cfg.Chat.MaxTokens != 2048 {
		t.Errorf("max tokens = %d, want default 2048", cfg.Chat.MaxTokens)
	}
	if cfg.UI.WordWrap != 100 {
		t.Errorf("word wrap = %d", cfg.UI.WordWrap)
	}
	if cfg.UI.CodeStyle != "monokai" {
		t.Errorf("code style = %q, want default", cfg.UI.CodeStyle)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GPTSTREAM_API_KEY", "env-key")
	t.Setenv("GPTSTREAM_MODEL", "env-model")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.API.Key != "env-key" {
		t.Errorf("key = %q", cfg.API.Key)
	}
	if cfg.Chat.Model != "env-model" {
		t.Errorf("model = %q", cfg.Chat.Model)
	}
}

func TestOpenAIKeyFallback(t *testing.T) {
	t.Setenv("GPTSTREAM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "fallback-key")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.API.Key != "fallback-key" {
		t.Errorf("key = %q, want OPENAI_API_KEY fallback", cfg.API.Key)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "ftp://nope"
	cfg.Chat.Temperature = 3.5
	cfg.Chat.MaxTokens = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	verrs, ok := err.(ValidateErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidateErrors", err)
	}
	if len(verrs) != 3 {
		t.Errorf("got %d validation errors, want 3: %v", len(verrs), verrs)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.API.Key = "secret"
	cfg.Chat.Model = "custom-model"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	// The file holds the API key; it must not be world-readable.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	t.Setenv("GPTSTREAM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GPTSTREAM_MODEL", "")
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.API.Key != "secret" || loaded.Chat.Model != "custom-model" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
