// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for gptstream.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file location:
//   - ~/.gptstream/config.toml
//   - Built-in defaults
//
// Environment overrides:
//   - GPTSTREAM_API_KEY / OPENAI_API_KEY
//   - GPTSTREAM_BASE_URL
//   - GPTSTREAM_MODEL
package config
