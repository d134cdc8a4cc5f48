// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the gptstream application.
//
// The helpers here are small, dependency-light, and shared across packages:
// rune-safe string truncation for transcript previews and atomic file writes
// for configuration persistence.
package util
