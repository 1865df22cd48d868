// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for neonnexus.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - UpstreamConfig: Completion endpoint used by the console
//   - TranscriptConfig: Transcript persistence backend and key
//   - ServerConfig: Settings for the reference upstream service
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (NEXUS_*, GROQ_API_KEY)
//   - $NEXUS_HOME or ~/.neonnexus/config.toml
//   - $NEXUS_HOME or ~/.neonnexus/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Follow edits to the system instruction while running:
//
//	err := config.Watch(ctx, path, func(c *config.Config) {
//	    d.SetSystemInstruction(ctx, c.Chat.SystemInstruction)
//	})
package config
