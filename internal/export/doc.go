// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders console transcripts to files.
//
// # Supported Formats
//
//   - markdown: human-readable, optional metrics table per reply
//   - json: machine-readable with metadata
//   - yaml: same document as json, YAML encoded
//
// # Usage
//
//	exporter, err := export.NewExporter("md", export.DefaultOptions())
//	path, err := export.ExportToFile(export.FromState(state), exporter, opts)
//
// Placeholders and cooldown notices never appear in an export.
package export
