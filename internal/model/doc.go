// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts, messages and metrics.
//
// This package defines the core domain types used throughout the application
// for representing the console transcript and the analytics attached to
// assistant replies.
//
// # Key Types
//
//   - Message: Single transcript entry with role, content and optional metrics
//   - Role: Message role enumeration (user, assistant, system)
//   - Turn: The {role, content} pair sent upstream as context
//   - Metrics: Fully-populated analytics record
//   - PartialMetrics: Boundary schema for loosely-typed upstream payloads
//
// # Usage
//
// Normalize an upstream metrics fragment:
//
//	m := model.ParseMetrics(resp.Metrics)
//	fmt.Printf("readability %.1f%%\n", m.Readability.FleschScore*100)
package model
