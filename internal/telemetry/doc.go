// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides structured logging and exchange statistics.
//
// # Key Types
//
//   - Tracker: Per-session exchange counters and the slowest exchanges
//   - SessionStats: Snapshot of the tracker
//   - Outcome: success, empty, rate_limited or failed
//
// # Logging
//
// Logging goes through log/slog. The process logger writes JSON to stderr
// until Setup replaces it:
//
//	f, _ := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
//	telemetry.Setup(f, telemetry.LogOptions{Level: "debug"})
//	telemetry.WithFields("component", "dispatch").Info("started")
//
// # Usage
//
//	tracker := telemetry.NewTracker()
//	tracker.RecordExchange(telemetry.OutcomeSuccess, prompt, time.Since(start))
//	fmt.Println(tracker.Stats().Summary())
//
// # Privacy
//
// Statistics are local-only and held in memory. Prompts are truncated to
// 100 characters and API keys are never logged.
package telemetry
