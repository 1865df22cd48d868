// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the console transcript and rate-limit state.
//
// A State is a value: every transform returns a new State and never mutates
// the receiver, so snapshots handed to renderers stay stable. The dispatcher
// is the only writer.
//
// # Key Types
//
//   - State: Transcript, notification, cooldown and in-flight flags
//   - Phase: Idle, Sending or RateLimited, derived from State
//   - Snapshot: Persisted {messages: [...]} blob
//
// # Usage
//
//	s := session.New()
//	s = s.AppendUser("hello").AppendTemporary(session.Placeholders[0])
//	s = s.ReplaceTemporaryWith(model.NewAssistantMessage("hi there"))
//
// Cooldown handling:
//
//	s = s.SetRateLimit(2, "hello").AppendCooldownNotice()
//	s, retry := s.TickCooldown() // retry == "" until the cooldown elapses
//
// # Invariants
//
// At most one temporary message is present in any State produced by this
// package. Restore discards a saved transcript entirely if any entry fails
// validation and reseeds the welcome message.
package session
