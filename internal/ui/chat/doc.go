// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the full-screen Neon Nexus console.
//
// The Model renders session snapshots received from a Session (the
// dispatcher) and forwards submissions to it. It never edits the transcript
// itself: every change arrives as a StateMsg, after which the view scrolls
// to the latest message.
//
// Layout, top to bottom:
//
//	header       title and link status
//	transcript   scrollable viewport; replies rendered as markdown
//	banners      notification, cooldown bar, command output
//	input        disabled while sending or cooling down
//	footer       tip and key help
//
// Console commands (/help, /clear, /save, /export, /metrics, /stats, /quit
// and the 'comeback' keyword) come from the commands package.
package chat
