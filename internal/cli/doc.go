// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the neonnexus command line.
//
// # Commands
//
//   - (none): full-screen console when stdin and stdout are terminals,
//     otherwise the line REPL
//   - chat: line REPL with input history and tab completion
//   - serve: the upstream /chat service
//   - config show|init|path|get|set: configuration management
//   - transcript show|export|clear: the saved transcript
//   - version: build information
//
// Global flags --config and --log-level apply to every command. The console
// and the REPL log to a file so the terminal stays clean; serve logs to
// stderr.
//
// # Hot reload
//
// While the console runs, edits to chat.system_instruction in the config
// file apply to the next fresh session.
package cli
