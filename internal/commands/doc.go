// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the console command system shared by the TUI
// and the line-mode REPL.
//
// # Key Types
//
//   - Registry: the built-in commands, keyed by name and alias
//   - Parser: turns input into a ParseResult (command, args, error)
//   - Completer: tab completion for command names and arguments
//
// # Built-in Commands
//
//   - /help: show available commands
//   - /clear: return to the starting page (also the 'comeback' keyword)
//   - /save: save the transcript now
//   - /export <path>: export the transcript
//   - /metrics [on|off]: toggle the reply metrics panel
//   - /stats: exchange statistics
//   - /quit: leave
//
// Front ends switch on Command.Action:
//
//	res := parser.Parse(input)
//	if res.IsCommand && res.Error == nil {
//	    switch res.Command.Action { ... }
//	}
package commands
