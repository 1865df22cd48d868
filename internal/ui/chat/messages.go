// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/neonnexus/internal/session"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StateMsg carries a snapshot published by the session.
type StateMsg struct {
	State session.State
}

// SessionClosedMsg is sent when the session stops publishing.
type SessionClosedMsg struct{}

// SubmitResultMsg reports whether a submission was accepted.
type SubmitResultMsg struct {
	Err error
}

// CommandResultMsg carries the output of a console command.
type CommandResultMsg struct {
	Text string
	Err  error
}

// SavedMsg reports the outcome of a transcript save.
type SavedMsg struct {
	Err error

	// Manual is true for /save, false for autosave.
	Manual bool
}

// waitForState blocks on the next snapshot from ch.
func waitForState(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return SessionClosedMsg{}
		}
		return StateMsg{State: st}
	}
}
