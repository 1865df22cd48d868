// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/neonnexus/internal/commands"
	"github.com/jeranaias/neonnexus/internal/export"
)

// ErrSaveDisabled is reported by /save when no transcript store is configured.
var ErrSaveDisabled = errors.New("transcript saving is disabled")

// runCommand executes a parsed console command.
func (m Model) runCommand(res commands.ParseResult) (tea.Model, tea.Cmd) {
	if res.Error != nil {
		m.setInfo("", res.Error)
		m.refresh(false)
		return m, nil
	}

	switch res.Command.Action {
	case commands.ActionHelp:
		m.setInfo(m.registry.HelpText()+"\n\n"+m.help.FullHelpView(m.keys.FullHelp()), nil)

	case commands.ActionClear:
		m.cooldownTotal = 0
		return m, m.callSession(m.session.Reset)

	case commands.ActionSave:
		if m.saver == nil {
			m.setInfo("", ErrSaveDisabled)
			break
		}
		m.savedSig = transcriptSignature(m.state)
		return m, saveCmd(m.saver, m.state, true)

	case commands.ActionMetrics:
		switch {
		case len(res.Args) == 0:
			m.showMetrics = !m.showMetrics
		default:
			m.showMetrics = strings.EqualFold(res.Args[0], "on")
		}
		if m.showMetrics {
			m.setInfo("Metrics panel on.", nil)
		} else {
			m.setInfo("Metrics panel off.", nil)
		}

	case commands.ActionStats:
		if m.tracker == nil {
			m.setInfo("No statistics recorded.", nil)
			break
		}
		m.setInfo(m.tracker.Stats().Summary(), nil)

	case commands.ActionExport:
		return m, exportCmd(export.FromState(m.state), res.Args[0], m.exportOpts)

	case commands.ActionQuit:
		m.quitting = true
		return m, tea.Quit
	}

	m.refresh(false)
	return m, nil
}

// exportCmd writes t to path; the extension picks the format.
func exportCmd(t *export.Transcript, path string, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		if err := export.WriteTo(t, path, opts); err != nil {
			return CommandResultMsg{Err: fmt.Errorf("export: %w", err)}
		}
		return CommandResultMsg{Text: fmt.Sprintf("Exported %d messages to %s", len(t.Messages), path)}
	}
}
