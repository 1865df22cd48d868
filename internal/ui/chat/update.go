// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/neonnexus/internal/commands"
	"github.com/jeranaias/neonnexus/internal/dispatch"
	"github.com/jeranaias/neonnexus/internal/session"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		return m.handleState(msg.State)

	case SessionClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case SubmitResultMsg:
		return m.handleSubmitResult(msg.Err), nil

	case CommandResultMsg:
		m.setInfo(msg.Text, msg.Err)
		m.refresh(false)
		return m, nil

	case SavedMsg:
		if msg.Err != nil {
			m.log.Warn("transcript save failed", "error", msg.Err, "manual", msg.Manual)
			m.savedSig = ""
			m.setInfo("", fmt.Errorf("save failed: %w", msg.Err))
		} else if msg.Manual {
			m.setInfo("Transcript saved.", nil)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if _, pending := m.state.Temporary(); pending {
			m.refresh(false)
		}
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SESSION SNAPSHOTS
// =============================================================================

func (m Model) handleState(st session.State) (tea.Model, tea.Cmd) {
	prev := m.state
	m.state = st
	m.hasState = true

	if st.IsRateLimited && (!prev.IsRateLimited || st.CooldownSeconds > m.cooldownTotal) {
		m.cooldownTotal = st.CooldownSeconds
	}
	if !st.IsRateLimited {
		m.cooldownTotal = 0
	}

	if m.InputDisabled() {
		m.input.Blur()
	} else {
		m.input.Focus()
	}

	// New content always scrolls to the latest message.
	m.refresh(true)

	cmds := []tea.Cmd{waitForState(m.updates)}
	if cmd := m.maybeAutosave(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// maybeAutosave saves settled transcripts that changed since the last save.
func (m *Model) maybeAutosave() tea.Cmd {
	if !m.autosave || m.InputDisabled() {
		return nil
	}
	sig := transcriptSignature(m.state)
	if sig == m.savedSig {
		return nil
	}
	m.savedSig = sig
	return saveCmd(m.saver, m.state, false)
}

// transcriptSignature identifies the persistable transcript.
func transcriptSignature(st session.State) string {
	msgs := st.Snapshot().Messages
	if len(msgs) == 0 {
		return "0"
	}
	return fmt.Sprintf("%d:%s", len(msgs), msgs[len(msgs)-1].ID)
}

func saveCmd(saver Saver, st session.State, manual bool) tea.Cmd {
	return func() tea.Msg {
		return SavedMsg{Err: saver.Save(st), Manual: manual}
	}
}

func (m Model) handleSubmitResult(err error) Model {
	switch {
	case err == nil, errors.Is(err, dispatch.ErrEmptyInput):
	case errors.Is(err, dispatch.ErrRateLimited):
		m.setInfo("", errors.New("cooling down, transmission not sent"))
	case errors.Is(err, dispatch.ErrBusy):
		m.setInfo("", errors.New("still waiting on the previous transmission"))
	default:
		m.setInfo("", err)
	}
	return m
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Dismiss):
		if m.state.Notification != "" {
			return m, m.callSession(m.session.DismissNotification)
		}
		m.info, m.infoErr = "", false
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Metrics):
		m.showMetrics = !m.showMetrics
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()
	}

	// SECURITY: Nothing is typed while a request is in flight or cooling down
	if m.InputDisabled() {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.updateSuggestions()
	return m, cmd
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.InputDisabled() {
		return m, nil
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	m.input.Reset()
	m.updateSuggestions()
	m.info, m.infoErr = "", false

	if res := m.parser.Parse(text); res.IsCommand {
		return m.runCommand(res)
	}

	sess := m.session
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return SubmitResultMsg{Err: sess.Submit(ctx, text)}
	}
}

// updateSuggestions offers completions for the command being typed.
func (m *Model) updateSuggestions() {
	value := m.input.Value()
	if !commands.IsCommand(value) {
		m.input.SetSuggestions(nil)
		return
	}
	m.input.SetSuggestions(m.completer.CompleteLine(value))
}

// callSession runs a session call in the background, reporting failures.
func (m Model) callSession(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return CommandResultMsg{Err: err}
		}
		return nil
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// Reserved rows: header (2), info/notification lines, input (2), footer (2).
const (
	headerHeight = 2
	inputHeight  = 2
	footerHeight = 2
)

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.theme.SetSize(msg.Width, msg.Height)

	inputWidth := msg.Width - 4 - len(m.input.Prompt)
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.viewport.Width = max(msg.Width, 1)
	m.refresh(true)
	return m, nil
}

// refresh re-renders the transcript into the viewport and resizes it to
// the space left by the banners. follow scrolls to the latest message.
func (m *Model) refresh(follow bool) {
	reserved := headerHeight + inputHeight + footerHeight + lineCount(m.renderBanners())
	height := m.height - reserved
	if height < 1 {
		height = 1
	}
	m.viewport.Height = height

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setInfo(text string, err error) {
	if err != nil {
		m.info, m.infoErr = err.Error(), true
		return
	}
	m.info, m.infoErr = text, false
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
