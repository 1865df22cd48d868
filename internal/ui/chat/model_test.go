// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/neonnexus/internal/dispatch"
	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSession struct {
	mu         sync.Mutex
	ch         chan session.State
	submitted  []string
	submitErr  error
	resets     int
	dismissals int
}

func newFakeSession() *fakeSession {
	return &fakeSession{ch: make(chan session.State, 8)}
}

func (f *fakeSession) Submit(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	return f.submitErr
}

func (f *fakeSession) DismissNotification(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissals++
	return nil
}

func (f *fakeSession) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeSession) Subscribe() <-chan session.State { return f.ch }

type recordingSaver struct {
	mu     sync.Mutex
	states []session.State
	err    error
}

func (r *recordingSaver) Save(st session.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
	return r.err
}

// =============================================================================
// HELPERS
// =============================================================================

func testTheme() *styles.Theme {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	r.SetHasDarkBackground(true)
	return styles.NewThemeWithRenderer("neon", r)
}

func newTestModel(t *testing.T, sess Session, opts Options) Model {
	t.Helper()
	if opts.Theme == nil {
		opts.Theme = testTheme()
	}
	m := New(sess, opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func enter(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// runCmd runs cmd and any batched commands, with a guard against commands
// that block on the session channel.
func runCmd(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, runCmd(t, c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func stateWith(msgs ...model.Message) session.State {
	st := session.New()
	st.Messages = append(st.Messages, msgs...)
	return st
}

// =============================================================================
// RENDERING
// =============================================================================

func TestModel_RendersSnapshot(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m, cmd := update(t, m, StateMsg{State: session.New()})
	assert.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "NEON NEXUS")
	assert.Contains(t, view, session.WelcomeMessage)
	assert.Contains(t, view, session.Tip)
	assert.Contains(t, view, "link idle")
	assert.False(t, m.InputDisabled())
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(newFakeSession(), Options{Theme: testTheme()})
	assert.Equal(t, "Initializing neural link...", m.View())
}

func TestModel_AutoScrollsToLatest(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})

	var msgs []model.Message
	for i := 0; i < 40; i++ {
		msgs = append(msgs, model.NewUserMessage("line"), model.NewAssistantMessage("reply"))
	}
	m, _ = update(t, m, StateMsg{State: stateWith(msgs...)})
	assert.True(t, m.viewport.AtBottom())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.False(t, m.viewport.AtBottom())

	m, _ = update(t, m, StateMsg{State: stateWith(append(msgs, model.NewAssistantMessage("newest"))...)})
	assert.True(t, m.viewport.AtBottom())
	assert.Contains(t, m.View(), "newest")
}

func TestModel_PendingReplyShowsPlaceholder(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})

	st := session.New().AppendUser("hello").AppendTemporary(session.Placeholders[0]).WithSending(true)
	m, _ = update(t, m, StateMsg{State: st})

	view := m.View()
	assert.Contains(t, view, session.Placeholders[0])
	assert.Contains(t, view, "transmitting")
	assert.Contains(t, view, "awaiting response...")
}

// =============================================================================
// INPUT
// =============================================================================

func TestModel_SubmitForwardsText(t *testing.T) {
	f := newFakeSession()
	m := newTestModel(t, f, Options{})
	m, _ = update(t, m, StateMsg{State: session.New()})

	m = typeText(t, m, "hello nexus")
	m, cmd := enter(t, m)
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msgs := runCmd(t, cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, SubmitResultMsg{}, msgs[0])
	assert.Equal(t, []string{"hello nexus"}, f.submitted)
}

func TestModel_BlankSubmitIgnored(t *testing.T) {
	f := newFakeSession()
	m := newTestModel(t, f, Options{})

	m = typeText(t, m, "   ")
	_, cmd := enter(t, m)
	assert.Nil(t, cmd)
	assert.Empty(t, f.submitted)
}

func TestModel_InputDisabledWhileBusy(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		hint  string
	}{
		{"sending", session.New().AppendUser("hi").WithSending(true), "awaiting response..."},
		{"cooling", session.New().SetRateLimit(4, "hi"), "input locked, retrying in 4s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSession()
			m := newTestModel(t, f, Options{})
			m, _ = update(t, m, StateMsg{State: tt.state})
			require.True(t, m.InputDisabled())

			m = typeText(t, m, "more")
			assert.Empty(t, m.input.Value())

			_, cmd := enter(t, m)
			assert.Nil(t, cmd)
			assert.Empty(t, f.submitted)
			assert.Contains(t, m.View(), tt.hint)
		})
	}
}

func TestModel_InputReenabledAfterReply(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m, _ = update(t, m, StateMsg{State: session.New().WithSending(true)})
	assert.False(t, m.input.Focused())

	m, _ = update(t, m, StateMsg{State: session.New()})
	assert.True(t, m.input.Focused())

	m = typeText(t, m, "again")
	assert.Equal(t, "again", m.input.Value())
}

func TestModel_SubmitRejections(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})

	m, _ = update(t, m, SubmitResultMsg{Err: dispatch.ErrRateLimited})
	assert.Contains(t, m.Info(), "cooling down")

	m, _ = update(t, m, SubmitResultMsg{Err: dispatch.ErrBusy})
	assert.Contains(t, m.Info(), "previous transmission")

	m, _ = update(t, m, SubmitResultMsg{Err: errors.New("boom")})
	assert.Equal(t, "boom", m.Info())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.Info())
}

// =============================================================================
// BANNERS
// =============================================================================

func TestModel_CooldownBar(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})

	st := session.New().AppendUser("hi").SetRateLimit(4, "hi")
	m, _ = update(t, m, StateMsg{State: st})
	assert.Contains(t, m.View(), "RATE LIMIT [####################] 4s")

	st, _ = st.TickCooldown()
	st, _ = st.TickCooldown()
	m, _ = update(t, m, StateMsg{State: st})
	assert.Contains(t, m.View(), "[##########----------] 2s")
	assert.Contains(t, m.View(), "cooling down")
}

func TestModel_NotificationDismiss(t *testing.T) {
	f := newFakeSession()
	m := newTestModel(t, f, Options{})

	m, _ = update(t, m, StateMsg{State: session.New().SetNotification(session.NotifyMalfunction)})
	assert.Contains(t, m.View(), session.NotifyMalfunction)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Empty(t, runCmd(t, cmd))
	assert.Equal(t, 1, f.dismissals)
}

func TestModel_MetricsPanel(t *testing.T) {
	metrics := model.DefaultMetrics()
	metrics.HumanLikenessScore = 87
	metrics.Sentiment.Label = "positive"
	metrics.Sentiment.Score = 0.25
	reply := model.NewAssistantMessage("All systems nominal.").WithMetrics(metrics)

	m := newTestModel(t, newFakeSession(), Options{ShowMetrics: true})
	m, _ = update(t, m, StateMsg{State: stateWith(model.NewUserMessage("status?"), reply)})

	view := m.View()
	assert.Contains(t, view, "TEXT ANALYSIS")
	assert.Contains(t, view, "human-likeness 87/100")
	assert.Contains(t, view, "sentiment positive (+0.25)")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.False(t, m.ShowMetrics())
	assert.NotContains(t, m.View(), "TEXT ANALYSIS")
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

func TestModel_SessionClosedQuits(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m, cmd := update(t, m, SessionClosedMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, m.Quitting())
	assert.Empty(t, m.View())
}

func TestModel_QuitKey(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.NotNil(t, cmd)
	assert.True(t, m.Quitting())
}

func TestModel_Autosave(t *testing.T) {
	f := newFakeSession()
	saver := &recordingSaver{}
	m := newTestModel(t, f, Options{Saver: saver, Autosave: true})
	close(f.ch)

	st := stateWith(model.NewUserMessage("hi"), model.NewAssistantMessage("hello"))
	m, cmd := update(t, m, StateMsg{State: st})
	msgs := runCmd(t, cmd)
	assert.Contains(t, msgs, tea.Msg(SavedMsg{}))
	require.Len(t, saver.states, 1)
	assert.Len(t, saver.states[0].Messages, 3)

	// Same transcript again: nothing to save.
	_, cmd = update(t, m, StateMsg{State: st})
	runCmd(t, cmd)
	assert.Len(t, saver.states, 1)

	// In-flight states are not saved.
	_, cmd = update(t, m, StateMsg{State: st.AppendUser("more").WithSending(true)})
	runCmd(t, cmd)
	assert.Len(t, saver.states, 1)
}

func TestModel_AutosaveFailureRetries(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{Saver: &recordingSaver{}, Autosave: true})
	m.savedSig = "stale"

	m, _ = update(t, m, SavedMsg{Err: errors.New("disk full")})
	assert.Empty(t, m.savedSig)
	assert.Contains(t, m.Info(), "save failed: disk full")
}

// =============================================================================
// COMMANDS
// =============================================================================

func submitLine(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	return enter(t, m)
}

func TestCommand_Comeback(t *testing.T) {
	f := newFakeSession()
	m := newTestModel(t, f, Options{})

	_, cmd := submitLine(t, m, "comeback")
	require.NotNil(t, cmd)
	runCmd(t, cmd)
	assert.Equal(t, 1, f.resets)
	assert.Empty(t, f.submitted)

	_, cmd = submitLine(t, m, "/clear")
	runCmd(t, cmd)
	assert.Equal(t, 2, f.resets)
}

func TestCommand_HelpAndUnknown(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})

	m, _ = submitLine(t, m, "/help")
	assert.Contains(t, m.Info(), "/export <path>")
	assert.Contains(t, m.Info(), "transmit")

	m, _ = submitLine(t, m, "/warp")
	assert.Contains(t, m.Info(), "unknown command")

	m, _ = submitLine(t, m, "/export")
	assert.Contains(t, m.Info(), "required argument missing")
}

func TestCommand_Metrics(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	require.False(t, m.ShowMetrics())

	m, _ = submitLine(t, m, "/metrics")
	assert.True(t, m.ShowMetrics())
	assert.Equal(t, "Metrics panel on.", m.Info())

	m, _ = submitLine(t, m, "/metrics OFF")
	assert.False(t, m.ShowMetrics())
	assert.Equal(t, "Metrics panel off.", m.Info())
}

func TestCommand_Stats(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m, _ = submitLine(t, m, "/stats")
	assert.Equal(t, "No statistics recorded.", m.Info())

	tracker := telemetry.NewTracker()
	tracker.RecordExchange(telemetry.OutcomeSuccess, "hello", 20*time.Millisecond)
	m = newTestModel(t, newFakeSession(), Options{Tracker: tracker})
	m, _ = submitLine(t, m, "/stats")
	assert.True(t, strings.HasPrefix(m.Info(), "1 requests: 1 ok"), m.Info())
}

func TestCommand_Save(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m, cmd := submitLine(t, m, "/save")
	assert.Nil(t, cmd)
	assert.Equal(t, ErrSaveDisabled.Error(), m.Info())

	saver := &recordingSaver{}
	m = newTestModel(t, newFakeSession(), Options{Saver: saver})
	m, cmd = submitLine(t, m, "/save")
	msgs := runCmd(t, cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, SavedMsg{Manual: true}, msgs[0])
	assert.Len(t, saver.states, 1)

	m, _ = update(t, m, msgs[0])
	assert.Equal(t, "Transcript saved.", m.Info())
}

func TestCommand_Export(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m, _ = update(t, m, StateMsg{State: stateWith(model.NewUserMessage("hello"), model.NewAssistantMessage("hi there"))})

	path := filepath.Join(t.TempDir(), "out", "session.md")
	m, cmd := submitLine(t, m, "/export "+path)
	msgs := runCmd(t, cmd)
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Equal(t, "Exported 3 messages to "+path, m.Info())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hi there")

	m, cmd = submitLine(t, m, "/export "+filepath.Join(t.TempDir(), "x.docx"))
	msgs = runCmd(t, cmd)
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])
	assert.True(t, strings.HasPrefix(m.Info(), "export:"), m.Info())
}

func TestCommand_Quit(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m, cmd := submitLine(t, m, "/quit")
	assert.NotNil(t, cmd)
	assert.True(t, m.Quitting())
}

func TestCommand_Suggestions(t *testing.T) {
	m := newTestModel(t, newFakeSession(), Options{})
	m = typeText(t, m, "/me")
	assert.Equal(t, []string{"/metrics"}, m.input.AvailableSuggestions())
}
