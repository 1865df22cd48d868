// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/neonnexus/internal/commands"
	"github.com/jeranaias/neonnexus/internal/export"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Session is the state owner the console drives. *dispatch.Dispatcher
// implements it.
type Session interface {
	Submit(ctx context.Context, text string) error
	DismissNotification(ctx context.Context) error
	Reset(ctx context.Context) error
	Subscribe() <-chan session.State
}

// Saver persists transcripts. *storage.TranscriptStore implements it.
type Saver interface {
	Save(state session.State) error
}

// Options configures the console.
type Options struct {
	// Theme defaults to the neon theme.
	Theme *styles.Theme

	// Saver is optional; without it /save reports an error and nothing
	// is autosaved.
	Saver    Saver
	Autosave bool

	// Tracker backs /stats. Optional.
	Tracker *telemetry.Tracker

	ShowMetrics bool
	Markdown    bool

	// ExportOptions are passed to /export. Defaults to export.DefaultOptions.
	ExportOptions *export.Options
}

// callTimeout bounds calls into the session from commands.
const callTimeout = 5 * time.Second

// inputCharLimit caps a single transmission.
const inputCharLimit = 4096

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model of the console. It renders session
// snapshots and forwards input; it never mutates the session directly.
type Model struct {
	session  Session
	updates  <-chan session.State
	state    session.State
	hasState bool

	theme    *styles.Theme
	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	markdown *markdownRenderer

	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer

	saver       Saver
	autosave    bool
	savedSig    string
	tracker     *telemetry.Tracker
	exportOpts  *export.Options
	showMetrics bool

	// info is console-local output (command results), never part of the
	// transcript.
	info    string
	infoErr bool

	// cooldownTotal is the length of the running cooldown, for the bar.
	cooldownTotal int

	width    int
	height   int
	ready    bool
	quitting bool

	log *slog.Logger
}

// New creates a console bound to sess. It subscribes immediately.
func New(sess Session, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.DefaultPalette)
	}
	exportOpts := opts.ExportOptions
	if exportOpts == nil {
		exportOpts = export.DefaultOptions()
	}

	registry := commands.NewRegistry()

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = "Transmit a message..."
	ti.CharLimit = inputCharLimit
	ti.ShowSuggestions = true
	ti.SetSuggestions(registry.Names())
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = styles.SpinnerFor(theme.Palette).Bubbles()
	sp.Style = theme.AssistantPrompt

	h := help.New()
	h.ShortSeparator = "  "

	var md *markdownRenderer
	if opts.Markdown {
		md = newMarkdownRenderer(theme.GlamourStyle())
	}

	return Model{
		session:     sess,
		updates:     sess.Subscribe(),
		theme:       theme,
		keys:        DefaultKeyMap(),
		help:        h,
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		markdown:    md,
		registry:    registry,
		parser:      commands.NewParser(registry),
		completer:   commands.NewCompleter(registry),
		saver:       opts.Saver,
		autosave:    opts.Autosave && opts.Saver != nil,
		tracker:     opts.Tracker,
		exportOpts:  exportOpts,
		showMetrics: opts.ShowMetrics,
		log:         telemetry.WithFields("component", "console"),
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts listening for session snapshots.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForState(m.updates))
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the last snapshot received.
func (m Model) State() session.State {
	return m.state
}

// InputDisabled reports whether submissions are blocked: a request is in
// flight or a cooldown is running.
func (m Model) InputDisabled() bool {
	return m.state.Sending || m.state.IsRateLimited
}

// Info returns the console-local status text.
func (m Model) Info() string {
	return m.info
}

// ShowMetrics reports whether the metrics panel is visible.
func (m Model) ShowMetrics() bool {
	return m.showMetrics
}

// Quitting reports whether the console asked to exit.
func (m Model) Quitting() bool {
	return m.quitting
}
