// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/neonnexus/internal/commands"
	"github.com/jeranaias/neonnexus/internal/config"
	"github.com/jeranaias/neonnexus/internal/dispatch"
	"github.com/jeranaias/neonnexus/internal/export"
	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/ui/chat"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
	"github.com/jeranaias/neonnexus/internal/util"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the line-oriented chat REPL",
		Long: `Start a plain chat REPL with line editing and input history.

Console commands (/help, /clear, /save, /export, /metrics, /stats, /quit)
work as in the full-screen console. Enter 'comeback' to start over.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd)
		},
	}
}

// runREPL runs the line REPL on stdin/stdout.
func (a *app) runREPL(cmd *cobra.Command) error {
	closeLog, err := a.logToFile()
	if err != nil {
		return err
	}
	defer closeLog()

	client := newUpstreamClient(a.cfg)
	checkUpstream(cmd.Context(), client, cmd.ErrOrStderr())

	c, err := newConsole(a.cfg, client, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			telemetry.Logger().Error("shutdown", "error", err)
		}
	}()

	// RELIABILITY: Ctrl+C while waiting on a reply ends the session cleanly
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.watchInstruction(ctx, c.dispatcher)

	registry := commands.NewRegistry()
	in := newHistoryReader(historyPath(), commands.NewCompleter(registry).CompleteLine)
	defer in.Close()

	r := newREPL(c.dispatcher, in, cmd.OutOrStdout(), replOptions{
		Theme:       styles.NewThemeWithRenderer(a.cfg.UI.Theme, stdoutRenderer()),
		Registry:    registry,
		Saver:       c.saver(),
		Autosave:    a.cfg.Transcript.Autosave,
		Tracker:     c.tracker,
		ShowMetrics: a.cfg.UI.ShowMetrics,
		Width:       GetTerminalWidth(),
	})
	err = r.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of input.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// historyReader provides input history and line editing.
// USABILITY: Supports arrow keys for history navigation and line editing.
type historyReader struct {
	line        *liner.State
	historyFile string
}

func historyPath() string {
	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}
	return filepath.Join(configDir, "chat_history")
}

// newHistoryReader loads history from historyFile. complete provides tab
// completion of console commands.
func newHistoryReader(historyFile string, complete liner.Completer) *historyReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	h := &historyReader{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return h
}

// Prompt reads a line, adding non-blank input to the history.
func (h *historyReader) Prompt(prompt string) (string, error) {
	input, err := h.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		h.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (h *historyReader) Close() error {
	if err := config.EnsureConfigDir(); err == nil {
		// SECURITY: history holds prompts; owner read/write only
		if f, err := os.OpenFile(h.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			h.line.WriteHistory(f)
			f.Close()
		}
	}
	return h.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// replSession is what the REPL needs from the dispatcher.
type replSession interface {
	chat.Session
	Snapshot(ctx context.Context) (session.State, error)
}

type replOptions struct {
	Theme    *styles.Theme
	Registry *commands.Registry

	Saver    chat.Saver
	Autosave bool
	Tracker  *telemetry.Tracker

	ShowMetrics   bool
	ExportOptions *export.Options

	// Width wraps user and system text. Zero disables wrapping.
	Width int
}

// repl prints session transitions as lines of text. Messages are printed
// once, in transcript order.
type repl struct {
	sess    replSession
	updates <-chan session.State
	in      lineReader
	out     io.Writer

	theme       *styles.Theme
	hl          *highlighter
	registry    *commands.Registry
	parser      *commands.Parser
	saver       chat.Saver
	autosave    bool
	tracker     *telemetry.Tracker
	exportOpts  *export.Options
	showMetrics bool
	width       int

	printed map[string]bool
	// replay prints user entries too; only the restored transcript needs it.
	replay bool
}

func newREPL(sess replSession, in lineReader, out io.Writer, opts replOptions) *repl {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.DefaultPalette)
	}
	if opts.Registry == nil {
		opts.Registry = commands.NewRegistry()
	}
	if opts.ExportOptions == nil {
		opts.ExportOptions = export.DefaultOptions()
	}
	return &repl{
		sess:        sess,
		updates:     sess.Subscribe(),
		in:          in,
		out:         out,
		theme:       opts.Theme,
		hl:          newHighlighter(opts.Theme.ColorProfile),
		registry:    opts.Registry,
		parser:      commands.NewParser(opts.Registry),
		saver:       opts.Saver,
		autosave:    opts.Autosave,
		tracker:     opts.Tracker,
		exportOpts:  opts.ExportOptions,
		showMetrics: opts.ShowMetrics,
		width:       opts.Width,
		printed:     make(map[string]bool),
	}
}

// Run prints the current transcript and reads input until /quit, EOF or
// Ctrl+C.
func (r *repl) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, r.theme.HeaderTitle.Render("NEON NEXUS"))
	fmt.Fprintln(r.out, r.theme.Tip.Render(session.Tip))
	fmt.Fprintln(r.out)

	r.replay = true
	select {
	case st, ok := <-r.updates:
		if !ok {
			return dispatch.ErrClosed
		}
		r.show(ctx, st)
	case <-ctx.Done():
		return ctx.Err()
	}
	r.replay = false

	for {
		input, err := r.in.Prompt(model.RoleUser.Prompt() + " ")
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(r.out, r.theme.Muted.Render("Link severed."))
			return nil
		case err != nil:
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if res := r.parser.Parse(input); res.IsCommand {
			quit, err := r.runCommand(ctx, res)
			if err != nil {
				fmt.Fprintln(r.out, r.theme.Error.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.submit(ctx, input); err != nil {
			return err
		}
	}
}

// submit sends text and waits until the session is idle again, including
// any cooldown and automatic retry.
func (r *repl) submit(ctx context.Context, text string) error {
	err := r.sess.Submit(ctx, text)
	switch {
	case errors.Is(err, dispatch.ErrEmptyInput):
		return nil
	case errors.Is(err, dispatch.ErrRateLimited):
		fmt.Fprintln(r.out, r.theme.Cooldown.Render("cooling down, transmission not sent"))
		return nil
	case errors.Is(err, dispatch.ErrBusy):
		fmt.Fprintln(r.out, r.theme.Cooldown.Render("still waiting on the previous transmission"))
		return nil
	case err != nil:
		return err
	}
	return r.await(ctx)
}

// await prints transitions until the exchange completes. Submit publishes
// the sending state before returning, so the first idle state read here
// belongs to this exchange.
func (r *repl) await(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-r.updates:
			if !ok {
				return dispatch.ErrClosed
			}
			r.show(ctx, st)
			if st.Phase() == session.PhaseIdle {
				r.maybeAutosave(st)
				return nil
			}
		}
	}
}

// show prints messages not printed yet and any notification.
func (r *repl) show(ctx context.Context, st session.State) {
	for _, msg := range st.Messages {
		if r.printed[msg.ID] {
			continue
		}
		r.printed[msg.ID] = true
		if msg.Role == model.RoleUser && !r.replay {
			continue
		}
		r.printMessage(msg)
	}

	if st.Notification != "" {
		fmt.Fprintln(r.out, r.theme.Error.Render("!! "+st.Notification))
		if err := r.sess.DismissNotification(ctx); err != nil {
			telemetry.Logger().Debug("dismiss notification", "error", err)
		}
	}
}

func (r *repl) printMessage(msg model.Message) {
	if msg.IsTemporary {
		fmt.Fprintln(r.out, r.theme.TemporaryText.Render(msg.Content))
		return
	}

	header := fmt.Sprintf("%s %s", msg.Role.Prompt(), msg.Role.DisplayName())
	fmt.Fprintf(r.out, "%s %s\n",
		r.theme.PromptStyle(msg.Role).Render(header),
		r.theme.Timestamp.Render(msg.Timestamp.Format("15:04")))

	body := msg.Content
	if msg.Role == model.RoleAssistant {
		body = r.hl.Render(body)
	} else if r.width > 0 {
		body = util.Wrap(body, r.width)
	}
	fmt.Fprintln(r.out, body)

	if r.showMetrics && msg.Metrics != nil {
		fmt.Fprintln(r.out, r.theme.Muted.Render(metricsLine(*msg.Metrics)))
	}
	fmt.Fprintln(r.out)
}

// metricsLine summarizes reply metrics on one line.
func metricsLine(mt model.Metrics) string {
	return fmt.Sprintf("[human-likeness %.0f/100 | sentiment %s (%+.2f) | flesch %.1f | grade %.1f | sentences %.0f]",
		mt.HumanLikenessScore,
		mt.Sentiment.Label, mt.Sentiment.Score,
		mt.Readability.FleschScore, mt.Readability.GradeLevel,
		mt.Structural.SentenceCount)
}

func (r *repl) maybeAutosave(st session.State) {
	if !r.autosave || r.saver == nil {
		return
	}
	if err := r.saver.Save(st); err != nil {
		fmt.Fprintln(r.out, r.theme.Error.Render("save failed: "+err.Error()))
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

// runCommand executes a console command. quit is true for /quit.
func (r *repl) runCommand(ctx context.Context, res commands.ParseResult) (quit bool, err error) {
	if res.Error != nil {
		return false, res.Error
	}

	switch res.Command.Action {
	case commands.ActionHelp:
		fmt.Fprintln(r.out, r.registry.HelpText())

	case commands.ActionClear:
		if err := r.sess.Reset(ctx); err != nil {
			return false, err
		}
		st, err := r.sess.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		r.printed = make(map[string]bool)
		r.show(ctx, st)

	case commands.ActionSave:
		if r.saver == nil {
			return false, chat.ErrSaveDisabled
		}
		st, err := r.sess.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		if err := r.saver.Save(st); err != nil {
			return false, fmt.Errorf("save failed: %w", err)
		}
		fmt.Fprintln(r.out, styles.RenderSuccess("Transcript saved."))

	case commands.ActionMetrics:
		if len(res.Args) == 0 {
			r.showMetrics = !r.showMetrics
		} else {
			r.showMetrics = strings.EqualFold(res.Args[0], "on")
		}
		if r.showMetrics {
			fmt.Fprintln(r.out, "Metrics panel on.")
		} else {
			fmt.Fprintln(r.out, "Metrics panel off.")
		}

	case commands.ActionStats:
		if r.tracker == nil {
			fmt.Fprintln(r.out, "No statistics recorded.")
			break
		}
		fmt.Fprintln(r.out, r.tracker.Stats().Summary())

	case commands.ActionExport:
		st, err := r.sess.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		t := export.FromState(st)
		if err := export.WriteTo(t, res.Args[0], r.exportOpts); err != nil {
			return false, fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(r.out, "Exported %d messages to %s\n", len(t.Messages), res.Args[0])

	case commands.ActionQuit:
		fmt.Fprintln(r.out, r.theme.Muted.Render("Link severed."))
		return true, nil
	}
	return false, nil
}
