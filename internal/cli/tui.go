// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/ui/chat"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
)

// runTUI opens the full-screen console.
func (a *app) runTUI(cmd *cobra.Command) error {
	closeLog, err := a.logToFile()
	if err != nil {
		return err
	}
	defer closeLog()

	if _, ok := styles.PaletteFor(a.cfg.UI.Theme); !ok {
		telemetry.Logger().Warn("unknown theme, using default", "theme", a.cfg.UI.Theme)
	}

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

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.watchInstruction(ctx, c.dispatcher)

	m := chat.New(c.dispatcher, chat.Options{
		Theme:       styles.NewTheme(a.cfg.UI.Theme),
		Saver:       c.saver(),
		Autosave:    a.cfg.Transcript.Autosave,
		Tracker:     c.tracker,
		ShowMetrics: a.cfg.UI.ShowMetrics,
		Markdown:    a.cfg.UI.Markdown,
	})

	telemetry.Logger().Info("console starting", "upstream", a.cfg.Upstream.BaseURL, "version", Version)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
