// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/neonnexus/internal/model"
)

// Theme holds all the styled components for the console.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	Palette Palette

	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	renderer *lipgloss.Renderer

	// ==========================================================================
	// CONTAINER AND HEADER
	// ==========================================================================

	App            lipgloss.Style
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserPrompt      lipgloss.Style
	AssistantPrompt lipgloss.Style
	SystemPrompt    lipgloss.Style

	UserText      lipgloss.Style
	AssistantText lipgloss.Style
	SystemText    lipgloss.Style
	TemporaryText lipgloss.Style
	Timestamp     lipgloss.Style

	// ==========================================================================
	// BANNERS
	// ==========================================================================

	Notification lipgloss.Style
	Cooldown     lipgloss.Style

	// ==========================================================================
	// INPUT AND FOOTER
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	InputDisabled  lipgloss.Style
	StatusBar      lipgloss.Style
	Tip            lipgloss.Style

	// ==========================================================================
	// METRICS PANEL
	// ==========================================================================

	MetricsBox   lipgloss.Style
	MetricsTitle lipgloss.Style
	MetricsLabel lipgloss.Style
	MetricsValue lipgloss.Style

	Muted lipgloss.Style
	Error lipgloss.Style
}

// NewTheme creates the named theme for the current terminal.
// Unknown names fall back to the default palette.
func NewTheme(name string) *Theme {
	return NewThemeWithRenderer(name, lipgloss.DefaultRenderer())
}

// NewThemeWithRenderer creates the named theme bound to r. Tests pass a
// renderer with a fixed color profile.
func NewThemeWithRenderer(name string, r *lipgloss.Renderer) *Theme {
	palette, _ := PaletteFor(name)
	profile := r.ColorProfile()

	t := &Theme{
		Palette:      palette,
		IsDark:       r.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
		renderer:     r,
	}

	t.initStyles()
	return t
}

// Renderer returns the renderer the styles are bound to.
func (t *Theme) Renderer() *lipgloss.Renderer {
	return t.renderer
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	p := t.Palette
	s := t.renderer.NewStyle

	t.App = s()

	t.Header = s().
		Foreground(p.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(p.Border).
		Padding(0, 1)
	t.HeaderTitle = s().Bold(true).Foreground(p.Primary)
	t.HeaderSubtitle = s().Foreground(p.Muted).Italic(true)

	t.UserPrompt = s().Bold(true).Foreground(p.Accent)
	t.AssistantPrompt = s().Bold(true).Foreground(p.Primary)
	t.SystemPrompt = s().Bold(true).Foreground(p.Warning)

	t.UserText = s().Foreground(p.Accent)
	t.AssistantText = s().Foreground(p.Text)
	t.SystemText = s().Foreground(p.Warning).Italic(true)
	t.TemporaryText = s().Foreground(p.Muted).Italic(true)
	t.Timestamp = s().Foreground(p.Muted)

	t.Notification = s().
		Bold(true).
		Foreground(p.Danger).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(p.Danger).
		Padding(0, 1)
	t.Cooldown = s().Foreground(p.Warning)

	t.InputContainer = s().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(p.Border)
	t.InputPrompt = s().Bold(true).Foreground(p.Accent)
	t.InputDisabled = s().Foreground(p.Muted).Italic(true)
	t.StatusBar = s().Foreground(p.Muted).Padding(0, 1)
	t.Tip = s().Foreground(p.Muted).Italic(true)

	t.MetricsBox = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)
	t.MetricsTitle = s().Bold(true).Foreground(p.Primary)
	t.MetricsLabel = s().Foreground(p.Muted)
	t.MetricsValue = s().Foreground(p.Success)

	t.Muted = s().Foreground(p.Muted)
	t.Error = s().Bold(true).Foreground(p.Danger)
}

// PromptStyle returns the style of the prefix drawn before a message.
func (t *Theme) PromptStyle(role model.Role) lipgloss.Style {
	switch role {
	case model.RoleUser:
		return t.UserPrompt
	case model.RoleSystem:
		return t.SystemPrompt
	default:
		return t.AssistantPrompt
	}
}

// TextStyle returns the body style of a message.
func (t *Theme) TextStyle(msg model.Message) lipgloss.Style {
	if msg.IsTemporary {
		return t.TemporaryText
	}
	switch msg.Role {
	case model.RoleUser:
		return t.UserText
	case model.RoleSystem:
		return t.SystemText
	default:
		return t.AssistantText
	}
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ContentWidth is the usable width for transcript text.
func (t *Theme) ContentWidth() int {
	w := t.Width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
