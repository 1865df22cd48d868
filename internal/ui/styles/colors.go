// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// PALETTES
// =============================================================================

// Palette is the set of colors a theme is built from.
// All colors are AdaptiveColor so light terminals stay readable.
type Palette struct {
	Name string

	// Primary is the brand color: headers, assistant prompts, borders.
	Primary lipgloss.AdaptiveColor
	// Accent marks the user side of the conversation.
	Accent lipgloss.AdaptiveColor

	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor

	Text    lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Surface lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
}

// NeonPalette is magenta and cyan on a deep violet surface.
var NeonPalette = Palette{
	Name:    "neon",
	Primary: lipgloss.AdaptiveColor{Light: "#C026D3", Dark: "#FF2BD6"},
	Accent:  lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#00F0FF"},
	Success: lipgloss.AdaptiveColor{Light: "#059669", Dark: "#39FF14"},
	Warning: lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FFD300"},
	Danger:  lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FF3864"},
	Text:    lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E0E7FF"},
	Muted:   lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#8B7FB8"},
	Surface: lipgloss.AdaptiveColor{Light: "#F5F3FF", Dark: "#12002B"},
	Border:  lipgloss.AdaptiveColor{Light: "#A78BFA", Dark: "#7A00FF"},
}

// MatrixPalette is green phosphor on black.
var MatrixPalette = Palette{
	Name:    "matrix",
	Primary: lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#00FF41"},
	Accent:  lipgloss.AdaptiveColor{Light: "#166534", Dark: "#A3FFB0"},
	Success: lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#00FF41"},
	Warning: lipgloss.AdaptiveColor{Light: "#A16207", Dark: "#D4FF00"},
	Danger:  lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FF5F56"},
	Text:    lipgloss.AdaptiveColor{Light: "#14532D", Dark: "#C8FFD4"},
	Muted:   lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#008F11"},
	Surface: lipgloss.AdaptiveColor{Light: "#F0FDF4", Dark: "#0D0208"},
	Border:  lipgloss.AdaptiveColor{Light: "#22C55E", Dark: "#003B00"},
}

var palettes = map[string]Palette{
	NeonPalette.Name:   NeonPalette,
	MatrixPalette.Name: MatrixPalette,
}

// DefaultPalette is used for unknown or empty theme names.
const DefaultPalette = "neon"

// PaletteFor returns the palette called name (case-insensitive).
// ok is false when name is unknown; the default palette is returned then.
func PaletteFor(name string) (p Palette, ok bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return palettes[DefaultPalette], true
	}
	p, ok = palettes[name]
	if !ok {
		return palettes[DefaultPalette], false
	}
	return p, true
}

// PaletteNames lists the known palettes in sorted order.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// ACCESSIBILITY: Shapes alongside colors
// =============================================================================

// StatusIndicatorSet contains text indicators for status states.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
}

// StatusIndicators are ASCII-only so they survive any terminal.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
}

// RenderSuccess renders a success line for command output.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(NeonPalette.Success).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error line for command output.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(NeonPalette.Danger).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning line for command output.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(NeonPalette.Warning).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an informational line for command output.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(NeonPalette.Accent).
		Render(StatusIndicators.Info + " " + message)
}
