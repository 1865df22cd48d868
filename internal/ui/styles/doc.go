// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the Neon Nexus console.

# Palettes (colors.go)

Two palettes are built in, selected by the ui.theme config key:

	neon   - magenta and cyan on deep violet (default)
	matrix - green phosphor on black

Every color is a lipgloss.AdaptiveColor, so light terminals get a darker
variant of each tone.

# Theme (theme.go)

A Theme binds a palette to a lipgloss renderer and exposes the styles the
chat view draws with: header, per-role prompts and bodies, the notification
banner, the cooldown line, the input area and the metrics panel.

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(width, height)
	line := theme.PromptStyle(msg.Role).Render(msg.Role.Prompt())

Terminal capabilities are detected through termenv by the renderer.

# Animations (animations.go)

SpinnerFor returns the pending-reply spinner of a palette; Bubbles converts
it for the bubbles spinner widget. RenderCooldownBar draws the rate-limit
countdown.
*/
package styles
