// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
)

// cooldownBarWidth is the width of the cooldown progress bar.
const cooldownBarWidth = 20

// View renders the console.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing neural link..."
	}

	parts := []string{m.renderHeader(), m.viewport.View()}
	if banners := m.renderBanners(); banners != "" {
		parts = append(parts, banners)
	}
	parts = append(parts, m.renderInput(), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// CHROME
// =============================================================================

func (m Model) renderHeader() string {
	status := "link idle"
	switch m.state.Phase() {
	case session.PhaseSending:
		status = "transmitting"
	case session.PhaseRateLimited:
		status = "cooling down"
	}

	title := m.theme.HeaderTitle.Render("NEON NEXUS")
	subtitle := m.theme.HeaderSubtitle.Render(status)
	return m.theme.Header.Width(max(m.width, 1)).Render(title + "  " + subtitle)
}

// renderBanners renders the notification, the cooldown line and command
// output, in that order. Empty when there is nothing to show.
func (m Model) renderBanners() string {
	var lines []string

	if m.state.Notification != "" {
		lines = append(lines, m.theme.Notification.Render(m.state.Notification+"  [esc]"))
	}
	if m.state.IsRateLimited {
		bar := styles.RenderCooldownBar(cooldownBarWidth, m.state.CooldownSeconds, m.cooldownTotal)
		lines = append(lines, m.theme.Cooldown.Render("RATE LIMIT "+bar))
	}
	if m.info != "" {
		style := m.theme.Muted
		if m.infoErr {
			style = m.theme.Error
		}
		lines = append(lines, style.Render(m.info))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderInput() string {
	var line string
	switch {
	case m.state.Sending:
		line = m.theme.InputDisabled.Render(m.input.Prompt + "awaiting response...")
	case m.state.IsRateLimited:
		line = m.theme.InputDisabled.Render(fmt.Sprintf("%sinput locked, retrying in %ds", m.input.Prompt, m.state.CooldownSeconds))
	default:
		line = m.input.View()
	}
	return m.theme.InputContainer.Width(max(m.width, 1)).Render(line)
}

func (m Model) renderFooter() string {
	return m.theme.Tip.Render(session.Tip) + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders every message. The metrics panel, when shown,
// follows the latest reply that carries metrics.
func (m Model) renderTranscript() string {
	width := m.theme.ContentWidth()
	metricsAt := -1
	if m.showMetrics {
		metricsAt = lastMetricsIndex(m.state.Messages)
	}

	var sb strings.Builder
	for i, msg := range m.state.Messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.renderMessage(msg, width))
		if i == metricsAt {
			sb.WriteString("\n")
			sb.WriteString(m.renderMetrics(*msg.Metrics))
		}
	}
	return sb.String()
}

func (m Model) renderMessage(msg model.Message, width int) string {
	head := m.theme.PromptStyle(msg.Role).Render(msg.Role.Prompt() + " " + msg.Role.DisplayName())
	if !msg.Timestamp.IsZero() {
		head += " " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	var body string
	switch {
	case msg.IsTemporary:
		body = m.spinner.View() + " " + m.theme.TemporaryText.Render(msg.Content)
	case msg.Role == model.RoleAssistant && m.markdown != nil:
		rendered, err := m.markdown.Render(msg.ID, msg.Content, width)
		if err == nil {
			body = rendered
			break
		}
		m.log.Debug("markdown render failed", "error", err)
		fallthrough
	default:
		body = m.theme.TextStyle(msg).Width(width).Render(msg.Content)
	}

	return head + "\n" + body
}

func lastMetricsIndex(msgs []model.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Metrics != nil && !msgs[i].IsTemporary {
			return i
		}
	}
	return -1
}

// renderMetrics renders the analytics panel of a reply.
func (m Model) renderMetrics(mt model.Metrics) string {
	pair := func(label string, value string) string {
		return m.theme.MetricsLabel.Render(label+" ") + m.theme.MetricsValue.Render(value)
	}
	ai := "no"
	if mt.IsAIGenerated {
		ai = "yes"
	}

	rows := []string{
		m.theme.MetricsTitle.Render("TEXT ANALYSIS"),
		strings.Join([]string{
			pair("human-likeness", fmt.Sprintf("%.0f/100", mt.HumanLikenessScore)),
			pair("ai-generated", ai),
		}, "  "),
		strings.Join([]string{
			pair("coherence", fmt.Sprintf("%.2f", mt.Coherence.SentenceCoherence)),
			pair("complexity", fmt.Sprintf("%.2f", mt.Coherence.ComplexityScore)),
			pair("flesch", fmt.Sprintf("%.2f", mt.Readability.FleschScore)),
			pair("grade", fmt.Sprintf("%.1f", mt.Readability.GradeLevel)),
		}, "  "),
		strings.Join([]string{
			pair("diversity", fmt.Sprintf("%.2f", mt.Vocabulary.LexicalDiversity)),
			pair("unique", fmt.Sprintf("%.2f", mt.Vocabulary.UniqueWordRatio)),
			pair("sentiment", fmt.Sprintf("%s (%+.2f)", mt.Sentiment.Label, mt.Sentiment.Score)),
		}, "  "),
		strings.Join([]string{
			pair("formality", fmt.Sprintf("%.2f", mt.Stylistic.Formality)),
			pair("avg sentence", fmt.Sprintf("%.1f", mt.Stylistic.AvgSentenceLength)),
			pair("sentences", fmt.Sprintf("%.0f", mt.Structural.SentenceCount)),
			pair("paragraphs", fmt.Sprintf("%.0f", mt.Structural.ParagraphCount)),
		}, "  "),
	}
	return m.theme.MetricsBox.Render(strings.Join(rows, "\n"))
}
