// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlighter colors fenced code blocks in REPL replies. Prose is left
// untouched; a disabled highlighter returns its input.
type highlighter struct {
	enabled   bool
	formatter chroma.Formatter
	style     *chroma.Style
}

// newHighlighter picks a formatter for the terminal's color profile.
// Ascii disables highlighting.
func newHighlighter(profile termenv.Profile) *highlighter {
	name := "terminal256"
	switch profile {
	case termenv.Ascii:
		return &highlighter{}
	case termenv.ANSI:
		name = "terminal16"
	case termenv.TrueColor:
		name = "terminal16m"
	}

	formatter := formatters.Get(name)
	if formatter == nil {
		formatter = formatters.Fallback
	}
	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	return &highlighter{enabled: true, formatter: formatter, style: style}
}

// segment is a run of prose or one fenced code block.
type segment struct {
	code bool
	lang string
	// open and close are the fence lines; close is empty for an
	// unterminated block.
	open, close string
	text        string
}

// splitFences cuts content at ``` fences. An unterminated fence runs to the
// end of the content.
func splitFences(content string) []segment {
	var (
		segs  []segment
		cur   segment
		lines []string
	)
	flush := func() {
		cur.text = strings.Join(lines, "\n")
		if cur.code || cur.text != "" || len(lines) > 0 {
			segs = append(segs, cur)
		}
		lines = nil
	}

	for _, line := range strings.Split(content, "\n") {
		fence := strings.HasPrefix(strings.TrimSpace(line), "```")
		switch {
		case fence && !cur.code:
			flush()
			cur = segment{
				code: true,
				lang: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```")),
				open: line,
			}
		case fence && cur.code:
			cur.close = line
			flush()
			cur = segment{}
		default:
			lines = append(lines, line)
		}
	}
	if cur.code || len(lines) > 0 {
		flush()
	}
	return segs
}

// Render highlights every fenced block in content.
func (h *highlighter) Render(content string) string {
	if !h.enabled || !strings.Contains(content, "```") {
		return content
	}

	var parts []string
	for _, seg := range splitFences(content) {
		if !seg.code {
			parts = append(parts, seg.text)
			continue
		}
		parts = append(parts, seg.open)
		if seg.text != "" {
			parts = append(parts, h.code(seg.text, seg.lang))
		}
		if seg.close != "" {
			parts = append(parts, seg.close)
		}
	}
	return strings.Join(parts, "\n")
}

// code applies syntax highlighting. Unknown languages are guessed from the
// source; any failure returns the code as is.
func (h *highlighter) code(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
