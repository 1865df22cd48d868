// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders assistant replies with glamour. Output is cached
// per message; the cache is dropped when the width changes.
type markdownRenderer struct {
	style string
	width int
	tr    *glamour.TermRenderer
	cache map[string]string
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style, cache: make(map[string]string)}
}

// Render renders content wrapped to width. id keys the cache.
func (r *markdownRenderer) Render(id, content string, width int) (string, error) {
	if r.tr == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		r.tr, r.width = tr, width
		r.cache = make(map[string]string)
	}

	if out, ok := r.cache[id]; ok && id != "" {
		return out, nil
	}

	out, err := r.tr.Render(content)
	if err != nil {
		return "", err
	}
	out = strings.Trim(out, "\n")
	if id != "" {
		r.cache[id] = out
	}
	return out, nil
}
