// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package context assembles the conversation context sent upstream.
package context

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/neonnexus/internal/model"
)

// =============================================================================
// ASSEMBLY INPUT
// =============================================================================

// Request describes a single turn to assemble.
type Request struct {
	// Messages is the current transcript. The new user entry may already be
	// the last element.
	Messages []model.Message

	// SystemInstruction is prepended on the first turn only.
	SystemInstruction string

	// NewText is the user text travelling as the request message.
	NewText string

	// InstructionSent is true once a previous turn delivered the instruction.
	InstructionSent bool
}

// IsPlaceholderFunc reports whether content is placeholder text that must not
// reach upstream even if it lost its temporary flag.
type IsPlaceholderFunc func(content string) bool

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler builds upstream context from a transcript.
type Assembler struct {
	budget        *Budget
	isPlaceholder IsPlaceholderFunc
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithBudget bounds the assembled context by token count.
func WithBudget(b *Budget) Option {
	return func(a *Assembler) {
		a.budget = b
	}
}

// WithPlaceholderFilter drops transcript entries matching fn.
func WithPlaceholderFilter(fn IsPlaceholderFunc) Option {
	return func(a *Assembler) {
		a.isPlaceholder = fn
	}
}

// NewAssembler creates an assembler. Without options the context is unbounded.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble returns the ordered {role, content} turns for req.
//
// The system instruction leads the context only when it has not been sent.
// Temporary entries and transcript-only system notices are never included.
// A trailing user entry matching NewText is left out because it travels as
// the request message itself.
func (a *Assembler) Assemble(req Request) []model.Turn {
	msgs := req.Messages
	newText := clean(req.NewText)
	if i := lastNonTemporary(msgs); i >= 0 && newText != "" {
		if msgs[i].Role == model.RoleUser && clean(msgs[i].Content) == newText {
			msgs = append(msgs[:i:i], msgs[i+1:]...)
		}
	}

	turns := make([]model.Turn, 0, len(msgs)+1)
	if !req.InstructionSent {
		if instr := clean(req.SystemInstruction); instr != "" {
			turns = append(turns, model.Turn{Role: model.RoleSystem, Content: instr})
		}
	}

	for _, m := range msgs {
		if m.IsTemporary || m.Role == model.RoleSystem {
			continue
		}
		content := clean(m.Content)
		if content == "" {
			continue
		}
		if a.isPlaceholder != nil && a.isPlaceholder(content) {
			continue
		}
		turns = append(turns, model.Turn{Role: m.Role, Content: content})
	}

	if a.budget != nil {
		turns = a.budget.Fit(turns, newText).Turns
	}
	return turns
}

// Assemble is a convenience wrapper around an unbounded Assembler.
func Assemble(req Request) []model.Turn {
	return NewAssembler().Assemble(req)
}

func lastNonTemporary(msgs []model.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].IsTemporary {
			return i
		}
	}
	return -1
}

// clean trims surrounding whitespace and applies NFC so visually identical
// text compares equal.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
