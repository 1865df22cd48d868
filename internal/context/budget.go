// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/jeranaias/neonnexus/internal/model"
)

// =============================================================================
// BUDGET TYPES
// =============================================================================

// perTurnOverhead approximates the chat-format framing tokens around each turn.
const perTurnOverhead = 4

// Counter counts tokens in a string.
type Counter interface {
	Count(s string) int
}

// Budget trims the oldest conversation turns until the context fits.
// The leading system instruction is never dropped.
type Budget struct {
	maxTokens int
	counter   Counter
}

// FitResult holds the outcome of fitting turns into a budget.
type FitResult struct {
	// Turns is the fitted context.
	Turns []model.Turn

	// WasTruncated indicates if turns were dropped.
	WasTruncated bool

	// TotalTurns is the turn count before fitting.
	TotalTurns int

	// Dropped is the number of turns removed.
	Dropped int

	// Tokens is the estimated size of Turns plus the new message.
	Tokens int
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// NewBudget creates a budget of maxTokens counted with the cl100k_base
// encoding. maxTokens <= 0 means unlimited.
func NewBudget(maxTokens int) (*Budget, error) {
	if maxTokens <= 0 {
		return &Budget{}, nil
	}
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &Budget{maxTokens: maxTokens, counter: codecCounter{codec}}, nil
}

// NewBudgetWithCounter creates a budget using a custom counter.
func NewBudgetWithCounter(maxTokens int, counter Counter) *Budget {
	return &Budget{maxTokens: maxTokens, counter: counter}
}

// MaxTokens returns the configured limit (0 = unlimited).
func (b *Budget) MaxTokens() int {
	return b.maxTokens
}

// =============================================================================
// FITTING
// =============================================================================

// Fit drops the oldest non-system turns until turns plus newText fit.
// If even the instruction and message exceed the budget, every droppable
// turn is removed and the remainder returned as-is.
func (b *Budget) Fit(turns []model.Turn, newText string) FitResult {
	result := FitResult{Turns: turns, TotalTurns: len(turns)}
	if b == nil || b.maxTokens <= 0 || b.counter == nil {
		return result
	}

	sizes := make([]int, len(turns))
	total := b.counter.Count(newText) + perTurnOverhead
	for i, t := range turns {
		sizes[i] = b.counter.Count(t.Content) + perTurnOverhead
		total += sizes[i]
	}

	start := 0
	if len(turns) > 0 && turns[0].Role == model.RoleSystem {
		start = 1
	}

	drop := start
	for total > b.maxTokens && drop < len(turns) {
		total -= sizes[drop]
		drop++
	}

	result.Tokens = total
	if drop == start {
		return result
	}

	fitted := make([]model.Turn, 0, len(turns)-(drop-start))
	fitted = append(fitted, turns[:start]...)
	fitted = append(fitted, turns[drop:]...)

	result.Turns = fitted
	result.WasTruncated = true
	result.Dropped = drop - start
	return result
}

// Count returns the token estimate for s.
func (b *Budget) Count(s string) int {
	if b == nil || b.counter == nil {
		return 0
	}
	return b.counter.Count(s)
}

type codecCounter struct {
	codec tokenizer.Codec
}

func (c codecCounter) Count(s string) int {
	ids, _, err := c.codec.Encode(s)
	if err != nil {
		// PERFORMANCE: fall back to the 4-chars-per-token heuristic
		return (len(s) + 3) / 4
	}
	return len(ids)
}
