// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package context assembles the conversation context sent upstream.
//
// The package name shadows the standard library; import it under an alias:
//
//	import convctx "github.com/jeranaias/neonnexus/internal/context"
//
// # Key Types
//
//   - Assembler: Builds []model.Turn from a transcript
//   - Request: Transcript, instruction and new text for one turn
//   - Budget: Token budget that drops the oldest turns first
//
// # Rules
//
//   - The system instruction leads the context on the first turn only
//   - Placeholder and system notice entries are excluded
//   - Content is trimmed and NFC-normalized
//
// # Usage
//
//	budget, err := convctx.NewBudget(cfg.Chat.ContextMaxTokens)
//	asm := convctx.NewAssembler(convctx.WithBudget(budget))
//	turns := asm.Assemble(convctx.Request{
//	    Messages:          state.Messages,
//	    SystemInstruction: instruction,
//	    NewText:           text,
//	    InstructionSent:   state.InstructionSent,
//	})
package context
