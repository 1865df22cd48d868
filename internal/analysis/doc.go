// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package analysis computes text metrics for assistant replies.
//
// Analyze produces the envelope the console's metrics normalizer reads:
//
//	{"status": "success", "is_ai_generated": false, "human_likeness_score": 72,
//	 "metrics": {"readability_metrics": {...}, ...}}
//
// All scores are heuristics. Readability uses the Flesch reading-ease and
// Flesch-Kincaid grade formulas with a vowel-group syllable estimate, so
// non-English text gets rough figures.
package analysis
