// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"math"
)

// DefaultSentimentLabel is used whenever the upstream payload carries no label.
const DefaultSentimentLabel = "neutral"

// =============================================================================
// NORMALIZED METRICS
// =============================================================================

// Metrics is the fully-populated analytics record attached to assistant replies.
// Every leaf is always defined; see Normalize.
type Metrics struct {
	IsAIGenerated      bool    `json:"is_ai_generated"`
	HumanLikenessScore float64 `json:"human_likeness_score"`

	Coherence   CoherenceMetrics   `json:"text_coherence_complexity"`
	Readability ReadabilityMetrics `json:"readability_metrics"`
	Vocabulary  VocabularyMetrics  `json:"vocabulary_lexical_diversity"`
	Sentiment   SentimentMetrics   `json:"sentiment_analysis"`
	Stylistic   StylisticMetrics   `json:"stylistic_features"`
	Structural  StructuralMetrics  `json:"structural_features"`
}

// CoherenceMetrics describes how well sentences connect.
type CoherenceMetrics struct {
	SentenceCoherence float64 `json:"sentence_coherence"`
	ComplexityScore   float64 `json:"complexity_score"`
}

// ReadabilityMetrics holds readability scores. FleschScore is scaled to 0..1.
type ReadabilityMetrics struct {
	FleschScore float64 `json:"flesch_score"`
	GradeLevel  float64 `json:"grade_level"`
}

// VocabularyMetrics holds lexical diversity figures.
type VocabularyMetrics struct {
	LexicalDiversity float64 `json:"lexical_diversity"`
	UniqueWordRatio  float64 `json:"unique_word_ratio"`
}

// SentimentMetrics holds the sentiment label and its signed score.
type SentimentMetrics struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// StylisticMetrics holds style indicators.
type StylisticMetrics struct {
	Formality         float64 `json:"formality"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

// StructuralMetrics holds structure counts.
type StructuralMetrics struct {
	SentenceCount  float64 `json:"sentence_count"`
	ParagraphCount float64 `json:"paragraph_count"`
	AvgWordLength  float64 `json:"avg_word_length"`
}

// =============================================================================
// PARTIAL SCHEMA
// =============================================================================

// PartialMetrics is the boundary schema for upstream metrics payloads.
// A nil pointer means the field was absent (or unusable) on the wire.
type PartialMetrics struct {
	IsAIGenerated      *bool
	HumanLikenessScore *float64

	SentenceCoherence *float64
	ComplexityScore   *float64

	FleschScore *float64
	GradeLevel  *float64

	LexicalDiversity *float64
	UniqueWordRatio  *float64

	SentimentLabel *string
	SentimentScore *float64

	Formality         *float64
	AvgSentenceLength *float64

	SentenceCount  *float64
	ParagraphCount *float64
	AvgWordLength  *float64
}

// Normalize coalesces a partial payload into a fully-populated record.
// Numeric leaves default to 0, the sentiment label to "neutral".
func Normalize(p PartialMetrics) Metrics {
	label := DefaultSentimentLabel
	if p.SentimentLabel != nil && *p.SentimentLabel != "" {
		label = *p.SentimentLabel
	}
	return Metrics{
		IsAIGenerated:      p.IsAIGenerated != nil && *p.IsAIGenerated,
		HumanLikenessScore: num(p.HumanLikenessScore),
		Coherence: CoherenceMetrics{
			SentenceCoherence: num(p.SentenceCoherence),
			ComplexityScore:   num(p.ComplexityScore),
		},
		Readability: ReadabilityMetrics{
			FleschScore: num(p.FleschScore),
			GradeLevel:  num(p.GradeLevel),
		},
		Vocabulary: VocabularyMetrics{
			LexicalDiversity: num(p.LexicalDiversity),
			UniqueWordRatio:  num(p.UniqueWordRatio),
		},
		Sentiment: SentimentMetrics{
			Label: label,
			Score: num(p.SentimentScore),
		},
		Stylistic: StylisticMetrics{
			Formality:         num(p.Formality),
			AvgSentenceLength: num(p.AvgSentenceLength),
		},
		Structural: StructuralMetrics{
			SentenceCount:  num(p.SentenceCount),
			ParagraphCount: num(p.ParagraphCount),
			AvgWordLength:  num(p.AvgWordLength),
		},
	}
}

// Partial lifts a normalized record back into the partial schema with every
// field present. Normalize(m.Partial()) == m.
func (m Metrics) Partial() PartialMetrics {
	return PartialMetrics{
		IsAIGenerated:      &m.IsAIGenerated,
		HumanLikenessScore: &m.HumanLikenessScore,
		SentenceCoherence:  &m.Coherence.SentenceCoherence,
		ComplexityScore:    &m.Coherence.ComplexityScore,
		FleschScore:        &m.Readability.FleschScore,
		GradeLevel:         &m.Readability.GradeLevel,
		LexicalDiversity:   &m.Vocabulary.LexicalDiversity,
		UniqueWordRatio:    &m.Vocabulary.UniqueWordRatio,
		SentimentLabel:     &m.Sentiment.Label,
		SentimentScore:     &m.Sentiment.Score,
		Formality:          &m.Stylistic.Formality,
		AvgSentenceLength:  &m.Stylistic.AvgSentenceLength,
		SentenceCount:      &m.Structural.SentenceCount,
		ParagraphCount:     &m.Structural.ParagraphCount,
		AvgWordLength:      &m.Structural.AvgWordLength,
	}
}

// DefaultMetrics returns the record produced from an empty payload.
func DefaultMetrics() Metrics {
	return Normalize(PartialMetrics{})
}

// =============================================================================
// WIRE DECODING
// =============================================================================

// ParseMetrics decodes an arbitrary upstream metrics fragment. It never fails:
// malformed JSON, wrong types and missing paths all fall back to defaults.
//
// Two layouts are accepted: the analysis envelope
// {is_ai_generated, human_likeness_score, metrics: {...groups}} and the flat
// layout where the groups sit at the top level. An "error" key marks a failed
// analysis and yields defaults.
func ParseMetrics(raw json.RawMessage) Metrics {
	return Normalize(ParsePartialMetrics(raw))
}

// ParsePartialMetrics decodes raw into the partial schema without defaulting.
func ParsePartialMetrics(raw json.RawMessage) PartialMetrics {
	var p PartialMetrics

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return p
	}

	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return p
	}
	if _, failed := tree["error"]; failed {
		return p
	}

	p.IsAIGenerated = lookupBool(tree, "is_ai_generated")
	p.HumanLikenessScore = lookupNum(tree, "human_likeness_score")

	groups := tree
	if nested, ok := tree["metrics"].(map[string]any); ok {
		groups = nested
	}

	p.SentenceCoherence = lookupNum(groups, "text_coherence_complexity", "sentence_coherence")
	p.ComplexityScore = lookupNum(groups, "text_coherence_complexity", "complexity_score")
	p.FleschScore = lookupNum(groups, "readability_metrics", "flesch_score")
	p.GradeLevel = lookupNum(groups, "readability_metrics", "grade_level")
	p.LexicalDiversity = lookupNum(groups, "vocabulary_lexical_diversity", "lexical_diversity")
	p.UniqueWordRatio = lookupNum(groups, "vocabulary_lexical_diversity", "unique_word_ratio")
	p.SentimentLabel = lookupString(groups, "sentiment_analysis", "label")
	p.SentimentScore = lookupNum(groups, "sentiment_analysis", "score")
	p.Formality = lookupNum(groups, "stylistic_features", "formality")
	p.AvgSentenceLength = lookupNum(groups, "stylistic_features", "avg_sentence_length")
	p.SentenceCount = lookupNum(groups, "structural_features", "sentence_count")
	p.ParagraphCount = lookupNum(groups, "structural_features", "paragraph_count")
	p.AvgWordLength = lookupNum(groups, "structural_features", "avg_word_length")

	return p
}

// lookup walks a nested object path and returns the leaf, or nil.
func lookup(tree map[string]any, path ...string) any {
	var cur any = tree
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = obj[key]
		if !ok {
			return nil
		}
	}
	return cur
}

func lookupNum(tree map[string]any, path ...string) *float64 {
	v, ok := lookup(tree, path...).(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func lookupBool(tree map[string]any, path ...string) *bool {
	v, ok := lookup(tree, path...).(bool)
	if !ok {
		return nil
	}
	return &v
}

func lookupString(tree map[string]any, path ...string) *string {
	v, ok := lookup(tree, path...).(string)
	if !ok {
		return nil
	}
	return &v
}

func num(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
