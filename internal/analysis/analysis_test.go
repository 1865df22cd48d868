// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/neonnexus/internal/model"
)

func TestAnalyze_SimpleSentence(t *testing.T) {
	r := Analyze("The cat sat on the mat.")
	require.Equal(t, "success", r.Status)
	require.NotNil(t, r.Metrics)

	g := r.Metrics
	assert.InDelta(t, 1.0, g.Readability.FleschScore, 1e-9, "very easy text clamps to 1")
	assert.InDelta(t, 0.0, g.Readability.GradeLevel, 1e-9)
	assert.InDelta(t, 0.833, g.Vocabulary.LexicalDiversity, 1e-9)
	assert.InDelta(t, 0.667, g.Vocabulary.UniqueWordRatio, 1e-9)
	assert.InDelta(t, 6.0, g.Stylistic.AvgSentenceLength, 1e-9)
	assert.InDelta(t, 1.0, g.Stylistic.Formality, 1e-9)
	assert.InDelta(t, 1.0, g.Structural.SentenceCount, 1e-9)
	assert.InDelta(t, 1.0, g.Structural.ParagraphCount, 1e-9)
	assert.InDelta(t, 2.833, g.Structural.AvgWordLength, 1e-9)
	assert.InDelta(t, 1.0, g.Coherence.SentenceCoherence, 1e-9)
	assert.InDelta(t, 0.0, g.Coherence.ComplexityScore, 1e-9)
	assert.Equal(t, "neutral", g.Sentiment.Label)

	assert.InDelta(t, 33.0, r.HumanLikenessScore, 1e-9)
	assert.True(t, r.IsAIGenerated)
}

func TestAnalyze_EmptyTextIsError(t *testing.T) {
	for _, text := range []string{"", "   \n\t", "!!! ... ???"} {
		r := Analyze(text)
		assert.Equal(t, "error", r.Status, "%q", text)
		assert.NotEmpty(t, r.Error)
		assert.Nil(t, r.Metrics)
		assert.Equal(t, model.DefaultMetrics(), model.ParseMetrics(r.Raw()))
	}
}

func TestAnalyze_RoundTripsThroughNormalizer(t *testing.T) {
	r := Analyze("Neon lights flicker over wet streets. I love this great city, but the rain never stops!")
	m := model.ParseMetrics(r.Raw())

	assert.Equal(t, r.IsAIGenerated, m.IsAIGenerated)
	assert.Equal(t, r.HumanLikenessScore, m.HumanLikenessScore)
	assert.Equal(t, r.Metrics.Readability, m.Readability)
	assert.Equal(t, r.Metrics.Vocabulary, m.Vocabulary)
	assert.Equal(t, r.Metrics.Sentiment, m.Sentiment)
	assert.Equal(t, r.Metrics.Structural, m.Structural)
}

func TestAnalyze_WireLayout(t *testing.T) {
	var tree map[string]any
	require.NoError(t, json.Unmarshal(Analyze("Hello there.").Raw(), &tree))

	assert.Equal(t, "success", tree["status"])
	assert.NotContains(t, tree, "error")
	groups, ok := tree["metrics"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{
		"text_coherence_complexity", "readability_metrics", "vocabulary_lexical_diversity",
		"sentiment_analysis", "stylistic_features", "structural_features",
	} {
		assert.Contains(t, groups, key)
	}
}

func TestAnalyze_Coherence(t *testing.T) {
	r := Analyze("Neon lights flicker. The lights hum softly.")
	assert.InDelta(t, 0.2, r.Metrics.Coherence.SentenceCoherence, 1e-9)
}

func TestAnalyze_Paragraphs(t *testing.T) {
	r := Analyze("First para here.\n\nSecond para here.")
	assert.InDelta(t, 2.0, r.Metrics.Structural.ParagraphCount, 1e-9)
	assert.InDelta(t, 2.0, r.Metrics.Structural.SentenceCount, 1e-9)
}

func TestAnalyze_CaseFoldingAndNormalization(t *testing.T) {
	r := Analyze("CAF\u00c9 caf\u00e9 cafe\u0301")
	assert.InDelta(t, 0.333, r.Metrics.Vocabulary.LexicalDiversity, 1e-9)
}

func TestAnalyze_HumanLikeness(t *testing.T) {
	r := Analyze("Wow. The old lighthouse keeper watched storms roll across the grey northern sea every night.")
	assert.InDelta(t, 89.0, r.HumanLikenessScore, 1e-9)
	assert.False(t, r.IsAIGenerated)
}

func TestSentiment(t *testing.T) {
	tests := []struct {
		text  string
		label string
		score float64
	}{
		{"I love this great product", "positive", 1},
		{"This is terrible and awful", "negative", -1},
		{"This is not good", "negative", -1},
		{"The cat sat", "neutral", 0},
		{"Good start, bad ending", "neutral", 0},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			g := Analyze(tc.text).Metrics
			assert.Equal(t, tc.label, g.Sentiment.Label)
			assert.InDelta(t, tc.score, g.Sentiment.Score, 1e-9)
		})
	}
}

func TestFormality(t *testing.T) {
	formal := Analyze("The committee will review the proposal.").Metrics.Stylistic.Formality
	casual := Analyze("Hey, this is gonna be cool!").Metrics.Stylistic.Formality

	assert.InDelta(t, 1.0, formal, 1e-9)
	assert.InDelta(t, 0.333, casual, 1e-9)
}

func TestSyllables(t *testing.T) {
	tests := map[string]int{
		"cat":       1,
		"the":       1,
		"make":      1,
		"table":     2,
		"beautiful": 3,
		"rhythm":    1,
		"привет":    1,
	}
	for word, want := range tests {
		assert.Equal(t, want, syllables(word), word)
	}
}
