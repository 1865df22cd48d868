// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_GeneratesUniqueIDs(t *testing.T) {
	a := NewUserMessage("hello")
	b := NewUserMessage("hello")

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, strings.HasPrefix(a.ID, "msg_"))
	assert.Equal(t, RoleUser, a.Role)
	assert.False(t, a.Timestamp.IsZero())
}

func TestNewTemporaryMessage(t *testing.T) {
	msg := NewTemporaryMessage("Decrypting your request...")

	assert.True(t, msg.IsTemporary)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Nil(t, msg.Metrics)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.True(t, RoleSystem.Valid())
	assert.False(t, Role("tool").Valid())
	assert.False(t, Role("").Valid())
}

// =============================================================================
// METRICS NORMALIZATION TESTS
// =============================================================================

func TestParseMetrics_EmptyPayloads(t *testing.T) {
	want := DefaultMetrics()

	for _, raw := range []string{"", "null", "{}", "not json", "[1,2,3]", `{"error":"Neo API analysis failed","human_likeness_score":42}`} {
		t.Run(raw, func(t *testing.T) {
			got := ParseMetrics(json.RawMessage(raw))
			assert.Equal(t, want, got)
			assert.Equal(t, "neutral", got.Sentiment.Label)
		})
	}
}

func TestParseMetrics_Envelope(t *testing.T) {
	raw := `{
		"is_ai_generated": true,
		"human_likeness_score": 37,
		"metrics": {
			"text_coherence_complexity": {"sentence_coherence": 0.82},
			"readability_metrics": {"flesch_score": 0.61, "grade_level": 9.5},
			"vocabulary_lexical_diversity": {"lexical_diversity": 0.44},
			"sentiment_analysis": {"label": "positive", "score": 0.3}
		}
	}`

	m := ParseMetrics(json.RawMessage(raw))

	assert.True(t, m.IsAIGenerated)
	assert.Equal(t, 37.0, m.HumanLikenessScore)
	assert.Equal(t, 0.82, m.Coherence.SentenceCoherence)
	assert.Equal(t, 0.0, m.Coherence.ComplexityScore)
	assert.Equal(t, 0.61, m.Readability.FleschScore)
	assert.Equal(t, 9.5, m.Readability.GradeLevel)
	assert.Equal(t, 0.44, m.Vocabulary.LexicalDiversity)
	assert.Equal(t, "positive", m.Sentiment.Label)
	assert.Equal(t, 0.0, m.Structural.SentenceCount)
}

func TestParseMetrics_FlatLayoutAndWrongTypes(t *testing.T) {
	raw := `{
		"human_likeness_score": "high",
		"readability_metrics": {"flesch_score": 0.5},
		"sentiment_analysis": {"label": 7},
		"structural_features": "oops",
		"stylistic_features": {"formality": null}
	}`

	m := ParseMetrics(json.RawMessage(raw))

	assert.Equal(t, 0.0, m.HumanLikenessScore)
	assert.Equal(t, 0.5, m.Readability.FleschScore)
	assert.Equal(t, "neutral", m.Sentiment.Label)
	assert.Equal(t, StructuralMetrics{}, m.Structural)
	assert.Equal(t, 0.0, m.Stylistic.Formality)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"is_ai_generated": false}`,
		`{"metrics": {"readability_metrics": {}}}`,
		`{"human_likeness_score": 12.5, "metrics": {"sentiment_analysis": {"label": "negative", "score": -0.4}}}`,
		`{"structural_features": {"sentence_count": 3, "paragraph_count": 1, "avg_word_length": 4.2}}`,
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			once := ParseMetrics(json.RawMessage(raw))
			twice := Normalize(once.Partial())
			assert.Equal(t, once, twice)

			// Round trip through the wire shape as well.
			encoded, err := json.Marshal(once)
			require.NoError(t, err)
			assert.Equal(t, once, ParseMetrics(encoded))
		})
	}
}

func TestNormalize_EmptyLabelDefaults(t *testing.T) {
	empty := ""
	m := Normalize(PartialMetrics{SentimentLabel: &empty})
	assert.Equal(t, DefaultSentimentLabel, m.Sentiment.Label)
}
