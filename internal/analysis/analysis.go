// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analysis

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/neonnexus/internal/model"
)

// AIThreshold is the human-likeness score below which text is flagged as
// machine generated.
const AIThreshold = 50

// =============================================================================
// RESULT
// =============================================================================

// Result is the analysis envelope attached to replies as "metrics".
type Result struct {
	Status             string  `json:"status"`
	Error              string  `json:"error,omitempty"`
	IsAIGenerated      bool    `json:"is_ai_generated"`
	HumanLikenessScore float64 `json:"human_likeness_score"`
	Metrics            *Groups `json:"metrics,omitempty"`
}

// Groups holds the metric groups in wire layout.
type Groups struct {
	Coherence   model.CoherenceMetrics   `json:"text_coherence_complexity"`
	Readability model.ReadabilityMetrics `json:"readability_metrics"`
	Vocabulary  model.VocabularyMetrics  `json:"vocabulary_lexical_diversity"`
	Sentiment   model.SentimentMetrics   `json:"sentiment_analysis"`
	Stylistic   model.StylisticMetrics   `json:"stylistic_features"`
	Structural  model.StructuralMetrics  `json:"structural_features"`
}

// Raw returns the JSON encoding of r.
func (r Result) Raw() json.RawMessage {
	data, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage(`{"error":"encode failed"}`)
	}
	return data
}

// failed builds the envelope for text that cannot be analyzed.
func failed(reason string) Result {
	return Result{Status: "error", Error: reason}
}

// =============================================================================
// TOKENIZATION
// =============================================================================

var (
	wordPattern      = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
	sentencePattern  = regexp.MustCompile(`[^.!?]+[.!?]*`)
	paragraphPattern = regexp.MustCompile(`\n\s*\n`)
	vowelGroups      = regexp.MustCompile(`[aeiouy]+`)
)

// doc is the tokenized form of one text.
type doc struct {
	words      []string   // case-folded
	sentences  [][]string // case-folded words per sentence
	paragraphs int
	exclaims   int
}

func tokenize(text string) doc {
	text = norm.NFC.String(text)
	fold := cases.Fold()

	words := func(s string) []string {
		raw := wordPattern.FindAllString(s, -1)
		out := make([]string, len(raw))
		for i, w := range raw {
			out[i] = fold.String(w)
		}
		return out
	}

	d := doc{
		words:    words(text),
		exclaims: strings.Count(text, "!"),
	}
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if ws := words(s); len(ws) > 0 {
			d.sentences = append(d.sentences, ws)
		}
	}
	for _, p := range paragraphPattern.Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			d.paragraphs++
		}
	}
	return d
}

// syllables estimates the syllable count of a folded word. Words without
// Latin vowels count as one.
func syllables(word string) int {
	n := len(vowelGroups.FindAllString(word, -1))
	if n > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

// =============================================================================
// ANALYZE
// =============================================================================

// Analyze computes the metric envelope for text. Empty text yields an
// error envelope, which normalizes to defaults.
func Analyze(text string) Result {
	if strings.TrimSpace(text) == "" {
		return failed("empty text")
	}

	d := tokenize(text)
	if len(d.words) == 0 {
		return failed("no words to analyze")
	}

	nWords := float64(len(d.words))
	nSentences := float64(len(d.sentences))
	if nSentences == 0 {
		nSentences = 1
	}

	totalSyllables, complexWords, letters := 0, 0, 0
	counts := make(map[string]int, len(d.words))
	for _, w := range d.words {
		s := syllables(w)
		totalSyllables += s
		if s >= 3 {
			complexWords++
		}
		letters += len([]rune(w))
		counts[w]++
	}

	hapax := 0
	for _, c := range counts {
		if c == 1 {
			hapax++
		}
	}

	wordsPerSentence := nWords / nSentences
	syllablesPerWord := float64(totalSyllables) / nWords

	flesch := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	grade := 0.39*wordsPerSentence + 11.8*syllablesPerWord - 15.59

	ttr := float64(len(counts)) / nWords
	label, score := sentiment(d.words)

	groups := &Groups{
		Coherence: model.CoherenceMetrics{
			SentenceCoherence: round(coherence(d.sentences)),
			ComplexityScore:   round(float64(complexWords) / nWords),
		},
		Readability: model.ReadabilityMetrics{
			FleschScore: round(clamp(flesch, 0, 100) / 100),
			GradeLevel:  round(math.Max(grade, 0)),
		},
		Vocabulary: model.VocabularyMetrics{
			LexicalDiversity: round(ttr),
			UniqueWordRatio:  round(float64(hapax) / nWords),
		},
		Sentiment: model.SentimentMetrics{
			Label: label,
			Score: round(score),
		},
		Stylistic: model.StylisticMetrics{
			Formality:         round(formality(d.words, d.exclaims)),
			AvgSentenceLength: round(wordsPerSentence),
		},
		Structural: model.StructuralMetrics{
			SentenceCount:  float64(len(d.sentences)),
			ParagraphCount: float64(max(d.paragraphs, 1)),
			AvgWordLength:  round(float64(letters) / nWords),
		},
	}

	human := humanLikeness(d.sentences, ttr)
	return Result{
		Status:             "success",
		IsAIGenerated:      human < AIThreshold,
		HumanLikenessScore: human,
		Metrics:            groups,
	}
}

// coherence is the mean content-word overlap between adjacent sentences.
// A single sentence is fully coherent.
func coherence(sentences [][]string) float64 {
	if len(sentences) < 2 {
		return 1
	}
	total := 0.0
	for i := 1; i < len(sentences); i++ {
		total += jaccard(contentWords(sentences[i-1]), contentWords(sentences[i]))
	}
	return total / float64(len(sentences)-1)
}

func contentWords(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if !stopwords[w] {
			set[w] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// sentiment scores words against the lexicon; a preceding negator flips
// the polarity of the next hit.
func sentiment(words []string) (string, float64) {
	pos, neg := 0, 0
	for i, w := range words {
		polarity := lexicon[w]
		if polarity == 0 {
			continue
		}
		if i > 0 && negators[words[i-1]] {
			polarity = -polarity
		}
		if polarity > 0 {
			pos++
		} else {
			neg++
		}
	}
	if pos+neg == 0 {
		return model.DefaultSentimentLabel, 0
	}
	score := float64(pos-neg) / float64(pos+neg)
	switch {
	case score > 0.05:
		return "positive", score
	case score < -0.05:
		return "negative", score
	default:
		return model.DefaultSentimentLabel, score
	}
}

// formality is one minus the share of informal markers.
func formality(words []string, exclaims int) float64 {
	informal := exclaims
	for _, w := range words {
		if informalWords[w] || strings.ContainsAny(w, "'’") {
			informal++
		}
	}
	return clamp(1-float64(informal)/float64(len(words)), 0, 1)
}

// humanLikeness blends sentence-length variation with lexical diversity
// into a 0..100 score. Uniform sentences and repetitive wording read as
// machine generated.
func humanLikeness(sentences [][]string, ttr float64) float64 {
	variation := 0.0
	if len(sentences) > 1 {
		mean := 0.0
		for _, s := range sentences {
			mean += float64(len(s))
		}
		mean /= float64(len(sentences))

		variance := 0.0
		for _, s := range sentences {
			d := float64(len(s)) - mean
			variance += d * d
		}
		variance /= float64(len(sentences))
		variation = math.Min(math.Sqrt(variance)/mean, 1)
	}
	return math.Round(100 * (0.6*variation + 0.4*ttr))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
