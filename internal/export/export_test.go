// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/session"
)

func sampleTranscript() *Transcript {
	metrics := model.DefaultMetrics()
	metrics.Readability.FleschScore = 0.75
	state := session.New().
		AppendUser("hello").
		AppendAssistant("hi there\nsecond line", &metrics).
		AppendTemporary("Processing...")
	t := FromState(state)
	t.ExportedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return t
}

func TestFromState_SkipsSessionLocalEntries(t *testing.T) {
	state := session.New().AppendUser("x").SetRateLimit(2, "x").AppendCooldownNotice().AppendTemporary("wait")
	tr := FromState(state)

	require.Len(t, tr.Messages, 2)
	for _, m := range tr.Messages {
		assert.False(t, m.IsTemporary)
		assert.NotEqual(t, model.RoleSystem, m.Role)
	}
}

func TestNewExporter(t *testing.T) {
	tests := map[string]string{
		"md":       ".md",
		"markdown": ".md",
		"json":     ".json",
		"YAML":     ".yaml",
		"yml":      ".yaml",
	}
	for format, ext := range tests {
		e, err := NewExporter(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ext, e.FileExtension())
	}

	_, err := NewExporter("html", nil)
	assert.Error(t, err)
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: Neon Nexus Session\n"))
	assert.Contains(t, md, "messages: 3")
	assert.Contains(t, md, "### [You]")
	assert.Contains(t, md, "### [Nexus]")
	assert.Contains(t, md, "hi there\nsecond line")
	assert.Contains(t, md, "| Flesch | 0.75 |")
	assert.Contains(t, md, "| Sentiment | neutral (0.00) |")
	assert.NotContains(t, md, "Processing...")
}

func TestMarkdownExporter_WithoutMetadata(t *testing.T) {
	opts := &Options{}
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	require.NoError(t, err)

	assert.False(t, strings.HasPrefix(string(out), "---"))
	assert.NotContains(t, string(out), "| Metric |")
}

func TestMarkdownExporter_Empty(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(&Transcript{})
	assert.Error(t, err)
	_, err = NewMarkdownExporter(nil).Export(nil)
	assert.Error(t, err)
}

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)

	var doc struct {
		Title    string `json:"title"`
		Count    int    `json:"message_count"`
		Messages []struct {
			Role    string         `json:"role"`
			Content string         `json:"content"`
			Metrics map[string]any `json:"metrics"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, 3, doc.Count)
	require.Len(t, doc.Messages, 3)
	assert.Equal(t, "user", doc.Messages[1].Role)
	assert.Contains(t, doc.Messages[2].Metrics, "readability_metrics")
}

func TestYAMLExporter(t *testing.T) {
	out, err := NewYAMLExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "Neon Nexus Session", doc["title"])
	assert.Equal(t, 3, doc["message_count"])

	msgs, ok := doc["messages"].([]any)
	require.True(t, ok)
	reply := msgs[2].(map[string]any)
	assert.Equal(t, "hi there\nsecond line", reply["content"])

	// Block style, not JSON flow style.
	assert.NotContains(t, string(out), "{")
	assert.Contains(t, string(out), "content: |-")
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = filepath.Join(dir, "out")

	path, err := ExportToFile(sampleTranscript(), NewJSONExporter(opts), opts)
	require.NoError(t, err)

	assert.Equal(t, "nexus_Neon_Nexus_Session_20250102_030405.json", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestWriteTo_PicksFormatFromExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, WriteTo(sampleTranscript(), path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Neon Nexus Session")

	assert.Error(t, WriteTo(sampleTranscript(), filepath.Join(t.TempDir(), "x.pdf"), nil))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b_c", sanitizeFilename("a/b c"))
	assert.Equal(t, "transcript", sanitizeFilename(""))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("x", 80))), 50)
}
