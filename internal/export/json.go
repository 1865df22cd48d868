// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/neonnexus/internal/model"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// document is the structured export shared by the JSON and YAML exporters.
type document struct {
	Title      string            `json:"title"`
	ExportedAt *time.Time        `json:"exported_at,omitempty"`
	Count      int               `json:"message_count"`
	Messages   []documentMessage `json:"messages"`
}

type documentMessage struct {
	ID        string         `json:"id"`
	Role      model.Role     `json:"role"`
	Content   string         `json:"content"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Metrics   *model.Metrics `json:"metrics,omitempty"`
}

func buildDocument(t *Transcript, opts *Options) document {
	doc := document{
		Title:    t.Title,
		Count:    len(t.Messages),
		Messages: make([]documentMessage, 0, len(t.Messages)),
	}
	if opts.IncludeMetadata {
		at := t.ExportedAt
		doc.ExportedAt = &at
	}
	for _, m := range t.Messages {
		dm := documentMessage{ID: m.ID, Role: m.Role, Content: m.Content}
		if opts.IncludeTimestamps && !m.Timestamp.IsZero() {
			ts := m.Timestamp
			dm.Timestamp = &ts
		}
		if opts.IncludeMetrics {
			dm.Metrics = m.Metrics
		}
		doc.Messages = append(doc.Messages, dm)
	}
	return doc
}

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to indented JSON.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a transcript to JSON.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	return json.MarshalIndent(buildDocument(t, e.options), "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
