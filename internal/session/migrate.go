// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/neonnexus/internal/model"
)

// ErrCorruptTranscript is returned by Restore when a saved transcript had to be
// discarded. The returned State is still usable.
var ErrCorruptTranscript = errors.New("saved transcript discarded")

// Snapshot is the persisted transcript blob.
type Snapshot struct {
	Messages []model.Message `json:"messages"`
}

// Snapshot returns the persistable part of the transcript. Placeholders and
// system notices are session-local and never saved.
func (s State) Snapshot() Snapshot {
	out := Snapshot{Messages: make([]model.Message, 0, len(s.Messages))}
	for _, m := range s.Messages {
		if m.IsTemporary || m.Role == model.RoleSystem {
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	return out
}

// Encode serializes the persistable transcript.
func (s State) Encode() ([]byte, error) {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return data, nil
}

// legacyMessage accepts any historic message shape. Every field is optional
// at decode time and validated afterwards.
type legacyMessage struct {
	ID          json.RawMessage `json:"id"`
	Role        json.RawMessage `json:"role"`
	Content     json.RawMessage `json:"content"`
	Timestamp   json.RawMessage `json:"timestamp"`
	IsTemporary json.RawMessage `json:"isTemporary"`
	Metrics     json.RawMessage `json:"metrics"`
}

// Restore rebuilds a session from a saved blob, migrating legacy entries.
// An empty blob yields a fresh session. If any entry is invalid the whole
// transcript is discarded, a fresh session is returned and the error wraps
// ErrCorruptTranscript.
func Restore(data []byte) (State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return New(), nil
	}

	var blob struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &blob); err != nil {
		return New(), fmt.Errorf("%w: %v", ErrCorruptTranscript, err)
	}

	msgs := make([]model.Message, 0, len(blob.Messages))
	for i, raw := range blob.Messages {
		msg, keep, err := migrateMessage(raw)
		if err != nil {
			return New(), fmt.Errorf("%w: message %d: %v", ErrCorruptTranscript, i, err)
		}
		if keep {
			msgs = append(msgs, msg)
		}
	}

	if len(msgs) == 0 {
		return New(), nil
	}
	return FromMessages(msgs), nil
}

func migrateMessage(raw json.RawMessage) (model.Message, bool, error) {
	var lm legacyMessage
	if err := json.Unmarshal(raw, &lm); err != nil {
		return model.Message{}, false, fmt.Errorf("not an object: %v", err)
	}

	var role string
	if err := json.Unmarshal(lm.Role, &role); err != nil {
		return model.Message{}, false, errors.New("role is not a string")
	}
	r := model.Role(role)
	if r != model.RoleUser && r != model.RoleAssistant {
		return model.Message{}, false, fmt.Errorf("unsupported role %q", role)
	}

	var content string
	if isNull(lm.Content) || json.Unmarshal(lm.Content, &content) != nil {
		return model.Message{}, false, errors.New("content is not a string")
	}

	// An absent or null flag means a settled message.
	var temporary bool
	if !isNull(lm.IsTemporary) && json.Unmarshal(lm.IsTemporary, &temporary) != nil {
		return model.Message{}, false, errors.New("isTemporary is not a boolean")
	}
	if temporary {
		return model.Message{}, false, nil
	}

	msg := model.Message{Role: r, Content: content}

	var id string
	if json.Unmarshal(lm.ID, &id) == nil && id != "" {
		msg.ID = id
	} else {
		msg.ID = model.NewID()
	}

	var ts time.Time
	if json.Unmarshal(lm.Timestamp, &ts) == nil {
		msg.Timestamp = ts
	}

	if r == model.RoleAssistant && !isNull(lm.Metrics) {
		msg = msg.WithMetrics(model.ParseMetrics(lm.Metrics))
	}

	return msg, true, nil
}

// isNull reports whether a raw field was absent or an explicit JSON null.
func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
