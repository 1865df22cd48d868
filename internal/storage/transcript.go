// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"

	"github.com/jeranaias/neonnexus/internal/session"
)

// DefaultTranscriptKey is used when no key is configured.
const DefaultTranscriptKey = "default"

// TranscriptStore saves and restores a session transcript under one key.
type TranscriptStore struct {
	kv  KV
	key string
}

// NewTranscriptStore binds kv to key. An empty key selects
// DefaultTranscriptKey.
func NewTranscriptStore(kv KV, key string) *TranscriptStore {
	if key == "" {
		key = DefaultTranscriptKey
	}
	return &TranscriptStore{kv: kv, key: key}
}

// Key returns the bound key.
func (t *TranscriptStore) Key() string { return t.key }

// Save persists the transcript. Placeholders and cooldown notices are left
// out.
func (t *TranscriptStore) Save(state session.State) error {
	data, err := state.Encode()
	if err != nil {
		return err
	}
	if err := t.kv.Put(t.key, data); err != nil {
		return fmt.Errorf("save transcript %q: %w", t.key, err)
	}
	return nil
}

// Load restores the transcript. A missing blob yields a fresh session with a
// nil error. A corrupt blob yields a fresh session and an error wrapping
// session.ErrCorruptTranscript; the blob is left in place until the next Save.
func (t *TranscriptStore) Load() (session.State, error) {
	data, err := t.kv.Get(t.key)
	if errors.Is(err, ErrNotFound) {
		return session.New(), nil
	}
	if err != nil {
		return session.New(), fmt.Errorf("load transcript %q: %w", t.key, err)
	}
	return session.Restore(data)
}

// Raw returns the stored blob as is.
func (t *TranscriptStore) Raw() ([]byte, error) {
	return t.kv.Get(t.key)
}

// Clear removes the saved transcript. Clearing a missing one is not an error.
func (t *TranscriptStore) Clear() error {
	if err := t.kv.Delete(t.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear transcript %q: %w", t.key, err)
	}
	return nil
}
