// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists console transcripts as opaque key-value blobs.
//
// # Backends
//
//   - file: one JSON file per key, written atomically
//   - sqlite: a single kv table (modernc.org/sqlite, pure Go)
//   - bolt: a single bucket in a bbolt database
//
// # Usage
//
//	kv, err := storage.Open(storage.BackendFile, dir)
//	transcripts := storage.NewTranscriptStore(kv, "default")
//	err = transcripts.Save(state)
//	state, err = transcripts.Load()
//
// Load never fails the console: a corrupt blob yields a fresh session and an
// error describing what was discarded.
package storage
