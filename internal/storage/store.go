// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// KV INTERFACE
// =============================================================================

// KV is a minimal byte-oriented key-value store.
type KV interface {
	// Get returns ErrNotFound when key is absent.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	// Delete returns ErrNotFound when key is absent.
	Delete(key string) error
	// Keys lists stored keys in ascending order.
	Keys() ([]string, error)
	Close() error
}

// Backend names a KV implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendBolt   Backend = "bolt"
)

// Backends lists the accepted backend names.
var Backends = []Backend{BackendFile, BackendSQLite, BackendBolt}

// ParseBackend validates a backend name. Empty selects the file backend.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case "":
		return BackendFile, nil
	case BackendFile, BackendSQLite, BackendBolt:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Open opens the backend rooted at path. For the file backend path is a
// directory; for the others it is the database file.
func Open(backend Backend, path string) (KV, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// =============================================================================
// KEYS
// =============================================================================

// SECURITY: keys become file names in the file backend
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateKey rejects keys that are empty, too long or contain path
// characters.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a key doesn't exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &StoreError{Message: "key not found"}

// ErrInvalidKey is returned for keys failing ValidateKey.
var ErrInvalidKey = &StoreError{Message: "invalid key"}

// ErrUnknownBackend is returned for unsupported backend names.
var ErrUnknownBackend = &StoreError{Message: "unknown storage backend"}

// StoreError represents a storage error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing storage errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
