// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts, messages and metrics.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Prompt returns the console prefix drawn in front of a message.
func (r Role) Prompt() string {
	switch r {
	case RoleUser:
		return ">"
	case RoleSystem:
		return "!"
	default:
		return "#"
	}
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Nexus"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// IsTemporary marks the placeholder shown while a completion is pending.
	// Temporary entries are never sent upstream and never persisted.
	IsTemporary bool `json:"isTemporary,omitempty"`

	// Metrics is attached to assistant replies only.
	Metrics *Metrics `json:"metrics,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewTemporaryMessage creates an assistant placeholder.
func NewTemporaryMessage(content string) Message {
	msg := NewMessage(RoleAssistant, content)
	msg.IsTemporary = true
	return msg
}

// WithMetrics returns a copy of m carrying metrics.
func (m Message) WithMetrics(metrics Metrics) Message {
	m.Metrics = &metrics
	return m
}

// =============================================================================
// WIRE TURN
// =============================================================================

// Turn is the {role, content} pair sent upstream as conversation context.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewID returns a fresh message identifier.
func NewID() string {
	return "msg_" + uuid.NewString()
}
