// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the console transcript and rate-limit state.
package session

import (
	"strings"

	"github.com/jeranaias/neonnexus/internal/model"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the dispatcher-visible state of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseRateLimited
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseSending:
		return "sending"
	case PhaseRateLimited:
		return "rate-limited"
	default:
		return "idle"
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is an immutable snapshot of a console session.
// Every method returns a new State and leaves the receiver untouched.
type State struct {
	Messages []model.Message

	// Notification is the current banner text; empty means none.
	Notification string

	IsRateLimited   bool
	CooldownSeconds int

	// PendingRetryInput is resubmitted when the cooldown reaches zero.
	PendingRetryInput string

	// Sending is true while a request is in flight.
	Sending bool

	// InstructionSent is set after the first successful exchange.
	InstructionSent bool

	// CooldownNoticeID identifies the system message describing the cooldown.
	CooldownNoticeID string
}

// New returns a session seeded with the welcome message.
func New() State {
	return State{
		Messages: []model.Message{model.NewAssistantMessage(WelcomeMessage)},
	}
}

// FromMessages returns a session holding msgs. Temporary entries are dropped.
func FromMessages(msgs []model.Message) State {
	s := State{Messages: make([]model.Message, 0, len(msgs))}
	for _, m := range msgs {
		if !m.IsTemporary {
			s.Messages = append(s.Messages, m)
		}
	}
	return s
}

// Phase derives the dispatcher phase from the flags.
func (s State) Phase() Phase {
	switch {
	case s.IsRateLimited:
		return PhaseRateLimited
	case s.Sending:
		return PhaseSending
	default:
		return PhaseIdle
	}
}

// Clone returns a deep copy of the message slice.
func (s State) Clone() State {
	s.Messages = append([]model.Message(nil), s.Messages...)
	return s
}

// =============================================================================
// TRANSCRIPT TRANSFORMS
// =============================================================================

// AppendUser appends a user message with trimmed text.
func (s State) AppendUser(text string) State {
	return s.appendMessage(model.NewUserMessage(strings.TrimSpace(text)))
}

// AppendAssistant appends an assistant message, attaching metrics when non-nil.
func (s State) AppendAssistant(text string, metrics *model.Metrics) State {
	msg := model.NewAssistantMessage(text)
	if metrics != nil {
		msg = msg.WithMetrics(*metrics)
	}
	return s.appendMessage(msg)
}

// AppendSystem appends a transcript-only system notice.
func (s State) AppendSystem(text string) State {
	return s.appendMessage(model.NewSystemMessage(text))
}

// AppendTemporary appends a placeholder, replacing any existing one.
func (s State) AppendTemporary(text string) State {
	return s.DropTemporary().appendMessage(model.NewTemporaryMessage(text))
}

// ReplaceTemporaryWith puts msg where the placeholder was. Without a
// placeholder msg is appended.
func (s State) ReplaceTemporaryWith(msg model.Message) State {
	msg.IsTemporary = false

	out := s.Clone()
	out.Messages = out.Messages[:0]
	replaced := false
	for _, m := range s.Messages {
		if m.IsTemporary {
			if !replaced {
				out.Messages = append(out.Messages, msg)
				replaced = true
			}
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	if !replaced {
		out.Messages = append(out.Messages, msg)
	}
	return out
}

// DropTemporary removes every placeholder.
func (s State) DropTemporary() State {
	return s.filter(func(m model.Message) bool { return !m.IsTemporary })
}

// Temporary returns the live placeholder, if any.
func (s State) Temporary() (model.Message, bool) {
	for _, m := range s.Messages {
		if m.IsTemporary {
			return m, true
		}
	}
	return model.Message{}, false
}

// =============================================================================
// NOTIFICATION
// =============================================================================

// SetNotification sets the banner text. Empty text clears it.
func (s State) SetNotification(text string) State {
	s = s.Clone()
	s.Notification = text
	return s
}

// ClearNotification removes the banner.
func (s State) ClearNotification() State {
	return s.SetNotification("")
}

// =============================================================================
// RATE LIMIT
// =============================================================================

// SetRateLimit enters the cooldown. Non-positive durations count as one second.
func (s State) SetRateLimit(seconds int, pendingInput string) State {
	if seconds < 1 {
		seconds = 1
	}
	s = s.Clone()
	s.IsRateLimited = true
	s.CooldownSeconds = seconds
	s.PendingRetryInput = strings.TrimSpace(pendingInput)
	s.Sending = false
	return s
}

// AppendCooldownNotice appends the system message describing the cooldown and
// records its ID so the notice can be updated and removed later.
func (s State) AppendCooldownNotice() State {
	s = s.removeByID(s.CooldownNoticeID)
	notice := model.NewSystemMessage(CooldownNotice(s.CooldownSeconds))
	s.CooldownNoticeID = notice.ID
	return s.appendMessage(notice)
}

// TickCooldown advances the cooldown by one second. When it reaches zero the
// rate limit clears and the pending input is returned exactly once.
func (s State) TickCooldown() (State, string) {
	if !s.IsRateLimited {
		return s, ""
	}
	s = s.Clone()
	s.CooldownSeconds--
	if s.CooldownSeconds > 0 {
		s.updateNotice()
		return s, ""
	}

	retry := s.PendingRetryInput
	s.IsRateLimited = false
	s.CooldownSeconds = 0
	s.PendingRetryInput = ""
	return s, retry
}

// ClearCooldown resets the rate-limit state and removes the cooldown notice
// together with any placeholder.
func (s State) ClearCooldown() State {
	s = s.removeByID(s.CooldownNoticeID).DropTemporary()
	s.IsRateLimited = false
	s.CooldownSeconds = 0
	s.CooldownNoticeID = ""
	return s
}

// =============================================================================
// FLAGS
// =============================================================================

// WithSending sets the in-flight flag.
func (s State) WithSending(sending bool) State {
	s = s.Clone()
	s.Sending = sending
	return s
}

// MarkInstructionSent records that the system instruction reached upstream.
func (s State) MarkInstructionSent() State {
	s = s.Clone()
	s.InstructionSent = true
	return s
}

// =============================================================================
// HELPERS
// =============================================================================

func (s State) appendMessage(m model.Message) State {
	s = s.Clone()
	s.Messages = append(s.Messages, m)
	return s
}

func (s State) filter(keep func(model.Message) bool) State {
	out := s
	out.Messages = make([]model.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if keep(m) {
			out.Messages = append(out.Messages, m)
		}
	}
	return out
}

func (s State) removeByID(id string) State {
	if id == "" {
		return s.Clone()
	}
	return s.filter(func(m model.Message) bool { return m.ID != id })
}

// updateNotice rewrites the cooldown notice in place. s must already be a clone.
func (s State) updateNotice() {
	for i := range s.Messages {
		if s.Messages[i].ID == s.CooldownNoticeID && s.CooldownNoticeID != "" {
			s.Messages[i].Content = CooldownNotice(s.CooldownSeconds)
		}
	}
}
