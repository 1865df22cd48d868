// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/neonnexus/internal/util"
)

// =============================================================================
// OUTCOMES
// =============================================================================

// Outcome classifies how an exchange ended.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeEmpty       Outcome = "empty"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)

// maxSlowest is how many of the slowest exchanges are retained.
const maxSlowest = 10

// sessionIDCounter ensures unique session IDs even when created rapidly
var sessionIDCounter uint64

// =============================================================================
// TRACKER
// =============================================================================

// Tracker accumulates per-session exchange statistics. Safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	stats SessionStats
}

// SessionStats summarizes the exchanges of one console session.
type SessionStats struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`

	Requests    int `json:"requests"`
	Successes   int `json:"successes"`
	Empty       int `json:"empty"`
	RateLimited int `json:"rate_limited"`
	Failures    int `json:"failures"`

	// CooldownSeconds is the total time spent waiting on rate limits.
	CooldownSeconds int `json:"cooldown_seconds"`

	TotalLatency time.Duration `json:"total_latency"`

	// Slowest holds the slowest exchanges, longest first.
	Slowest []ExchangeRecord `json:"slowest"`
}

// ExchangeRecord is one finished upstream exchange.
type ExchangeRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Prompt    string        `json:"prompt"` // First 100 chars
	Outcome   Outcome       `json:"outcome"`
	Duration  time.Duration `json:"duration"`
}

// NewTracker creates a tracker for a fresh session.
func NewTracker() *Tracker {
	return &Tracker{
		stats: SessionStats{
			ID:        generateSessionID(),
			StartTime: time.Now(),
			Slowest:   make([]ExchangeRecord, 0),
		},
	}
}

// =============================================================================
// RECORDING
// =============================================================================

// RecordExchange records a finished exchange.
func (t *Tracker) RecordExchange(outcome Outcome, prompt string, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prompt = util.TruncateRunes(prompt, 100)

	s := &t.stats
	s.Requests++
	s.TotalLatency += duration
	switch outcome {
	case OutcomeSuccess:
		s.Successes++
	case OutcomeEmpty:
		s.Empty++
	case OutcomeRateLimited:
		s.RateLimited++
	default:
		s.Failures++
	}

	s.Slowest = append(s.Slowest, ExchangeRecord{
		Timestamp: time.Now(),
		Prompt:    prompt,
		Outcome:   outcome,
		Duration:  duration,
	})
	sort.SliceStable(s.Slowest, func(i, j int) bool {
		return s.Slowest[i].Duration > s.Slowest[j].Duration
	})
	if len(s.Slowest) > maxSlowest {
		s.Slowest = s.Slowest[:maxSlowest]
	}
}

// RecordCooldown adds seconds spent waiting on a rate limit.
func (t *Tracker) RecordCooldown(seconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.CooldownSeconds += seconds
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// Stats returns a copy of the current session statistics.
func (t *Tracker) Stats() SessionStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.stats
	out.Slowest = make([]ExchangeRecord, len(t.stats.Slowest))
	copy(out.Slowest, t.stats.Slowest)
	return out
}

// AverageLatency returns the mean exchange duration.
func (s SessionStats) AverageLatency() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Requests)
}

// Summary renders a one-line human summary.
func (s SessionStats) Summary() string {
	return fmt.Sprintf("%d requests: %d ok, %d empty, %d rate-limited (%ds cooling), %d failed, avg %s",
		s.Requests, s.Successes, s.Empty, s.RateLimited, s.CooldownSeconds, s.Failures,
		s.AverageLatency().Round(time.Millisecond))
}

// Reset starts a new session.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = SessionStats{
		ID:        generateSessionID(),
		StartTime: time.Now(),
		Slowest:   make([]ExchangeRecord, 0),
	}
}

// generateSessionID generates a unique session ID.
func generateSessionID() string {
	// Use date format plus atomic counter for guaranteed uniqueness
	now := time.Now()
	counter := atomic.AddUint64(&sessionIDCounter, 1)
	return now.Format("20060102-150405") + "-" + fmt.Sprintf("%d", counter)
}
