// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_RecordExchange(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordExchange(OutcomeSuccess, "hello", 100*time.Millisecond)
	tracker.RecordExchange(OutcomeRateLimited, "hello", 300*time.Millisecond)
	tracker.RecordExchange(OutcomeFailed, "boom", 200*time.Millisecond)
	tracker.RecordExchange(OutcomeEmpty, "blank", 0)
	tracker.RecordCooldown(2)

	s := tracker.Stats()
	assert.Equal(t, 4, s.Requests)
	assert.Equal(t, 1, s.Successes)
	assert.Equal(t, 1, s.RateLimited)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, 1, s.Empty)
	assert.Equal(t, 2, s.CooldownSeconds)
	assert.Equal(t, 150*time.Millisecond, s.AverageLatency())

	require.Len(t, s.Slowest, 4)
	assert.Equal(t, 300*time.Millisecond, s.Slowest[0].Duration)
	assert.Contains(t, s.Summary(), "4 requests")
}

func TestTracker_KeepsTenSlowest(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 15; i++ {
		tracker.RecordExchange(OutcomeSuccess, "q", time.Duration(i)*time.Millisecond)
	}

	s := tracker.Stats()
	require.Len(t, s.Slowest, 10)
	assert.Equal(t, 14*time.Millisecond, s.Slowest[0].Duration)
	assert.Equal(t, 5*time.Millisecond, s.Slowest[9].Duration)
}

func TestTracker_TruncatesPrompt(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordExchange(OutcomeSuccess, strings.Repeat("x", 150), time.Millisecond)

	p := tracker.Stats().Slowest[0].Prompt
	assert.Equal(t, 100, len(p))
	assert.True(t, strings.HasSuffix(p, "..."))
}

func TestTracker_StatsIsCopy(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordExchange(OutcomeSuccess, "q", time.Millisecond)

	s := tracker.Stats()
	s.Slowest[0].Prompt = "mutated"

	assert.Equal(t, "q", tracker.Stats().Slowest[0].Prompt)
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker()
	id := tracker.Stats().ID
	tracker.RecordExchange(OutcomeSuccess, "q", time.Millisecond)

	tracker.Reset()

	assert.Equal(t, 0, tracker.Stats().Requests)
	assert.NotEqual(t, id, tracker.Stats().ID)
}

func TestSetup_JSONWithRequestID(t *testing.T) {
	prev := Logger()
	defer logger.Store(prev)

	var buf bytes.Buffer
	Setup(&buf, LogOptions{Level: "debug"})

	ctx := WithRequestID(context.Background(), "req-42")
	LoggerFromContext(ctx).Debug("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "v", entry["k"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
