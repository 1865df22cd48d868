// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/neonnexus/internal/model"
)

func countTemporary(s State) int {
	n := 0
	for _, m := range s.Messages {
		if m.IsTemporary {
			n++
		}
	}
	return n
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_SeedsWelcome(t *testing.T) {
	s := New()

	require.Len(t, s.Messages, 1)
	assert.Equal(t, model.RoleAssistant, s.Messages[0].Role)
	assert.Equal(t, WelcomeMessage, s.Messages[0].Content)
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Empty(t, s.Notification)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func TestTransforms_DoNotMutateReceiver(t *testing.T) {
	base := New()
	next := base.AppendUser("hello").AppendTemporary("wait")

	assert.Len(t, base.Messages, 1)
	assert.Len(t, next.Messages, 3)

	dropped := next.DropTemporary()
	assert.Len(t, next.Messages, 3)
	assert.Len(t, dropped.Messages, 2)
}

func TestAppendUser_Trims(t *testing.T) {
	s := New().AppendUser("  hello \n")
	assert.Equal(t, "hello", s.Messages[1].Content)
}

func TestAppendTemporary_AtMostOne(t *testing.T) {
	s := New().AppendUser("a").AppendTemporary("one").AppendTemporary("two").AppendTemporary("three")

	assert.Equal(t, 1, countTemporary(s))
	tmp, ok := s.Temporary()
	require.True(t, ok)
	assert.Equal(t, "three", tmp.Content)
}

func TestReplaceTemporaryWith(t *testing.T) {
	s := New().AppendUser("hello").AppendTemporary("pending")
	reply := model.NewAssistantMessage("hi there")

	s = s.ReplaceTemporaryWith(reply)

	require.Len(t, s.Messages, 3)
	assert.Equal(t, 0, countTemporary(s))
	assert.Equal(t, "hi there", s.Messages[2].Content)
	assert.Equal(t, reply.ID, s.Messages[2].ID)
}

func TestReplaceTemporaryWith_NoPlaceholderAppends(t *testing.T) {
	s := New().ReplaceTemporaryWith(model.NewAssistantMessage("late"))
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "late", s.Messages[1].Content)
}

func TestReplaceTemporaryWith_ClearsTemporaryFlag(t *testing.T) {
	s := New().AppendTemporary("x").ReplaceTemporaryWith(model.NewTemporaryMessage("y"))
	assert.Equal(t, 0, countTemporary(s))
}

func TestAppendAssistant_Metrics(t *testing.T) {
	m := model.DefaultMetrics()
	s := New().AppendAssistant("reply", &m).AppendAssistant("bare", nil)

	require.NotNil(t, s.Messages[1].Metrics)
	assert.Equal(t, "neutral", s.Messages[1].Metrics.Sentiment.Label)
	assert.Nil(t, s.Messages[2].Metrics)
}

// =============================================================================
// NOTIFICATION
// =============================================================================

func TestNotification(t *testing.T) {
	s := New().SetNotification(NotifyMalfunction)
	assert.Equal(t, NotifyMalfunction, s.Notification)
	assert.Empty(t, s.ClearNotification().Notification)
}

// =============================================================================
// RATE LIMIT
// =============================================================================

func TestTickCooldown_ReleasesPendingOnce(t *testing.T) {
	s := New().AppendUser("hello").WithSending(true).SetRateLimit(2, "hello").AppendCooldownNotice()

	assert.Equal(t, PhaseRateLimited, s.Phase())
	assert.False(t, s.Sending)
	assert.Equal(t, 2, s.CooldownSeconds)

	s, retry := s.TickCooldown()
	assert.Empty(t, retry)
	assert.Equal(t, 1, s.CooldownSeconds)
	assert.True(t, s.IsRateLimited)

	s, retry = s.TickCooldown()
	assert.Equal(t, "hello", retry)
	assert.False(t, s.IsRateLimited)
	assert.Empty(t, s.PendingRetryInput)

	s, retry = s.TickCooldown()
	assert.Empty(t, retry)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestTickCooldown_UpdatesNotice(t *testing.T) {
	s := New().SetRateLimit(3, "x").AppendCooldownNotice()
	require.NotEmpty(t, s.CooldownNoticeID)
	assert.Equal(t, CooldownNotice(3), s.Messages[len(s.Messages)-1].Content)

	next, _ := s.TickCooldown()
	assert.Equal(t, CooldownNotice(2), next.Messages[len(next.Messages)-1].Content)
	assert.Equal(t, CooldownNotice(3), s.Messages[len(s.Messages)-1].Content, "receiver must not change")
}

func TestSetRateLimit_ClampsDuration(t *testing.T) {
	s := New().SetRateLimit(0, "x")
	assert.Equal(t, 1, s.CooldownSeconds)
}

func TestAppendCooldownNotice_ReplacesPrevious(t *testing.T) {
	s := New().SetRateLimit(5, "x").AppendCooldownNotice().SetRateLimit(7, "x").AppendCooldownNotice()

	notices := 0
	for _, m := range s.Messages {
		if m.Role == model.RoleSystem {
			notices++
		}
	}
	assert.Equal(t, 1, notices)
}

func TestClearCooldown(t *testing.T) {
	s := New().AppendUser("hello").AppendTemporary("wait").SetRateLimit(2, "hello").AppendCooldownNotice()

	s = s.ClearCooldown()

	require.Len(t, s.Messages, 2)
	assert.Equal(t, model.RoleUser, s.Messages[1].Role)
	assert.False(t, s.IsRateLimited)
	assert.Empty(t, s.CooldownNoticeID)
}

func TestPhase(t *testing.T) {
	assert.Equal(t, "idle", New().Phase().String())
	assert.Equal(t, "sending", New().WithSending(true).Phase().String())
	assert.Equal(t, "rate-limited", New().SetRateLimit(1, "").Phase().String())
}
