// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultWaitSeconds is the cooldown used when no wait hint is available.
const DefaultWaitSeconds = 5

// tryAgainPattern matches "try again in 3.2s", "try again in 1m2.5s" and
// "try again in 450ms".
var tryAgainPattern = regexp.MustCompile(`(?i)try again in\s+(?:(\d+)m(?:in)?\s*)?(\d+(?:\.\d+)?)\s*(ms|s)\b`)

// rateLimitMarkers are substrings that mark an error text as throttling.
var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
}

// ParseWaitTime returns the cooldown in whole seconds requested by an error
// text, rounded up. Without a "try again in <n>s" hint it returns
// DefaultWaitSeconds.
func ParseWaitTime(text string) int {
	if secs, ok := parseTryAgain(text); ok {
		return secs
	}
	return DefaultWaitSeconds
}

// WaitSeconds picks the cooldown from the error text, then the Retry-After
// header value, then def.
func WaitSeconds(text, retryAfter string, def int) int {
	if secs, ok := parseTryAgain(text); ok {
		return secs
	}
	if n, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && n > 0 {
		return n
	}
	if def < 1 {
		def = DefaultWaitSeconds
	}
	return def
}

// IsRateLimitText reports whether an error text signals throttling.
func IsRateLimitText(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return tryAgainPattern.MatchString(text)
}

func parseTryAgain(text string) (int, bool) {
	m := tryAgainPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	if m[3] == "ms" {
		value /= 1000
	}
	if m[1] != "" {
		minutes, _ := strconv.Atoi(m[1])
		value += float64(minutes * 60)
	}

	secs := int(math.Ceil(value))
	if secs < 1 {
		secs = 1
	}
	return secs, true
}
