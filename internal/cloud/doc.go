// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the client for the Neon Nexus completion endpoint.
//
// The endpoint accepts POST <base>/chat with {message, context} and answers
// {status: "success", message, metrics} or an error. This package classifies
// every outcome into a small taxonomy the dispatcher can act on.
//
// # Key Types
//
//   - Client: HTTP client with pooled transport and optional request pacing
//   - ChatRequest: Message plus []model.Turn context
//   - Reply: Trimmed completion text with normalized metrics
//   - Error: Failure with Kind, HTTP status and rate-limit cooldown
//
// # Error Kinds
//
//   - KindNetworkFailure: transport failure, no usable response
//   - KindUpstreamError: non-2xx that is not a rate limit
//   - KindRateLimited: 429, 500 (configurable) or rate-limit text
//   - KindMalformedResponse: undecodable body or missing message
//   - KindEmptyCompletion: 2xx with blank message
//
// # Usage
//
//	client := cloud.NewClient(cfg.Upstream.BaseURL).
//	    WithTimeout(30 * time.Second).
//	    WithRequestsPerMinute(30)
//	reply, err := client.Chat(ctx, cloud.ChatRequest{Message: "hello"})
//	if secs, ok := cloud.RetryAfter(err); ok {
//	    // cool down for secs seconds
//	}
//
// # Security
//
// Request and response bodies are never logged, and the Authorization header
// is cleared as soon as the request has been sent.
package cloud
