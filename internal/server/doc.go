// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP completion service the console talks to.
//
// The service forwards the console's context plus the new user message to an
// OpenAI-compatible provider (Groq by default) and attaches locally computed
// text metrics to each reply.
//
// # Endpoints
//
//   - POST /chat   - {message, context} in, {id, message, status, metrics} out
//   - GET  /health - {status, timestamp, version}
//   - GET  /stats  - Usage counters
//
// # Errors
//
// Errors are {"error": "..."}. Bad input answers 400, provider throttling
// 429 (provider text passed through), other provider failures 502 and the
// per-client limiter 429 "rate limit exceeded, try again in Ns".
//
// # Usage
//
//	p := server.NewOpenAIProvider(server.ProviderConfig{APIKey: key})
//	srv := server.NewServer("127.0.0.1:8787", p).
//		WithRateLimiter(server.NewRateLimiter(30))
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//		log.Fatal(err)
//	}
package server
