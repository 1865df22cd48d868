// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/telemetry"
)

// ============================================================================
// PROVIDER INTERFACE
// ============================================================================

// Provider produces a completion for a conversation ending in a user turn.
type Provider interface {
	Complete(ctx context.Context, turns []model.Turn) (string, error)
}

// ProviderError is a failed provider call. Status is 0 when no HTTP
// response was received.
type ProviderError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("provider: %v", e.Err)
	}
	return fmt.Sprintf("provider: status %d: %s", e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ============================================================================
// OPENAI-COMPATIBLE PROVIDER
// ============================================================================

const (
	// DefaultProviderBaseURL is Groq's OpenAI-compatible API.
	DefaultProviderBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the default completion model.
	DefaultModel = "llama-3.1-8b-instant"

	// DefaultMaxTokens caps completion length.
	DefaultMaxTokens = 1000

	// DefaultTemperature is the default sampling temperature.
	DefaultTemperature = 0.7

	// DefaultProviderTimeout bounds one provider call.
	DefaultProviderTimeout = 30 * time.Second

	// DefaultAttempts is how many calls are made in total while the
	// provider answers 503.
	DefaultAttempts = 3

	// DefaultRetryDelay is the pause between 503 retries.
	DefaultRetryDelay = time.Second
)

// ProviderConfig configures an OpenAIProvider.
type ProviderConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// Attempts is the total number of calls made while the provider
	// answers 503 (0 or less selects the default, 1 disables retries).
	Attempts   int
	RetryDelay time.Duration
}

// OpenAIProvider calls an OpenAI-compatible chat completions API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	attempts    int
	retryDelay  time.Duration
}

// NewOpenAIProvider creates a provider; zero fields take defaults.
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultProviderBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		attempts:    cfg.Attempts,
		retryDelay:  cfg.RetryDelay,
	}
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Complete implements Provider. 503 responses are retried with a fixed pause.
func (p *OpenAIProvider) Complete(ctx context.Context, turns []model.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    providerRole(t.Role),
			Content: t.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}

	log := telemetry.LoggerFromContext(ctx)
	for attempt := 1; ; attempt++ {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", nil
			}
			return resp.Choices[0].Message.Content, nil
		}

		perr := classifyProviderError(err)
		if perr.Status != http.StatusServiceUnavailable || attempt >= p.attempts {
			return "", perr
		}

		// RELIABILITY: Provider overload is usually brief
		log.Warn("provider unavailable, retrying", "attempt", attempt, "max", p.attempts)
		select {
		case <-ctx.Done():
			return "", &ProviderError{Err: ctx.Err()}
		case <-time.After(p.retryDelay):
		}
	}
}

func providerRole(r model.Role) string {
	switch r {
	case model.RoleSystem:
		return openai.ChatMessageRoleSystem
	case model.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// classifyProviderError extracts the HTTP status and message from client errors.
func classifyProviderError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &ProviderError{Status: reqErr.HTTPStatusCode, Message: msg, Err: err}
	}
	return &ProviderError{Err: err}
}
