// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/neonnexus/internal/config"
	convctx "github.com/jeranaias/neonnexus/internal/context"
	"github.com/jeranaias/neonnexus/internal/server"
	"github.com/jeranaias/neonnexus/internal/telemetry"
)

// serveShutdownTimeout bounds draining in-flight requests.
const serveShutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		listen     string
		noAnalysis bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upstream /chat service",
		Long: `Run the HTTP service the console talks to.

Requests are answered by an OpenAI-compatible provider (Groq by default).
Set GROQ_API_KEY or server.provider_api_key before starting.

Endpoints:
  POST /chat     {"message": "...", "context": [...]}
  GET  /health   liveness probe
  GET  /stats    request counters`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Server.Listen = listen
			}
			if noAnalysis {
				a.cfg.Server.Analyze = false
			}
			srv, err := newServer(a.cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, srv)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "address to listen on (overrides server.listen)")
	cmd.Flags().BoolVar(&noAnalysis, "no-analysis", false, "do not attach text metrics to replies")
	return cmd
}

// newServer builds the service from the [server] section.
func newServer(cfg *config.Config) (*server.Server, error) {
	sc := cfg.Server
	if sc.ProviderAPIKey == "" {
		telemetry.Logger().Warn("no provider API key configured; completions will fail")
	}

	provider := server.NewOpenAIProvider(server.ProviderConfig{
		BaseURL:     sc.ProviderBaseURL,
		APIKey:      sc.ProviderAPIKey,
		Model:       sc.Model,
		MaxTokens:   sc.MaxTokens,
		Temperature: sc.Temperature,
	})

	srv := server.NewServer(sc.Listen, provider).
		WithAnalysis(sc.Analyze).
		WithAuth(server.TokenAuthConfig(sc.AuthToken))

	if sc.RequestsPerMinute > 0 {
		srv.WithRateLimiter(server.NewRateLimiter(sc.RequestsPerMinute))
	}
	if sc.ContextWindowTokens > 0 {
		budget, err := convctx.NewBudget(sc.ContextWindowTokens)
		if err != nil {
			return nil, fmt.Errorf("context budget: %w", err)
		}
		telemetry.Logger().Info("context budget enabled", "max_tokens", budget.MaxTokens())
		srv.WithBudget(budget)
	}
	return srv, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, srv *server.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	for {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-shutdownCtx.Done():
			return fmt.Errorf("shutdown: %w", shutdownCtx.Err())
		case <-time.After(50 * time.Millisecond):
			// Start may not have created the listener yet
		}
	}
}
