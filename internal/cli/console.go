// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jeranaias/neonnexus/internal/cloud"
	"github.com/jeranaias/neonnexus/internal/config"
	convctx "github.com/jeranaias/neonnexus/internal/context"
	"github.com/jeranaias/neonnexus/internal/dispatch"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/storage"
	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/ui/chat"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
)

// shutdownTimeout bounds the final transcript save.
const shutdownTimeout = 5 * time.Second

// healthTimeout bounds the start-up upstream check.
const healthTimeout = 3 * time.Second

// =============================================================================
// CONSOLE WIRING
// =============================================================================

// console bundles what the TUI and the REPL share: a dispatcher over the
// configured upstream, the transcript store and the exchange tracker.
type console struct {
	dispatcher *dispatch.Dispatcher
	tracker    *telemetry.Tracker

	// store is nil when transcripts are disabled.
	store    *storage.TranscriptStore
	kv       storage.KV
	autosave bool
}

// newUpstreamClient builds the /chat client from config.
func newUpstreamClient(cfg *config.Config) *cloud.Client {
	return cloud.NewClient(cfg.Upstream.BaseURL).
		WithAPIKey(cfg.Upstream.APIKey).
		WithTimeout(time.Duration(cfg.Upstream.TimeoutSecs) * time.Second).
		WithRequestsPerMinute(cfg.Upstream.RequestsPerMinute).
		WithTreat500AsRateLimit(cfg.Upstream.TreatServerErrorAsRateLimit).
		WithDefaultWait(cfg.Upstream.DefaultWaitSecs)
}

// checkUpstream warns when the upstream does not answer its health probe.
// The console still starts; the first transmission reports the failure.
func checkUpstream(ctx context.Context, client *cloud.Client, warn io.Writer) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		telemetry.Logger().Warn("upstream health check failed", "error", err)
		fmt.Fprintln(warn, styles.RenderWarning(fmt.Sprintf("upstream is not answering: %v", err)))
	}
}

// newAssembler applies the configured context budget.
func newAssembler(cfg *config.Config) (*convctx.Assembler, error) {
	opts := []convctx.Option{convctx.WithPlaceholderFilter(session.IsPlaceholder)}
	if cfg.Chat.ContextMaxTokens > 0 {
		budget, err := convctx.NewBudget(cfg.Chat.ContextMaxTokens)
		if err != nil {
			return nil, fmt.Errorf("context budget: %w", err)
		}
		telemetry.Logger().Debug("context budget enabled", "max_tokens", budget.MaxTokens())
		opts = append(opts, convctx.WithBudget(budget))
	}
	return convctx.NewAssembler(opts...), nil
}

// openTranscripts opens the configured backend. It returns a nil store when
// transcripts are disabled.
func openTranscripts(cfg *config.Config) (*storage.TranscriptStore, storage.KV, error) {
	if !cfg.Transcript.Enabled {
		return nil, nil, nil
	}
	backend, err := storage.ParseBackend(cfg.Transcript.Backend)
	if err != nil {
		return nil, nil, err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, err
	}
	path, err := cfg.TranscriptPath()
	if err != nil {
		return nil, nil, err
	}
	kv, err := storage.Open(backend, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open transcript store: %w", err)
	}
	return storage.NewTranscriptStore(kv, cfg.Transcript.Key), kv, nil
}

// newConsole restores the saved transcript and starts a dispatcher. A
// corrupt transcript is reported on warn and the session starts fresh.
func newConsole(cfg *config.Config, client dispatch.Completer, warn io.Writer) (*console, error) {
	assembler, err := newAssembler(cfg)
	if err != nil {
		return nil, err
	}
	store, kv, err := openTranscripts(cfg)
	if err != nil {
		return nil, err
	}

	var initial *session.State
	if store != nil {
		state, err := store.Load()
		if err != nil {
			if !errors.Is(err, session.ErrCorruptTranscript) {
				kv.Close()
				return nil, err
			}
			fmt.Fprintln(warn, styles.RenderWarning("saved transcript is unreadable, starting fresh"))
			telemetry.Logger().Warn("discarding corrupt transcript", "key", store.Key(), "error", err)
		}
		initial = &state
	}

	tracker := telemetry.NewTracker()
	d := dispatch.New(client, dispatch.Config{
		SystemInstruction: cfg.Chat.SystemInstruction,
		Initial:           initial,
		Assembler:         assembler,
		Tracker:           tracker,
		RequestTimeout:    time.Duration(cfg.Upstream.TimeoutSecs) * time.Second,
	})

	return &console{
		dispatcher: d,
		tracker:    tracker,
		store:      store,
		kv:         kv,
		autosave:   cfg.Transcript.Autosave,
	}, nil
}

// saver returns the store as a chat.Saver, or nil without one.
func (c *console) saver() chat.Saver {
	if c.store == nil {
		return nil
	}
	return c.store
}

// Close saves the final transcript when autosave is on, then stops the
// dispatcher and closes the store.
func (c *console) Close() error {
	var errs []error
	if c.store != nil && c.autosave {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		state, err := c.dispatcher.Snapshot(ctx)
		cancel()
		if err == nil {
			err = c.store.Save(state)
		}
		errs = append(errs, err)
	}
	errs = append(errs, c.dispatcher.Close())
	if c.kv != nil {
		errs = append(errs, c.kv.Close())
	}
	return errors.Join(errs...)
}

// watchInstruction hot-reloads the system instruction until ctx ends.
func (a *app) watchInstruction(ctx context.Context, d *dispatch.Dispatcher) {
	if a.cfgFile == "" {
		return
	}
	log := telemetry.WithFields("component", "cli")
	go func() {
		err := config.Watch(ctx, a.cfgFile, func(cfg *config.Config) {
			if err := d.SetSystemInstruction(ctx, cfg.Chat.SystemInstruction); err != nil {
				log.Warn("could not apply system instruction", "error", err)
			}
		})
		if err != nil {
			log.Debug("config watch unavailable", "path", a.cfgFile, "error", err)
		}
	}()
}
