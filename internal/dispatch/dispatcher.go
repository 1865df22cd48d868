// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch drives a console session: it owns the session state, sends
// submissions upstream and runs the rate-limit cooldown.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/neonnexus/internal/cloud"
	convctx "github.com/jeranaias/neonnexus/internal/context"
	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/telemetry"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput is returned for blank submissions. Nothing is changed.
	ErrEmptyInput = errors.New("empty input")

	// ErrRateLimited is returned while a cooldown is running.
	ErrRateLimited = errors.New("rate limited: cooling down")

	// ErrBusy is returned while a request is already in flight.
	ErrBusy = errors.New("request already in flight")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// DefaultRequestTimeout bounds a single upstream exchange.
const DefaultRequestTimeout = 90 * time.Second

// Completer sends one chat request upstream. *cloud.Client implements it.
type Completer interface {
	Chat(ctx context.Context, req cloud.ChatRequest) (*cloud.Reply, error)
}

// =============================================================================
// CONFIG
// =============================================================================

// Config holds dispatcher settings. Zero values are replaced by defaults.
type Config struct {
	// SystemInstruction is sent on the first turn.
	SystemInstruction string

	// Initial is the starting state. Zero value means session.New().
	Initial *session.State

	// Assembler builds upstream context. Defaults to an unbounded assembler
	// that also filters placeholder text.
	Assembler *convctx.Assembler

	// Rand picks placeholders and fallbacks.
	Rand *rand.Rand

	// NewTicker creates the cooldown clock. Defaults to NewRealTicker.
	NewTicker TickerFunc

	// Tracker receives exchange statistics. Optional.
	Tracker *telemetry.Tracker

	// RequestTimeout bounds each upstream exchange.
	RequestTimeout time.Duration
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher is the sole writer of a session.State. All state transitions run
// on one goroutine; public methods post events to it.
type Dispatcher struct {
	client    Completer
	assembler *convctx.Assembler
	rng       *rand.Rand
	newTicker TickerFunc
	tracker   *telemetry.Tracker
	timeout   time.Duration
	log       *slog.Logger

	events   chan func()
	done     chan struct{}
	loopDone chan struct{}
	closeMu  sync.Once

	baseCtx    context.Context
	cancelBase context.CancelFunc

	// Loop-owned fields.
	state          session.State
	instruction    string
	token          uint64
	cancelInflight context.CancelFunc
	ticker         Ticker

	subMu  sync.Mutex
	subs   []chan session.State
	latest session.State
}

// New starts a dispatcher for client.
func New(client Completer, cfg Config) *Dispatcher {
	if cfg.Assembler == nil {
		cfg.Assembler = convctx.NewAssembler(convctx.WithPlaceholderFilter(session.IsPlaceholder))
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewRealTicker
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	initial := session.New()
	if cfg.Initial != nil {
		initial = cfg.Initial.ClearCooldown().WithSending(false)
		initial.PendingRetryInput = ""
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		client:      client,
		assembler:   cfg.Assembler,
		rng:         cfg.Rand,
		newTicker:   cfg.NewTicker,
		tracker:     cfg.Tracker,
		timeout:     cfg.RequestTimeout,
		log:         telemetry.WithFields("component", "dispatch"),
		events:      make(chan func()),
		done:        make(chan struct{}),
		loopDone:    make(chan struct{}),
		baseCtx:     baseCtx,
		cancelBase:  cancel,
		state:       initial,
		instruction: cfg.SystemInstruction,
		latest:      initial.Clone(),
	}

	go d.loop()
	return d
}

// loop runs every state transition. The active ticker's channel is selected
// directly, so replacing or stopping the ticker discards its pending ticks.
func (d *Dispatcher) loop() {
	defer close(d.loopDone)
	for {
		var tickC <-chan time.Time
		if d.ticker != nil {
			tickC = d.ticker.C()
		}

		select {
		case fn := <-d.events:
			fn()
		case <-tickC:
			d.handleTick()
		case <-d.done:
			d.stopCooldown()
			if d.cancelInflight != nil {
				d.cancelInflight()
			}
			return
		}
	}
}

// do runs fn on the loop and waits for it.
func (d *Dispatcher) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}

	select {
	case d.events <- wrapped:
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-d.loopDone:
		return ErrClosed
	}
}

// post queues fn from a background goroutine. Dropped after Close.
func (d *Dispatcher) post(fn func()) {
	select {
	case d.events <- fn:
	case <-d.done:
	}
}

// =============================================================================
// PUBLIC OPERATIONS
// =============================================================================

// Submit sends text upstream. It returns ErrEmptyInput, ErrRateLimited or
// ErrBusy without side effects when the submission is not accepted. The
// outcome of the exchange is delivered through Subscribe.
func (d *Dispatcher) Submit(ctx context.Context, text string) error {
	var result error
	if err := d.do(ctx, func() { result = d.handleSubmit(text, false) }); err != nil {
		return err
	}
	return result
}

// Snapshot returns the current state.
func (d *Dispatcher) Snapshot(ctx context.Context) (session.State, error) {
	var s session.State
	err := d.do(ctx, func() { s = d.state.Clone() })
	return s, err
}

// DismissNotification clears the banner.
func (d *Dispatcher) DismissNotification(ctx context.Context) error {
	return d.do(ctx, func() {
		d.state = d.state.ClearNotification()
		d.publish()
	})
}

// Reset starts a fresh transcript. A running cooldown is cancelled and an
// in-flight response is discarded when it arrives.
func (d *Dispatcher) Reset(ctx context.Context) error {
	return d.do(ctx, func() {
		d.stopCooldown()
		d.supersede()
		d.state = session.New()
		if d.tracker != nil {
			d.tracker.Reset()
		}
		d.publish()
	})
}

// SetSystemInstruction replaces the instruction for future first turns.
func (d *Dispatcher) SetSystemInstruction(ctx context.Context, instruction string) error {
	return d.do(ctx, func() { d.instruction = instruction })
}

// Subscribe returns a channel receiving the latest state after every
// transition. Slow readers only miss intermediate states, never the last.
// The channel is closed by Close.
func (d *Dispatcher) Subscribe() <-chan session.State {
	ch := make(chan session.State, 1)

	d.subMu.Lock()
	defer d.subMu.Unlock()

	select {
	case <-d.done:
		close(ch)
		return ch
	default:
	}
	ch <- d.latest.Clone()
	d.subs = append(d.subs, ch)
	return ch
}

// Close stops the loop and the cooldown ticker. Results arriving afterwards
// are dropped.
func (d *Dispatcher) Close() error {
	d.closeMu.Do(func() {
		close(d.done)
		<-d.loopDone
		d.cancelBase()

		d.subMu.Lock()
		for _, ch := range d.subs {
			close(ch)
		}
		d.subs = nil
		d.subMu.Unlock()
	})
	return nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// handleSubmit runs Idle -> Sending. retry marks an automatic resubmission
// whose user entry is already in the transcript.
func (d *Dispatcher) handleSubmit(text string, retry bool) error {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return ErrEmptyInput
	case d.state.IsRateLimited:
		return ErrRateLimited
	case d.state.Sending:
		return ErrBusy
	}

	if !retry {
		d.state = d.state.AppendUser(text)
	}
	d.state = d.state.
		ClearNotification().
		AppendTemporary(pick(d.rng, session.Placeholders)).
		WithSending(true)

	withInstruction := !d.state.InstructionSent
	turns := d.assembler.Assemble(convctx.Request{
		Messages:          d.state.Messages,
		SystemInstruction: d.instruction,
		NewText:           text,
		InstructionSent:   d.state.InstructionSent,
	})

	d.token++
	tok := d.token
	ctx, cancel := context.WithTimeout(d.baseCtx, d.timeout)
	d.cancelInflight = cancel

	d.log.Debug("submitting", "retry", retry, "context_turns", len(turns), "token", tok)

	go func() {
		start := time.Now()
		reply, err := d.client.Chat(ctx, cloud.ChatRequest{Message: text, Context: turns})
		cancel()
		elapsed := time.Since(start)
		d.post(func() { d.handleResult(tok, text, withInstruction, reply, err, elapsed) })
	}()

	d.publish()
	return nil
}

// handleResult applies an upstream outcome. Results from superseded
// requests are ignored.
func (d *Dispatcher) handleResult(tok uint64, text string, withInstruction bool, reply *cloud.Reply, err error, elapsed time.Duration) {
	if tok != d.token || !d.state.Sending {
		d.log.Debug("discarding stale result", "token", tok, "current", d.token)
		return
	}
	d.cancelInflight = nil
	d.state = d.state.WithSending(false)

	switch {
	case err == nil && reply != nil && strings.TrimSpace(reply.Text) != "":
		msg := model.NewAssistantMessage(strings.TrimSpace(reply.Text)).WithMetrics(reply.Metrics)
		d.state = d.state.ReplaceTemporaryWith(msg)
		if withInstruction {
			d.state = d.state.MarkInstructionSent()
		}
		d.record(telemetry.OutcomeSuccess, text, elapsed)

	case err == nil || errors.Is(err, cloud.ErrEmptyCompletion):
		d.state = d.state.ReplaceTemporaryWith(model.NewAssistantMessage(pick(d.rng, session.Fallbacks)))
		if withInstruction {
			d.state = d.state.MarkInstructionSent()
		}
		d.record(telemetry.OutcomeEmpty, text, elapsed)

	case cloud.IsRetryable(err):
		secs, _ := cloud.RetryAfter(err)
		if secs < 1 {
			secs = cloud.DefaultWaitSeconds
		}
		d.state = d.state.DropTemporary().SetRateLimit(secs, text).AppendCooldownNotice()
		d.startCooldown()
		d.log.Info("rate limited", "cooldown_seconds", secs)
		d.record(telemetry.OutcomeRateLimited, text, elapsed)
		if d.tracker != nil {
			d.tracker.RecordCooldown(secs)
		}

	default:
		notice := session.NotifyMalfunction
		if errors.Is(err, cloud.ErrNetworkFailure) {
			notice = session.NotifyConnectionFailed
		}
		d.state = d.state.
			DropTemporary().
			SetNotification(notice).
			AppendAssistant(session.ApologyMessage, nil)
		d.log.Warn("exchange failed", "kind", cloud.KindOf(err).String(), "error", err)
		d.record(telemetry.OutcomeFailed, text, elapsed)
	}

	d.publish()
}

// handleTick advances the cooldown. At zero the pending input is resubmitted
// exactly once through the normal submission path.
func (d *Dispatcher) handleTick() {
	if !d.state.IsRateLimited {
		d.stopCooldown()
		return
	}

	var retry string
	d.state, retry = d.state.TickCooldown()
	if d.state.IsRateLimited {
		d.publish()
		return
	}

	d.stopCooldown()
	d.state = d.state.ClearCooldown()

	// The resubmission publishes; subscribers never see an idle state
	// between the cooldown and the retry.
	if retry == "" {
		d.publish()
		return
	}
	if err := d.handleSubmit(retry, true); err != nil {
		d.log.Warn("automatic resubmission rejected", "error", err)
		d.publish()
	}
}

// startCooldown replaces any running ticker.
func (d *Dispatcher) startCooldown() {
	d.stopCooldown()
	d.ticker = d.newTicker(time.Second)
}

func (d *Dispatcher) stopCooldown() {
	if d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
	}
}

// supersede invalidates the in-flight request, if any.
func (d *Dispatcher) supersede() {
	d.token++
	if d.cancelInflight != nil {
		d.cancelInflight()
		d.cancelInflight = nil
	}
}

// publish hands the current state to subscribers, replacing any unread one.
func (d *Dispatcher) publish() {
	snap := d.state.Clone()

	d.subMu.Lock()
	defer d.subMu.Unlock()

	d.latest = snap
	for _, ch := range d.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (d *Dispatcher) record(outcome telemetry.Outcome, prompt string, elapsed time.Duration) {
	if d.tracker != nil {
		d.tracker.RecordExchange(outcome, prompt, elapsed)
	}
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}
