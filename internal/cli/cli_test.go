// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/neonnexus/internal/cloud"
	"github.com/jeranaias/neonnexus/internal/config"
	"github.com/jeranaias/neonnexus/internal/dispatch"
	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NEXUS_HOME", dir)
	for _, env := range []string{"NEXUS_ENDPOINT", "NEXUS_API_KEY", "NEXUS_SYSTEM_PROMPT",
		"NEXUS_TRANSCRIPT_BACKEND", "NEXUS_LOG_LEVEL", "GROQ_API_KEY", "NEXUS_SERVER_TOKEN"} {
		t.Setenv(env, "")
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// =============================================================================
// COMMAND TREE
// =============================================================================

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "neonnexus "+Version)
	assert.Contains(t, out, "commit:")
}

func TestConfigPath(t *testing.T) {
	dir := isolate(t)

	out, err := runCLI(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), strings.TrimSpace(out))
}

func TestConfigInitSetGet(t *testing.T) {
	dir := isolate(t)

	_, err := runCLI(t, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "config.toml"))

	_, err = runCLI(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCLI(t, "config", "set", "ui.theme", "matrix")
	require.NoError(t, err)

	out, err := runCLI(t, "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "matrix", strings.TrimSpace(out))
}

func TestConfigSet_RejectsInvalidValue(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "config", "set", "ui.theme", "vaporwave")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestConfigSet_DoesNotPersistEnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("NEXUS_API_KEY", "sk-from-env")

	_, err := runCLI(t, "config", "set", "upstream.timeout_secs", "30")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-from-env")
	assert.Contains(t, string(data), "timeout_secs = 30")
}

func TestConfigGet_UnknownKey(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "config", "get", "upstream.nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("NEXUS_API_KEY", "sk-very-secret")

	out, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-very-secret")
	assert.Contains(t, out, "[REDACTED]")

	out, err = runCLI(t, "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-very-secret")
	assert.Contains(t, out, `"base_url"`)
}

func TestExplicitConfigMustExist(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "config", "path")
	require.Error(t, err)
}

// =============================================================================
// TRANSCRIPT COMMANDS
// =============================================================================

func seedTranscript(t *testing.T, text string) {
	t.Helper()
	store, kv, err := openTranscripts(config.Default())
	require.NoError(t, err)
	require.NotNil(t, store)
	defer kv.Close()
	require.NoError(t, store.Save(session.New().AppendUser(text)))
}

func TestTranscriptShowExportClear(t *testing.T) {
	isolate(t)
	seedTranscript(t, "remember the neon rain")

	out, err := runCLI(t, "transcript", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "You: remember the neon rain")
	assert.Contains(t, out, session.WelcomeMessage)

	target := filepath.Join(t.TempDir(), "out.json")
	out, err = runCLI(t, "transcript", "export", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 messages")
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "remember the neon rain")

	_, err = runCLI(t, "transcript", "clear")
	require.NoError(t, err)

	out, err = runCLI(t, "transcript", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "remember the neon rain")
}

func TestTranscriptShowRaw_Missing(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "transcript", "show", "--raw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcript saved")
}

func TestTranscriptDisabled(t *testing.T) {
	dir := isolate(t)
	cfg := config.Default()
	cfg.Transcript.Enabled = false
	require.NoError(t, config.SaveTOML(cfg, filepath.Join(dir, "config.toml")))

	_, err := runCLI(t, "transcript", "show")
	require.ErrorIs(t, err, errTranscriptsDisabled)
}

// =============================================================================
// SERVE
// =============================================================================

func TestNewServer_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:9999"

	srv, err := newServer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", srv.Addr())
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:0"
	srv, err := newServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestCheckUpstream(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	t.Cleanup(healthy.Close)

	var warn bytes.Buffer
	checkUpstream(context.Background(), cloud.NewClient(healthy.URL), &warn)
	assert.Empty(t, warn.String())

	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()

	checkUpstream(context.Background(), cloud.NewClient(url), &warn)
	assert.Contains(t, warn.String(), "upstream is not answering")
}

// =============================================================================
// HIGHLIGHTING
// =============================================================================

func TestHighlighter_DisabledForAscii(t *testing.T) {
	content := "look:\n```go\nfunc main() {}\n```"
	assert.Equal(t, content, newHighlighter(termenv.Ascii).Render(content))
}

func TestHighlighter_ColorsCodeOnly(t *testing.T) {
	content := "look:\n```go\nfunc main() {}\n```\ndone"
	out := newHighlighter(termenv.ANSI256).Render(content)

	assert.True(t, strings.HasPrefix(out, "look:\n```go\n"))
	assert.True(t, strings.HasSuffix(out, "\n```\ndone"))
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "main")
}

func TestHighlighter_ProseUntouched(t *testing.T) {
	content := "no code here"
	assert.Equal(t, content, newHighlighter(termenv.TrueColor).Render(content))
}

func TestSplitFences(t *testing.T) {
	segs := splitFences("a\n```py\nx = 1\n```\nb")
	require.Len(t, segs, 3)
	assert.Equal(t, segment{text: "a"}, segs[0])
	assert.True(t, segs[1].code)
	assert.Equal(t, "py", segs[1].lang)
	assert.Equal(t, "x = 1", segs[1].text)
	assert.Equal(t, "```", segs[1].close)
	assert.Equal(t, segment{text: "b"}, segs[2])

	unterminated := splitFences("```\nx = 1")
	require.Len(t, unterminated, 1)
	assert.True(t, unterminated[0].code)
	assert.Empty(t, unterminated[0].close)
	assert.Equal(t, "x = 1", unterminated[0].text)
}

// =============================================================================
// REPL
// =============================================================================

// scriptedInput replays lines, then reports EOF.
type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []session.State
}

func (r *recordingSaver) Save(st session.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, st)
	return nil
}

func (r *recordingSaver) Last() (session.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return session.State{}, false
	}
	return r.saved[len(r.saved)-1], true
}

type reply struct {
	status  int
	body    string
	headers map[string]string
}

// chatUpstream answers /chat from a script; the last reply repeats.
func chatUpstream(t *testing.T, script ...reply) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(script) {
			n = len(script) - 1
		}
		for k, v := range script[n].headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(script[n].status)
		_, _ = w.Write([]byte(script[n].body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func asciiTheme() *styles.Theme {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return styles.NewThemeWithRenderer(styles.DefaultPalette, r)
}

func newTestREPL(t *testing.T, srv *httptest.Server, initial *session.State, lines ...string) (*repl, *bytes.Buffer, *recordingSaver) {
	t.Helper()
	d := dispatch.New(cloud.NewClient(srv.URL), dispatch.Config{
		Initial: initial,
		Tracker: telemetry.NewTracker(),
	})
	t.Cleanup(func() { _ = d.Close() })

	var out bytes.Buffer
	saver := &recordingSaver{}
	r := newREPL(d, &scriptedInput{lines: lines}, &out, replOptions{
		Theme:    asciiTheme(),
		Saver:    saver,
		Autosave: true,
		Tracker:  telemetry.NewTracker(),
	})
	return r, &out, saver
}

func runREPL(t *testing.T, r *repl) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))
}

func TestREPL_Exchange(t *testing.T) {
	srv, calls := chatUpstream(t, reply{status: http.StatusOK, body: `{"status":"success","message":"Greetings, runner."}`})
	r, out, saver := newTestREPL(t, srv, nil, "hello", "/quit")

	runREPL(t, r)

	text := out.String()
	assert.Contains(t, text, session.WelcomeMessage)
	assert.Contains(t, text, "Greetings, runner.")
	assert.Contains(t, text, "Link severed.")
	assert.NotContains(t, text, "> You", "typed input is not echoed back")
	assert.Equal(t, int32(1), calls.Load())

	st, ok := saver.Last()
	require.True(t, ok, "autosaved after the exchange")
	assert.Equal(t, "Greetings, runner.", st.Messages[len(st.Messages)-1].Content)
}

func TestREPL_ReplaysRestoredTranscript(t *testing.T) {
	srv, _ := chatUpstream(t, reply{status: http.StatusOK, body: `{"status":"success","message":"ok"}`})
	initial := session.New().AppendUser("what year is it")
	r, out, _ := newTestREPL(t, srv, &initial)

	runREPL(t, r)

	assert.Contains(t, out.String(), "> You")
	assert.Contains(t, out.String(), "what year is it")
}

func TestREPL_FailureShowsNotification(t *testing.T) {
	srv, _ := chatUpstream(t, reply{status: http.StatusBadRequest, body: `{"error":"bad input"}`})
	r, out, _ := newTestREPL(t, srv, nil, "hello")

	runREPL(t, r)

	assert.Contains(t, out.String(), "!! "+session.NotifyMalfunction)
	assert.Contains(t, out.String(), session.ApologyMessage)
}

func TestREPL_RateLimitRetriesOnce(t *testing.T) {
	srv, calls := chatUpstream(t,
		reply{status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, headers: map[string]string{"Retry-After": "1"}},
		reply{status: http.StatusOK, body: `{"status":"success","message":"Signal restored."}`},
	)
	r, out, _ := newTestREPL(t, srv, nil, "hello")

	runREPL(t, r)

	assert.Contains(t, out.String(), "Signal restored.")
	assert.Equal(t, int32(2), calls.Load())
}

func TestREPL_Commands(t *testing.T) {
	srv, _ := chatUpstream(t, reply{status: http.StatusOK, body: `{"status":"success","message":"ok"}`})
	target := filepath.Join(t.TempDir(), "session.md")
	r, out, saver := newTestREPL(t, srv, nil,
		"/help",
		"/metrics on",
		"/stats",
		"/save",
		"/export "+target,
		"/bogus",
		"comeback",
	)

	runREPL(t, r)

	text := out.String()
	assert.Contains(t, text, "/export")
	assert.Contains(t, text, "Metrics panel on.")
	assert.Contains(t, text, "0 requests")
	assert.Contains(t, text, "Transcript saved.")
	assert.Contains(t, text, "Exported 1 messages to "+target)
	assert.Contains(t, text, "unknown command")
	assert.FileExists(t, target)

	_, ok := saver.Last()
	assert.True(t, ok)
	assert.Equal(t, 2, strings.Count(text, session.WelcomeMessage), "comeback prints a fresh welcome")
}

func TestREPL_SaveDisabled(t *testing.T) {
	srv, _ := chatUpstream(t, reply{status: http.StatusOK, body: `{"status":"success","message":"ok"}`})
	d := dispatch.New(cloud.NewClient(srv.URL), dispatch.Config{})
	t.Cleanup(func() { _ = d.Close() })

	var out bytes.Buffer
	r := newREPL(d, &scriptedInput{lines: []string{"/save"}}, &out, replOptions{Theme: asciiTheme()})
	runREPL(t, r)

	assert.Contains(t, out.String(), "transcript saving is disabled")
}

func TestMetricsLine(t *testing.T) {
	mt := model.DefaultMetrics()
	mt.HumanLikenessScore = 80
	mt.Sentiment.Label = "positive"
	mt.Sentiment.Score = 0.5

	line := metricsLine(mt)
	assert.Contains(t, line, "human-likeness 80/100")
	assert.Contains(t, line, "sentiment positive (+0.50)")
}
