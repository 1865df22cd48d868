// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/neonnexus/internal/session"
)

// isolate points the config directory at a temp dir and blanks every
// override variable.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NEXUS_HOME", dir)
	for _, env := range []string{
		"NEXUS_ENDPOINT", "NEXUS_API_KEY", "NEXUS_SYSTEM_PROMPT",
		"NEXUS_TRANSCRIPT_BACKEND", "NEXUS_LOG_LEVEL", "GROQ_API_KEY",
		"NEXUS_PROVIDER_URL", "NEXUS_MODEL", "NEXUS_LISTEN", "NEXUS_SERVER_TOKEN",
	} {
		t.Setenv(env, "")
	}
	return dir
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://127.0.0.1:8787", cfg.Upstream.BaseURL)
	assert.True(t, cfg.Upstream.TreatServerErrorAsRateLimit)
	assert.Equal(t, 5, cfg.Upstream.DefaultWaitSecs)
	assert.Equal(t, session.DefaultSystemInstruction, cfg.Chat.SystemInstruction)
	assert.Equal(t, "file", cfg.Transcript.Backend)
	assert.Equal(t, "default", cfg.Transcript.Key)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Server.ProviderBaseURL)
	assert.Equal(t, 1000, cfg.Server.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Server.Temperature, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Upstream.BaseURL = "ftp://x" }, "upstream.base_url"},
		{"no host", func(c *Config) { c.Upstream.BaseURL = "http://" }, "upstream.base_url"},
		{"timeout", func(c *Config) { c.Upstream.TimeoutSecs = 0 }, "upstream.timeout_secs"},
		{"negative rpm", func(c *Config) { c.Upstream.RequestsPerMinute = -1 }, "upstream.requests_per_minute"},
		{"backend", func(c *Config) { c.Transcript.Backend = "redis" }, "transcript.backend"},
		{"key", func(c *Config) { c.Transcript.Key = "../etc" }, "transcript.key"},
		{"theme", func(c *Config) { c.UI.Theme = "pastel" }, "ui.theme"},
		{"listen", func(c *Config) { c.Server.Listen = "localhost" }, "server.listen"},
		{"temperature", func(c *Config) { c.Server.Temperature = 3 }, "server.temperature"},
		{"max tokens", func(c *Config) { c.Server.MaxTokens = 0 }, "server.max_tokens"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var errs ValidateErrors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			assert.Equal(t, tc.field, errs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "x"
	cfg.Log.Level = "y"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
	assert.Contains(t, err.Error(), "log.level")
}

func TestConfig_SaveAndLoadTOML(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.Upstream.BaseURL = "https://nexus.example.com/"
	cfg.Chat.SystemInstruction = "Speak in riddles."
	cfg.Transcript.Backend = "sqlite"
	require.NoError(t, Save(cfg))

	path := filepath.Join(dir, "config.toml")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# neonnexus configuration file"))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://nexus.example.com", loaded.Upstream.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "Speak in riddles.", loaded.Chat.SystemInstruction)
	assert.Equal(t, "sqlite", loaded.Transcript.Backend)
}

func TestConfig_LoadPartialFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"matrix\"\n"), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "matrix", cfg.UI.Theme)
	assert.Equal(t, Default().Server.Model, cfg.Server.Model)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions tightened on load")
}

func TestConfig_LoadJSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"upstream":{"default_wait_secs":9}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Upstream.DefaultWaitSecs)
}

func TestConfig_LoadMissingUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Upstream.BaseURL, cfg.Upstream.BaseURL)
}

func TestConfig_LoadBrokenFileFallsBack(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[ui\n"), 0600))

	cfg, err := Load()
	require.NotNil(t, cfg)
	assert.Error(t, err)
	assert.Equal(t, "neon", cfg.UI.Theme)
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("NEXUS_ENDPOINT", "http://10.0.0.2:9000")
	t.Setenv("NEXUS_SYSTEM_PROMPT", "Be terse.")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("NEXUS_TRANSCRIPT_BACKEND", "bolt")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:9000", cfg.Upstream.BaseURL)
	assert.Equal(t, "Be terse.", cfg.Chat.SystemInstruction)
	assert.Equal(t, "gsk-test", cfg.Server.ProviderAPIKey)
	assert.Equal(t, "bolt", cfg.Transcript.Backend)
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("server.model")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", v)

	require.NoError(t, cfg.Set("upstream.timeout_secs", "15"))
	assert.Equal(t, 15, cfg.Upstream.TimeoutSecs)

	require.NoError(t, cfg.Set("server.temperature", "0.2"))
	assert.InDelta(t, 0.2, cfg.Server.Temperature, 1e-9)

	require.NoError(t, cfg.Set("ui.show-metrics", "yes"))
	assert.True(t, cfg.UI.ShowMetrics)

	require.NoError(t, cfg.Set("upstream.treat_500_as_rate_limit", false))
	assert.False(t, cfg.Upstream.TreatServerErrorAsRateLimit)

	_, err = cfg.Get("upstream.nope")
	assert.Error(t, err)
	_, err = cfg.Get("upstream")
	assert.Error(t, err, "sections are not values")
	assert.Error(t, cfg.Set("upstream.timeout_secs", "soon"))
	assert.Error(t, cfg.Set("", "x"))
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	assert.Contains(t, keys, "version")
	assert.Contains(t, keys, "upstream.treat_500_as_rate_limit")
	assert.Contains(t, keys, "transcript.backend")
	assert.Contains(t, keys, "server.context_window_tokens")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestConfig_CloneAndRedact(t *testing.T) {
	cfg := Default()
	cfg.Upstream.APIKey = "secret-upstream"
	cfg.Server.ProviderAPIKey = "secret-provider"

	clone := cfg.Clone()
	clone.UI.Theme = "matrix"
	assert.Equal(t, "neon", cfg.UI.Theme)

	s := cfg.String()
	assert.NotContains(t, s, "secret-upstream")
	assert.NotContains(t, s, "secret-provider")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "secret-upstream", cfg.Upstream.APIKey, "original untouched")
}

func TestConfig_TranscriptPath(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	p, err := cfg.TranscriptPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "transcripts"), p)

	cfg.Transcript.Backend = "sqlite"
	p, err = cfg.TranscriptPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "transcripts.db"), p)

	cfg.Transcript.Path = "/tmp/explicit"
	p, err = cfg.TranscriptPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit", p)
}

func TestWatch_ReloadsOnSave(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	var mu sync.Mutex
	var got []string
	w, err := NewWatcher(path, 20*time.Millisecond, func(c *Config) {
		mu.Lock()
		got = append(got, c.Chat.SystemInstruction)
		mu.Unlock()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Invalid edits are skipped.
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"pastel\"\n"), 0600))
	time.Sleep(100 * time.Millisecond)

	cfg := Default()
	cfg.Chat.SystemInstruction = "Glitch mode."
	require.NoError(t, SaveTOML(cfg, path))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1] == "Glitch mode."
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
