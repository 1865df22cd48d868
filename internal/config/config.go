// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/neonnexus/internal/server"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/storage"
	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete neonnexus configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Upstream is the /chat endpoint the console talks to
	Upstream UpstreamConfig `toml:"upstream" json:"upstream"`

	// Chat controls context assembly
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Transcript controls save/restore
	Transcript TranscriptConfig `toml:"transcript" json:"transcript"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Server configures `neonnexus serve`
	Server ServerConfig `toml:"server" json:"server"`

	// Log configures structured logging
	Log LogConfig `toml:"log" json:"log"`
}

// UpstreamConfig configures the completion endpoint client.
type UpstreamConfig struct {
	// BaseURL is the endpoint root; requests go to BaseURL + "/chat"
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIKey is sent as a bearer token when set
	APIKey string `toml:"api_key" json:"api_key"`
	// TimeoutSecs bounds one exchange
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerMinute paces outgoing requests (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
	// TreatServerErrorAsRateLimit classifies HTTP 500 as throttling
	TreatServerErrorAsRateLimit bool `toml:"treat_500_as_rate_limit" json:"treat_500_as_rate_limit"`
	// DefaultWaitSecs is the cooldown when no wait hint is present
	DefaultWaitSecs int `toml:"default_wait_secs" json:"default_wait_secs"`
}

// ChatConfig controls what is sent upstream.
type ChatConfig struct {
	// SystemInstruction is sent on the first turn of a session
	SystemInstruction string `toml:"system_instruction" json:"system_instruction"`
	// ContextMaxTokens caps the assembled context (0 = unbounded)
	ContextMaxTokens int `toml:"context_max_tokens" json:"context_max_tokens"`
}

// TranscriptConfig controls transcript persistence.
type TranscriptConfig struct {
	// Enabled turns on save/restore
	Enabled bool `toml:"enabled" json:"enabled"`
	// Backend is one of file, sqlite, bolt
	Backend string `toml:"backend" json:"backend"`
	// Path is the directory (file) or database file (sqlite, bolt).
	// Empty selects a location under the config directory.
	Path string `toml:"path" json:"path"`
	// Key names the saved transcript
	Key string `toml:"key" json:"key"`
	// Autosave saves after every completed exchange
	Autosave bool `toml:"autosave" json:"autosave"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "neon", "matrix"
	Theme string `toml:"theme" json:"theme"`
	// ShowMetrics displays reply metrics under assistant messages
	ShowMetrics bool `toml:"show_metrics" json:"show_metrics"`
	// Markdown renders assistant replies as Markdown
	Markdown bool `toml:"markdown" json:"markdown"`
}

// ServerConfig configures the reference upstream service.
type ServerConfig struct {
	// Listen is the host:port to bind
	Listen string `toml:"listen" json:"listen"`
	// ProviderBaseURL is an OpenAI-compatible API root
	ProviderBaseURL string `toml:"provider_base_url" json:"provider_base_url"`
	// ProviderAPIKey authenticates against the provider
	ProviderAPIKey string `toml:"provider_api_key" json:"provider_api_key"`
	// Model is the provider model name
	Model string `toml:"model" json:"model"`
	// MaxTokens caps the completion length
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Temperature is the sampling temperature (0.0-2.0)
	Temperature float64 `toml:"temperature" json:"temperature"`
	// RequestsPerMinute is the per-client request budget (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
	// ContextWindowTokens caps context forwarded to the provider (0 = unbounded)
	ContextWindowTokens int `toml:"context_window_tokens" json:"context_window_tokens"`
	// Analyze attaches locally computed metrics to replies
	Analyze bool `toml:"analyze" json:"analyze"`
	// AuthToken, when set, is required as a bearer token on /chat
	AuthToken string `toml:"auth_token" json:"auth_token"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format is "json" or "text"
	Format string `toml:"format" json:"format"`
	// File receives console logs. Empty selects neonnexus.log in the config directory.
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Upstream: UpstreamConfig{
			BaseURL:                     "http://127.0.0.1:8787",
			TimeoutSecs:                 60,
			RequestsPerMinute:           0, // unlimited
			TreatServerErrorAsRateLimit: true,
			DefaultWaitSecs:             5,
		},

		Chat: ChatConfig{
			SystemInstruction: session.DefaultSystemInstruction,
			ContextMaxTokens:  0, // unbounded
		},

		Transcript: TranscriptConfig{
			Enabled:  true,
			Backend:  string(storage.BackendFile),
			Key:      storage.DefaultTranscriptKey,
			Autosave: true,
		},

		UI: UIConfig{
			Theme:       "neon",
			ShowMetrics: false,
			Markdown:    true,
		},

		Server: ServerConfig{
			Listen:            "127.0.0.1:8787",
			ProviderBaseURL:   server.DefaultProviderBaseURL,
			Model:             server.DefaultModel,
			MaxTokens:         server.DefaultMaxTokens,
			Temperature:       server.DefaultTemperature,
			RequestsPerMinute: 30,
			Analyze:           true,
		},

		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory. NEXUS_HOME overrides the
// default of ~/.neonnexus.
func ConfigDir() (string, error) {
	if dir := os.Getenv("NEXUS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".neonnexus"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// TranscriptPath resolves the storage location for the configured backend.
func (c *Config) TranscriptPath() (string, error) {
	if c.Transcript.Path != "" {
		return c.Transcript.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	switch storage.Backend(c.Transcript.Backend) {
	case storage.BackendSQLite:
		return filepath.Join(dir, "transcripts.db"), nil
	case storage.BackendBolt:
		return filepath.Join(dir, "transcripts.bolt"), nil
	default:
		return filepath.Join(dir, "transcripts"), nil
	}
}

// LogPath resolves the console log file.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "neonnexus.log"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
//
// A file that fails to decode is reported alongside the defaults so the
// console still starts.
func Load() (*Config, error) {
	var loadErr error

	for _, candidate := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := candidate()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		if loadErr == nil {
			loadErr = err
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file into cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		telemetry.Logger().Warn("could not ensure secure permissions", "path", path, "error", err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file into cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		telemetry.Logger().Warn("could not ensure secure permissions", "path", path, "error", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full
// validation. Keys missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

const tomlHeader = `# neonnexus configuration file
# Generated by neonnexus - edit with care
#
# Changes to [chat] system_instruction are picked up by a running console.

`

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString(tomlHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// ==========================================================================
	// Upstream
	// ==========================================================================

	if err := validateHTTPURL(c.Upstream.BaseURL); err != nil {
		add("upstream.base_url", "%v", err)
	}
	if c.Upstream.TimeoutSecs < 1 || c.Upstream.TimeoutSecs > 600 {
		add("upstream.timeout_secs", "must be between 1 and 600, got %d", c.Upstream.TimeoutSecs)
	}
	if c.Upstream.RequestsPerMinute < 0 {
		add("upstream.requests_per_minute", "must not be negative")
	}
	if c.Upstream.DefaultWaitSecs < 1 || c.Upstream.DefaultWaitSecs > 3600 {
		add("upstream.default_wait_secs", "must be between 1 and 3600, got %d", c.Upstream.DefaultWaitSecs)
	}

	// ==========================================================================
	// Chat
	// ==========================================================================

	if c.Chat.ContextMaxTokens < 0 {
		add("chat.context_max_tokens", "must not be negative")
	}

	// ==========================================================================
	// Transcript
	// ==========================================================================

	if _, err := storage.ParseBackend(c.Transcript.Backend); err != nil {
		add("transcript.backend", "invalid backend '%s', must be one of: file, sqlite, bolt", c.Transcript.Backend)
	}
	if c.Transcript.Key != "" {
		if err := storage.ValidateKey(c.Transcript.Key); err != nil {
			add("transcript.key", "%v", err)
		}
	}

	// ==========================================================================
	// UI
	// ==========================================================================

	validThemes := map[string]bool{"neon": true, "matrix": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: neon, matrix", c.UI.Theme)
	}

	// ==========================================================================
	// Server
	// ==========================================================================

	if _, _, err := splitHostPort(c.Server.Listen); err != nil {
		add("server.listen", "%v", err)
	}
	if err := validateHTTPURL(c.Server.ProviderBaseURL); err != nil {
		add("server.provider_base_url", "%v", err)
	}
	if c.Server.MaxTokens < 1 || c.Server.MaxTokens > 128000 {
		add("server.max_tokens", "must be between 1 and 128000, got %d", c.Server.MaxTokens)
	}
	if c.Server.Temperature < 0 || c.Server.Temperature > 2 {
		add("server.temperature", "must be between 0.0 and 2.0, got %.2f", c.Server.Temperature)
	}
	if c.Server.RequestsPerMinute < 0 {
		add("server.requests_per_minute", "must not be negative")
	}
	if c.Server.ContextWindowTokens < 0 {
		add("server.context_window_tokens", "must not be negative")
	}

	// ==========================================================================
	// Log
	// ==========================================================================

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "json" && f != "text" {
		add("log.format", "invalid format '%s', must be json or text", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateHTTPURL requires an absolute http(s) URL.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %q", raw)
	}
	return nil
}

// splitHostPort validates a listen address.
func splitHostPort(addr string) (string, int, error) {
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("listen address %q has no port", addr)
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return addr[:i], port, nil
}

// SetDefaults fills zero-value fields that would otherwise fail validation.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = defaults.Upstream.BaseURL
	}
	c.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upstream.BaseURL), "/")
	if c.Upstream.TimeoutSecs == 0 {
		c.Upstream.TimeoutSecs = defaults.Upstream.TimeoutSecs
	}
	if c.Upstream.DefaultWaitSecs == 0 {
		c.Upstream.DefaultWaitSecs = defaults.Upstream.DefaultWaitSecs
	}
	if strings.TrimSpace(c.Chat.SystemInstruction) == "" {
		c.Chat.SystemInstruction = defaults.Chat.SystemInstruction
	}
	if c.Transcript.Backend == "" {
		c.Transcript.Backend = defaults.Transcript.Backend
	}
	c.Transcript.Backend = strings.ToLower(strings.TrimSpace(c.Transcript.Backend))
	if c.Transcript.Key == "" {
		c.Transcript.Key = defaults.Transcript.Key
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Server.Listen == "" {
		c.Server.Listen = defaults.Server.Listen
	}
	if c.Server.ProviderBaseURL == "" {
		c.Server.ProviderBaseURL = defaults.Server.ProviderBaseURL
	}
	if c.Server.Model == "" {
		c.Server.Model = defaults.Server.Model
	}
	if c.Server.MaxTokens == 0 {
		c.Server.MaxTokens = defaults.Server.MaxTokens
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - NEXUS_ENDPOINT: overrides upstream.base_url
//   - NEXUS_API_KEY: overrides upstream.api_key
//   - NEXUS_SYSTEM_PROMPT: overrides chat.system_instruction
//   - NEXUS_TRANSCRIPT_BACKEND: overrides transcript.backend
//   - NEXUS_LOG_LEVEL: overrides log.level
//   - GROQ_API_KEY: overrides server.provider_api_key
//   - NEXUS_PROVIDER_URL: overrides server.provider_base_url
//   - NEXUS_MODEL: overrides server.model
//   - NEXUS_LISTEN: overrides server.listen
//   - NEXUS_SERVER_TOKEN: overrides server.auth_token
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"NEXUS_ENDPOINT", &c.Upstream.BaseURL},
		{"NEXUS_API_KEY", &c.Upstream.APIKey},
		{"NEXUS_SYSTEM_PROMPT", &c.Chat.SystemInstruction},
		{"NEXUS_TRANSCRIPT_BACKEND", &c.Transcript.Backend},
		{"NEXUS_LOG_LEVEL", &c.Log.Level},
		{"GROQ_API_KEY", &c.Server.ProviderAPIKey},
		{"NEXUS_PROVIDER_URL", &c.Server.ProviderBaseURL},
		{"NEXUS_MODEL", &c.Server.Model},
		{"NEXUS_LISTEN", &c.Server.Listen},
		{"NEXUS_SERVER_TOKEN", &c.Server.AuthToken},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "upstream.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	return strings.Split(f.Tag.Get("toml"), ",")[0]
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		if section.Type.Kind() != reflect.Struct {
			keys = append(keys, tomlName(section))
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, tomlName(section)+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

// Clone creates a copy of the configuration. Config holds no reference
// types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts API keys so the output is safe to log.
func (c *Config) String() string {
	safe := c.Redacted()
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// Redacted returns a copy with secrets replaced.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Upstream.APIKey != "" {
		safe.Upstream.APIKey = "[REDACTED]"
	}
	if safe.Server.ProviderAPIKey != "" {
		safe.Server.ProviderAPIKey = "[REDACTED]"
	}
	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}
	return safe
}
