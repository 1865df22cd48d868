// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/neonnexus/internal/config"
	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APPLICATION STATE
// =============================================================================

// app holds the global flags and what the root pre-run resolved from them.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config

	// cfgFile is the file the config was read from, or the default location
	// when none exists yet. Watched for system instruction edits.
	cfgFile string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "neonnexus",
		Short: "Neon Nexus chat console",
		Long: `Neon Nexus is a terminal chat console for a rate-limited completion endpoint.

Run without a command to open the full-screen console. When stdin or stdout
is not a terminal the line REPL is used instead.

Quick Start:
  neonnexus                         # open the console
  neonnexus serve                   # run the upstream /chat service
  neonnexus transcript export out.md`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runDefault,
	}
	root.SetVersionTemplate(`{{printf "neonnexus %s\n" .Version}}`)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ~/.neonnexus/config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newChatCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newTranscriptCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// PRE-RUN
// =============================================================================

// setup loads the configuration and points logging at stderr. Commands that
// own the terminal redirect logging with logToFile.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, file, err := loadConfig(a.configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.cfgFile = file

	telemetry.Setup(cmd.ErrOrStderr(), a.logOptions())
	return nil
}

func (a *app) logOptions() telemetry.LogOptions {
	return telemetry.LogOptions{
		Level: a.cfg.Log.Level,
		Text:  a.cfg.Log.Format == "text",
	}
}

// loadConfig reads an explicit config file, or the default locations. A
// broken default file is reported and the defaults are used.
func loadConfig(explicit string, warn io.Writer) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.LoadFromPath(explicit)
		if err != nil {
			return nil, "", err
		}
		return cfg, explicit, nil
	}

	cfg, err := config.Load()
	if cfg == nil {
		return nil, "", err
	}
	if err != nil {
		fmt.Fprintln(warn, styles.RenderWarning(fmt.Sprintf("ignoring config file: %v", err)))
	}
	return cfg, defaultConfigFile(), nil
}

// defaultConfigFile returns the TOML path unless only a JSON file exists.
func defaultConfigFile() string {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath
	}
	if jsonPath, err := config.ConfigPathJSON(); err == nil {
		if _, err := os.Stat(jsonPath); err == nil {
			return jsonPath
		}
	}
	return tomlPath
}

// logToFile sends logs to the configured log file so they do not corrupt
// an interactive screen. The returned func closes the file.
func (a *app) logToFile() (func() error, error) {
	path, err := a.cfg.LogPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	// SECURITY: logs may contain prompts; owner-only
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	telemetry.Setup(f, a.logOptions())
	return f.Close, nil
}

// =============================================================================
// DEFAULT COMMAND
// =============================================================================

func (a *app) runDefault(cmd *cobra.Command, args []string) error {
	if interactive() {
		return a.runTUI(cmd)
	}
	return a.runREPL(cmd)
}
