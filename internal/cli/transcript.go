// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/neonnexus/internal/export"
	"github.com/jeranaias/neonnexus/internal/session"
	"github.com/jeranaias/neonnexus/internal/storage"
	"github.com/jeranaias/neonnexus/internal/ui/styles"
)

// errTranscriptsDisabled is returned when transcript.enabled is false.
var errTranscriptsDisabled = errors.New("transcripts are disabled (transcript.enabled = false)")

func newTranscriptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Inspect, export or clear the saved transcript",
	}

	var raw bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTranscripts(func(store *storage.TranscriptStore) error {
				out := cmd.OutOrStdout()
				if raw {
					data, err := store.Raw()
					if errors.Is(err, storage.ErrNotFound) {
						return fmt.Errorf("no transcript saved under %q", store.Key())
					}
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(data))
					return nil
				}

				state, err := loadTranscript(store, cmd)
				if err != nil {
					return err
				}
				for _, msg := range export.FromState(state).Messages {
					fmt.Fprintf(out, "[%s] %s: %s\n", msg.Timestamp.Format("2006-01-02 15:04"), msg.Role.DisplayName(), msg.Content)
				}
				return nil
			})
		},
	}
	show.Flags().BoolVar(&raw, "raw", false, "print the stored document as is")

	exportCmd := &cobra.Command{
		Use:   "export PATH",
		Short: "Export the saved transcript (.md, .json, .yaml)",
		Long: `Export the saved transcript. The file extension selects the format:
.md for Markdown, .json for JSON, .yaml or .yml for YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTranscripts(func(store *storage.TranscriptStore) error {
				state, err := loadTranscript(store, cmd)
				if err != nil {
					return err
				}
				t := export.FromState(state)
				if err := export.WriteTo(t, args[0], export.DefaultOptions()); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Exported %d messages to %s", len(t.Messages), args[0])))
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTranscripts(func(store *storage.TranscriptStore) error {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Transcript %q cleared", store.Key())))
				return nil
			})
		},
	}

	cmd.AddCommand(show, exportCmd, clearCmd)
	return cmd
}

// withTranscripts opens the configured store for the duration of fn.
func (a *app) withTranscripts(fn func(*storage.TranscriptStore) error) error {
	store, kv, err := openTranscripts(a.cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errTranscriptsDisabled
	}
	defer kv.Close()
	return fn(store)
}

// loadTranscript loads the transcript, reporting a corrupt one as a warning.
func loadTranscript(store *storage.TranscriptStore, cmd *cobra.Command) (session.State, error) {
	state, err := store.Load()
	if errors.Is(err, session.ErrCorruptTranscript) {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderWarning("saved transcript is unreadable"))
		return state, nil
	}
	return state, err
}
