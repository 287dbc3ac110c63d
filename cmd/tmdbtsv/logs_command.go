package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tmdbtsv/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries from the state directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()
			if path == "" {
				return errors.New("paths.state_dir is not set; no log file is written")
			}
			filter := logs.Filter{RunID: runID, MinLevel: level}

			out := cmd.OutOrStdout()
			entries, offset, err := logs.Tail(path, lines, filter)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(out, logs.Format(e))
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, offset, logs.DefaultPoll, filter, func(e logs.Entry) {
				fmt.Fprintln(out, logs.Format(e))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of entries to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&runID, "run", "", "Only show entries of this run ID")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	return cmd
}
