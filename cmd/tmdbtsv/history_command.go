package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tmdbtsv/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "Run history is disabled (history.enabled = false)")
				return nil
			}
			if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, newHistoryView(runs))
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			tty := isTerminal(out)
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				started := run.StartedAt.Local().Format(time.DateTime)
				duration := run.Duration().Round(time.Millisecond).String()
				if tty {
					started = humanize.Time(run.StartedAt)
				}
				rows = append(rows, []string{
					run.ID,
					started,
					string(run.Status),
					run.StartedBy,
					strconv.Itoa(len(run.Tables)),
					strconv.Itoa(run.Rows()),
					duration,
					run.Error,
				})
			}
			printTable(out,
				[]string{"Run", "Started", "Status", "Trigger", "Relations", "Rows", "Duration", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

type historyRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Status     string    `json:"status"`
	StartedBy  string    `json:"started_by"`
	Error      string    `json:"error,omitempty"`
	Relations  int       `json:"relations"`
	Rows       int       `json:"rows"`
}

func newHistoryView(runs []history.Run) []historyRun {
	view := make([]historyRun, 0, len(runs))
	for _, run := range runs {
		view = append(view, historyRun{
			ID:         run.ID,
			StartedAt:  run.StartedAt.UTC(),
			FinishedAt: run.FinishedAt.UTC(),
			Status:     string(run.Status),
			StartedBy:  run.StartedBy,
			Error:      run.Error,
			Relations:  len(run.Tables),
			Rows:       run.Rows(),
		})
	}
	return view
}
