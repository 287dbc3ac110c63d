package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tmdbtsv/internal/config"
	"tmdbtsv/internal/logging"
	"tmdbtsv/internal/pipeline"
	"tmdbtsv/internal/trigger"
)

type runFlags struct {
	output    string
	delimiter string
	series    string
	movies    string
	watch     bool
	schedule  string
	json      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert the configured JSON exports into relation files",
		Long: `Convert the configured JSON exports into relation files.

Without --watch or --schedule the pipeline runs once and prints a summary.
With --watch, a run starts whenever an input file changes; with --schedule,
a run starts on the cron expression. A trigger that fires while a run is in
progress is skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cfg, flags); err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			p := pipeline.New(cfg, logger)

			if !flags.watch && flags.schedule == "" {
				result, err := p.Run(cmd.Context(), pipeline.Options{StartedBy: "manual"})
				if err != nil {
					return err
				}
				if flags.json {
					return writeJSON(cmd, newRunSummary(result))
				}
				printRunSummary(cmd.OutOrStdout(), result)
				return nil
			}
			return runTriggered(cmd.Context(), cfg, p, flags, logger)
		},
	}

	cmd.Flags().StringVar(&flags.output, "output", "", "Output directory override")
	cmd.Flags().StringVar(&flags.delimiter, "delimiter", "", `Field delimiter override (a single character, or "\t")`)
	cmd.Flags().StringVar(&flags.series, "series", "", "Path of the series export")
	cmd.Flags().StringVar(&flags.movies, "movies", "", "Path of the movies export")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Re-run whenever an input file changes")
	cmd.Flags().StringVar(&flags.schedule, "schedule", "", `Re-run on a cron schedule (e.g. "0 3 * * *" or "@every 1h")`)
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the run summary as JSON")
	return cmd
}

func applyRunFlags(cfg *config.Config, flags runFlags) error {
	if v := strings.TrimSpace(flags.output); v != "" {
		path, err := config.ExpandPath(v)
		if err != nil {
			return fmt.Errorf("--output: %w", err)
		}
		cfg.Paths.OutputDir = path
	}
	if flags.delimiter != "" {
		delim := flags.delimiter
		if unquoted, err := strconv.Unquote(`"` + delim + `"`); err == nil {
			delim = unquoted
		}
		cfg.Output.Delimiter = delim
	}
	for name, v := range map[string]string{"series": flags.series, "movies": flags.movies} {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if err := setSourcePath(cfg, name, v); err != nil {
			return err
		}
	}
	if flags.schedule != "" {
		if err := trigger.ValidateSchedule(flags.schedule); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func setSourcePath(cfg *config.Config, name, path string) error {
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("--%s: %w", name, err)
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Name == name {
			cfg.Sources[i].Path = expanded
			return nil
		}
	}
	return fmt.Errorf("--%s: no source named %q in configuration", name, name)
}

// runTriggered runs once, then keeps re-running under the watch and schedule
// triggers until ctx is cancelled.
func runTriggered(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, flags runFlags, logger *slog.Logger) error {
	runner := trigger.NewRunner(func(ctx context.Context) error {
		startedBy, _ := logging.TriggerFromContext(ctx)
		_, err := p.Run(ctx, pipeline.Options{StartedBy: startedBy})
		return err
	}, logger)

	runner.Fire(ctx, "manual")

	g, gctx := errgroup.WithContext(ctx)
	if flags.watch {
		paths := make([]string, 0, len(cfg.Sources))
		for _, src := range cfg.Sources {
			paths = append(paths, src.Path)
		}
		g.Go(func() error {
			return trigger.Watch(gctx, paths, trigger.DefaultDebounce, runner)
		})
	}
	if flags.schedule != "" {
		g.Go(func() error {
			return trigger.Schedule(gctx, flags.schedule, runner)
		})
	}
	err := g.Wait()
	logger.Info("triggers stopped",
		logging.Int64("runs", runner.Runs()),
		logging.Int64("skipped", runner.Skipped()),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type relationSummary struct {
	Relation string   `json:"relation"`
	Parts    []string `json:"parts"`
	RowsIn   int      `json:"rows_in"`
	Rows     int      `json:"rows"`
	Columns  int      `json:"columns"`
	Path     string   `json:"path"`
	Bytes    int64    `json:"bytes"`
	SinkRows int      `json:"sink_rows,omitempty"`
}

type sourceSummary struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Records int    `json:"records"`
}

type runSummary struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMS int64             `json:"duration_ms"`
	Sources    []sourceSummary   `json:"sources"`
	Relations  []relationSummary `json:"relations"`
}

func newRunSummary(result *pipeline.Result) runSummary {
	summary := runSummary{
		RunID:      result.RunID,
		StartedAt:  result.StartedAt.UTC(),
		DurationMS: result.Duration.Milliseconds(),
		Sources:    make([]sourceSummary, 0, len(result.Sources)),
		Relations:  make([]relationSummary, 0, len(result.Relations)),
	}
	for _, src := range result.Sources {
		summary.Sources = append(summary.Sources, sourceSummary{Name: src.Name, Path: src.Path, Records: src.Records})
	}
	for _, rel := range result.Relations {
		summary.Relations = append(summary.Relations, relationSummary(rel))
	}
	return summary
}

func printRunSummary(w io.Writer, result *pipeline.Result) {
	tty := isTerminal(w)
	rows := make([][]string, 0, len(result.Relations))
	for _, rel := range result.Relations {
		size := strconv.FormatInt(rel.Bytes, 10)
		path := rel.Path
		if tty {
			size = humanize.Bytes(uint64(rel.Bytes))
			path = filepath.Base(rel.Path)
		}
		rows = append(rows, []string{
			rel.Relation,
			strconv.Itoa(rel.RowsIn),
			strconv.Itoa(rel.Rows),
			strconv.Itoa(rel.Columns),
			size,
			path,
		})
	}
	printTable(w,
		[]string{"Relation", "Rows In", "Rows", "Columns", "Size", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
	if tty {
		fmt.Fprintf(w, "%d relations, %s rows written in %s\n",
			len(result.Relations), humanize.Comma(int64(result.Rows())), result.Duration.Round(time.Millisecond))
	}
}
