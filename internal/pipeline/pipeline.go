package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tmdbtsv/internal/config"
	"tmdbtsv/internal/delimited"
	"tmdbtsv/internal/flatten"
	"tmdbtsv/internal/history"
	"tmdbtsv/internal/logging"
	"tmdbtsv/internal/preflight"
	"tmdbtsv/internal/sink"
)

// LockFileName is the lock file kept in the output directory during a run.
const LockFileName = ".tmdbtsv.lock"

// ErrRunLocked indicates that another run holds the output directory lock.
var ErrRunLocked = errors.New("another run holds the output directory lock")

// Options tunes a single run.
type Options struct {
	// StartedBy records what started the run: manual, watch or schedule.
	// Empty means manual.
	StartedBy string
}

// RelationResult describes one written relation.
type RelationResult struct {
	Relation string
	Parts    []string
	RowsIn   int
	Rows     int
	Columns  int
	Path     string
	Bytes    int64
	SinkRows int
}

// Result summarizes a completed run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Sources   []SourceResult
	Relations []RelationResult
}

// Rows returns the total rows written across all relations.
func (r *Result) Rows() int {
	total := 0
	for _, rel := range r.Relations {
		total += rel.Rows
	}
	return total
}

// Pipeline converts the configured sources into delimited relations.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	flattener *flatten.Flattener
	writer    delimited.Writer
}

// New returns a pipeline for cfg. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		flattener: flatten.New(flatten.Options{
			Separator:        cfg.Flatten.Separator,
			NormalizeUnicode: cfg.Flatten.NormalizeUnicode,
		}),
		writer: delimited.Writer{Delimiter: cfg.DelimiterRune(), Dir: cfg.Paths.OutputDir},
	}
}

// Run executes one manual run of cfg.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	return New(cfg, logger).Run(ctx, Options{})
}

// Run executes the full conversion.
func (p *Pipeline) Run(ctx context.Context, opts Options) (result *Result, err error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if err := preflight.Err(preflight.Required(p.cfg)); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(p.cfg.Paths.OutputDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRunLocked, lock.Path())
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			p.logger.Warn("failed to release output lock", logging.Error(unlockErr))
		}
	}()

	if opts.StartedBy == "" {
		opts.StartedBy = "manual"
	}
	result = &Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	store, run := p.beginHistory(ctx, opts.StartedBy)
	if run != nil {
		result.RunID = run.ID
	}
	if store != nil {
		defer func() {
			var tables []history.TableRecord
			if result != nil {
				for _, rel := range result.Relations {
					tables = append(tables, history.TableRecord{Relation: rel.Relation, Path: rel.Path, Rows: rel.Rows, Bytes: rel.Bytes})
				}
			}
			if finishErr := store.Finish(context.WithoutCancel(ctx), run, err, tables); finishErr != nil {
				logging.WarnWithContext(p.logger, "failed to record run", "history_write_failed",
					logging.Error(finishErr),
					logging.String(logging.FieldImpact, "run is missing from history"),
				)
			}
			_ = store.Close()
		}()
	}

	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run started", logging.Int("sources", len(p.cfg.Sources)))

	plan, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}
	result.Sources = plan.Sources

	for _, out := range plan.Outputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, err := p.writer.Write(out.Table)
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, len(out.Relation.Parts))
		for _, part := range out.Relation.Parts {
			parts = append(parts, part.Ref())
		}
		result.Relations = append(result.Relations, RelationResult{
			Relation: out.Relation.Name,
			Parts:    parts,
			RowsIn:   out.RowsIn,
			Rows:     stats.Rows,
			Columns:  len(out.Table.Columns),
			Path:     stats.Path,
			Bytes:    stats.Bytes,
		})
		logging.WithContext(logging.WithRelation(ctx, out.Relation.Name), p.logger).Debug("relation written",
			logging.Int("rows_in", out.RowsIn),
			logging.Int("rows_out", stats.Rows),
			logging.String("path", stats.Path),
			logging.Int64("output_bytes", stats.Bytes),
		)
	}

	if p.cfg.Sink.Driver != "" {
		if err := p.loadSink(ctx, plan, result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(result.StartedAt)
	logger.Info("run completed",
		logging.Int("relations", len(result.Relations)),
		logging.Int("rows", result.Rows()),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

func (p *Pipeline) beginHistory(ctx context.Context, startedBy string) (*history.Store, *history.Run) {
	if !p.cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(p.cfg.History.Path)
	if err != nil {
		logging.WarnWithContext(p.logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is not recorded in history"),
			logging.String(logging.FieldErrorHint, "check history.path or set history.enabled = false"),
		)
		return nil, nil
	}
	run, err := store.Begin(ctx, startedBy)
	if err != nil {
		_ = store.Close()
		logging.WarnWithContext(p.logger, "run history unavailable", "history_begin_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is not recorded in history"),
		)
		return nil, nil
	}
	return store, run
}

func (p *Pipeline) loadSink(ctx context.Context, plan Plan, result *Result) error {
	s, err := sink.Open(ctx, p.cfg.Sink)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer s.Close()

	for i, out := range plan.Outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.Load(ctx, out.Table)
		if err != nil {
			return err
		}
		result.Relations[i].SinkRows = n
	}
	p.logger.Info("sink loaded",
		logging.String("driver", p.cfg.Sink.Driver),
		logging.Int("relations", len(plan.Outputs)),
	)
	return nil
}
