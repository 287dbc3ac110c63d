package pipeline_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"tmdbtsv/internal/config"
	"tmdbtsv/internal/history"
	"tmdbtsv/internal/jsondoc"
	"tmdbtsv/internal/logging"
	"tmdbtsv/internal/pipeline"
	"tmdbtsv/internal/table"
	"tmdbtsv/internal/testsupport"
)

func TestRunWritesEveryRelation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false))
	testsupport.WriteFixtures(t, cfg)

	result, err := pipeline.Run(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"series", "movies",
		"created_by", "episode_run_time", "genres", "languages", "networks",
		"origin_country", "production_companies", "seasons",
		"production_countries", "spoken_languages",
	}
	if len(result.Relations) != len(want) {
		t.Fatalf("expected %d relations, got %d", len(want), len(result.Relations))
	}
	for i, name := range want {
		rel := result.Relations[i]
		if rel.Relation != name {
			t.Fatalf("relation %d: expected %q, got %q", i, name, rel.Relation)
		}
		if rel.Path != filepath.Join(cfg.Paths.OutputDir, name+".tsv") {
			t.Fatalf("relation %s: unexpected path %q", name, rel.Path)
		}
		info, err := os.Stat(rel.Path)
		if err != nil {
			t.Fatalf("stat %s: %v", rel.Path, err)
		}
		if info.Size() != rel.Bytes {
			t.Fatalf("relation %s: reported %d bytes, file has %d", name, rel.Bytes, info.Size())
		}
	}

	series := testsupport.ReadOutput(t, result.Relations[0].Path)
	wantSeries := "id\tname\tfirst_air_date\tin_production\tvote_average\n" +
		"1396\tBreaking Bad\t2008-01-20\tfalse\t8.9\n" +
		"1399\tGame of Thrones\t2011-04-17\tfalse\t8.4\n"
	if series != wantSeries {
		t.Fatalf("series.tsv mismatch:\n%s", series)
	}

	seasons := testsupport.ReadOutput(t, filepath.Join(cfg.Paths.OutputDir, "seasons.tsv"))
	wantSeasons := "id\tseason_number\tepisode_count\n3572\t1\t7\n3573\t2\t13\n"
	if seasons != wantSeasons {
		t.Fatalf("seasons.tsv mismatch:\n%s", seasons)
	}

	countries := testsupport.ReadOutput(t, filepath.Join(cfg.Paths.OutputDir, "origin_country.tsv"))
	if countries != "origin_country\nUS\nGB\n" {
		t.Fatalf("origin_country.tsv mismatch:\n%s", countries)
	}

	createdBy := testsupport.ReadOutput(t, filepath.Join(cfg.Paths.OutputDir, "created_by.tsv"))
	if createdBy != "\n" {
		t.Fatalf("expected empty relation file, got %q", createdBy)
	}

	if len(result.Sources) != 2 || result.Sources[0].Records != 2 || result.Sources[1].Records != 1 {
		t.Fatalf("unexpected source summary: %+v", result.Sources)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}
}

func TestRunMergesSharedGenres(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false))
	testsupport.WriteFixtures(t, cfg)

	result, err := pipeline.Run(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var genres pipeline.RelationResult
	for _, rel := range result.Relations {
		if rel.Relation == "genres" {
			genres = rel
		}
	}
	if genres.RowsIn != 4 || genres.Rows != 2 {
		t.Fatalf("expected 4 rows in and 2 out, got %d and %d", genres.RowsIn, genres.Rows)
	}
	if strings.Join(genres.Parts, ",") != "series.genres,movies.genres" {
		t.Fatalf("unexpected parts %v", genres.Parts)
	}

	got := testsupport.ReadOutput(t, genres.Path)
	if got != "id\tname\n18\tDrama\n80\tCrime\n" {
		t.Fatalf("genres.tsv mismatch:\n%s", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "series.genres.tsv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("merged part written on its own: %v", err)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false))
	testsupport.WriteFixtures(t, cfg)
	ctx := context.Background()

	first, err := pipeline.Run(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	snapshot := make(map[string]string, len(first.Relations))
	for _, rel := range first.Relations {
		snapshot[rel.Path] = testsupport.ReadOutput(t, rel.Path)
	}

	second, err := pipeline.Run(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for _, rel := range second.Relations {
		if got := testsupport.ReadOutput(t, rel.Path); got != snapshot[rel.Path] {
			t.Fatalf("%s changed between runs", rel.Path)
		}
	}
	if first.RunID == second.RunID {
		t.Fatal("expected distinct run ids")
	}
}

func TestRunCommaDelimiter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false), testsupport.WithDelimiter(","))
	testsupport.WriteFixtures(t, cfg)

	if _, err := pipeline.Run(context.Background(), cfg, logging.NewNop()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := testsupport.ReadOutput(t, filepath.Join(cfg.Paths.OutputDir, "production_countries.csv"))
	if got != "iso_3166_1,name\nUS,United States of America\n" {
		t.Fatalf("production_countries.csv mismatch:\n%s", got)
	}
}

func TestRunParseErrorKeepsPreviousOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false))
	testsupport.WriteFixtures(t, cfg)
	ctx := context.Background()

	if _, err := pipeline.Run(ctx, cfg, logging.NewNop()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	seriesPath := filepath.Join(cfg.Paths.OutputDir, "series.tsv")
	before := testsupport.ReadOutput(t, seriesPath)

	testsupport.WriteSource(t, cfg, "movies", `[{"id": 1,`)
	_, err := pipeline.Run(ctx, cfg, logging.NewNop())
	var perr *jsondoc.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !errors.Is(err, jsondoc.ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
	if after := testsupport.ReadOutput(t, seriesPath); after != before {
		t.Fatal("series.tsv rewritten by a failed run")
	}
}

func TestRunSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithHistory(false),
		testsupport.WithSources(
			config.Source{Name: "left", Lists: []string{"items"}},
			config.Source{Name: "right", Lists: []string{"items"}},
		),
		testsupport.WithMerges(config.Merge{Relation: "items", From: []string{"left.items", "right.items"}}),
	)
	testsupport.WriteSource(t, cfg, "left", `[{"id": 1, "items": [{"a": 1}]}]`)
	testsupport.WriteSource(t, cfg, "right", `[{"id": 2, "items": [{"b": 2}]}]`)

	_, err := pipeline.Run(context.Background(), cfg, logging.NewNop())
	var mismatch *table.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if mismatch.Relation != "items" {
		t.Fatalf("unexpected relation %q", mismatch.Relation)
	}

	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != pipeline.LockFileName {
			t.Fatalf("unexpected output %s after failed run", entry.Name())
		}
	}
}

func TestRunMissingSourceFailsPreflight(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false))
	testsupport.WriteSource(t, cfg, "series", testsupport.SeriesJSON)

	_, err := pipeline.Run(context.Background(), cfg, logging.NewNop())
	if err == nil || !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("expected preflight error, got %v", err)
	}
}

func TestRunLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false))
	testsupport.WriteFixtures(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	held := flock.New(filepath.Join(cfg.Paths.OutputDir, pipeline.LockFileName))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	if _, err := pipeline.Run(context.Background(), cfg, logging.NewNop()); !errors.Is(err, pipeline.ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false))
	testsupport.WriteFixtures(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pipeline.Run(ctx, cfg, logging.NewNop()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFixtures(t, cfg)
	ctx := context.Background()

	result, err := pipeline.New(cfg, logging.NewNop()).Run(ctx, pipeline.Options{StartedBy: "watch"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	testsupport.WriteSource(t, cfg, "series", `{"not": "an array"}`)
	if _, err := pipeline.Run(ctx, cfg, logging.NewNop()); !errors.Is(err, jsondoc.ErrNotArray) {
		t.Fatalf("expected ErrNotArray, got %v", err)
	}

	store := testsupport.MustOpenHistory(t, cfg)
	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	failed, ok := runs[0], runs[1]
	if failed.Status != history.StatusFailed || failed.StartedBy != "manual" || failed.Error == "" {
		t.Fatalf("unexpected failed run %+v", failed)
	}
	if len(failed.Tables) != 0 {
		t.Fatalf("failed run recorded %d tables", len(failed.Tables))
	}
	if ok.ID != result.RunID || ok.Status != history.StatusSucceeded || ok.StartedBy != "watch" {
		t.Fatalf("unexpected successful run %+v", ok)
	}
	if len(ok.Tables) != len(result.Relations) || ok.Rows() != result.Rows() {
		t.Fatalf("recorded %d tables / %d rows, want %d / %d", len(ok.Tables), ok.Rows(), len(result.Relations), result.Rows())
	}
	if ok.Tables[0].Relation != "series" || ok.Tables[0].Rows != 2 {
		t.Fatalf("unexpected first table %+v", ok.Tables[0])
	}
}

func TestRunLoadsSQLiteSink(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false), testsupport.WithSQLiteSink())
	testsupport.WriteFixtures(t, cfg)
	ctx := context.Background()

	result, err := pipeline.Run(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, rel := range result.Relations {
		if rel.SinkRows != rel.Rows {
			t.Fatalf("relation %s: sink loaded %d rows, wrote %d", rel.Relation, rel.SinkRows, rel.Rows)
		}
	}

	db, err := sql.Open("sqlite", cfg.Sink.DSN)
	if err != nil {
		t.Fatalf("open sink db: %v", err)
	}
	defer db.Close()

	var name string
	if err := db.QueryRowContext(ctx, `SELECT "name" FROM "genres" WHERE "id" = '80'`).Scan(&name); err != nil {
		t.Fatalf("query genres: %v", err)
	}
	if name != "Crime" {
		t.Fatalf("expected Crime, got %q", name)
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "series"`).Scan(&count); err != nil {
		t.Fatalf("count series: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 series rows, got %d", count)
	}
}

func TestBuildWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory(false))
	testsupport.WriteFixtures(t, cfg)

	plan, err := pipeline.New(cfg, logging.NewNop()).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Outputs) != len(cfg.Relations()) {
		t.Fatalf("expected %d outputs, got %d", len(cfg.Relations()), len(plan.Outputs))
	}
	if _, err := os.Stat(cfg.Paths.OutputDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output dir created by Build: %v", err)
	}
}
