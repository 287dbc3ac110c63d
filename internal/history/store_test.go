package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"tmdbtsv/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginFinishRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	run, err := store.Begin(ctx, "")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if run.ID == "" || run.Status != history.StatusRunning || run.StartedBy != "manual" {
		t.Fatalf("unexpected run %+v", run)
	}

	tables := []history.TableRecord{
		{Relation: "series", Path: "/out/series.tsv", Rows: 2, Bytes: 120},
		{Relation: "genres", Path: "/out/genres.tsv", Rows: 3, Bytes: 40},
	}
	if err := store.Finish(ctx, run, nil, tables); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != history.StatusSucceeded || got.Error != "" {
		t.Fatalf("unexpected status %q error %q", got.Status, got.Error)
	}
	if got.FinishedAt.IsZero() || got.Duration() < 0 {
		t.Fatalf("unexpected finish time %v", got.FinishedAt)
	}
	if len(got.Tables) != 2 || got.Tables[0].Relation != "series" || got.Tables[1].Rows != 3 {
		t.Fatalf("unexpected tables %+v", got.Tables)
	}
	if got.Rows() != 5 {
		t.Fatalf("Rows = %d, want 5", got.Rows())
	}
}

func TestFinishRecordsFailure(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	run, err := store.Begin(ctx, "watch")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Finish(ctx, run, errors.New("parse series_list.json: invalid json"), nil); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != history.StatusFailed || got.Error == "" || got.StartedBy != "watch" {
		t.Fatalf("unexpected run %+v", got)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.Begin(ctx, "schedule")
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Finish(ctx, run, nil, []history.TableRecord{{Relation: "series", Rows: i}}); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
	if len(runs[0].Tables) != 1 || runs[0].Tables[0].Rows != 2 {
		t.Fatalf("unexpected tables %+v", runs[0].Tables)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all runs = %d, want 3", len(all))
	}
}

func TestGetUnknownRun(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Finish(context.Background(), &history.Run{ID: "missing"}, nil, nil); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Finish, got %v", err)
	}
}

func TestReopenKeepsRunsAndChecksVersion(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	run, err := store.Begin(ctx, "manual")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = history.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := store.Get(ctx, run.ID); err != nil {
		t.Fatalf("run lost after reopen: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
