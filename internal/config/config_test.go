package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tmdbtsv/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "tmdbtsv")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.DelimiterRune() != '\t' {
		t.Fatalf("expected tab delimiter by default, got %q", cfg.DelimiterRune())
	}
	if cfg.History.Path != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.LogPath() != filepath.Join(wantState, "tmdbtsv.log") {
		t.Fatalf("unexpected log path: %q", cfg.LogPath())
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected series and movies sources, got %d", len(cfg.Sources))
	}
	for _, src := range cfg.Sources {
		if !filepath.IsAbs(src.Path) {
			t.Fatalf("expected absolute source path for %s, got %q", src.Name, src.Path)
		}
	}
	if cfg.Sink.Driver != "" {
		t.Fatalf("expected sink disabled by default, got %q", cfg.Sink.Driver)
	}
}

func TestDefaultRelationsMatchTMDBExport(t *testing.T) {
	cfg := config.Default()
	var names []string
	for _, rel := range cfg.Relations() {
		names = append(names, rel.Name)
	}
	want := []string{
		"series", "movies",
		"created_by", "episode_run_time", "genres", "languages", "networks",
		"origin_country", "production_companies", "seasons",
		"production_countries", "spoken_languages",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected relations:\n got %v\nwant %v", names, want)
	}

	for _, rel := range cfg.Relations() {
		switch rel.Name {
		case "genres", "production_companies":
			if len(rel.Parts) != 2 || rel.Parts[0].Source != "series" || rel.Parts[1].Source != "movies" {
				t.Fatalf("expected %s merged from series then movies, got %+v", rel.Name, rel.Parts)
			}
		case "series", "movies":
			if !rel.Parent() {
				t.Fatalf("expected %s to be a parent relation", rel.Name)
			}
		default:
			if len(rel.Parts) != 1 || rel.Parent() {
				t.Fatalf("expected %s to be a single child relation, got %+v", rel.Name, rel.Parts)
			}
		}
	}
}

func TestLoadFromFileReplacesSources(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "tmdbtsv.toml")

	payload := map[string]any{
		"paths":  map[string]any{"output_dir": filepath.Join(dir, "out")},
		"output": map[string]any{"delimiter": ","},
		"sources": []map[string]any{
			{"name": "shows", "path": filepath.Join(dir, "shows.json"), "lists": []string{"genres"}},
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal toml: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to exist, got %q exists=%v", path, resolved, exists)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Name != "shows" {
		t.Fatalf("expected file sources to replace defaults, got %+v", cfg.Sources)
	}
	if len(cfg.Merges) != 0 {
		t.Fatalf("expected no merges, got %+v", cfg.Merges)
	}
	if cfg.DelimiterRune() != ',' {
		t.Fatalf("expected comma delimiter, got %q", cfg.DelimiterRune())
	}
	if cfg.Paths.OutputDir != filepath.Join(dir, "out") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[output]\ndelimeter = \",\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out := filepath.Join(t.TempDir(), "env-out")
	t.Setenv("TMDBTSV_OUTPUT_DIR", out)
	t.Setenv("TMDBTSV_LOG_LEVEL", "DEBUG")
	t.Setenv("TMDBTSV_SINK_DSN", "postgres://localhost/tmdb")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.OutputDir != out {
		t.Fatalf("expected output dir from env, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level from env, got %q", cfg.Logging.Level)
	}
	if cfg.Sink.DSN != "postgres://localhost/tmdb" {
		t.Fatalf("expected sink dsn from env, got %q", cfg.Sink.DSN)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "multi-character delimiter",
			mutate: func(c *config.Config) { c.Output.Delimiter = "||" },
			want:   "single character",
		},
		{
			name:   "quote delimiter",
			mutate: func(c *config.Config) { c.Output.Delimiter = "\"" },
			want:   "not allowed",
		},
		{
			name:   "no sources",
			mutate: func(c *config.Config) { c.Sources = nil; c.Merges = nil },
			want:   "at least one",
		},
		{
			name:   "duplicate source",
			mutate: func(c *config.Config) { c.Sources[1].Name = "series" },
			want:   "not unique",
		},
		{
			name:   "merge of unknown attribute",
			mutate: func(c *config.Config) { c.Merges[0].From = []string{"series.keywords"} },
			want:   "not in sources.series.lists",
		},
		{
			name:   "unmerged relation collision",
			mutate: func(c *config.Config) { c.Merges = c.Merges[1:] },
			want:   `relation "genres" is produced by both`,
		},
		{
			name:   "unknown sink driver",
			mutate: func(c *config.Config) { c.Sink.Driver = "oracle"; c.Sink.DSN = "x" },
			want:   "sink.driver",
		},
		{
			name:   "sink without dsn",
			mutate: func(c *config.Config) { c.Sink.Driver = "sqlite" },
			want:   "sink.dsn must be set",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("unexpected error: got %q want substring %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	def := config.Default()
	if len(cfg.Relations()) != len(def.Relations()) {
		t.Fatalf("sample relations differ from defaults")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}
