package testsupport

import (
	"path/filepath"
	"testing"

	"tmdbtsv/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Source paths point into the temp directory; the files themselves are not
// created (see WriteSeries and WriteMovies).
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	for i := range cfgVal.Sources {
		src := &cfgVal.Sources[i]
		src.Path = filepath.Join(base, "in", src.Name+".json")
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDelimiter overrides the output delimiter.
func WithDelimiter(delim string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Delimiter = delim
	}
}

// WithHistory enables or disables run history.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// WithSQLiteSink points the sink at a sqlite database in the temp directory.
func WithSQLiteSink() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sink = config.Sink{
			Driver: "sqlite",
			DSN:    filepath.Join(b.baseDir, "state", "sink.db"),
		}
	}
}

// WithSources replaces the configured record types. Relative source paths
// are resolved against the temp input directory, and merges are cleared.
func WithSources(sources ...config.Source) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources = nil
		b.cfg.Merges = nil
		for _, src := range sources {
			if src.Path == "" {
				src.Path = src.Name + ".json"
			}
			if !filepath.IsAbs(src.Path) {
				src.Path = filepath.Join(b.baseDir, "in", src.Path)
			}
			b.cfg.Sources = append(b.cfg.Sources, src)
		}
	}
}

// WithMerges replaces the merge declarations.
func WithMerges(merges ...config.Merge) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merges = merges
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

// SourcePath returns the input path configured for the named source.
func SourcePath(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()

	src, ok := cfg.Source(name)
	if !ok {
		t.Fatalf("no source %q in config", name)
	}
	return src.Path
}
