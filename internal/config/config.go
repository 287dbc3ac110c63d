package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
}

// Output contains delimited writer settings.
type Output struct {
	Delimiter string `toml:"delimiter"`
}

// Source describes one record type: the JSON array it is read from and the
// embedded-list attributes extracted from it into child relations.
type Source struct {
	Name  string   `toml:"name"`
	Path  string   `toml:"path"`
	Lists []string `toml:"lists"`
}

// Merge declares that the child relations listed in From (as
// "<source>.<attribute>") are the same relation and are written once as
// Relation.
type Merge struct {
	Relation string   `toml:"relation"`
	From     []string `toml:"from"`
}

// Flatten contains flattener settings.
type Flatten struct {
	Separator        string `toml:"separator"`
	NormalizeUnicode bool   `toml:"normalize_unicode"`
}

// Sink contains the optional tabular-store destination loaded after the
// delimited files are written.
type Sink struct {
	Driver      string `toml:"driver"`
	DSN         string `toml:"dsn"`
	Database    string `toml:"database"`
	TablePrefix string `toml:"table_prefix"`
}

// History contains run history settings.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tmdbtsv.
//
// Configuration sections by subsystem:
//   - Paths: output directory and state directory (log file, history db)
//   - Output: delimiter of the written files
//   - Sources: record types and their embedded-list attributes
//   - Merges: child relations shared across record types
//   - Flatten: nested column separator and string normalisation
//   - Sink: optional database load of every relation
//   - History: run history database
//   - Logging: log format and level
type Config struct {
	Paths   Paths    `toml:"paths"`
	Output  Output   `toml:"output"`
	Sources []Source `toml:"sources"`
	Merges  []Merge  `toml:"merges"`
	Flatten Flatten  `toml:"flatten"`
	Sink    Sink     `toml:"sink"`
	History History  `toml:"history"`
	Logging Logging  `toml:"logging"`
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A .env file in the
// working directory is loaded first without overriding the environment.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Arrays of tables replace the defaults rather than appending to them.
		cfg.Sources = nil
		cfg.Merges = nil
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if cfg.Sources == nil {
			cfg.Sources = Default().Sources
			if cfg.Merges == nil {
				cfg.Merges = Default().Merges
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv("TMDBTSV_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = value
	}
	if value, ok := os.LookupEnv("TMDBTSV_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	if strings.TrimSpace(c.Sink.DSN) == "" {
		if value, ok := os.LookupEnv("TMDBTSV_SINK_DSN"); ok {
			c.Sink.DSN = value
		}
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tmdbtsv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tmdbtsv/config.toml")
}

// EnsureDirectories creates the output and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DelimiterRune returns the single field separator of the written files.
func (c *Config) DelimiterRune() rune {
	for _, r := range c.Output.Delimiter {
		return r
	}
	return '\t'
}

// LogPath returns the log file kept next to the history database.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "tmdbtsv.log")
}

// Source returns the record type with the given name.
func (c *Config) Source(name string) (Source, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
