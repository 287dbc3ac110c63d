package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.normalizeMerges()
	if err := c.normalizeSink(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	if c.Output.Delimiter == "" {
		c.Output.Delimiter = defaultDelimiter
	}
	if c.Flatten.Separator == "" {
		c.Flatten.Separator = defaultSeparator
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() error {
	for i := range c.Sources {
		src := &c.Sources[i]
		src.Name = strings.TrimSpace(src.Name)
		path, err := expandPath(strings.TrimSpace(src.Path))
		if err != nil {
			return fmt.Errorf("sources[%d].path: %w", i, err)
		}
		src.Path = path
		lists := make([]string, 0, len(src.Lists))
		for _, attr := range src.Lists {
			if attr = strings.TrimSpace(attr); attr != "" {
				lists = append(lists, attr)
			}
		}
		src.Lists = lists
	}
	return nil
}

func (c *Config) normalizeMerges() {
	for i := range c.Merges {
		m := &c.Merges[i]
		m.Relation = strings.TrimSpace(m.Relation)
		from := make([]string, 0, len(m.From))
		for _, ref := range m.From {
			if ref = strings.TrimSpace(ref); ref != "" {
				from = append(from, ref)
			}
		}
		m.From = from
	}
}

func (c *Config) normalizeSink() error {
	c.Sink.Driver = strings.ToLower(strings.TrimSpace(c.Sink.Driver))
	c.Sink.DSN = strings.TrimSpace(c.Sink.DSN)
	c.Sink.Database = strings.TrimSpace(c.Sink.Database)
	c.Sink.TablePrefix = strings.TrimSpace(c.Sink.TablePrefix)
	if c.Sink.Driver == "sqlite" && c.Sink.DSN != "" && !strings.HasPrefix(c.Sink.DSN, "file:") && c.Sink.DSN != ":memory:" {
		path, err := expandPath(c.Sink.DSN)
		if err != nil {
			return fmt.Errorf("sink.dsn: %w", err)
		}
		c.Sink.DSN = path
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, "history.db")
		return nil
	}
	path, err := expandPath(strings.TrimSpace(c.History.Path))
	if err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.History.Path = path
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
