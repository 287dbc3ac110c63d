package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateMerges(); err != nil {
		return err
	}
	if err := c.validateRelations(); err != nil {
		return err
	}
	if err := c.validateSink(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOutput() error {
	delim := c.Output.Delimiter
	if utf8.RuneCountInString(delim) != 1 {
		return fmt.Errorf("output.delimiter must be a single character, got %q", delim)
	}
	r, _ := utf8.DecodeRuneInString(delim)
	if r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return fmt.Errorf("output.delimiter %q is not allowed", delim)
	}
	if c.Flatten.Separator == "" {
		return errors.New("flatten.separator must be set")
	}
	return nil
}

func (c *Config) validateSources() error {
	if len(c.Sources) == 0 {
		return errors.New("at least one [[sources]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name must be set", i)
		}
		if strings.Contains(src.Name, ".") {
			return fmt.Errorf("sources[%d].name %q must not contain '.'", i, src.Name)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("sources[%d].name %q is not unique", i, src.Name)
		}
		seen[src.Name] = struct{}{}
		if src.Path == "" {
			return fmt.Errorf("sources.%s.path must be set", src.Name)
		}
		lists := make(map[string]struct{}, len(src.Lists))
		for _, attr := range src.Lists {
			if _, dup := lists[attr]; dup {
				return fmt.Errorf("sources.%s.lists contains %q twice", src.Name, attr)
			}
			lists[attr] = struct{}{}
		}
	}
	return nil
}

func (c *Config) validateMerges() error {
	claimed := make(map[string]string)
	for i, m := range c.Merges {
		if m.Relation == "" {
			return fmt.Errorf("merges[%d].relation must be set", i)
		}
		if len(m.From) == 0 {
			return fmt.Errorf("merges.%s.from must list at least one child relation", m.Relation)
		}
		for _, ref := range m.From {
			part := parsePart(ref)
			if part.Attr == "" {
				return fmt.Errorf("merges.%s.from entry %q must be <source>.<attribute>", m.Relation, ref)
			}
			src, ok := c.Source(part.Source)
			if !ok {
				return fmt.Errorf("merges.%s.from entry %q references unknown source %q", m.Relation, ref, part.Source)
			}
			if !contains(src.Lists, part.Attr) {
				return fmt.Errorf("merges.%s.from entry %q is not in sources.%s.lists", m.Relation, ref, src.Name)
			}
			if owner, dup := claimed[ref]; dup {
				return fmt.Errorf("child relation %q is merged into both %q and %q", ref, owner, m.Relation)
			}
			claimed[ref] = m.Relation
		}
	}
	return nil
}

func (c *Config) validateRelations() error {
	producers := make(map[string]string)
	for _, rel := range c.Relations() {
		refs := make([]string, 0, len(rel.Parts))
		for _, part := range rel.Parts {
			refs = append(refs, part.Ref())
		}
		producer := strings.Join(refs, "+")
		if other, dup := producers[rel.Name]; dup {
			return fmt.Errorf("relation %q is produced by both %s and %s; add a [[merges]] entry or rename a source", rel.Name, other, producer)
		}
		producers[rel.Name] = producer
	}
	return nil
}

func (c *Config) validateSink() error {
	switch c.Sink.Driver {
	case "":
		return nil
	case "sqlite", "postgres", "mysql", "mongodb":
	default:
		return fmt.Errorf("sink.driver: unsupported value %q (expected sqlite, postgres, mysql, or mongodb)", c.Sink.Driver)
	}
	if c.Sink.DSN == "" {
		return fmt.Errorf("sink.dsn must be set when sink.driver is %q (or export TMDBTSV_SINK_DSN)", c.Sink.Driver)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
