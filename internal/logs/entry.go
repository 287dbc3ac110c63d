package logs

import (
	"fmt"
	"strings"
	"time"

	"github.com/buger/jsonparser"
)

// Entry is one decoded log line.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	RunID     string
	Relation  string
	Error     string
	Raw       string
}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects are
// returned with only Raw set and ok false.
func ParseEntry(line string) (Entry, bool) {
	entry := Entry{Raw: line}
	data := []byte(strings.TrimSpace(line))
	if len(data) == 0 || data[0] != '{' {
		return entry, false
	}
	msg, err := jsonparser.GetString(data, "msg")
	if err != nil {
		return entry, false
	}
	entry.Message = msg
	entry.Level, _ = jsonparser.GetString(data, "level")
	entry.Component, _ = jsonparser.GetString(data, "component")
	entry.RunID, _ = jsonparser.GetString(data, "run_id")
	entry.Relation, _ = jsonparser.GetString(data, "relation")
	entry.Error, _ = jsonparser.GetString(data, "error")
	if ts, err := jsonparser.GetString(data, "ts"); err == nil {
		entry.Time, _ = time.Parse(time.RFC3339, ts)
	}
	return entry, true
}

// Filter selects entries. Zero values match everything.
type Filter struct {
	RunID    string
	MinLevel string
}

// Match reports whether e passes f. Undecodable lines only pass an empty
// filter.
func (f Filter) Match(e Entry, parsed bool) bool {
	if !parsed {
		return f.RunID == "" && f.MinLevel == ""
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.MinLevel != "" && levelRank(e.Level) < levelRank(f.MinLevel) {
		return false
	}
	return true
}

func levelRank(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn", "warning":
		return 2
	case "error":
		return 3
	default:
		return 1
	}
}

// Format renders e as a single console line.
func Format(e Entry) string {
	if e.Message == "" {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	if e.Relation != "" {
		fmt.Fprintf(&b, "%s – ", e.Relation)
	}
	b.WriteString(e.Message)
	if e.Error != "" {
		fmt.Fprintf(&b, " (error: %s)", e.Error)
	}
	return b.String()
}
