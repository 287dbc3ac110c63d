package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineSize = 1024 * 1024

// DefaultPoll is how often Follow checks the file for new lines.
const DefaultPoll = 250 * time.Millisecond

// Tail returns the last limit entries of the file at path that pass filter,
// oldest first, and the offset of the end of the file. A missing file yields
// no entries and offset zero. A limit of zero or less returns every match.
func Tail(path string, limit int, filter Filter) ([]Entry, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var ring []Entry
	idx, count := 0, 0
	if limit > 0 {
		ring = make([]Entry, limit)
	}

	offset, err := scanLines(file, func(line string) {
		entry, parsed := ParseEntry(line)
		if !filter.Match(entry, parsed) {
			return
		}
		if limit <= 0 {
			ring = append(ring, entry)
			count++
			return
		}
		ring[idx] = entry
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	if limit <= 0 || count < limit {
		return ring[:count], offset, nil
	}
	entries := make([]Entry, count)
	for i := 0; i < count; i++ {
		entries[i] = ring[(idx+i)%limit]
	}
	return entries, offset, nil
}

// Follow polls the file at path from offset and calls fn for every new entry
// that passes filter until ctx is cancelled. A file that shrinks (rotated or
// truncated) is read again from the start.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, filter Filter, fn func(Entry)) error {
	if poll <= 0 {
		poll = DefaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, func(line string) {
			entry, parsed := ParseEntry(line)
			if filter.Match(entry, parsed) {
				fn(entry)
			}
		})
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, fn func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	next, err := scanLines(file, fn)
	if err != nil {
		return offset, err
	}
	return offset + next, nil
}

// scanLines calls fn for every complete line of r and returns the number of
// bytes consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineSize {
			continue
		}
		fn(line[:len(line)-1])
	}
}
