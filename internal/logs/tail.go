package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"vidmint/internal/logging"
)

const (
	maxLineBytes        = 1024 * 1024
	defaultPollInterval = 250 * time.Millisecond
)

// Filter selects log lines. A zero Filter matches everything.
type Filter struct {
	SessionID string
}

// Match reports whether the raw JSON line passes the filter. Lines that are
// not JSON only match the empty filter.
func (f Filter) Match(line string) bool {
	if f.SessionID == "" {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return false
	}
	id, _ := fields[logging.FieldSessionID].(string)
	return id == f.SessionID
}

// TailResult holds matching lines and the file offset after the last byte read.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail returns up to limit of the last lines matching filter. A missing file
// yields an empty result.
func Tail(path string, limit int, filter Filter) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err != nil {
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	} else if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}

	var ring []string
	if limit > 0 {
		ring = make([]string, 0, limit)
	}
	offset, err := scan(file, func(line string) {
		if limit <= 0 || !filter.Match(line) {
			return
		}
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	})
	if err != nil {
		return TailResult{}, err
	}
	return TailResult{Lines: ring, Offset: offset}, nil
}

// Follow calls fn for every matching line appended after offset, polling
// every interval, until ctx ends. A truncated file is read from the start.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, filter Filter, fn func(string)) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, fn)
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

func readFrom(path string, offset int64, filter Filter, fn func(string)) (int64, error) {
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
	read, err := scan(file, func(line string) {
		if filter.Match(line) {
			fn(line)
		}
	})
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scan feeds complete lines to fn and returns the number of bytes consumed.
// A trailing partial line is left for the next read.
func scan(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		fn(line[:len(line)-1])
	}
}
