package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	defaultPoll  = 250 * time.Millisecond
	maxLineBytes = 1 << 20
)

// Reader returns lines from a log file, tracking how far it has read.
type Reader struct {
	path   string
	poll   time.Duration
	offset int64
}

// NewReader reads path. A missing file reads as empty until it appears.
func NewReader(path string) *Reader {
	return &Reader{path: path, poll: defaultPoll}
}

// Offset is the byte position the next read starts from.
func (r *Reader) Offset() int64 { return r.offset }

// Last returns up to n trailing lines and positions the reader at end of file.
func (r *Reader) Last(n int) ([]string, error) {
	file, err := r.open()
	if file == nil || err != nil {
		return nil, err
	}
	defer file.Close()

	var ring []string
	if n > 0 {
		ring = make([]string, 0, n)
	}
	end, err := scanLines(file, func(line string) {
		if n <= 0 {
			return
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	})
	if err != nil {
		return nil, err
	}
	r.offset = end
	return ring, nil
}

// Next returns complete lines appended since the previous read.
func (r *Reader) Next() ([]string, error) {
	file, err := r.open()
	if file == nil || err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < r.offset {
		r.offset = 0
	}
	if _, err := file.Seek(r.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	read, err := scanLines(file, func(line string) { lines = append(lines, line) })
	if err != nil {
		return nil, err
	}
	r.offset += read
	return lines, nil
}

// Follow emits new lines as they are written until ctx ends.
func (r *Reader) Follow(ctx context.Context, emit func(string)) error {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		lines, err := r.Next()
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Matching keeps lines containing every needle.
func Matching(lines []string, needles ...string) []string {
	out := lines[:0:0]
	for _, line := range lines {
		keep := true
		for _, needle := range needles {
			if needle != "" && !strings.Contains(line, needle) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}

func (r *Reader) open() (*os.File, error) {
	file, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		r.offset = 0
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// scanLines feeds complete lines to fn and returns the bytes consumed. A
// trailing partial line is left for the next read.
func scanLines(file *os.File, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(file, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			consumed += int64(len(line))
			if len(line) <= maxLineBytes {
				fn(strings.TrimRight(line, "\r\n"))
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		return consumed, fmt.Errorf("read log file: %w", err)
	}
}
