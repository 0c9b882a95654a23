package transcripts

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"meetflow/internal/pipeline"
	"meetflow/internal/services"
)

// DirSource reads transcripts from <dir>/<source id>.txt.
//
// A leading "Title: ..." line, when present, becomes the transcript title and
// is removed from the text. The file's modification time is the session date.
type DirSource struct {
	dir string
}

// NewDirSource constructs a directory-backed source.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: strings.TrimSpace(dir)}
}

var _ Source = (*DirSource)(nil)

// IsReady reports whether the directory exists.
func (s *DirSource) IsReady() bool {
	if s == nil || s.dir == "" {
		return false
	}
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// Describe returns the directory path.
func (s *DirSource) Describe() string {
	return s.dir
}

// Ping reports whether the directory is readable.
func (s *DirSource) Ping(context.Context) error {
	_, err := os.ReadDir(s.dir)
	return err
}

// Fetch reads one transcript file.
func (s *DirSource) Fetch(ctx context.Context, sourceID string) (*pipeline.Transcript, error) {
	sourceID, err := validateSourceID(sourceID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, sourceID+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrUpstreamFetch, "fetch", "read transcript",
				fmt.Sprintf("transcript %q not found", sourceID), services.ErrNotFound)
		}
		return nil, services.Wrap(services.ErrUpstreamFetch, "fetch", "read transcript", path, err)
	}

	title, text := splitTitle(string(data))
	transcript := &pipeline.Transcript{SourceID: sourceID, Title: title, Text: text}
	if info, err := os.Stat(path); err == nil {
		modified := info.ModTime().UTC()
		transcript.Date = &modified
	}
	return transcript, nil
}

func splitTitle(content string) (string, string) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	if !scanner.Scan() {
		return "", content
	}
	first := scanner.Text()
	rest, ok := strings.CutPrefix(strings.TrimSpace(first), "Title:")
	if !ok {
		return "", content
	}
	body := strings.TrimPrefix(content, first)
	return strings.TrimSpace(rest), strings.TrimLeft(body, "\r\n")
}
