package logging

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LogGlob selects per-run log files for pruning. Paths listed in Keep are
// never removed, typically the file the current run is writing.
type LogGlob struct {
	Dir     string
	Pattern string
	Keep    []string
}

// PruneLogs deletes files matched by globs whose modification time is more
// than retentionDays old and returns how many were removed. Zero or
// negative retention keeps everything.
func PruneLogs(logger *slog.Logger, retentionDays int, globs ...LogGlob) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, glob := range globs {
		for _, path := range glob.expired(cutoff) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				WarnWithContext(logger, "could not prune old log", "log_retention_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "check ownership of log_dir"),
					String(FieldImpact, "old log file stays on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
			}
		}
	}
	if removed > 0 && logger != nil {
		logger.Info("old logs pruned", Int("removed", removed), Int("retention_days", retentionDays))
	}
	return removed
}

func (g LogGlob) expired(cutoff time.Time) []string {
	if g.Dir == "" || g.Pattern == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(g.Dir, g.Pattern))
	if err != nil {
		return nil
	}
	keep := make(map[string]bool, len(g.Keep))
	for _, path := range g.Keep {
		keep[absPath(path)] = true
	}
	var out []string
	for _, path := range matches {
		path = absPath(path)
		if keep[path] {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || info.Mode()&fs.ModeType != 0 {
			continue
		}
		if info.ModTime().Before(cutoff) {
			out = append(out, path)
		}
	}
	return out
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
