package logstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"meetflow/internal/api"
	"meetflow/internal/apiclient"
	"meetflow/internal/logs"
)

// Filters narrows the events shown.
type Filters struct {
	Component string
	JobID     int64
}

// Options controls stream behavior.
type Options struct {
	Lines   int
	Follow  bool
	Filters Filters
}

// Stream emits structured events from the daemon API when it answers and
// falls back to reading logPath directly. It returns true when at least one
// event or line was emitted.
func Stream(
	ctx context.Context,
	client *apiclient.Client,
	logPath string,
	opts Options,
	onEvent func(api.LogEvent),
	onLine func(string),
) (bool, error) {
	if client != nil {
		printed, err := streamAPI(ctx, client, opts, onEvent)
		if err == nil || !apiclient.IsUnavailable(err) {
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			return printed, err
		}
	}
	if strings.TrimSpace(logPath) == "" {
		return false, apiclient.ErrUnavailable
	}
	return streamFile(ctx, logs.NewReader(logPath), opts, onLine)
}

func streamAPI(ctx context.Context, client *apiclient.Client, opts Options, onEvent func(api.LogEvent)) (bool, error) {
	query := apiclient.LogQuery{
		Limit:     opts.Lines,
		Tail:      true,
		Component: opts.Filters.Component,
		JobID:     opts.Filters.JobID,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Logs(ctx, query)
		if err != nil {
			return printed, err
		}
		for _, evt := range resp.Events {
			if onEvent != nil {
				onEvent(evt)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		query.Since = resp.Next
		query.Limit = 200
		query.Tail = false
		query.Follow = true
	}
}

// streamFile applies filters as substring matches against console-format
// headers ("[worker] Job #12 ..."). Attribute lines under a filtered header
// are dropped with it.
func streamFile(ctx context.Context, reader *logs.Reader, opts Options, onLine func(string)) (bool, error) {
	needles := fileNeedles(opts.Filters)
	printed := false
	emit := func(line string) {
		if len(logs.Matching([]string{line}, needles...)) == 0 {
			return
		}
		if onLine != nil {
			onLine(line)
		}
		printed = true
	}

	lines, err := reader.Last(max(opts.Lines, 0))
	if err != nil {
		return false, fmt.Errorf("tail logs: %w", err)
	}
	for _, line := range lines {
		emit(line)
	}
	if !opts.Follow {
		return printed, nil
	}
	err = reader.Follow(ctx, emit)
	return printed, err
}

func fileNeedles(f Filters) []string {
	var needles []string
	if c := strings.TrimSpace(f.Component); c != "" {
		needles = append(needles, "["+c+"]")
	}
	if f.JobID > 0 {
		needles = append(needles, "Job #"+strconv.FormatInt(f.JobID, 10))
	}
	return needles
}
