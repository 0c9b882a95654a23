package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"meetflow/internal/api"
	"meetflow/internal/queue"
)

func jobLabel(job api.Job) string {
	label := job.Title
	if label == "" {
		label = job.SourceID
	}
	return fmt.Sprintf("#%d %s", job.ID, label)
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return "Unknown"
	}
	return strings.ToUpper(status[:1]) + status[1:]
}

func buildQueueStatusRows(counts map[string]int) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, status := range queue.AllStatuses() {
		count := counts[string(status)]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), strconv.Itoa(count)})
	}
	return rows
}

func buildQueueListRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		detail := job.ResultSummary
		if job.Status == string(queue.StatusFailed) {
			detail = job.Error
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.SourceID,
			job.Title,
			formatStatusLabel(job.Status),
			shortTime(job.CreatedAt),
			oneLine(detail),
		})
	}
	return rows
}

func shortTime(value string) string {
	t := api.ParseTime(value)
	if t.IsZero() {
		return value
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printJob(out io.Writer, job api.Job) {
	fmt.Fprintf(out, "Job %d\n", job.ID)
	fmt.Fprintf(out, "  Source:    %s\n", job.SourceID)
	if job.Title != "" {
		fmt.Fprintf(out, "  Title:     %s\n", job.Title)
	}
	fmt.Fprintf(out, "  Status:    %s\n", formatStatusLabel(job.Status))
	fmt.Fprintf(out, "  Created:   %s\n", shortTime(job.CreatedAt))
	if job.StartedAt != "" {
		fmt.Fprintf(out, "  Started:   %s\n", shortTime(job.StartedAt))
	}
	if job.CompletedAt != "" {
		fmt.Fprintf(out, "  Finished:  %s\n", shortTime(job.CompletedAt))
	}
	if job.DurationMs > 0 {
		fmt.Fprintf(out, "  Duration:  %s\n", (time.Duration(job.DurationMs) * time.Millisecond).Round(time.Second))
	}
	if job.CustomerID != nil {
		fmt.Fprintf(out, "  Customer:  %d\n", *job.CustomerID)
	}
	if job.ResultSummary != "" {
		fmt.Fprintf(out, "  Result:    %s\n", job.ResultSummary)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "  Error:     %s\n", job.Error)
	}
}
