package records_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"meetflow/internal/records"
	"meetflow/internal/testsupport"
)

func TestUpsertSessionNoteOverwrites(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	date := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)
	first, err := store.UpsertSessionNote(ctx, records.SessionNote{
		SourceID:    "s1",
		CallType:    "technical",
		Title:       "Kickoff",
		Summary:     "first pass",
		SessionDate: &date,
	})
	if err != nil {
		t.Fatalf("UpsertSessionNote failed: %v", err)
	}
	second, err := store.UpsertSessionNote(ctx, records.SessionNote{SourceID: "s1", CallType: "partner", Summary: "second pass"})
	if err != nil {
		t.Fatalf("UpsertSessionNote (update) failed: %v", err)
	}
	if second.ID != first.ID || second.Summary != "second pass" || second.CallType != "partner" {
		t.Fatalf("expected in-place overwrite, got %+v", second)
	}
	if first.SessionDate == nil || !first.SessionDate.Equal(date) {
		t.Fatalf("unexpected session date %v", first.SessionDate)
	}
}

func TestSkippedSessionIsImmutableUntilUnskipped(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	placeholder, err := store.SkipSession(ctx, "s-skip", "Internal standup")
	if err != nil || !placeholder.Skipped {
		t.Fatalf("SkipSession: %+v err=%v", placeholder, err)
	}
	if _, err := store.SkipSession(ctx, "s-skip", ""); err != nil {
		t.Fatalf("expected repeat skip to be a no-op, got %v", err)
	}
	if _, err := store.UpsertSessionNote(ctx, records.SessionNote{SourceID: "s-skip", Summary: "x"}); !errors.Is(err, records.ErrSessionSkipped) {
		t.Fatalf("expected ErrSessionSkipped, got %v", err)
	}

	removed, err := store.UnskipSession(ctx, "s-skip")
	if err != nil || !removed {
		t.Fatalf("UnskipSession: removed=%v err=%v", removed, err)
	}
	if note, _ := store.GetSessionNote(ctx, "s-skip"); note != nil {
		t.Fatalf("expected placeholder deleted, got %+v", note)
	}
	if _, err := store.UpsertSessionNote(ctx, records.SessionNote{SourceID: "s-skip", Summary: "x"}); err != nil {
		t.Fatalf("expected upsert after unskip, got %v", err)
	}
	if _, err := store.SkipSession(ctx, "s-skip", ""); !errors.Is(err, records.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	if removed, _ := store.UnskipSession(ctx, "s-skip"); removed {
		t.Fatal("unskip must not delete a real note")
	}
}
