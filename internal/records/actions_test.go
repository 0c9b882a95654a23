package records_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"meetflow/internal/records"
	"meetflow/internal/testsupport"
)

func seedActions(t *testing.T, store *records.Store) (*records.Customer, *records.SessionNote, []*records.ActionItem) {
	t.Helper()
	ctx := context.Background()
	c, err := store.CreateCustomer(ctx, "Acme", false)
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}
	note, err := store.UpsertSessionNote(ctx, records.SessionNote{SourceID: "s-act", CustomerID: &c.ID, Title: "Design review"})
	if err != nil {
		t.Fatalf("UpsertSessionNote failed: %v", err)
	}
	items, err := store.ReplaceActionItems(ctx, note, c.ID, []records.NewActionItem{
		{Owner: "Dana", Text: "share runbook"},
		{Owner: "", Text: "   "},
		{Owner: "Lee", Text: "size the cluster"},
	})
	if err != nil {
		t.Fatalf("ReplaceActionItems failed: %v", err)
	}
	return c, note, items
}

func TestReplaceActionItemsReplacesAll(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c, note, items := seedActions(t, store)
	if len(items) != 2 || items[0].Text != "share runbook" || items[1].Owner != "Lee" {
		t.Fatalf("unexpected seeded items: %+v", items)
	}
	if items[0].SessionTitle != "Design review" {
		t.Fatalf("expected session title copied, got %q", items[0].SessionTitle)
	}

	replaced, err := store.ReplaceActionItems(ctx, note, c.ID, []records.NewActionItem{{Owner: "Dana", Text: "ship it"}})
	if err != nil {
		t.Fatalf("ReplaceActionItems failed: %v", err)
	}
	if len(replaced) != 1 {
		t.Fatalf("expected 1 item after replace, got %d", len(replaced))
	}
	all, _ := store.ListActionItems(ctx, c.ID, true)
	if len(all) != 1 || all[0].Text != "ship it" {
		t.Fatalf("expected previous items gone, got %+v", all)
	}
}

func TestToggleActionItemTwiceRestoresState(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()
	_, _, items := seedActions(t, store)
	id := items[0].ID

	done, err := store.ToggleActionItem(ctx, id)
	if err != nil {
		t.Fatalf("ToggleActionItem failed: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Fatalf("expected completed with timestamp, got %+v", done)
	}
	reopened, err := store.ToggleActionItem(ctx, id)
	if err != nil {
		t.Fatalf("ToggleActionItem failed: %v", err)
	}
	if reopened.Completed || reopened.CompletedAt != nil {
		t.Fatalf("expected reopened without timestamp, got %+v", reopened)
	}
	if _, err := store.ToggleActionItem(ctx, 9999); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActionItemsFiltersCompleted(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()
	c, _, items := seedActions(t, store)
	_, _ = store.ToggleActionItem(ctx, items[1].ID)

	open, _ := store.ListActionItems(ctx, c.ID, false)
	if len(open) != 1 || open[0].ID != items[0].ID {
		t.Fatalf("unexpected open items: %+v", open)
	}
	all, _ := store.ListActionItems(ctx, c.ID, true)
	if len(all) != 2 || all[1].ID != items[1].ID {
		t.Fatalf("expected completed items last, got %+v", all)
	}
	dana, _ := store.ListOpenActionItems(ctx, "dana")
	if len(dana) != 1 || dana[0].Owner != "Dana" {
		t.Fatalf("expected owner filter to ignore case, got %+v", dana)
	}
}

func TestMoveActionItemKeepsSessionNote(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()
	_, note, items := seedActions(t, store)
	other, _ := store.CreateCustomer(ctx, "Globex", false)

	if err := store.MoveActionItem(ctx, items[0].ID, other.ID); err != nil {
		t.Fatalf("MoveActionItem failed: %v", err)
	}
	moved, _ := store.GetActionItem(ctx, items[0].ID)
	if moved.CustomerID != other.ID || moved.SessionNoteID == nil || *moved.SessionNoteID != note.ID {
		t.Fatalf("unexpected moved item: %+v", moved)
	}
	if err := store.MoveActionItem(ctx, items[0].ID, 5555); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing customer, got %v", err)
	}
}

func TestEditActionItem(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()
	_, _, items := seedActions(t, store)

	owner := "Sam"
	text := "share the updated runbook"
	date := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	edited, err := store.EditActionItem(ctx, items[0].ID, records.ActionItemEdit{Owner: &owner, Text: &text, SessionDate: &date})
	if err != nil {
		t.Fatalf("EditActionItem failed: %v", err)
	}
	if edited.Owner != "Sam" || edited.Text != text || edited.SessionDate == nil || !edited.SessionDate.Equal(date) {
		t.Fatalf("unexpected edited item: %+v", edited)
	}

	blank := " "
	if _, err := store.EditActionItem(ctx, items[0].ID, records.ActionItemEdit{Text: &blank}); err == nil {
		t.Fatal("expected error for empty text")
	}
	if _, err := store.EditActionItem(ctx, 9999, records.ActionItemEdit{Owner: &owner}); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
