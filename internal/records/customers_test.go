package records_test

import (
	"context"
	"errors"
	"testing"

	"meetflow/internal/records"
	"meetflow/internal/testsupport"
)

func TestFindKnownCustomerPrefersExactThenShortestSubstring(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	long, _ := store.CreateCustomer(ctx, "Acme Corporation", false)
	short, _ := store.CreateCustomer(ctx, "Acme Corp", false)
	if _, err := store.CreateCustomer(ctx, "Acme", true); err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}

	found, err := store.FindKnownCustomer(ctx, "Acme")
	if err != nil {
		t.Fatalf("FindKnownCustomer failed: %v", err)
	}
	if found == nil || found.ID != short.ID {
		t.Fatalf("expected shortest known match %d, got %+v", short.ID, found)
	}

	exact, _ := store.FindKnownCustomer(ctx, "Acme Corporation")
	if exact == nil || exact.ID != long.ID {
		t.Fatalf("expected exact match %d, got %+v", long.ID, exact)
	}

	if none, _ := store.FindKnownCustomer(ctx, "acme"); none != nil {
		t.Fatalf("expected case-sensitive lookup to miss, got %+v", none)
	}
}

func TestUnknownCustomersAreNeverMatched(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a, _ := store.CreateCustomer(ctx, "Unknown Customer", true)
	b, _ := store.CreateCustomer(ctx, "Unknown Customer", true)
	if a.ID == b.ID {
		t.Fatal("expected distinct unknown customers")
	}
	if found, _ := store.FindKnownCustomer(ctx, "Unknown Customer"); found != nil {
		t.Fatalf("unknown customers must not match, got %+v", found)
	}
	if _, err := store.CreateCustomer(ctx, "  ", false); !errors.Is(err, records.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestRenamePromotesUnknownCustomer(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c, _ := store.CreateCustomer(ctx, "Unknown Customer", true)
	if err := store.RenameCustomer(ctx, c.ID, "Globex"); err != nil {
		t.Fatalf("RenameCustomer failed: %v", err)
	}
	renamed, _ := store.GetCustomer(ctx, c.ID)
	if renamed.Name != "Globex" || renamed.IsUnknown {
		t.Fatalf("unexpected renamed customer: %+v", renamed)
	}
	if err := store.RenameCustomer(ctx, 999, "x"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	results, err := store.SearchCustomers(ctx, "glob")
	if err != nil || len(results) != 1 {
		t.Fatalf("expected case-insensitive search hit, got %+v err=%v", results, err)
	}
}

func TestMergeCustomersKeepsVersionsContiguous(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	target, _ := store.CreateCustomer(ctx, "Initech", false)
	source, _ := store.CreateCustomer(ctx, "Unknown Customer", true)

	targetDiagram, _ := store.GetOrCreateDiagram(ctx, target.ID)
	sourceDiagram, _ := store.GetOrCreateDiagram(ctx, source.ID)
	for i := 0; i < 2; i++ {
		if _, err := store.AppendVersion(ctx, targetDiagram.ID, "graph TD; A-->B", ""); err != nil {
			t.Fatalf("AppendVersion failed: %v", err)
		}
	}
	for _, src := range []string{"graph TD; S1-->S2", "graph TD; S2-->S3"} {
		if _, err := store.AppendVersion(ctx, sourceDiagram.ID, src, ""); err != nil {
			t.Fatalf("AppendVersion failed: %v", err)
		}
	}
	note, _ := store.UpsertSessionNote(ctx, records.SessionNote{SourceID: "s-merge", CustomerID: &source.ID})
	if _, err := store.ReplaceActionItems(ctx, note, source.ID, []records.NewActionItem{{Owner: "Dana", Text: "send quote"}}); err != nil {
		t.Fatalf("ReplaceActionItems failed: %v", err)
	}

	if err := store.MergeCustomers(ctx, source.ID, target.ID); err != nil {
		t.Fatalf("MergeCustomers failed: %v", err)
	}

	versions, err := store.ListVersions(ctx, targetDiagram.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 4 {
		t.Fatalf("expected 4 versions after merge, got %d", len(versions))
	}
	for i, v := range versions {
		if v.Version != i+1 {
			t.Fatalf("expected contiguous versions, got %d at %d", v.Version, i)
		}
	}
	if versions[2].Source != "graph TD; S1-->S2" {
		t.Fatalf("expected merged versions to keep order, got %q", versions[2].Source)
	}

	items, _ := store.ListActionItems(ctx, target.ID, true)
	if len(items) != 1 || items[0].SessionNoteID == nil || *items[0].SessionNoteID != note.ID {
		t.Fatalf("expected moved action item to keep its note, got %+v", items)
	}
	movedNote, _ := store.GetSessionNote(ctx, "s-merge")
	if movedNote.CustomerID == nil || *movedNote.CustomerID != target.ID {
		t.Fatalf("expected note moved to target, got %+v", movedNote.CustomerID)
	}
	if gone, _ := store.GetCustomer(ctx, source.ID); gone != nil {
		t.Fatal("expected source customer to be deleted")
	}
	if err := store.MergeCustomers(ctx, target.ID, target.ID); !errors.Is(err, records.ErrSameCustomer) {
		t.Fatalf("expected ErrSameCustomer, got %v", err)
	}
}

func TestMergeMovesDiagramWhenTargetHasNone(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	target, _ := store.CreateCustomer(ctx, "Hooli", false)
	source, _ := store.CreateCustomer(ctx, "Hooli XYZ", false)
	d, _ := store.GetOrCreateDiagram(ctx, source.ID)
	_, _ = store.AppendVersion(ctx, d.ID, "mindmap\n  root", "")

	if err := store.MergeCustomers(ctx, source.ID, target.ID); err != nil {
		t.Fatalf("MergeCustomers failed: %v", err)
	}
	moved, _ := store.DiagramForCustomer(ctx, target.ID)
	if moved == nil || moved.ID != d.ID {
		t.Fatalf("expected diagram %d to move, got %+v", d.ID, moved)
	}
}

func TestDeleteCustomerCascadesButKeepsNotes(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c, _ := store.CreateCustomer(ctx, "Umbrella", false)
	d, _ := store.GetOrCreateDiagram(ctx, c.ID)
	_, _ = store.AppendVersion(ctx, d.ID, "graph TD; A-->B", "")
	note, _ := store.UpsertSessionNote(ctx, records.SessionNote{SourceID: "s-del", CustomerID: &c.ID})
	items, _ := store.ReplaceActionItems(ctx, note, c.ID, []records.NewActionItem{{Text: "follow up"}})

	if err := store.DeleteCustomer(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCustomer failed: %v", err)
	}
	if gone, _ := store.GetDiagram(ctx, d.ID); gone != nil {
		t.Fatal("expected diagram to cascade")
	}
	if gone, _ := store.GetActionItem(ctx, items[0].ID); gone != nil {
		t.Fatal("expected action items to cascade")
	}
	kept, _ := store.GetSessionNote(ctx, "s-del")
	if kept == nil || kept.CustomerID != nil {
		t.Fatalf("expected detached note to remain, got %+v", kept)
	}

	summaries, err := store.ListCustomerSummaries(ctx)
	if err != nil || len(summaries) != 0 {
		t.Fatalf("expected no customers, got %+v err=%v", summaries, err)
	}
}
