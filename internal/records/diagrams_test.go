package records_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"meetflow/internal/records"
	"meetflow/internal/testsupport"
)

func TestGetOrCreateDiagramIsIdempotent(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c, _ := store.CreateCustomer(ctx, "Acme", false)
	first, err := store.GetOrCreateDiagram(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetOrCreateDiagram failed: %v", err)
	}
	second, err := store.GetOrCreateDiagram(ctx, c.ID)
	if err != nil || second.ID != first.ID {
		t.Fatalf("expected same diagram, got %+v err=%v", second, err)
	}
	if _, err := store.GetOrCreateDiagram(ctx, 424242); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing customer, got %v", err)
	}
}

func TestAppendVersionNumbersAreContiguous(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c, _ := store.CreateCustomer(ctx, "Acme", false)
	d, _ := store.GetOrCreateDiagram(ctx, c.ID)

	const appends = 8
	var wg sync.WaitGroup
	errs := make(chan error, appends)
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AppendVersion(ctx, d.ID, "graph TD; A-->B", ""); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AppendVersion failed: %v", err)
	}

	versions, err := store.ListVersions(ctx, d.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != appends {
		t.Fatalf("expected %d versions, got %d", appends, len(versions))
	}
	for i, v := range versions {
		if v.Version != i+1 {
			t.Fatalf("expected version %d, got %d", i+1, v.Version)
		}
	}

	latest, _ := store.LatestVersion(ctx, d.ID)
	if latest == nil || latest.Version != appends {
		t.Fatalf("unexpected latest version: %+v", latest)
	}
	if _, err := store.AppendVersion(ctx, 9999, "graph TD; A", ""); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing diagram, got %v", err)
	}
}

func TestSetVersionImage(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c, _ := store.CreateCustomer(ctx, "Acme", false)
	d, _ := store.GetOrCreateDiagram(ctx, c.ID)
	v, _ := store.AppendVersion(ctx, d.ID, "graph TD; A-->B", "initial")
	if v.HasImage() || v.Notes != "initial" {
		t.Fatalf("unexpected new version: %+v", v)
	}

	if err := store.SetVersionImage(ctx, v.ID, "/tmp/diagram-1-v1.png"); err != nil {
		t.Fatalf("SetVersionImage failed: %v", err)
	}
	updated, _ := store.GetVersion(ctx, v.ID)
	if updated.ImagePath != "/tmp/diagram-1-v1.png" {
		t.Fatalf("unexpected image path %q", updated.ImagePath)
	}
	if err := store.SetVersionImage(ctx, 777, "x"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDiagramPreservesActionItems(t *testing.T) {
	store := testsupport.MustOpenRecords(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c, _ := store.CreateCustomer(ctx, "Acme", false)
	d, _ := store.GetOrCreateDiagram(ctx, c.ID)
	_, _ = store.AppendVersion(ctx, d.ID, "graph TD; A-->B", "")
	note, _ := store.UpsertSessionNote(ctx, records.SessionNote{SourceID: "s1", CustomerID: &c.ID})
	_, err := store.ReplaceActionItems(ctx, note, c.ID, []records.NewActionItem{
		{Owner: "Dana", Text: "share runbook"},
		{Owner: "Lee", Text: "size the cluster"},
	})
	if err != nil {
		t.Fatalf("ReplaceActionItems failed: %v", err)
	}

	if err := store.DeleteDiagram(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDiagram failed: %v", err)
	}
	if gone, _ := store.DiagramForCustomer(ctx, c.ID); gone != nil {
		t.Fatal("expected diagram to be gone")
	}
	versions, _ := store.ListVersions(ctx, d.ID)
	if len(versions) != 0 {
		t.Fatalf("expected versions to be removed with the diagram, got %d", len(versions))
	}
	items, err := store.ListActionItems(ctx, c.ID, true)
	if err != nil || len(items) != 2 {
		t.Fatalf("expected both action items to survive, got %d err=%v", len(items), err)
	}
	if err := store.DeleteDiagram(ctx, d.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	again, _ := store.GetOrCreateDiagram(ctx, c.ID)
	v, _ := store.AppendVersion(ctx, again.ID, "graph TD; X", "")
	if v.Version != 1 {
		t.Fatalf("expected a fresh diagram to restart at version 1, got %d", v.Version)
	}
}
