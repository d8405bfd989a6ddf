package execlog

import (
	"context"
	"testing"
	"time"

	"github.com/cflux-app/actiond/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestInsertAndList(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, Entry{
		ActionKey:           "invoice.paid",
		UserID:              "u-1",
		Context:             map[string]any{"amount": 120.5, "entityType": "invoice"},
		Success:             true,
		TriggeredWorkflows:  []string{"inst-1", "inst-2"},
		ExecutionTimeMillis: 42,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if inserted.ID == "" {
		t.Error("expected generated ID")
	}

	page, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 || len(page.Entries) != 1 {
		t.Fatalf("page = %d entries / total %d, want 1/1", len(page.Entries), page.Total)
	}

	got := page.Entries[0]
	if got.ActionKey != "invoice.paid" {
		t.Errorf("ActionKey = %q", got.ActionKey)
	}
	if got.UserID != "u-1" {
		t.Errorf("UserID = %q", got.UserID)
	}
	if got.Context["amount"] != 120.5 {
		t.Errorf("Context = %v, want amount 120.5", got.Context)
	}
	if len(got.TriggeredWorkflows) != 2 || got.TriggeredWorkflows[0] != "inst-1" {
		t.Errorf("TriggeredWorkflows = %v", got.TriggeredWorkflows)
	}
	if got.ExecutionTimeMillis != 42 {
		t.Errorf("ExecutionTimeMillis = %d, want 42", got.ExecutionTimeMillis)
	}
}

func TestInsertFailedRequiresErrorMessage(t *testing.T) {
	store := setupStore(t)

	_, err := store.Insert(context.Background(), Entry{
		ActionKey: "invoice.paid",
		Success:   false,
	})
	if err == nil {
		t.Fatal("expected error for failed entry without message")
	}
}

func TestInsertDefaultsTriggeredWorkflows(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, Entry{ActionKey: "user.login", Success: true}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	page, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Entries[0].TriggeredWorkflows == nil {
		t.Error("TriggeredWorkflows should round-trip as an empty slice, not nil")
	}
	if len(page.Entries[0].TriggeredWorkflows) != 0 {
		t.Errorf("TriggeredWorkflows = %v, want empty", page.Entries[0].TriggeredWorkflows)
	}
}

func seedEntries(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()

	entries := []Entry{
		{ActionKey: "invoice.paid", UserID: "alice", Success: true, ExecutionTimeMillis: 10},
		{ActionKey: "invoice.paid", UserID: "bob", Success: false, ErrorMessage: "workflow unreachable", ExecutionTimeMillis: 30},
		{ActionKey: "user.login", UserID: "alice", Success: true, ExecutionTimeMillis: 20},
		{ActionKey: "user.login", UserID: "alice", Success: true, ExecutionTimeMillis: 40},
	}
	for i, e := range entries {
		if _, err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
}

func TestListFilters(t *testing.T) {
	store := setupStore(t)
	seedEntries(t, store)
	ctx := context.Background()

	page, err := store.List(ctx, ListFilter{ActionKey: "invoice.paid"})
	if err != nil {
		t.Fatalf("List by action: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("invoice.paid total = %d, want 2", page.Total)
	}

	page, err = store.List(ctx, ListFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("List by user: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("alice total = %d, want 3", page.Total)
	}

	failed := false
	page, err = store.List(ctx, ListFilter{Success: &failed})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Total != 1 || page.Entries[0].ErrorMessage != "workflow unreachable" {
		t.Errorf("failed page = %+v, want the one failed entry", page)
	}

	page, err = store.List(ctx, ListFilter{ActionKey: "user.login", UserID: "alice"})
	if err != nil {
		t.Fatalf("List combined: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("combined total = %d, want 2", page.Total)
	}
}

func TestListPagination(t *testing.T) {
	store := setupStore(t)
	seedEntries(t, store)
	ctx := context.Background()

	page, err := store.List(ctx, ListFilter{Limit: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 4 {
		t.Errorf("Total = %d, want 4", page.Total)
	}
	if len(page.Entries) != 3 {
		t.Errorf("entries = %d, want 3", len(page.Entries))
	}

	page, err = store.List(ctx, ListFilter{Limit: 3, Offset: 3})
	if err != nil {
		t.Fatalf("List second page: %v", err)
	}
	if len(page.Entries) != 1 {
		t.Errorf("second page entries = %d, want 1", len(page.Entries))
	}
	if page.Total != 4 {
		t.Errorf("second page Total = %d, want 4", page.Total)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, key := range []string{"first", "second", "third"} {
		if _, err := store.Insert(ctx, Entry{ActionKey: key, Success: true}); err != nil {
			t.Fatalf("Insert %s: %v", key, err)
		}
	}

	page, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"third", "second", "first"}
	for i, key := range want {
		if page.Entries[i].ActionKey != key {
			t.Errorf("entries[%d] = %q, want %q", i, page.Entries[i].ActionKey, key)
		}
	}
}

func TestStatistics(t *testing.T) {
	store := setupStore(t)
	seedEntries(t, store)
	ctx := context.Background()

	stats, err := store.Statistics(ctx, "")
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Total != 4 || stats.Successful != 3 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 4/3/1", stats)
	}
	if stats.SuccessRate != 75 {
		t.Errorf("SuccessRate = %v, want 75", stats.SuccessRate)
	}
	if stats.AvgExecutionTimeMil != 25 {
		t.Errorf("AvgExecutionTimeMil = %v, want 25", stats.AvgExecutionTimeMil)
	}

	stats, err = store.Statistics(ctx, "invoice.paid")
	if err != nil {
		t.Fatalf("Statistics per key: %v", err)
	}
	if stats.Total != 2 || stats.Successful != 1 || stats.Failed != 1 {
		t.Errorf("per-key stats = %+v, want 2/1/1", stats)
	}
	if stats.SuccessRate != 50 {
		t.Errorf("per-key SuccessRate = %v, want 50", stats.SuccessRate)
	}
}

func TestStatisticsEmpty(t *testing.T) {
	store := setupStore(t)

	stats, err := store.Statistics(context.Background(), "")
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Total != 0 || stats.SuccessRate != 0 || stats.AvgExecutionTimeMil != 0 {
		t.Errorf("empty stats = %+v, want all zero", stats)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.Insert(ctx, Entry{ActionKey: "user.login", Success: true}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Backdate one entry past the cutoff.
	old, err := store.Insert(ctx, Entry{ActionKey: "user.logout", Success: true})
	if err != nil {
		t.Fatalf("Insert old: %v", err)
	}
	backdated := time.Now().UTC().AddDate(0, 0, -120).Format(time.DateTime)
	if _, err := store.db.Exec("UPDATE action_logs SET created_at = ? WHERE id = ?", backdated, old.ID); err != nil {
		t.Fatalf("backdating entry: %v", err)
	}

	deleted, err := store.DeleteBefore(ctx, time.Now().UTC().AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	page, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 || page.Entries[0].ActionKey != "user.login" {
		t.Errorf("remaining = %+v, want just user.login", page.Entries)
	}
}
