package triggers

import (
	"context"
	"errors"
	"testing"

	"github.com/cflux-app/actiond/internal/actions"
	"github.com/cflux-app/actiond/internal/db"
)

// fakeCatalog knows a fixed set of workflow IDs.
type fakeCatalog struct {
	known map[string]bool
}

func (c *fakeCatalog) Exists(ctx context.Context, workflowID string) (bool, error) {
	return c.known[workflowID], nil
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	actionStore := actions.NewStore(database)
	for _, key := range []string{"invoice.paid", "user.login", "order.created"} {
		if _, err := actionStore.Create(context.Background(), actions.Definition{Key: key}); err != nil {
			t.Fatalf("creating action %s: %v", key, err)
		}
	}

	catalog := &fakeCatalog{known: map[string]bool{
		"wf-receipt": true,
		"wf-audit":   true,
		"wf-onboard": true,
	}}
	return NewStore(database, actionStore, catalog)
}

func TestCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Binding{
		WorkflowID: "wf-receipt",
		ActionKey:  "invoice.paid",
		Condition:  &Condition{Field: "amount", Operator: "gt", Value: 100},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ID")
	}
	if created.Timing != TimingAfter {
		t.Errorf("Timing = %q, want default AFTER", created.Timing)
	}
	if created.Priority != 100 {
		t.Errorf("Priority = %d, want default 100", created.Priority)
	}
	if !created.IsActive {
		t.Error("new bindings should be active")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.WorkflowID != "wf-receipt" || got.ActionKey != "invoice.paid" {
		t.Errorf("got %s -> %s, want invoice.paid -> wf-receipt", got.ActionKey, got.WorkflowID)
	}
	if got.Condition == nil || got.Condition.Field != "amount" {
		t.Errorf("Condition = %+v, want amount/gt/100", got.Condition)
	}
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, Binding{WorkflowID: "wf-ghost", ActionKey: "invoice.paid"})
	if !errors.Is(err, ErrUnknownWorkflow) {
		t.Fatalf("expected ErrUnknownWorkflow, got %v", err)
	}

	_, err = store.Create(ctx, Binding{WorkflowID: "wf-receipt", ActionKey: "ghost.key"})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}

	_, err = store.Create(ctx, Binding{
		WorkflowID: "wf-receipt",
		ActionKey:  "invoice.paid",
		Timing:     Timing("DURING"),
	})
	if !errors.Is(err, ErrInvalidTiming) {
		t.Fatalf("expected ErrInvalidTiming, got %v", err)
	}
}

func TestListForDispatchOrdering(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// Insert out of priority order; ties break by creation order.
	ids := make([]string, 0, 4)
	for _, spec := range []struct {
		workflow string
		priority int
	}{
		{"wf-audit", 50},
		{"wf-receipt", 10},
		{"wf-onboard", 50},
		{"wf-receipt", 100},
	} {
		b, err := store.Create(ctx, Binding{
			WorkflowID: spec.workflow,
			ActionKey:  "invoice.paid",
			Priority:   spec.priority,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, b.ID)
	}

	bindings, err := store.ListForDispatch(ctx, "invoice.paid", TimingAfter)
	if err != nil {
		t.Fatalf("ListForDispatch: %v", err)
	}
	if len(bindings) != 4 {
		t.Fatalf("expected 4 bindings, got %d", len(bindings))
	}

	wantOrder := []string{ids[1], ids[0], ids[2], ids[3]}
	for i, want := range wantOrder {
		if bindings[i].ID != want {
			t.Errorf("bindings[%d].ID = %s, want %s (priorities %d)", i, bindings[i].ID, want, bindings[i].Priority)
		}
	}
}

func TestListForDispatchFiltersTimingAndActive(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	after, err := store.Create(ctx, Binding{WorkflowID: "wf-receipt", ActionKey: "invoice.paid"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, Binding{
		WorkflowID: "wf-audit", ActionKey: "invoice.paid", Timing: TimingBefore,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	disabled, err := store.Create(ctx, Binding{WorkflowID: "wf-onboard", ActionKey: "invoice.paid"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.SetActive(ctx, disabled.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	bindings, err := store.ListForDispatch(ctx, "invoice.paid", TimingAfter)
	if err != nil {
		t.Fatalf("ListForDispatch: %v", err)
	}
	if len(bindings) != 1 || bindings[0].ID != after.ID {
		t.Fatalf("expected only the active AFTER binding, got %d bindings", len(bindings))
	}
}

func TestListByWorkflow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, Binding{WorkflowID: "wf-audit", ActionKey: "invoice.paid"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, Binding{WorkflowID: "wf-audit", ActionKey: "user.login"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, Binding{WorkflowID: "wf-receipt", ActionKey: "invoice.paid"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	bindings, err := store.ListByWorkflow(ctx, "wf-audit")
	if err != nil {
		t.Fatalf("ListByWorkflow: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings for wf-audit, got %d", len(bindings))
	}
}

func TestUpdateCondition(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	b, err := store.Create(ctx, Binding{
		WorkflowID: "wf-receipt",
		ActionKey:  "invoice.paid",
		Condition:  &Condition{Field: "amount", Operator: "gt", Value: 100},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Replace the condition.
	got, err := store.Update(ctx, b.ID, Update{
		SetCondition: true,
		Condition:    &Condition{Field: "status", Operator: "eq", Value: "paid"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Condition == nil || got.Condition.Field != "status" {
		t.Errorf("Condition = %+v, want status/eq/paid", got.Condition)
	}

	// Update without SetCondition leaves the condition alone.
	prio := 5
	got, err = store.Update(ctx, b.ID, Update{Priority: &prio})
	if err != nil {
		t.Fatalf("Update priority: %v", err)
	}
	if got.Priority != 5 {
		t.Errorf("Priority = %d, want 5", got.Priority)
	}
	if got.Condition == nil || got.Condition.Field != "status" {
		t.Errorf("priority update touched the condition: %+v", got.Condition)
	}

	// Explicitly clear it.
	got, err = store.Update(ctx, b.ID, Update{SetCondition: true})
	if err != nil {
		t.Fatalf("Update clear: %v", err)
	}
	if got.Condition != nil {
		t.Errorf("Condition = %+v, want nil after clearing", got.Condition)
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	b, err := store.Create(ctx, Binding{WorkflowID: "wf-receipt", ActionKey: "invoice.paid"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
	if _, err := store.GetByID(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSetActiveRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	b, err := store.Create(ctx, Binding{WorkflowID: "wf-receipt", ActionKey: "invoice.paid"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.SetActive(ctx, b.ID, false)
	if err != nil {
		t.Fatalf("SetActive false: %v", err)
	}
	if got.IsActive {
		t.Error("binding still active after disable")
	}

	got, err = store.SetActive(ctx, b.ID, true)
	if err != nil {
		t.Fatalf("SetActive true: %v", err)
	}
	if !got.IsActive {
		t.Error("binding still inactive after enable")
	}
}

func TestMalformedStoredConditionFailsClosed(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	actionStore := actions.NewStore(database)
	if _, err := actionStore.Create(context.Background(), actions.Definition{Key: "invoice.paid"}); err != nil {
		t.Fatalf("creating action: %v", err)
	}
	store := NewStore(database, actionStore, &fakeCatalog{known: map[string]bool{"wf-receipt": true}})

	b, err := store.Create(context.Background(), Binding{WorkflowID: "wf-receipt", ActionKey: "invoice.paid"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Corrupt the stored condition behind the store's back.
	if _, err := database.Exec("UPDATE triggers SET condition = '{broken' WHERE id = ?", b.ID); err != nil {
		t.Fatalf("corrupting condition: %v", err)
	}

	got, err := store.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ConditionMatches(map[string]any{"amount": 1}) {
		t.Error("binding with malformed stored condition must never fire")
	}
}
