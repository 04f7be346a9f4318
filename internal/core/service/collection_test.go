package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/db/memory"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/queue"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var testNow = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

func newTestWorkspace(t *testing.T, opts WorkspaceOptions) (*Workspace, *memory.RecordStore) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := memory.NewRecordStore()
	feed := queue.NewLocalFeed(2, zerolog.Nop())
	feed.Start(ctx)

	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	if opts.NewID == nil {
		var n atomic.Int64
		opts.NewID = func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
	}
	return NewWorkspace(store, feed, zerolog.Nop(), opts), store
}

func alice() *domain.Identity { return &domain.Identity{UID: "alice", Email: "alice@example.com"} }
func bob() *domain.Identity   { return &domain.Identity{UID: "bob", Email: "bob@example.com"} }

func validClient(name string) domain.Client {
	return domain.Client{
		Name:          name,
		Company:       "Acme",
		Status:        domain.ClientActive,
		StartDate:     "2024-01-01",
		PaymentStatus: domain.PaymentPending,
	}
}

// waitFor reads states from h until pred holds or the deadline passes.
func waitFor[T any](t *testing.T, h *Handle[T], pred func(State[T]) bool) State[T] {
	t.Helper()
	if s := h.State(); pred(s) {
		return s
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-h.Updates():
			if !ok {
				t.Fatal("updates channel closed")
			}
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out; last state: %+v", h.State())
		}
	}
}

type failingStore struct{ ports.RecordStore }

func (failingStore) Insert(context.Context, domain.CollectionPath, *ports.Document) error {
	return errors.New("network down")
}

func (failingStore) List(context.Context, domain.CollectionPath) ([]*ports.Document, error) {
	return nil, errors.New("network down")
}

type tagStripper struct{}

func (tagStripper) Sanitize(s string) string {
	return strings.NewReplacer("<b>", "", "</b>", "").Replace(s)
}

// ---------------------------------------------------------------------------
// Add / Snapshot
// ---------------------------------------------------------------------------

func TestCollection_AddStampsServerFields(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()

	in := validClient("Jane")
	in.ID = "client-chosen"
	id, err := ws.Clients.Add(ctx, alice(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "id-1" {
		t.Errorf("expected generated id id-1, got %q", id)
	}

	got, err := ws.Clients.Get(ctx, alice(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != id || got.Name != "Jane" || got.Company != "Acme" {
		t.Errorf("unexpected stored record: %+v", got)
	}
	if !got.CreatedAt.Equal(testNow) || !got.UpdatedAt.Equal(testNow) {
		t.Errorf("timestamps not stamped: %v / %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestCollection_SnapshotInArrivalOrder(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()

	for _, name := range []string{"Zed", "Amy", "Max"} {
		if _, err := ws.Clients.Add(ctx, alice(), validClient(name)); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	items, err := ws.Clients.Snapshot(ctx, alice())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(items) != 3 || items[0].Name != "Zed" || items[1].Name != "Amy" || items[2].Name != "Max" {
		t.Errorf("expected arrival order Zed, Amy, Max; got %+v", items)
	}
}

func TestCollection_AddRejectsInvalidRecord(t *testing.T) {
	ws, store := newTestWorkspace(t, WorkspaceOptions{})
	in := validClient("")
	in.Status = "Unknown"

	_, err := ws.Clients.Add(context.Background(), alice(), in)
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("expected field message in %q", err)
	}
	if docs, _ := store.List(context.Background(), alice().Path(domain.CollectionClients)); len(docs) != 0 {
		t.Errorf("invalid record must not be stored, found %d", len(docs))
	}
}

func TestCollection_AddSanitizesText(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{Sanitizer: tagStripper{}})
	ctx := context.Background()

	in := validClient("<b>Jane</b>")
	in.Notes = "<b>vip</b>"
	id, err := ws.Clients.Add(ctx, alice(), in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got, _ := ws.Clients.Get(ctx, alice(), id)
	if got.Name != "Jane" || got.Notes != "vip" {
		t.Errorf("expected sanitized text, got %q / %q", got.Name, got.Notes)
	}
}

func TestCollection_WriteFailureIsWriteError(t *testing.T) {
	coll := NewCollection[domain.Client](domain.CollectionClients, failingStore{}, queue.NewLocalFeed(1, zerolog.Nop()), zerolog.Nop())
	_, err := coll.Add(context.Background(), alice(), validClient("Jane"))
	if !errors.Is(err, domain.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	var we *domain.WriteError
	if !errors.As(err, &we) || we.Op != "add" || we.Collection != domain.CollectionClients {
		t.Errorf("unexpected write error: %#v", err)
	}
}

// ---------------------------------------------------------------------------
// Unauthenticated access
// ---------------------------------------------------------------------------

func TestCollection_NilIdentity(t *testing.T) {
	ws, store := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()

	if _, err := ws.Tasks.Add(ctx, nil, domain.Task{}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("add: expected ErrNotAuthenticated, got %v", err)
	}
	if err := ws.Tasks.UpdateItem(ctx, nil, "x", domain.Patch{"name": "y"}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("update: expected ErrNotAuthenticated, got %v", err)
	}
	if err := ws.Tasks.DeleteItem(ctx, nil, "x"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("delete: expected ErrNotAuthenticated, got %v", err)
	}

	h := ws.Tasks.Open(ctx, nil)
	defer h.Close()
	s := h.State()
	if s.IsLoading || len(s.Items) != 0 || s.Items == nil || s.Err != nil {
		t.Errorf("expected idle empty state, got %+v", s)
	}
	if docs, _ := store.List(ctx, domain.CollectionPath{Collection: domain.CollectionTasks}); len(docs) != 0 {
		t.Errorf("nil identity must not write, found %d", len(docs))
	}
}

// ---------------------------------------------------------------------------
// UpdateItem
// ---------------------------------------------------------------------------

func TestCollection_UpdateMergesOnlyPatchedFields(t *testing.T) {
	later := testNow.Add(time.Hour)
	clock := testNow
	ws, _ := newTestWorkspace(t, WorkspaceOptions{Now: func() time.Time { return clock }})
	ctx := context.Background()

	id, _ := ws.Clients.Add(ctx, alice(), validClient("Jane"))
	clock = later
	if err := ws.Clients.UpdateItem(ctx, alice(), id, domain.Patch{"status": "Completed"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := ws.Clients.Get(ctx, alice(), id)
	if got.Status != domain.ClientCompleted {
		t.Errorf("expected status Completed, got %q", got.Status)
	}
	if got.Name != "Jane" || got.Company != "Acme" {
		t.Errorf("unpatched fields changed: %+v", got)
	}
	if !got.CreatedAt.Equal(testNow) || !got.UpdatedAt.Equal(later) {
		t.Errorf("expected createdAt kept and updatedAt refreshed, got %v / %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestCollection_UpdateErrors(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()
	id, _ := ws.Goals.Add(ctx, alice(), domain.Goal{
		Name: "Ship", Category: domain.GoalWork, Progress: 10, TargetDate: "2024-12-31", Status: domain.GoalActive,
	})

	cases := []struct {
		name  string
		id    string
		patch domain.Patch
		want  error
	}{
		{"unknown field", id, domain.Patch{"colour": "red"}, domain.ErrUnknownField},
		{"reserved field", id, domain.Patch{"createdAt": "2020-01-01T00:00:00Z"}, domain.ErrInvalidRecord},
		{"out of range", id, domain.Patch{"progress": 150}, domain.ErrInvalidRecord},
		{"bad enum", id, domain.Patch{"status": "Dormant"}, domain.ErrInvalidRecord},
		{"wrong type", id, domain.Patch{"progress": "half"}, domain.ErrInvalidRecord},
		{"empty patch", id, domain.Patch{}, domain.ErrInvalidRecord},
		{"missing record", "nope", domain.Patch{"progress": 20}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		err := ws.Goals.UpdateItem(ctx, alice(), tc.id, tc.patch)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	got, _ := ws.Goals.Get(ctx, alice(), id)
	if got.Progress != 10 || got.Status != domain.GoalActive {
		t.Errorf("rejected patches must not change the record: %+v", got)
	}
}

func TestCollection_UpdateDoesNotCreate(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()
	err := ws.Tasks.UpdateItem(ctx, alice(), "ghost", domain.Patch{"name": "boo"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := ws.Tasks.Get(ctx, alice(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update must not create a record, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// DeleteItem / isolation
// ---------------------------------------------------------------------------

func TestCollection_DeleteIsIdempotent(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()
	id, _ := ws.Clients.Add(ctx, alice(), validClient("Jane"))

	if err := ws.Clients.DeleteItem(ctx, alice(), id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := ws.Clients.DeleteItem(ctx, alice(), id); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if items, _ := ws.Clients.Snapshot(ctx, alice()); len(items) != 0 {
		t.Errorf("expected empty collection, got %d", len(items))
	}
}

func TestCollection_IdentitiesAreIsolated(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()
	id, _ := ws.Clients.Add(ctx, alice(), validClient("Jane"))

	if items, _ := ws.Clients.Snapshot(ctx, bob()); len(items) != 0 {
		t.Errorf("bob must not see alice's clients, got %d", len(items))
	}
	if err := ws.Clients.UpdateItem(ctx, bob(), id, domain.Patch{"name": "hijack"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("bob must not update alice's record, got %v", err)
	}
	if err := ws.Clients.DeleteItem(ctx, bob(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ws.Clients.Get(ctx, alice(), id); err != nil {
		t.Errorf("alice's record must survive bob's delete: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Live handles
// ---------------------------------------------------------------------------

func TestHandle_ReflectsMutations(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()
	if _, err := ws.Clients.Add(ctx, alice(), validClient("Existing")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := ws.Clients.Open(ctx, alice())
	defer h.Close()
	if h.Identity().UID != "alice" {
		t.Fatalf("handle bound to wrong identity")
	}

	s := waitFor(t, h, func(s State[domain.Client]) bool { return !s.IsLoading })
	if len(s.Items) != 1 {
		t.Fatalf("expected initial snapshot of 1, got %d", len(s.Items))
	}

	id, err := h.Add(ctx, validClient("New"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	waitFor(t, h, func(s State[domain.Client]) bool { return len(s.Items) == 2 })

	if err := h.UpdateItem(ctx, id, domain.Patch{"name": "Renamed"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	waitFor(t, h, func(s State[domain.Client]) bool {
		return len(s.Items) == 2 && s.Items[1].Name == "Renamed"
	})

	if err := h.DeleteItem(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	waitFor(t, h, func(s State[domain.Client]) bool { return len(s.Items) == 1 })
}

func TestHandle_IgnoresOtherIdentities(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()

	h := ws.Clients.Open(ctx, alice())
	defer h.Close()
	waitFor(t, h, func(s State[domain.Client]) bool { return !s.IsLoading })

	if _, err := ws.Clients.Add(ctx, bob(), validClient("Bob's")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ws.Clients.Add(ctx, alice(), validClient("Alice's")); err != nil {
		t.Fatalf("add: %v", err)
	}
	s := waitFor(t, h, func(s State[domain.Client]) bool { return len(s.Items) > 0 })
	if len(s.Items) != 1 || s.Items[0].Name != "Alice's" {
		t.Errorf("expected only alice's client, got %+v", s.Items)
	}
}

func TestHandle_LoadFailureSurfacesInState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := queue.NewLocalFeed(1, zerolog.Nop())
	feed.Start(ctx)
	coll := NewCollection[domain.Client](domain.CollectionClients, failingStore{}, feed, zerolog.Nop())

	h := coll.Open(ctx, alice())
	defer h.Close()
	s := waitFor(t, h, func(s State[domain.Client]) bool { return !s.IsLoading })
	if s.Err == nil {
		t.Fatal("expected load error in state")
	}
}

func TestHandle_CloseIsIdempotentAndClosesUpdates(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	h := ws.Clients.Open(context.Background(), alice())
	waitFor(t, h, func(s State[domain.Client]) bool { return !s.IsLoading })

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	for range h.Updates() {
		// drain any state buffered before close
	}
}

// ---------------------------------------------------------------------------
// Invoices and purge
// ---------------------------------------------------------------------------

func sampleInvoice() domain.Invoice {
	return domain.Invoice{
		ClientID: "c1",
		Date:     "2024-06-12",
		DueDate:  "2024-07-12",
		Status:   domain.InvoiceDraft,
		Total:    9999,
		Items: []domain.InvoiceItem{
			{Description: "Design", Quantity: 2, Rate: 100},
			{Description: "Hosting", Quantity: 1, Rate: 50},
		},
	}
}

func TestInvoices_AddDerivesTotalsAndNumber(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()

	id, err := ws.Invoices.Add(ctx, alice(), sampleInvoice())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got, _ := ws.Invoices.Get(ctx, alice(), id)
	if got.Total != 250 {
		t.Errorf("expected total 250, got %v", got.Total)
	}
	if got.Items[0].Amount != 200 || got.Items[0].ID == "" {
		t.Errorf("unexpected first item: %+v", got.Items[0])
	}
	if got.InvoiceNumber != "INV-20240612-0001" {
		t.Errorf("unexpected invoice number %q", got.InvoiceNumber)
	}

	id2, _ := ws.Invoices.Add(ctx, alice(), sampleInvoice())
	got2, _ := ws.Invoices.Get(ctx, alice(), id2)
	if got2.InvoiceNumber != "INV-20240612-0002" {
		t.Errorf("unexpected second invoice number %q", got2.InvoiceNumber)
	}
}

func TestInvoices_NumberNotReusedAfterDelete(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()

	first, _ := ws.Invoices.Add(ctx, alice(), sampleInvoice())
	if _, err := ws.Invoices.Add(ctx, alice(), sampleInvoice()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ws.Invoices.DeleteItem(ctx, alice(), first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ws.Invoices.Add(ctx, alice(), sampleInvoice()); err != nil {
		t.Fatalf("add: %v", err)
	}

	items, err := ws.Invoices.Snapshot(ctx, alice())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	seen := make(map[string]bool, len(items))
	for _, inv := range items {
		if seen[inv.InvoiceNumber] {
			t.Fatalf("invoice number %q issued twice", inv.InvoiceNumber)
		}
		seen[inv.InvoiceNumber] = true
	}
	if !seen["INV-20240612-0003"] {
		t.Errorf("expected INV-20240612-0003 after the delete, got %v", seen)
	}
}

func TestInvoices_PatchItemsRecomputesTotal(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()
	id, _ := ws.Invoices.Add(ctx, alice(), sampleInvoice())

	patch := domain.Patch{"items": []any{
		map[string]any{"description": "Design", "quantity": 3, "rate": 100},
		map[string]any{"description": "Hosting", "quantity": 1, "rate": 50},
	}}
	if err := ws.Invoices.UpdateItem(ctx, alice(), id, patch); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := ws.Invoices.Get(ctx, alice(), id)
	if got.Items[0].Amount != 300 || got.Total != 350 {
		t.Errorf("expected 300/350, got %v/%v", got.Items[0].Amount, got.Total)
	}
	if got.Status != domain.InvoiceDraft {
		t.Errorf("status must be untouched, got %q", got.Status)
	}
}

func TestInvoices_PatchRejectsBareTotalAndBadItems(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()
	id, _ := ws.Invoices.Add(ctx, alice(), sampleInvoice())

	if err := ws.Invoices.UpdateItem(ctx, alice(), id, domain.Patch{"total": 1}); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("bare total: expected ErrInvalidRecord, got %v", err)
	}
	bad := domain.Patch{"items": []any{map[string]any{"quantity": 1, "rate": 5}}}
	if err := ws.Invoices.UpdateItem(ctx, alice(), id, bad); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("item without description: expected ErrInvalidRecord, got %v", err)
	}
	if err := ws.Invoices.UpdateItem(ctx, alice(), id, domain.Patch{"items": []any{}}); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("empty items: expected ErrInvalidRecord, got %v", err)
	}
}

func TestWorkspace_PurgeRemovesEveryCollection(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	ctx := context.Background()
	_, _ = ws.Clients.Add(ctx, alice(), validClient("Jane"))
	_, _ = ws.Invoices.Add(ctx, alice(), sampleInvoice())
	_, _ = ws.Clients.Add(ctx, bob(), validClient("Bob"))

	if err := ws.Purge(ctx, "alice"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if items, _ := ws.Clients.Snapshot(ctx, alice()); len(items) != 0 {
		t.Errorf("expected alice's clients purged, got %d", len(items))
	}
	if items, _ := ws.Invoices.Snapshot(ctx, alice()); len(items) != 0 {
		t.Errorf("expected alice's invoices purged, got %d", len(items))
	}
	if items, _ := ws.Clients.Snapshot(ctx, bob()); len(items) != 1 {
		t.Errorf("bob's clients must survive, got %d", len(items))
	}
}
