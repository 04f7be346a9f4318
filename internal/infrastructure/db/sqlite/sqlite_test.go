package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ---------------------------------------------------------------------------
// RecordStore
// ---------------------------------------------------------------------------

func TestRecordStore_InsertListOrder(t *testing.T) {
	s := NewRecordStore(openTestDB(t))
	ctx := context.Background()
	path := domain.CollectionPath{UID: "u1", Collection: domain.CollectionClients}
	created := time.Date(2024, 6, 12, 10, 0, 0, 123, time.UTC)

	for _, id := range []string{"z", "a", "m"} {
		doc := &ports.Document{ID: id, Fields: map[string]any{"name": id}, CreatedAt: created, UpdatedAt: created}
		if err := s.Insert(ctx, path, doc); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	docs, err := s.List(ctx, path)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 || docs[0].ID != "z" || docs[1].ID != "a" || docs[2].ID != "m" {
		t.Fatalf("expected arrival order z,a,m, got %+v", docs)
	}
	if !docs[0].CreatedAt.Equal(created) {
		t.Errorf("createdAt not preserved: %v", docs[0].CreatedAt)
	}
	if docs[0].Fields["name"] != "z" {
		t.Errorf("expected name z, got %v", docs[0].Fields["name"])
	}
}

func TestRecordStore_MergeKeepsOtherFields(t *testing.T) {
	s := NewRecordStore(openTestDB(t))
	ctx := context.Background()
	path := domain.CollectionPath{UID: "u1", Collection: domain.CollectionTasks}
	_ = s.Insert(ctx, path, &ports.Document{ID: "t1", Fields: map[string]any{"title": "Write", "status": "To Do"}})

	later := time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)
	if err := s.Merge(ctx, path, "t1", map[string]any{"status": "Done"}, later); err != nil {
		t.Fatalf("merge: %v", err)
	}
	doc, err := s.Find(ctx, path, "t1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if doc.Fields["title"] != "Write" || doc.Fields["status"] != "Done" {
		t.Errorf("unexpected fields after merge: %v", doc.Fields)
	}
	if !doc.UpdatedAt.Equal(later) {
		t.Errorf("expected updatedAt %v, got %v", later, doc.UpdatedAt)
	}
}

func TestRecordStore_MissingRecords(t *testing.T) {
	s := NewRecordStore(openTestDB(t))
	ctx := context.Background()
	path := domain.CollectionPath{UID: "u1", Collection: domain.CollectionGoals}

	if err := s.Merge(ctx, path, "nope", map[string]any{"title": "x"}, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("merge: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Find(ctx, path, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("find: expected ErrNotFound, got %v", err)
	}
	if err := s.Remove(ctx, path, "nope"); err != nil {
		t.Errorf("remove of a missing record must succeed, got %v", err)
	}
}

func TestRecordStore_IsolatesOwners(t *testing.T) {
	s := NewRecordStore(openTestDB(t))
	ctx := context.Background()
	mine := domain.CollectionPath{UID: "u1", Collection: domain.CollectionFinances}
	theirs := domain.CollectionPath{UID: "u2", Collection: domain.CollectionFinances}
	_ = s.Insert(ctx, mine, &ports.Document{ID: "f1", Fields: map[string]any{}})
	_ = s.Insert(ctx, theirs, &ports.Document{ID: "f1", Fields: map[string]any{}})

	if _, err := s.Find(ctx, theirs, "f1"); err != nil {
		t.Fatalf("same id under another owner must be allowed: %v", err)
	}
	if err := s.RemoveOwner(ctx, "u1"); err != nil {
		t.Fatalf("remove owner: %v", err)
	}
	if docs, _ := s.List(ctx, mine); len(docs) != 0 {
		t.Errorf("expected u1 purged, got %d", len(docs))
	}
	if docs, _ := s.List(ctx, theirs); len(docs) != 1 {
		t.Errorf("expected u2 untouched, got %d", len(docs))
	}
}

// ---------------------------------------------------------------------------
// Accounts and profiles
// ---------------------------------------------------------------------------

func TestAccountRepository_EmailUnique(t *testing.T) {
	r := NewAccountRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)

	if err := r.Create(ctx, &domain.Account{UID: "a", Email: "Ada@Example.com", Provider: "password", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := r.Create(ctx, &domain.Account{UID: "b", Email: "ada@example.com", Provider: "password"})
	if !domain.IsAuthKind(err, domain.AuthEmailInUse) {
		t.Fatalf("expected email_in_use, got %v", err)
	}

	got, err := r.FindByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if got.UID != "a" || !got.CreatedAt.Equal(now) {
		t.Errorf("unexpected account: %+v", got)
	}
}

func TestAccountRepository_UpdateAndProvider(t *testing.T) {
	r := NewAccountRepository(openTestDB(t))
	ctx := context.Background()
	_ = r.Create(ctx, &domain.Account{UID: "g1", Email: "g@example.com", Provider: domain.ProviderGoogle, ProviderSubject: "sub-1"})

	a, err := r.FindByProvider(ctx, domain.ProviderGoogle, "sub-1")
	if err != nil {
		t.Fatalf("find by provider: %v", err)
	}
	a.Disabled = true
	a.DisplayName = "Grace"
	if err := r.Update(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := r.FindByUID(ctx, "g1")
	if !got.Disabled || got.DisplayName != "Grace" {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := r.Update(ctx, &domain.Account{UID: "missing", Email: "x@example.com"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.FindByProvider(ctx, domain.ProviderGoogle, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty subject must not match, got %v", err)
	}
}

func TestProfileRepository_PutUpserts(t *testing.T) {
	r := NewProfileRepository(openTestDB(t))
	ctx := context.Background()
	p := &domain.Profile{UID: "u1", Email: "u@example.com", Theme: domain.ThemeLight, IsNewUser: true}
	if err := r.Put(ctx, p); err != nil {
		t.Fatalf("put: %v", err)
	}
	p.Theme = domain.ThemeDark
	p.IsNewUser = false
	if err := r.Put(ctx, p); err != nil {
		t.Fatalf("put again: %v", err)
	}

	got, err := r.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Theme != domain.ThemeDark || got.IsNewUser {
		t.Errorf("unexpected profile: %+v", got)
	}

	_ = r.Delete(ctx, "u1")
	if _, err := r.Get(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
