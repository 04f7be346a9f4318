package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/service"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/db/memory"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/queue"
)

func newClientHandler(t *testing.T) *CollectionHandler[domain.Client] {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	feed := queue.NewLocalFeed(1, zerolog.Nop())
	feed.Start(ctx)
	ws := service.NewWorkspace(memory.NewRecordStore(), feed, zerolog.Nop(), service.WorkspaceOptions{
		Now: func() time.Time { return time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC) },
	})
	return NewCollectionHandler[domain.Client](ws.Clients)
}

var ada = &domain.Identity{UID: "ada", Email: "ada@example.com"}

func callCollection(t *testing.T, fn echo.HandlerFunc, req *http.Request, id *domain.Identity, recordID string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := newTestEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != nil {
		c.Set("identity", id)
	}
	if recordID != "" {
		c.SetParamNames("id")
		c.SetParamValues(recordID)
	}
	return rec, fn(c)
}

const clientBody = `{"name":"Acme Corp","company":"Acme","status":"Active","startDate":"2024-01-10","paymentStatus":"Pending"}`

func TestCollectionHandler_CreateGetListDelete(t *testing.T) {
	h := newClientHandler(t)

	rec, err := callCollection(t, h.Create, jsonRequest(http.MethodPost, "/v1/clients", clientBody), ada, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created createResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID == "" {
		t.Fatal("expected a generated id")
	}

	rec, err = callCollection(t, h.Get, httptest.NewRequest(http.MethodGet, "/", nil), ada, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got domain.Client
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Name != "Acme Corp" || got.ID != created.ID {
		t.Fatalf("unexpected record %+v", got)
	}

	rec, _ = callCollection(t, h.List, httptest.NewRequest(http.MethodGet, "/", nil), ada, "")
	var list listResponse[domain.Client]
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(list.Items))
	}

	for i := 0; i < 2; i++ {
		rec, err = callCollection(t, h.Delete, httptest.NewRequest(http.MethodDelete, "/", nil), ada, created.ID)
		if err != nil || rec.Code != http.StatusNoContent {
			t.Fatalf("delete %d: expected 204, got %d %v", i, rec.Code, err)
		}
	}
}

func TestCollectionHandler_ListIsScopedToIdentity(t *testing.T) {
	h := newClientHandler(t)
	_, _ = callCollection(t, h.Create, jsonRequest(http.MethodPost, "/", clientBody), ada, "")

	rec, _ := callCollection(t, h.List, httptest.NewRequest(http.MethodGet, "/", nil), &domain.Identity{UID: "bob"}, "")
	if body := rec.Body.String(); body != "{\"items\":[]}\n" {
		t.Fatalf("expected an empty list for another identity, got %s", body)
	}
}

func TestCollectionHandler_Update(t *testing.T) {
	h := newClientHandler(t)
	rec, _ := callCollection(t, h.Create, jsonRequest(http.MethodPost, "/", clientBody), ada, "")
	var created createResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	tests := []struct {
		name    string
		id      string
		body    string
		wantErr error
	}{
		{"valid patch", created.ID, `{"status":"Completed"}`, nil},
		{"bad enum", created.ID, `{"status":"Gone"}`, domain.ErrInvalidRecord},
		{"unknown field", created.ID, `{"colour":"red"}`, domain.ErrUnknownField},
		{"reserved field", created.ID, `{"createdAt":"2020-01-01T00:00:00Z"}`, domain.ErrInvalidRecord},
		{"missing record", "nope", `{"status":"Completed"}`, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := callCollection(t, h.Update, jsonRequest(http.MethodPatch, "/", tt.body), ada, tt.id)
			if tt.wantErr == nil {
				if err != nil || rec.Code != http.StatusNoContent {
					t.Fatalf("expected 204, got %d %v", rec.Code, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCollectionHandler_CreateRejectsInvalidRecord(t *testing.T) {
	h := newClientHandler(t)
	_, err := callCollection(t, h.Create, jsonRequest(http.MethodPost, "/", `{"name":""}`), ada, "")
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestCollectionHandler_CreateRejectsUnknownField(t *testing.T) {
	h := newClientHandler(t)
	body := `{"name":"Acme Corp","status":"Active","startDate":"2024-01-10","paymentStatus":"Paid","colour":"red"}`
	_, err := callCollection(t, h.Create, jsonRequest(http.MethodPost, "/", body), ada, "")
	if !errors.Is(err, domain.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if !strings.Contains(err.Error(), "colour") {
		t.Errorf("expected the field name in %q", err.Error())
	}

	items, _ := h.coll.Snapshot(context.Background(), ada)
	if len(items) != 0 {
		t.Fatalf("nothing must be stored, got %d records", len(items))
	}
}

func TestCollectionHandler_RequiresIdentity(t *testing.T) {
	h := newClientHandler(t)
	_, err := callCollection(t, h.List, httptest.NewRequest(http.MethodGet, "/", nil), nil, "")
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
