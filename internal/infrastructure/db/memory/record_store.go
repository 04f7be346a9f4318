// Package memory holds process-local implementations of the storage ports.
// Everything is lost on restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

type storedRecord struct {
	seq       uint64
	fields    map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// RecordStore keeps records in maps keyed by collection path.
type RecordStore struct {
	mu    sync.RWMutex
	seq   uint64
	paths map[domain.CollectionPath]map[string]*storedRecord
}

func NewRecordStore() *RecordStore {
	return &RecordStore{paths: make(map[domain.CollectionPath]map[string]*storedRecord)}
}

func (s *RecordStore) Insert(_ context.Context, path domain.CollectionPath, doc *ports.Document) error {
	fields, err := cloneFields(doc.Fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.paths[path]
	if !ok {
		records = make(map[string]*storedRecord)
		s.paths[path] = records
	}
	if _, exists := records[doc.ID]; exists {
		return fmt.Errorf("record %s already exists", path.Record(doc.ID))
	}
	s.seq++
	records[doc.ID] = &storedRecord{seq: s.seq, fields: fields, createdAt: doc.CreatedAt, updatedAt: doc.UpdatedAt}
	return nil
}

func (s *RecordStore) Merge(_ context.Context, path domain.CollectionPath, id string, fields map[string]any, updatedAt time.Time) error {
	patch, err := cloneFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.paths[path][id]
	if !ok {
		return domain.ErrNotFound
	}
	for k, v := range patch {
		rec.fields[k] = v
	}
	rec.updatedAt = updatedAt
	return nil
}

func (s *RecordStore) Remove(_ context.Context, path domain.CollectionPath, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paths[path], id)
	return nil
}

func (s *RecordStore) Find(_ context.Context, path domain.CollectionPath, id string) (*ports.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.paths[path][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.document(id)
}

func (s *RecordStore) List(_ context.Context, path domain.CollectionPath) ([]*ports.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		id  string
		rec *storedRecord
	}
	entries := make([]entry, 0, len(s.paths[path]))
	for id, rec := range s.paths[path] {
		entries = append(entries, entry{id, rec})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rec.seq < entries[j].rec.seq })

	out := make([]*ports.Document, 0, len(entries))
	for _, e := range entries {
		doc, err := e.rec.document(e.id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *RecordStore) RemoveOwner(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.paths {
		if path.UID == uid {
			delete(s.paths, path)
		}
	}
	return nil
}

func (r *storedRecord) document(id string) (*ports.Document, error) {
	fields, err := cloneFields(r.fields)
	if err != nil {
		return nil, err
	}
	return &ports.Document{ID: id, Fields: fields, CreatedAt: r.createdAt, UpdatedAt: r.updatedAt}, nil
}

// cloneFields deep-copies a field map through JSON so callers never share
// nested maps or slices with the store.
func cloneFields(fields map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}
