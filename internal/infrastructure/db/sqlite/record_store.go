package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// RecordStore keeps every collection in one table, fields as a JSON blob.
type RecordStore struct {
	db *DB
}

func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Insert(ctx context.Context, path domain.CollectionPath, doc *ports.Document) error {
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path.Record(doc.ID), err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (owner, collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		path.UID, string(path.Collection), doc.ID, string(data), toNanos(doc.CreatedAt), toNanos(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert %s: %w", path.Record(doc.ID), err)
	}
	return nil
}

// Merge reads, patches and writes the JSON blob inside one transaction.
func (s *RecordStore) Merge(ctx context.Context, path domain.CollectionPath, id string, fields map[string]any, updatedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM records WHERE owner = ? AND collection = ? AND id = ?`,
		path.UID, string(path.Collection), id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("read %s: %w", path.Record(id), err)
	}

	current := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		return fmt.Errorf("decode %s: %w", path.Record(id), err)
	}
	for k, v := range fields {
		current[k] = v
	}
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path.Record(id), err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE records SET data = ?, updated_at = ? WHERE owner = ? AND collection = ? AND id = ?`,
		string(data), toNanos(updatedAt), path.UID, string(path.Collection), id)
	if err != nil {
		return fmt.Errorf("update %s: %w", path.Record(id), err)
	}
	return tx.Commit()
}

func (s *RecordStore) Remove(ctx context.Context, path domain.CollectionPath, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE owner = ? AND collection = ? AND id = ?`,
		path.UID, string(path.Collection), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path.Record(id), err)
	}
	return nil
}

func (s *RecordStore) Find(ctx context.Context, path domain.CollectionPath, id string) (*ports.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, data, created_at, updated_at FROM records WHERE owner = ? AND collection = ? AND id = ?`,
		path.UID, string(path.Collection), id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", path.Record(id), err)
	}
	return doc, nil
}

func (s *RecordStore) List(ctx context.Context, path domain.CollectionPath) ([]*ports.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data, created_at, updated_at FROM records WHERE owner = ? AND collection = ? ORDER BY seq`,
		path.UID, string(path.Collection))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer rows.Close()

	var out []*ports.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *RecordStore) RemoveOwner(ctx context.Context, uid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE owner = ?`, uid); err != nil {
		return fmt.Errorf("purge %s: %w", uid, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*ports.Document, error) {
	var (
		id, raw          string
		created, updated int64
	)
	if err := sc.Scan(&id, &raw, &created, &updated); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	return &ports.Document{ID: id, Fields: fields, CreatedAt: fromNanos(created), UpdatedAt: fromNanos(updated)}, nil
}
