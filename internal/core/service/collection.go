package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
	"github.com/freelanceros/freelancer-os/internal/metrics"
	"github.com/freelanceros/freelancer-os/internal/pkg/validate"
)

// Collection is the identity-scoped store for one record kind. Every
// operation takes the acting identity explicitly; a nil identity is
// rejected with domain.ErrNotAuthenticated.
type Collection[T any] struct {
	name      domain.CollectionName
	store     ports.RecordStore
	feed      ports.ChangeFeed
	log       zerolog.Logger
	validate  *validator.Validate
	sanitizer ports.TextSanitizer
	now       func() time.Time
	newID     func() string
	fields    map[string]string

	normalizeRecord func(ctx context.Context, id *domain.Identity, rec *T) error
	normalizePatch  func(p domain.Patch) error
}

// CollectionOption customises a Collection.
type CollectionOption[T any] func(*Collection[T])

func WithValidator[T any](v *validator.Validate) CollectionOption[T] {
	return func(c *Collection[T]) { c.validate = v }
}

func WithSanitizer[T any](s ports.TextSanitizer) CollectionOption[T] {
	return func(c *Collection[T]) { c.sanitizer = s }
}

func WithClock[T any](now func() time.Time) CollectionOption[T] {
	return func(c *Collection[T]) { c.now = now }
}

func WithIDGenerator[T any](fn func() string) CollectionOption[T] {
	return func(c *Collection[T]) { c.newID = fn }
}

// WithRecordNormalizer runs fn on every record before it is added.
func WithRecordNormalizer[T any](fn func(ctx context.Context, id *domain.Identity, rec *T) error) CollectionOption[T] {
	return func(c *Collection[T]) { c.normalizeRecord = fn }
}

// WithPatchNormalizer runs fn on every patch after field checks and before validation.
func WithPatchNormalizer[T any](fn func(p domain.Patch) error) CollectionOption[T] {
	return func(c *Collection[T]) { c.normalizePatch = fn }
}

func NewCollection[T any](name domain.CollectionName, store ports.RecordStore, feed ports.ChangeFeed, log zerolog.Logger, opts ...CollectionOption[T]) *Collection[T] {
	c := &Collection[T]{
		name:     name,
		store:    store,
		feed:     feed,
		log:      log.With().Str("collection", string(name)).Logger(),
		validate: validate.New(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		fields:   jsonFields[T](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection's name.
func (c *Collection[T]) Name() domain.CollectionName {
	return c.name
}

// Snapshot loads every record of the identity's collection in arrival order.
func (c *Collection[T]) Snapshot(ctx context.Context, id *domain.Identity) ([]T, error) {
	if id == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return c.load(ctx, id.Path(c.name))
}

func (c *Collection[T]) load(ctx context.Context, path domain.CollectionPath) ([]T, error) {
	start := time.Now()
	docs, err := c.store.List(ctx, path)
	metrics.SnapshotLoadDuration.WithLabelValues(string(c.name)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := decodeDocument[T](doc)
		if err != nil {
			c.log.Warn().Err(err).Str("uid", path.UID).Str("id", doc.ID).Msg("skipping undecodable record")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Get loads a single record.
func (c *Collection[T]) Get(ctx context.Context, id *domain.Identity, recordID string) (T, error) {
	var zero T
	if id == nil {
		return zero, domain.ErrNotAuthenticated
	}
	doc, err := c.store.Find(ctx, id.Path(c.name), recordID)
	if err != nil {
		return zero, err
	}
	return decodeDocument[T](doc)
}

// Add validates and stores a new record and returns its generated id.
// Any id or timestamps on item are ignored.
func (c *Collection[T]) Add(ctx context.Context, id *domain.Identity, item T) (string, error) {
	const op = "add"
	if id == nil {
		c.count(op, domain.ErrNotAuthenticated)
		return "", domain.ErrNotAuthenticated
	}
	if c.normalizeRecord != nil {
		if err := c.normalizeRecord(ctx, id, &item); err != nil {
			c.count(op, err)
			return "", err
		}
	}

	fields, err := encodeFields(item)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	if c.sanitizer != nil {
		sanitizeValue(c.sanitizer, fields)
	}
	clean, err := decodeInto[T](fields)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	if err := c.validate.Struct(clean); err != nil {
		err = fmt.Errorf("%w: %s", domain.ErrInvalidRecord, validate.Describe(err))
		c.count(op, err)
		return "", err
	}

	now := c.now()
	doc := &ports.Document{ID: c.newID(), Fields: fields, CreatedAt: now, UpdatedAt: now}
	path := id.Path(c.name)
	if err := c.store.Insert(ctx, path, doc); err != nil {
		err = &domain.WriteError{Op: op, Collection: c.name, Err: err}
		c.count(op, err)
		return "", err
	}

	c.count(op, nil)
	c.log.Debug().Str("uid", id.UID).Str("id", doc.ID).Str("op", op).Msg("record added")
	c.publish(ctx, path)
	return doc.ID, nil
}

// UpdateItem merges patch into an existing record. Only the patched fields
// are validated; fields not named in patch are left untouched.
func (c *Collection[T]) UpdateItem(ctx context.Context, id *domain.Identity, recordID string, patch domain.Patch) error {
	const op = "update"
	if id == nil {
		c.count(op, domain.ErrNotAuthenticated)
		return domain.ErrNotAuthenticated
	}

	fields, err := c.preparePatch(patch)
	if err != nil {
		c.count(op, err)
		return err
	}

	path := id.Path(c.name)
	if err := c.store.Merge(ctx, path, recordID, fields, c.now()); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			err = &domain.WriteError{Op: op, Collection: c.name, Err: err}
		}
		c.count(op, err)
		return err
	}

	c.count(op, nil)
	c.log.Debug().Str("uid", id.UID).Str("id", recordID).Str("op", op).Msg("record updated")
	c.publish(ctx, path)
	return nil
}

// preparePatch checks, normalises and validates patch, returning the
// canonical field values to merge.
func (c *Collection[T]) preparePatch(patch domain.Patch) (map[string]any, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: empty patch", domain.ErrInvalidRecord)
	}
	p := make(domain.Patch, len(patch))
	for k, v := range patch {
		if isReserved(k) {
			return nil, fmt.Errorf("%w: %s is managed by the server", domain.ErrInvalidRecord, k)
		}
		if _, ok := c.fields[k]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, k)
		}
		p[k] = v
	}
	if c.sanitizer != nil {
		sanitizeValue(c.sanitizer, p)
	}
	if c.normalizePatch != nil {
		if err := c.normalizePatch(p); err != nil {
			return nil, err
		}
	}

	partial, err := decodeInto[T](p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, c.fields[k])
	}
	sort.Strings(names)
	if err := c.validate.StructPartial(partial, names...); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidRecord, validate.Describe(err))
	}

	canonical, err := encodeFields(partial)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		if cv, ok := canonical[k]; ok {
			out[k] = cv
		} else {
			out[k] = v
		}
	}
	return out, nil
}

// DeleteItem removes a record. Deleting a missing record succeeds.
func (c *Collection[T]) DeleteItem(ctx context.Context, id *domain.Identity, recordID string) error {
	const op = "delete"
	if id == nil {
		c.count(op, domain.ErrNotAuthenticated)
		return domain.ErrNotAuthenticated
	}
	path := id.Path(c.name)
	if err := c.store.Remove(ctx, path, recordID); err != nil {
		err = &domain.WriteError{Op: op, Collection: c.name, Err: err}
		c.count(op, err)
		return err
	}
	c.count(op, nil)
	c.log.Debug().Str("uid", id.UID).Str("id", recordID).Str("op", op).Msg("record deleted")
	c.publish(ctx, path)
	return nil
}

// publish notifies subscribers. The write already succeeded, so a feed
// failure is logged and not returned.
func (c *Collection[T]) publish(ctx context.Context, path domain.CollectionPath) {
	if c.feed == nil {
		return
	}
	if err := c.feed.Publish(ctx, path); err != nil {
		c.log.Warn().Err(err).Str("uid", path.UID).Msg("change notification failed")
	}
}

func (c *Collection[T]) count(op string, err error) {
	metrics.RecordMutationsTotal.WithLabelValues(string(c.name), op, mutationResult(err)).Inc()
}

func mutationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidRecord), errors.Is(err, domain.ErrUnknownField):
		return "invalid"
	default:
		return "error"
	}
}
