package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
	"github.com/freelanceros/freelancer-os/internal/pkg/validate"
)

// WorkspaceOptions carries the collaborators shared by every collection.
// Zero values fall back to defaults.
type WorkspaceOptions struct {
	Validate  *validator.Validate
	Sanitizer ports.TextSanitizer
	Now       func() time.Time
	NewID     func() string
}

// Workspace groups the seven collections of the application.
type Workspace struct {
	Clients   *Collection[domain.Client]
	Projects  *Collection[domain.Project]
	Tasks     *Collection[domain.Task]
	Finances  *Collection[domain.Finance]
	Goals     *Collection[domain.Goal]
	Resources *Collection[domain.Resource]
	Invoices  *Collection[domain.Invoice]

	store    ports.RecordStore
	feed     ports.ChangeFeed
	log      zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewWorkspace(store ports.RecordStore, feed ports.ChangeFeed, log zerolog.Logger, opts WorkspaceOptions) *Workspace {
	if opts.Validate == nil {
		opts.Validate = validate.New()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	w := &Workspace{store: store, feed: feed, log: log, validate: opts.Validate, now: opts.Now}
	w.Clients = newCollection[domain.Client](w, domain.CollectionClients, opts)
	w.Projects = newCollection[domain.Project](w, domain.CollectionProjects, opts)
	w.Tasks = newCollection[domain.Task](w, domain.CollectionTasks, opts)
	w.Finances = newCollection[domain.Finance](w, domain.CollectionFinances, opts)
	w.Goals = newCollection[domain.Goal](w, domain.CollectionGoals, opts)
	w.Resources = newCollection[domain.Resource](w, domain.CollectionResources, opts)
	w.Invoices = newCollection[domain.Invoice](w, domain.CollectionInvoices, opts,
		WithRecordNormalizer(w.normalizeInvoice),
		WithPatchNormalizer[domain.Invoice](w.normalizeInvoicePatch),
	)
	return w
}

func newCollection[T any](w *Workspace, name domain.CollectionName, opts WorkspaceOptions, extra ...CollectionOption[T]) *Collection[T] {
	all := []CollectionOption[T]{
		WithValidator[T](opts.Validate),
		WithClock[T](opts.Now),
		WithIDGenerator[T](opts.NewID),
	}
	if opts.Sanitizer != nil {
		all = append(all, WithSanitizer[T](opts.Sanitizer))
	}
	return NewCollection(name, w.store, w.feed, w.log, append(all, extra...)...)
}

// normalizeInvoice recomputes amounts and total and fills in a missing number.
func (w *Workspace) normalizeInvoice(ctx context.Context, id *domain.Identity, inv *domain.Invoice) error {
	inv.Recalculate()
	if inv.InvoiceNumber != "" {
		return nil
	}
	existing, err := w.Invoices.Snapshot(ctx, id)
	if err != nil {
		return fmt.Errorf("number invoice: %w", err)
	}
	inv.InvoiceNumber = domain.NextInvoiceNumber(existing, w.now())
	return nil
}

// normalizeInvoicePatch keeps amounts and total derived from items. A total
// may only change together with the items it is derived from.
func (w *Workspace) normalizeInvoicePatch(p domain.Patch) error {
	raw, ok := p["items"]
	if !ok {
		if _, ok := p["total"]; ok {
			return fmt.Errorf("%w: total is derived from items", domain.ErrInvalidRecord)
		}
		return nil
	}

	var items []domain.InvoiceItem
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: items: %v", domain.ErrInvalidRecord, err)
	}
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("%w: items: %v", domain.ErrInvalidRecord, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: items must contain at least one entry", domain.ErrInvalidRecord)
	}
	for i := range items {
		if err := w.validate.Struct(items[i]); err != nil {
			return fmt.Errorf("%w: items[%d]: %s", domain.ErrInvalidRecord, i, validate.Describe(err))
		}
	}

	items, total := domain.RecalculateItems(items)
	p["items"] = items
	p["total"] = total
	return nil
}

// Paths lists the collection paths owned by uid.
func (w *Workspace) Paths(uid string) []domain.CollectionPath {
	out := make([]domain.CollectionPath, 0, len(domain.Collections))
	for _, name := range domain.Collections {
		out = append(out, domain.CollectionPath{UID: uid, Collection: name})
	}
	return out
}

// Purge deletes every record of every collection owned by uid and notifies
// live subscribers.
func (w *Workspace) Purge(ctx context.Context, uid string) error {
	if err := w.store.RemoveOwner(ctx, uid); err != nil {
		return &domain.WriteError{Op: "purge", Err: err}
	}
	for _, path := range w.Paths(uid) {
		if err := w.feed.Publish(ctx, path); err != nil {
			w.log.Warn().Err(err).Str("uid", uid).Str("collection", string(path.Collection)).Msg("change notification failed")
		}
	}
	w.log.Info().Str("uid", uid).Msg("workspace purged")
	return nil
}
