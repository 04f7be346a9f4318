package ports

import (
	"context"
	"time"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

// Document is a stored record: its id, its JSON-shaped fields and the
// server-stamped timestamps. Fields never contains id, createdAt or updatedAt.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordStore persists the records of every identity's collections.
type RecordStore interface {
	Insert(ctx context.Context, path domain.CollectionPath, doc *Document) error
	// Merge sets the given fields on an existing record and refreshes updatedAt.
	// It returns domain.ErrNotFound when the record does not exist.
	Merge(ctx context.Context, path domain.CollectionPath, id string, fields map[string]any, updatedAt time.Time) error
	// Remove deletes a record. Removing a missing record is not an error.
	Remove(ctx context.Context, path domain.CollectionPath, id string) error
	Find(ctx context.Context, path domain.CollectionPath, id string) (*Document, error)
	// List returns every record under path in arrival order.
	List(ctx context.Context, path domain.CollectionPath) ([]*Document, error)
	// RemoveOwner deletes every record of every collection owned by uid.
	RemoveOwner(ctx context.Context, uid string) error
}

// ChangeFeed notifies subscribers that a collection path changed.
// Notifications carry no payload; subscribers reload the full snapshot.
type ChangeFeed interface {
	Publish(ctx context.Context, path domain.CollectionPath) error
	Subscribe(ctx context.Context, path domain.CollectionPath) (Subscription, error)
}

// Subscription is a live registration on a ChangeFeed.
type Subscription interface {
	// C delivers one value per observed change. Bursts may be coalesced.
	C() <-chan struct{}
	Close() error
}
