package service

import (
	"context"
	"sync"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
	"github.com/freelanceros/freelancer-os/internal/metrics"
)

// State is one observation of a live collection.
type State[T any] struct {
	Items     []T
	IsLoading bool
	Err       error
}

// Handle is a live subscription to one identity's collection. It keeps the
// latest snapshot and reloads it on every change notification.
type Handle[T any] struct {
	coll     *Collection[T]
	identity *domain.Identity

	mu    sync.RWMutex
	state State[T]

	updates   chan State[T]
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	tracked   bool
}

// Open starts a live subscription for id. The handle stays loading until the
// first snapshot arrives. A nil identity yields an idle, empty handle.
// The handle stops when ctx is cancelled or Close is called.
func (c *Collection[T]) Open(ctx context.Context, id *domain.Identity) *Handle[T] {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle[T]{
		coll:     c,
		identity: id,
		updates:  make(chan State[T], 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	if id == nil {
		h.state = State[T]{Items: []T{}}
		h.offer(h.state)
		close(h.done)
		return h
	}

	h.state = State[T]{Items: []T{}, IsLoading: true}
	path := id.Path(c.name)

	// Subscribe before the first load so no change can fall between them.
	sub, err := c.feed.Subscribe(ctx, path)
	if err != nil {
		c.log.Error().Err(err).Str("uid", id.UID).Msg("subscribe failed")
		h.state = State[T]{Items: []T{}, Err: err}
		h.offer(h.state)
		close(h.done)
		return h
	}

	h.tracked = true
	metrics.ActiveSubscriptions.WithLabelValues(string(c.name)).Inc()
	go h.run(ctx, path, sub)
	return h
}

func (h *Handle[T]) run(ctx context.Context, path domain.CollectionPath, sub ports.Subscription) {
	defer close(h.done)
	defer sub.Close()

	h.reload(ctx, path)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok {
				return
			}
			h.reload(ctx, path)
		}
	}
}

func (h *Handle[T]) reload(ctx context.Context, path domain.CollectionPath) {
	items, err := h.coll.load(ctx, path)
	if ctx.Err() != nil {
		return
	}

	h.mu.Lock()
	if err != nil {
		h.coll.log.Error().Err(err).Str("uid", path.UID).Msg("snapshot load failed")
		h.state = State[T]{Items: h.state.Items, Err: err}
	} else {
		h.state = State[T]{Items: items}
	}
	next := h.state
	h.mu.Unlock()

	metrics.SnapshotsDeliveredTotal.WithLabelValues(string(h.coll.name)).Inc()
	h.offer(next)
}

// offer publishes s on the updates channel, replacing an unread older state.
func (h *Handle[T]) offer(s State[T]) {
	select {
	case h.updates <- s:
		return
	default:
	}
	select {
	case <-h.updates:
	default:
	}
	select {
	case h.updates <- s:
	default:
	}
}

// State returns the latest snapshot.
func (h *Handle[T]) State() State[T] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Updates delivers each new state. Only the most recent unread state is kept.
// The channel is closed by Close.
func (h *Handle[T]) Updates() <-chan State[T] {
	return h.updates
}

// Identity returns the identity the handle is bound to, possibly nil.
func (h *Handle[T]) Identity() *domain.Identity {
	return h.identity
}

func (h *Handle[T]) Add(ctx context.Context, item T) (string, error) {
	return h.coll.Add(ctx, h.identity, item)
}

func (h *Handle[T]) UpdateItem(ctx context.Context, recordID string, patch domain.Patch) error {
	return h.coll.UpdateItem(ctx, h.identity, recordID, patch)
}

func (h *Handle[T]) DeleteItem(ctx context.Context, recordID string) error {
	return h.coll.DeleteItem(ctx, h.identity, recordID)
}

// Close stops the subscription and waits for its listener to exit.
// It is safe to call more than once.
func (h *Handle[T]) Close() error {
	h.closeOnce.Do(func() {
		h.cancel()
		<-h.done
		close(h.updates)
		if h.tracked {
			metrics.ActiveSubscriptions.WithLabelValues(string(h.coll.name)).Dec()
		}
	})
	return nil
}
