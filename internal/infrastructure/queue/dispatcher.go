package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// HandlerFunc processes one change notification.
type HandlerFunc func(ctx context.Context, path domain.CollectionPath) error

// Dispatcher routes change notifications to a fixed set of workers using
// consistent hashing on the collection path, guaranteeing per-path ordering.
type Dispatcher struct {
	workers []chan domain.CollectionPath
	handle  HandlerFunc
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handle HandlerFunc, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.CollectionPath, numWorkers),
		handle:  handle,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.CollectionPath, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a notification to the worker responsible for its path.
// It blocks once the worker buffer is full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, path domain.CollectionPath) error {
	idx := d.shardIndex(path.String())
	select {
	case d.workers[idx] <- path:
		metrics.FeedQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a path deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.CollectionPath) {
	depth := metrics.FeedQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			if err := d.handle(ctx, path); err != nil {
				d.log.Error().Err(err).
					Str("path", path.String()).
					Int("worker_id", id).
					Msg("change notification failed")
			}
		}
	}
}
