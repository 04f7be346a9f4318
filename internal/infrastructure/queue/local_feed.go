package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// LocalFeed is an in-process ChangeFeed. Published paths go through a
// Dispatcher and are fanned out to every subscriber of that path.
type LocalFeed struct {
	dispatcher *Dispatcher

	mu   sync.RWMutex
	subs map[string]map[*localSubscription]struct{}
}

// NewLocalFeed creates a feed backed by numWorkers dispatcher workers.
// Call Start before publishing.
func NewLocalFeed(numWorkers int, log zerolog.Logger) *LocalFeed {
	f := &LocalFeed{subs: make(map[string]map[*localSubscription]struct{})}
	f.dispatcher = NewDispatcher(numWorkers, f.fanOut, log)
	return f
}

// Start launches the dispatcher workers. They stop when ctx is cancelled.
func (f *LocalFeed) Start(ctx context.Context) {
	f.dispatcher.Start(ctx)
}

func (f *LocalFeed) Publish(ctx context.Context, path domain.CollectionPath) error {
	return f.dispatcher.Enqueue(ctx, path)
}

func (f *LocalFeed) Subscribe(_ context.Context, path domain.CollectionPath) (ports.Subscription, error) {
	sub := &localSubscription{feed: f, key: path.String(), ch: make(chan struct{}, 1)}

	f.mu.Lock()
	set, ok := f.subs[sub.key]
	if !ok {
		set = make(map[*localSubscription]struct{})
		f.subs[sub.key] = set
	}
	set[sub] = struct{}{}
	f.mu.Unlock()

	return sub, nil
}

func (f *LocalFeed) fanOut(_ context.Context, path domain.CollectionPath) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs[path.String()] {
		sub.notify()
	}
	return nil
}

func (f *LocalFeed) remove(sub *localSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.subs[sub.key]
	delete(set, sub)
	if len(set) == 0 {
		delete(f.subs, sub.key)
	}
}

type localSubscription struct {
	feed *LocalFeed
	key  string
	ch   chan struct{}
	once sync.Once
}

func (s *localSubscription) C() <-chan struct{} { return s.ch }

// notify never blocks; a pending notification already covers this one.
func (s *localSubscription) notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *localSubscription) Close() error {
	s.once.Do(func() { s.feed.remove(s) })
	return nil
}
