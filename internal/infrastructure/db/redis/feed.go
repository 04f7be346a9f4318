package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// Feed is a ChangeFeed over Redis pub/sub, so every server instance sees
// writes made through any other instance.
// Channel format: feed:users/<uid>/<collection>
type Feed struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewFeed(client *redis.Client, log zerolog.Logger) *Feed {
	return &Feed{client: client, log: log}
}

func channel(path domain.CollectionPath) string {
	return "feed:" + path.String()
}

func (f *Feed) Publish(ctx context.Context, path domain.CollectionPath) error {
	if err := f.client.Publish(ctx, channel(path), "changed").Err(); err != nil {
		return fmt.Errorf("publish %s: %w", path, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so a write
// made after Subscribe returns is never missed.
func (f *Feed) Subscribe(ctx context.Context, path domain.CollectionPath) (ports.Subscription, error) {
	ps := f.client.Subscribe(ctx, channel(path))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	sub := &subscription{ps: ps, ch: make(chan struct{}, 1), done: make(chan struct{})}
	go sub.pump(f.log.With().Str("path", path.String()).Logger())
	return sub, nil
}

type subscription struct {
	ps   *redis.PubSub
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *subscription) C() <-chan struct{} { return s.ch }

func (s *subscription) pump(log zerolog.Logger) {
	defer close(s.done)
	for range s.ps.Channel() {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
	log.Debug().Msg("feed subscription ended")
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
		<-s.done
	})
	return err
}
