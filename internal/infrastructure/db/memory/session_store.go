package memory

import (
	"context"
	"sync"
	"time"
)

type failureWindow struct {
	count   int
	expires time.Time
}

// SignInThrottle counts failed sign-ins per key within a sliding expiry.
type SignInThrottle struct {
	mu       sync.Mutex
	now      func() time.Time
	failures map[string]failureWindow
}

func NewSignInThrottle() *SignInThrottle {
	return &SignInThrottle{now: time.Now, failures: make(map[string]failureWindow)}
}

func (t *SignInThrottle) Failures(_ context.Context, key string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.failures[key]
	if !ok || t.now().After(w.expires) {
		delete(t.failures, key)
		return 0, nil
	}
	return w.count, nil
}

// RecordFailure increments the counter. The window starts at the first failure.
func (t *SignInThrottle) RecordFailure(_ context.Context, key string, window time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	w, ok := t.failures[key]
	if !ok || now.After(w.expires) {
		w = failureWindow{expires: now.Add(window)}
	}
	w.count++
	t.failures[key] = w
	return nil
}

func (t *SignInThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, key)
	return nil
}

// TokenRevoker remembers revoked token ids until their expiry.
type TokenRevoker struct {
	mu      sync.Mutex
	now     func() time.Time
	revoked map[string]time.Time
}

func NewTokenRevoker() *TokenRevoker {
	return &TokenRevoker{now: time.Now, revoked: make(map[string]time.Time)}
}

func (r *TokenRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, exp := range r.revoked {
		if now.After(exp) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (r *TokenRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.revoked[tokenID]
	return ok && !r.now().After(exp), nil
}
