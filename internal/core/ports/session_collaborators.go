package ports

import (
	"context"
	"io"
	"time"
)

// SignInThrottle counts failed sign-in attempts per email.
type SignInThrottle interface {
	Failures(ctx context.Context, key string) (int, error)
	RecordFailure(ctx context.Context, key string, window time.Duration) error
	Reset(ctx context.Context, key string) error
}

// TokenRevoker remembers signed-out token ids until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MediaUploader stores an uploaded file and returns its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

// FederatedProfile is what an external identity provider tells us about a user.
type FederatedProfile struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
	PhotoURL    string
}

// FederatedProvider performs the authorization-code flow of an external provider.
type FederatedProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*FederatedProfile, error)
}

// TextSanitizer strips markup from user-supplied free text.
type TextSanitizer interface {
	Sanitize(s string) string
}
