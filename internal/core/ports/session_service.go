package ports

import (
	"context"
	"io"
	"time"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

// SessionResult is returned by every successful sign-in.
type SessionResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Identity  *domain.Identity `json:"user"`
	Profile   *domain.Profile  `json:"profile"`
}

// ProfileUpdate carries the profile fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	DisplayName *string       `json:"displayName,omitempty"`
	PhotoURL    *string       `json:"photoURL,omitempty"`
	Theme       *domain.Theme `json:"theme,omitempty"`
	IsNewUser   *bool         `json:"isNewUser,omitempty"`
}

// SessionService establishes identities and manages account settings.
type SessionService interface {
	SignUp(ctx context.Context, email, password, displayName string) (*SessionResult, error)
	SignIn(ctx context.Context, email, password string) (*SessionResult, error)
	FederatedLoginURL(state string) (string, error)
	SignInWithFederatedProvider(ctx context.Context, code string) (*SessionResult, error)
	// CurrentIdentity returns nil, without error, when the token does not
	// resolve to a live identity.
	CurrentIdentity(ctx context.Context, token string) (*domain.Identity, error)
	SignOut(ctx context.Context, token string) error

	Profile(ctx context.Context, id *domain.Identity) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, id *domain.Identity, u ProfileUpdate) (*domain.Profile, error)
	UpdatePassword(ctx context.Context, id *domain.Identity, newPassword string) error
	UpdateEmail(ctx context.Context, id *domain.Identity, newEmail string) error
	DeleteAccount(ctx context.Context, id *domain.Identity, password string) error
	UploadProfilePhoto(ctx context.Context, id *domain.Identity, filename string, size int64, r io.Reader) (string, error)
}
