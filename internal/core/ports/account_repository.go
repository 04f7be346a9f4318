package ports

import (
	"context"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

// AccountRepository persists identity-provider accounts.
// Lookups return domain.ErrNotFound when nothing matches.
type AccountRepository interface {
	// Create fails with an email_in_use AuthError when the email is taken.
	Create(ctx context.Context, a *domain.Account) error
	FindByUID(ctx context.Context, uid string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByProvider(ctx context.Context, provider, subject string) (*domain.Account, error)
	Update(ctx context.Context, a *domain.Account) error
	Delete(ctx context.Context, uid string) error
}

// ProfileRepository persists the per-identity profile document.
type ProfileRepository interface {
	Get(ctx context.Context, uid string) (*domain.Profile, error)
	Put(ctx context.Context, p *domain.Profile) error
	Delete(ctx context.Context, uid string) error
}
