package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

// AccountRepository keeps accounts in memory, unique by lower-cased email.
type AccountRepository struct {
	mu      sync.RWMutex
	byUID   map[string]domain.Account
	byEmail map[string]string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byUID:   make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (r *AccountRepository) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(a.Email)
	if _, taken := r.byEmail[key]; taken {
		return domain.NewAuthError(domain.AuthEmailInUse)
	}
	r.byUID[a.UID] = *a
	r.byEmail[key] = a.UID
	return nil
}

func (r *AccountRepository) FindByUID(_ context.Context, uid string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byUID[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a := r.byUID[uid]
	return &a, nil
}

func (r *AccountRepository) FindByProvider(_ context.Context, provider, subject string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byUID {
		if a.Provider == provider && a.ProviderSubject == subject && subject != "" {
			a := a
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AccountRepository) Update(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byUID[a.UID]
	if !ok {
		return domain.ErrNotFound
	}
	oldKey, newKey := strings.ToLower(old.Email), strings.ToLower(a.Email)
	if oldKey != newKey {
		if _, taken := r.byEmail[newKey]; taken {
			return domain.NewAuthError(domain.AuthEmailInUse)
		}
		delete(r.byEmail, oldKey)
		r.byEmail[newKey] = a.UID
	}
	r.byUID[a.UID] = *a
	return nil
}

func (r *AccountRepository) Delete(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byUID[uid]; ok {
		delete(r.byEmail, strings.ToLower(a.Email))
		delete(r.byUID, uid)
	}
	return nil
}

// ProfileRepository keeps profiles in memory.
type ProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{profiles: make(map[string]domain.Profile)}
}

func (r *ProfileRepository) Get(_ context.Context, uid string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *ProfileRepository) Put(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UID] = *p
	return nil
}

func (r *ProfileRepository) Delete(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, uid)
	return nil
}
