package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

const accountColumns = `uid, email, display_name, photo_url, password_hash, provider, provider_subject, disabled, created_at, updated_at`

// AccountRepository stores accounts with a unique lower-cased email.
type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UID, strings.ToLower(a.Email), a.DisplayName, a.PhotoURL, a.PasswordHash,
		a.Provider, a.ProviderSubject, boolInt(a.Disabled), toNanos(a.CreatedAt), toNanos(a.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewAuthError(domain.AuthEmailInUse)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) findOne(ctx context.Context, where string, args ...any) (*domain.Account, error) {
	var (
		a                domain.Account
		disabled         int
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...).Scan(
		&a.UID, &a.Email, &a.DisplayName, &a.PhotoURL, &a.PasswordHash,
		&a.Provider, &a.ProviderSubject, &disabled, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	a.Disabled = disabled != 0
	a.CreatedAt = fromNanos(created)
	a.UpdatedAt = fromNanos(updated)
	return &a, nil
}

func (r *AccountRepository) FindByUID(ctx context.Context, uid string) (*domain.Account, error) {
	return r.findOne(ctx, `uid = ?`, uid)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, `email = ?`, strings.ToLower(email))
}

func (r *AccountRepository) FindByProvider(ctx context.Context, provider, subject string) (*domain.Account, error) {
	if subject == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, `provider = ? AND provider_subject = ?`, provider, subject)
}

func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET email = ?, display_name = ?, photo_url = ?, password_hash = ?, provider = ?,
			provider_subject = ?, disabled = ?, updated_at = ? WHERE uid = ?`,
		strings.ToLower(a.Email), a.DisplayName, a.PhotoURL, a.PasswordHash, a.Provider,
		a.ProviderSubject, boolInt(a.Disabled), toNanos(a.UpdatedAt), a.UID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewAuthError(domain.AuthEmailInUse)
		}
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, uid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// ProfileRepository stores one profile row per identity.
type ProfileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	var (
		p                domain.Profile
		theme            string
		isNew            int
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, email, display_name, photo_url, theme, is_new_user, created_at, updated_at FROM profiles WHERE uid = ?`,
		uid).Scan(&p.UID, &p.Email, &p.DisplayName, &p.PhotoURL, &theme, &isNew, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p.Theme = domain.Theme(theme)
	p.IsNewUser = isNew != 0
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

func (r *ProfileRepository) Put(ctx context.Context, p *domain.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (uid, email, display_name, photo_url, theme, is_new_user, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET email = excluded.email, display_name = excluded.display_name,
			photo_url = excluded.photo_url, theme = excluded.theme, is_new_user = excluded.is_new_user,
			updated_at = excluded.updated_at`,
		p.UID, p.Email, p.DisplayName, p.PhotoURL, string(p.Theme), boolInt(p.IsNewUser),
		toNanos(p.CreatedAt), toNanos(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Delete(ctx context.Context, uid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
