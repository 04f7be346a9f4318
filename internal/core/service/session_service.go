package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
	"github.com/freelanceros/freelancer-os/internal/metrics"
	"github.com/freelanceros/freelancer-os/internal/pkg/validate"
)

const (
	minPasswordLength = 6
	providerPassword  = "password"
	// sniffLen is how much of an upload is inspected to detect its type.
	sniffLen = 3072
)

// Purger removes every record an identity owns.
type Purger interface {
	Purge(ctx context.Context, uid string) error
}

// SessionConfig tunes token lifetime, throttling and upload limits.
type SessionConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	MaxFailures    int
	FailureWindow  time.Duration
	MaxUploadBytes int64
}

// SessionDeps are the collaborators of SessionService. Federated and
// Uploader may be nil when those features are not configured.
type SessionDeps struct {
	Accounts  ports.AccountRepository
	Profiles  ports.ProfileRepository
	Records   Purger
	Throttle  ports.SignInThrottle
	Revoker   ports.TokenRevoker
	Uploader  ports.MediaUploader
	Federated ports.FederatedProvider
}

// SessionService implements sign-up, sign-in, sessions and account settings.
type SessionService struct {
	deps     SessionDeps
	cfg      SessionConfig
	log      zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewSessionService(deps SessionDeps, cfg SessionConfig, log zerolog.Logger) *SessionService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = 15 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	return &SessionService{
		deps:     deps,
		cfg:      cfg,
		log:      log,
		validate: validate.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *SessionService) validEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}

// SignUp creates a password identity with its default profile and signs it in.
func (s *SessionService) SignUp(ctx context.Context, email, password, displayName string) (*ports.SessionResult, error) {
	res, err := s.signUp(ctx, normalizeEmail(email), password, strings.TrimSpace(displayName))
	s.countAuth("signup", err)
	return res, err
}

func (s *SessionService) signUp(ctx context.Context, email, password, displayName string) (*ports.SessionResult, error) {
	if !s.validEmail(email) {
		return nil, domain.NewAuthError(domain.AuthInvalidCredential)
	}
	if len(password) < minPasswordLength {
		return nil, domain.NewAuthError(domain.AuthWeakPassword)
	}
	if _, err := s.deps.Accounts.FindByEmail(ctx, email); err == nil {
		return nil, domain.NewAuthError(domain.AuthEmailInUse)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	now := s.now()
	acct := &domain.Account{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Provider:     providerPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.deps.Accounts.Create(ctx, acct); err != nil {
		return nil, err
	}
	profile := domain.NewProfile(acct, now)
	if err := s.deps.Profiles.Put(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.log.Info().Str("uid", acct.UID).Msg("account created")
	return s.issue(acct, profile)
}

// SignIn authenticates with email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (*ports.SessionResult, error) {
	res, err := s.signIn(ctx, normalizeEmail(email), password)
	s.countAuth("password", err)
	return res, err
}

func (s *SessionService) signIn(ctx context.Context, email, password string) (*ports.SessionResult, error) {
	if email == "" || password == "" {
		return nil, domain.NewAuthError(domain.AuthInvalidCredential)
	}

	failures, err := s.deps.Throttle.Failures(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign-in throttle: %w", err)
	}
	if failures >= s.cfg.MaxFailures {
		return nil, domain.NewAuthError(domain.AuthRateLimited)
	}

	acct, err := s.deps.Accounts.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.recordFailure(ctx, email)
		return nil, domain.NewAuthError(domain.AuthInvalidCredential)
	}
	if err != nil {
		return nil, err
	}
	if acct.Disabled {
		return nil, domain.NewAuthError(domain.AuthDisabled)
	}
	if !acct.HasPassword() || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		s.recordFailure(ctx, email)
		return nil, domain.NewAuthError(domain.AuthInvalidCredential)
	}

	if err := s.deps.Throttle.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Str("uid", acct.UID).Msg("reset sign-in throttle failed")
	}
	profile, err := s.ensureProfile(ctx, acct)
	if err != nil {
		return nil, err
	}
	return s.issue(acct, profile)
}

func (s *SessionService) recordFailure(ctx context.Context, key string) {
	if err := s.deps.Throttle.RecordFailure(ctx, key, s.cfg.FailureWindow); err != nil {
		s.log.Warn().Err(err).Msg("record sign-in failure")
	}
}

// FederatedLoginURL returns the provider consent URL for state.
func (s *SessionService) FederatedLoginURL(state string) (string, error) {
	if s.deps.Federated == nil {
		return "", domain.ErrProviderUnavailable
	}
	return s.deps.Federated.AuthCodeURL(state), nil
}

// SignInWithFederatedProvider completes the provider flow. The identity is
// matched by provider subject, then by email; otherwise a new one is created.
func (s *SessionService) SignInWithFederatedProvider(ctx context.Context, code string) (*ports.SessionResult, error) {
	res, err := s.signInFederated(ctx, code)
	s.countAuth("google", err)
	return res, err
}

func (s *SessionService) signInFederated(ctx context.Context, code string) (*ports.SessionResult, error) {
	if s.deps.Federated == nil {
		return nil, domain.ErrProviderUnavailable
	}
	fp, err := s.deps.Federated.Exchange(ctx, code)
	if err != nil {
		return nil, &domain.AuthError{Kind: domain.AuthInvalidCredential, Err: err}
	}
	email := normalizeEmail(fp.Email)

	acct, err := s.deps.Accounts.FindByProvider(ctx, fp.Provider, fp.Subject)
	if errors.Is(err, domain.ErrNotFound) && email != "" {
		acct, err = s.deps.Accounts.FindByEmail(ctx, email)
		if err == nil {
			acct.Provider = fp.Provider
			acct.ProviderSubject = fp.Subject
			if acct.PhotoURL == "" {
				acct.PhotoURL = fp.PhotoURL
			}
			acct.UpdatedAt = s.now()
			if err := s.deps.Accounts.Update(ctx, acct); err != nil {
				return nil, err
			}
			s.log.Info().Str("uid", acct.UID).Str("provider", fp.Provider).Msg("provider linked")
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		now := s.now()
		acct = &domain.Account{
			UID:             uuid.NewString(),
			Email:           email,
			DisplayName:     fp.DisplayName,
			PhotoURL:        fp.PhotoURL,
			Provider:        fp.Provider,
			ProviderSubject: fp.Subject,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.deps.Accounts.Create(ctx, acct); err != nil {
			return nil, err
		}
		s.log.Info().Str("uid", acct.UID).Str("provider", fp.Provider).Msg("account created")
	} else if err != nil {
		return nil, err
	}

	if acct.Disabled {
		return nil, domain.NewAuthError(domain.AuthDisabled)
	}
	profile, err := s.ensureProfile(ctx, acct)
	if err != nil {
		return nil, err
	}
	return s.issue(acct, profile)
}

// ensureProfile returns the stored profile, creating the default one when absent.
func (s *SessionService) ensureProfile(ctx context.Context, acct *domain.Account) (*domain.Profile, error) {
	p, err := s.deps.Profiles.Get(ctx, acct.UID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	p = domain.NewProfile(acct, s.now())
	if err := s.deps.Profiles.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *SessionService) issue(acct *domain.Account, profile *domain.Profile) (*ports.SessionResult, error) {
	now := s.now()
	exp := now.Add(s.cfg.TokenTTL)
	claims := jwt.MapClaims{
		"uid":   acct.UID,
		"email": acct.Email,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}
	return &ports.SessionResult{Token: signed, ExpiresAt: exp, Identity: acct.Identity(), Profile: profile}, nil
}

// parse validates a token's signature and expiry.
func (s *SessionService) parse(raw string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tkn.Valid {
		return nil, false
	}
	return claims, true
}

// CurrentIdentity resolves a bearer token to its live identity.
func (s *SessionService) CurrentIdentity(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, nil
	}
	claims, ok := s.parse(token)
	if !ok {
		return nil, nil
	}
	uid, _ := claims["uid"].(string)
	jti, _ := claims["jti"].(string)
	if uid == "" || jti == "" {
		return nil, nil
	}

	revoked, err := s.deps.Revoker.IsRevoked(ctx, jti)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil
	}

	acct, err := s.deps.Accounts.FindByUID(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if acct.Disabled {
		return nil, nil
	}
	return acct.Identity(), nil
}

// SignOut revokes the token until it would have expired. Invalid or already
// revoked tokens are accepted.
func (s *SessionService) SignOut(ctx context.Context, token string) error {
	claims, ok := s.parse(token)
	if !ok {
		return nil
	}
	jti, _ := claims["jti"].(string)
	exp, err := claims.GetExpirationTime()
	if jti == "" || err != nil || exp == nil {
		return nil
	}
	ttl := exp.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.deps.Revoker.Revoke(ctx, jti, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	uid, _ := claims["uid"].(string)
	s.log.Info().Str("uid", uid).Msg("signed out")
	return nil
}

// Profile returns the identity's profile, creating the default one when absent.
func (s *SessionService) Profile(ctx context.Context, id *domain.Identity) (*domain.Profile, error) {
	if id == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return s.ensureProfile(ctx, &domain.Account{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
	})
}

// UpdateProfile applies the non-nil fields of u. Display name and photo are
// mirrored onto the account.
func (s *SessionService) UpdateProfile(ctx context.Context, id *domain.Identity, u ports.ProfileUpdate) (*domain.Profile, error) {
	p, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}

	syncAccount := false
	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		if name == "" {
			return nil, fmt.Errorf("%w: displayName is required", domain.ErrInvalidRecord)
		}
		p.DisplayName = name
		syncAccount = true
	}
	if u.PhotoURL != nil {
		if *u.PhotoURL != "" && s.validate.Var(*u.PhotoURL, "url") != nil {
			return nil, fmt.Errorf("%w: photoURL must be a valid URL", domain.ErrInvalidRecord)
		}
		p.PhotoURL = *u.PhotoURL
		syncAccount = true
	}
	if u.Theme != nil {
		if !u.Theme.Valid() {
			return nil, fmt.Errorf("%w: theme must be one of: light dark", domain.ErrInvalidRecord)
		}
		p.Theme = *u.Theme
	}
	if u.IsNewUser != nil {
		p.IsNewUser = *u.IsNewUser
	}
	p.UpdatedAt = s.now()

	if err := s.deps.Profiles.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	if syncAccount {
		acct, err := s.account(ctx, id)
		if err != nil {
			return nil, err
		}
		acct.DisplayName = p.DisplayName
		acct.PhotoURL = p.PhotoURL
		acct.UpdatedAt = p.UpdatedAt
		if err := s.deps.Accounts.Update(ctx, acct); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *SessionService) account(ctx context.Context, id *domain.Identity) (*domain.Account, error) {
	if id == nil {
		return nil, domain.ErrNotAuthenticated
	}
	acct, err := s.deps.Accounts.FindByUID(ctx, id.UID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewAuthError(domain.AuthNotFound)
	}
	return acct, err
}

// UpdatePassword replaces the password of a password identity.
func (s *SessionService) UpdatePassword(ctx context.Context, id *domain.Identity, newPassword string) error {
	acct, err := s.account(ctx, id)
	if err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return domain.NewAuthError(domain.AuthWeakPassword)
	}
	if !acct.HasPassword() {
		return domain.NewAuthError(domain.AuthRequiresRecentLogin)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	acct.PasswordHash = string(hash)
	acct.UpdatedAt = s.now()
	if err := s.deps.Accounts.Update(ctx, acct); err != nil {
		return err
	}
	s.log.Info().Str("uid", acct.UID).Msg("password changed")
	return nil
}

// UpdateEmail changes the sign-in email and mirrors it onto the profile.
func (s *SessionService) UpdateEmail(ctx context.Context, id *domain.Identity, newEmail string) error {
	acct, err := s.account(ctx, id)
	if err != nil {
		return err
	}
	email := normalizeEmail(newEmail)
	if !s.validEmail(email) {
		return domain.NewAuthError(domain.AuthInvalidCredential)
	}
	if !acct.HasPassword() {
		return domain.NewAuthError(domain.AuthRequiresRecentLogin)
	}
	if email == acct.Email {
		return nil
	}
	if _, err := s.deps.Accounts.FindByEmail(ctx, email); err == nil {
		return domain.NewAuthError(domain.AuthEmailInUse)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	acct.Email = email
	acct.UpdatedAt = s.now()
	if err := s.deps.Accounts.Update(ctx, acct); err != nil {
		return err
	}

	p, err := s.ensureProfile(ctx, acct)
	if err != nil {
		return err
	}
	p.Email = email
	p.UpdatedAt = acct.UpdatedAt
	if err := s.deps.Profiles.Put(ctx, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	s.log.Info().Str("uid", acct.UID).Msg("email changed")
	return nil
}

// DeleteAccount re-verifies the password and only then removes every record,
// the profile and the identity, in that order.
func (s *SessionService) DeleteAccount(ctx context.Context, id *domain.Identity, password string) error {
	acct, err := s.account(ctx, id)
	if err != nil {
		return err
	}
	if !acct.HasPassword() {
		return domain.NewAuthError(domain.AuthRequiresRecentLogin)
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return domain.NewAuthError(domain.AuthWrongPassword)
	}

	if err := s.deps.Records.Purge(ctx, acct.UID); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if err := s.deps.Profiles.Delete(ctx, acct.UID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := s.deps.Accounts.Delete(ctx, acct.UID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.log.Info().Str("uid", acct.UID).Msg("account deleted")
	return nil
}

// UploadProfilePhoto checks size and content type before contacting the media
// store, then points the profile and account at the uploaded image.
func (s *SessionService) UploadProfilePhoto(ctx context.Context, id *domain.Identity, filename string, size int64, r io.Reader) (string, error) {
	url, err := s.uploadProfilePhoto(ctx, id, filename, size, r)
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrFileTooLarge):
		result = "too_large"
	case errors.Is(err, domain.ErrNotImage):
		result = "not_image"
	case err != nil:
		result = "error"
	}
	metrics.UploadsTotal.WithLabelValues(result).Inc()
	return url, err
}

func (s *SessionService) uploadProfilePhoto(ctx context.Context, id *domain.Identity, filename string, size int64, r io.Reader) (string, error) {
	if id == nil {
		return "", domain.ErrNotAuthenticated
	}
	if size > s.cfg.MaxUploadBytes {
		return "", &domain.UploadError{Reason: "file too large", Err: domain.ErrFileTooLarge}
	}

	// The declared size may understate the body, so the read stops one byte
	// past the limit to detect an overrun.
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", &domain.UploadError{Reason: "read file", Err: err}
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", &domain.UploadError{Reason: "file too large", Err: domain.ErrFileTooLarge}
	}
	mtype := mimetype.Detect(data[:min(len(data), sniffLen)])
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", &domain.UploadError{Reason: "not an image", Err: domain.ErrNotImage}
	}
	if s.deps.Uploader == nil {
		return "", &domain.UploadError{Reason: "media storage not configured", Err: domain.ErrProviderUnavailable}
	}

	body := bytes.NewReader(data)
	url, err := s.deps.Uploader.Upload(ctx, filename, mtype.String(), body)
	if err != nil {
		return "", &domain.UploadError{Reason: "upload failed", Err: err}
	}

	if _, err := s.UpdateProfile(ctx, id, ports.ProfileUpdate{PhotoURL: &url}); err != nil {
		return "", err
	}
	s.log.Info().Str("uid", id.UID).Str("content_type", mtype.String()).Msg("profile photo updated")
	return url, nil
}

func (s *SessionService) countAuth(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		var ae *domain.AuthError
		if errors.As(err, &ae) {
			result = string(ae.Kind)
		}
	}
	metrics.AuthAttemptsTotal.WithLabelValues(method, result).Inc()
}
