package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrNotFound            = errors.New("not found")
	ErrInvalidRecord       = errors.New("invalid record")
	ErrUnknownField        = errors.New("unknown field")
	ErrProviderUnavailable = errors.New("sign-in provider not configured")

	ErrAuth   = errors.New("authentication failed")
	ErrWrite  = errors.New("write failed")
	ErrUpload = errors.New("upload failed")

	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
	ErrNotImage     = errors.New("file is not an image")
)

// AuthErrorKind subdivides credential and identity failures.
type AuthErrorKind string

const (
	AuthNotFound            AuthErrorKind = "not_found"
	AuthWrongPassword       AuthErrorKind = "wrong_password"
	AuthInvalidCredential   AuthErrorKind = "invalid_credential"
	AuthDisabled            AuthErrorKind = "disabled"
	AuthRateLimited         AuthErrorKind = "rate_limited"
	AuthWeakPassword        AuthErrorKind = "weak_password"
	AuthEmailInUse          AuthErrorKind = "email_in_use"
	AuthRequiresRecentLogin AuthErrorKind = "requires_recent_login"
)

var authMessages = map[AuthErrorKind]string{
	AuthNotFound:            "account not found",
	AuthWrongPassword:       "incorrect password",
	AuthInvalidCredential:   "invalid email or password",
	AuthDisabled:            "account has been disabled",
	AuthRateLimited:         "too many failed attempts, please try again later",
	AuthWeakPassword:        "password should be at least 6 characters",
	AuthEmailInUse:          "email address is already in use",
	AuthRequiresRecentLogin: "please sign in again before retrying this operation",
}

// AuthError is returned by the session provider for credential failures.
// errors.Is(err, ErrAuth) matches every kind.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

// NewAuthError builds an AuthError of the given kind.
func NewAuthError(kind AuthErrorKind) *AuthError {
	return &AuthError{Kind: kind}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message(), e.Err)
	}
	return e.Message()
}

// Message is the human-readable notice for the kind.
func (e *AuthError) Message() string {
	if msg, ok := authMessages[e.Kind]; ok {
		return msg
	}
	return ErrAuth.Error()
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }
func (e *AuthError) Unwrap() error        { return e.Err }

// IsAuthKind reports whether err carries an AuthError of the given kind.
func IsAuthKind(err error, kind AuthErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

// WriteError wraps a transport or remote failure on add, update or delete.
type WriteError struct {
	Op         string
	Collection CollectionName
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Is(target error) bool { return target == ErrWrite }
func (e *WriteError) Unwrap() error        { return e.Err }

// UploadError wraps a media collaborator failure or a rejected file.
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload: %s: %v", e.Reason, e.Err)
	}
	return "upload: " + e.Reason
}

func (e *UploadError) Is(target error) bool { return target == ErrUpload }
func (e *UploadError) Unwrap() error        { return e.Err }
