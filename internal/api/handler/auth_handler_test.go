package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/freelanceros/freelancer-os/internal/api/middleware"
	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stub session service
// ---------------------------------------------------------------------------

type stubSessionService struct {
	signUpFn    func(ctx context.Context, email, password, displayName string) (*ports.SessionResult, error)
	signInFn    func(ctx context.Context, email, password string) (*ports.SessionResult, error)
	loginURLFn  func(state string) (string, error)
	federatedFn func(ctx context.Context, code string) (*ports.SessionResult, error)
	signOutFn   func(ctx context.Context, token string) error
	uploadFn    func(ctx context.Context, id *domain.Identity, filename string, size int64, r io.Reader) (string, error)
	deleteFn    func(ctx context.Context, id *domain.Identity, password string) error
	passwordFn  func(ctx context.Context, id *domain.Identity, newPassword string) error

	signedOut []string
}

func (s *stubSessionService) SignUp(ctx context.Context, email, password, displayName string) (*ports.SessionResult, error) {
	return s.signUpFn(ctx, email, password, displayName)
}

func (s *stubSessionService) SignIn(ctx context.Context, email, password string) (*ports.SessionResult, error) {
	return s.signInFn(ctx, email, password)
}

func (s *stubSessionService) FederatedLoginURL(state string) (string, error) {
	return s.loginURLFn(state)
}

func (s *stubSessionService) SignInWithFederatedProvider(ctx context.Context, code string) (*ports.SessionResult, error) {
	return s.federatedFn(ctx, code)
}

func (s *stubSessionService) CurrentIdentity(context.Context, string) (*domain.Identity, error) {
	return nil, nil
}

func (s *stubSessionService) SignOut(ctx context.Context, token string) error {
	s.signedOut = append(s.signedOut, token)
	if s.signOutFn != nil {
		return s.signOutFn(ctx, token)
	}
	return nil
}

func (s *stubSessionService) Profile(_ context.Context, id *domain.Identity) (*domain.Profile, error) {
	return &domain.Profile{UID: id.UID, Email: id.Email, Theme: domain.ThemeLight}, nil
}

func (s *stubSessionService) UpdateProfile(_ context.Context, id *domain.Identity, u ports.ProfileUpdate) (*domain.Profile, error) {
	p := &domain.Profile{UID: id.UID, Theme: domain.ThemeLight}
	if u.Theme != nil {
		p.Theme = *u.Theme
	}
	return p, nil
}

func (s *stubSessionService) UpdatePassword(ctx context.Context, id *domain.Identity, newPassword string) error {
	if s.passwordFn != nil {
		return s.passwordFn(ctx, id, newPassword)
	}
	return nil
}

func (s *stubSessionService) UpdateEmail(context.Context, *domain.Identity, string) error {
	return nil
}

func (s *stubSessionService) DeleteAccount(ctx context.Context, id *domain.Identity, password string) error {
	return s.deleteFn(ctx, id, password)
}

func (s *stubSessionService) UploadProfilePhoto(ctx context.Context, id *domain.Identity, filename string, size int64, r io.Reader) (string, error) {
	return s.uploadFn(ctx, id, filename, size, r)
}

func sessionFor(email string) *ports.SessionResult {
	return &ports.SessionResult{
		Token:     "tok-1",
		ExpiresAt: time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC),
		Identity:  &domain.Identity{UID: "u1", Email: email},
		Profile:   &domain.Profile{UID: "u1", Email: email, Theme: domain.ThemeLight, IsNewUser: true},
	}
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// ---------------------------------------------------------------------------
// Sign up / sign in
// ---------------------------------------------------------------------------

func TestAuthHandler_SignUp_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubSessionService{
		signUpFn: func(ctx context.Context, email, password, displayName string) (*ports.SessionResult, error) {
			if email != "ada@example.com" || password != "secret1" || displayName != "Ada" {
				t.Fatalf("unexpected args: %s %s %s", email, password, displayName)
			}
			return sessionFor(email), nil
		},
	}
	handler := NewAuthHandler(stub, false)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signup", `{"email":"ada@example.com","password":"secret1","displayName":"Ada"}`), rec)
	if err := handler.SignUp(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "tok-1" {
		t.Fatalf("expected token in response, got %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["uid"] != "u1" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
}

func TestAuthHandler_SignUp_InvalidEmail(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubSessionService{}, false)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signup", `{"email":"not-an-email","password":"secret1"}`), httptest.NewRecorder())
	err := handler.SignUp(c)
	if err == nil || !strings.Contains(err.Error(), "email must be a valid email") {
		t.Fatalf("expected validation error naming email, got %v", err)
	}
}

func TestAuthHandler_SignIn_PropagatesAuthError(t *testing.T) {
	e := newTestEcho()
	stub := &stubSessionService{
		signInFn: func(ctx context.Context, email, password string) (*ports.SessionResult, error) {
			return nil, domain.NewAuthError(domain.AuthInvalidCredential)
		},
	}
	handler := NewAuthHandler(stub, false)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signin", `{"email":"a@b.c","password":"nope"}`), httptest.NewRecorder())
	err := handler.SignIn(c)
	if !domain.IsAuthKind(err, domain.AuthInvalidCredential) {
		t.Fatalf("expected invalid_credential, got %v", err)
	}
}

func TestAuthHandler_SignIn_BadPayload(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubSessionService{}, false)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/signin", `{"email":`), httptest.NewRecorder())
	err := handler.SignIn(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Google sign-in
// ---------------------------------------------------------------------------

func TestAuthHandler_GoogleLogin_SetsStateCookie(t *testing.T) {
	e := newTestEcho()
	stub := &stubSessionService{
		loginURLFn: func(state string) (string, error) {
			return "https://accounts.example.com/auth?state=" + url.QueryEscape(state), nil
		},
	}
	handler := NewAuthHandler(stub, true)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/google", nil), rec)
	if err := handler.GoogleLogin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != stateCookie || !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	loc, _ := url.Parse(rec.Header().Get(echo.HeaderLocation))
	if loc.Query().Get("state") != cookies[0].Value {
		t.Fatalf("redirect state %q does not match cookie %q", loc.Query().Get("state"), cookies[0].Value)
	}
}

func TestAuthHandler_GoogleLogin_NotConfigured(t *testing.T) {
	e := newTestEcho()
	stub := &stubSessionService{
		loginURLFn: func(string) (string, error) { return "", domain.ErrProviderUnavailable },
	}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/google", nil), httptest.NewRecorder())
	if err := NewAuthHandler(stub, false).GoogleLogin(c); err != domain.ErrProviderUnavailable {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestAuthHandler_GoogleCallback(t *testing.T) {
	stub := &stubSessionService{
		federatedFn: func(ctx context.Context, code string) (*ports.SessionResult, error) {
			if code != "abc" {
				t.Fatalf("unexpected code %q", code)
			}
			return sessionFor("gina@example.com"), nil
		},
	}
	handler := NewAuthHandler(stub, false)

	tests := []struct {
		name   string
		query  string
		cookie string
		want   int
	}{
		{"matching state", "?code=abc&state=s1", "s1", http.StatusOK},
		{"state mismatch", "?code=abc&state=s2", "s1", http.StatusBadRequest},
		{"missing cookie", "?code=abc&state=s1", "", http.StatusBadRequest},
		{"provider error", "?error=access_denied&state=s1", "s1", http.StatusBadRequest},
		{"missing code", "?state=s1", "s1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			req := httptest.NewRequest(http.MethodGet, "/auth/google/callback"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if err := handler.GoogleCallback(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Sign out
// ---------------------------------------------------------------------------

func TestAuthHandler_SignOut(t *testing.T) {
	e := newTestEcho()
	stub := &stubSessionService{}
	handler := NewAuthHandler(stub, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req.Header.Set("Authorization", "Bearer tok-9")
	rec := httptest.NewRecorder()
	if err := handler.SignOut(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	if err := handler.SignOut(e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/signout", nil), rec)); err != nil {
		t.Fatalf("signing out without a token must succeed: %v", err)
	}
	if len(stub.signedOut) != 1 || stub.signedOut[0] != "tok-9" {
		t.Fatalf("unexpected revocations: %v", stub.signedOut)
	}
}

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

func withIdentity(c echo.Context, id *domain.Identity, token string) echo.Context {
	c.Set(middleware.IdentityKey, id)
	c.Set(middleware.TokenKey, token)
	return c
}

func TestAccountHandler_RequiresIdentity(t *testing.T) {
	e := newTestEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/account", nil), httptest.NewRecorder())
	if err := NewAccountHandler(&stubSessionService{}).Get(c); err != domain.ErrNotAuthenticated {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAccountHandler_UploadPhoto(t *testing.T) {
	e := newTestEcho()
	var gotName string
	var gotSize int64
	stub := &stubSessionService{
		uploadFn: func(ctx context.Context, id *domain.Identity, filename string, size int64, r io.Reader) (string, error) {
			gotName, gotSize = filename, size
			return "https://cdn.example.com/" + filename, nil
		},
	}

	body, contentType := multipartBody(t, "file", "me.png", []byte("\x89PNG\r\n\x1a\nrest"))
	req := httptest.NewRequest(http.MethodPost, "/account/photo", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := withIdentity(e.NewContext(req, rec), &domain.Identity{UID: "u1"}, "tok")

	if err := NewAccountHandler(stub).UploadPhoto(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotName != "me.png" || gotSize != 12 {
		t.Fatalf("unexpected upload args: %q %d", gotName, gotSize)
	}
	if !strings.Contains(rec.Body.String(), "https://cdn.example.com/me.png") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAccountHandler_DeleteRevokesToken(t *testing.T) {
	e := newTestEcho()
	stub := &stubSessionService{
		deleteFn: func(ctx context.Context, id *domain.Identity, password string) error {
			if password != "secret1" {
				return domain.NewAuthError(domain.AuthWrongPassword)
			}
			return nil
		},
	}
	handler := NewAccountHandler(stub)

	c := withIdentity(e.NewContext(jsonRequest(http.MethodDelete, "/account", `{"password":"bad"}`), httptest.NewRecorder()), &domain.Identity{UID: "u1"}, "tok-1")
	if err := handler.Delete(c); !domain.IsAuthKind(err, domain.AuthWrongPassword) {
		t.Fatalf("expected wrong_password, got %v", err)
	}
	if len(stub.signedOut) != 0 {
		t.Fatalf("token must survive a failed deletion")
	}

	rec := httptest.NewRecorder()
	c = withIdentity(e.NewContext(jsonRequest(http.MethodDelete, "/account", `{"password":"secret1"}`), rec), &domain.Identity{UID: "u1"}, "tok-1")
	if err := handler.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || len(stub.signedOut) != 1 {
		t.Fatalf("expected 204 and a revoked token, got %d %v", rec.Code, stub.signedOut)
	}
}

func TestAccountHandler_UpdatePasswordValidates(t *testing.T) {
	e := newTestEcho()
	called := false
	stub := &stubSessionService{passwordFn: func(context.Context, *domain.Identity, string) error {
		called = true
		return nil
	}}
	c := withIdentity(e.NewContext(jsonRequest(http.MethodPut, "/account/password", `{}`), httptest.NewRecorder()), &domain.Identity{UID: "u1"}, "tok")
	err := NewAccountHandler(stub).UpdatePassword(c)
	if err == nil || called {
		t.Fatalf("expected a validation error before the service call, got %v", err)
	}
}
