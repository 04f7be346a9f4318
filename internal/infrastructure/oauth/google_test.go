package oauth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func fakeGoogle(t *testing.T, userinfo string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, userinfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint:     &oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		UserInfoURL:  srv.URL + "/",
	})
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(Config{ClientID: "client", RedirectURL: "http://localhost/callback"})
	raw := p.AuthCodeURL("xyz")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "xyz" || q.Get("client_id") != "client" || q.Get("redirect_uri") != "http://localhost/callback" {
		t.Errorf("unexpected query %v", q)
	}
	if !strings.Contains(q.Get("scope"), "userinfo.email") {
		t.Errorf("expected email scope, got %q", q.Get("scope"))
	}
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := fakeGoogle(t, `{"id":"g-42","email":"ada@example.com","verified_email":true,"name":"Ada","picture":"https://img/ada.png"}`)
	p := newTestProvider(srv)

	prof, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if prof.Subject != "g-42" || prof.Email != "ada@example.com" || prof.DisplayName != "Ada" || prof.PhotoURL != "https://img/ada.png" {
		t.Errorf("unexpected profile %+v", prof)
	}
	if prof.Provider != "google" {
		t.Errorf("expected provider google, got %q", prof.Provider)
	}
}

func TestGoogleProvider_ExchangeFailures(t *testing.T) {
	t.Run("bad code", func(t *testing.T) {
		p := newTestProvider(fakeGoogle(t, `{}`))
		if _, err := p.Exchange(context.Background(), "bad-code"); err == nil {
			t.Fatal("expected an error for a rejected code")
		}
	})
	t.Run("unverified email", func(t *testing.T) {
		p := newTestProvider(fakeGoogle(t, `{"id":"g-1","email":"x@example.com","verified_email":false}`))
		if _, err := p.Exchange(context.Background(), "good-code"); err == nil {
			t.Fatal("expected an error for an unverified email")
		}
	})
	t.Run("verification not reported", func(t *testing.T) {
		p := newTestProvider(fakeGoogle(t, `{"id":"g-2","email":"y@example.com"}`))
		if _, err := p.Exchange(context.Background(), "good-code"); err == nil {
			t.Fatal("expected an error when verified_email is absent")
		}
	})
}
