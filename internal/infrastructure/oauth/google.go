// Package oauth implements federated sign-in with Google.
package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// Config holds the OAuth client registration. Endpoint and UserInfoURL are
// only set in tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	Endpoint    *oauth2.Endpoint
	UserInfoURL string
}

// GoogleProvider runs the authorization-code flow and reads the userinfo
// of the signed-in Google account.
type GoogleProvider struct {
	oauth    *oauth2.Config
	userInfo string
}

func NewGoogleProvider(cfg Config) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", googleoauth.UserinfoEmailScope, googleoauth.UserinfoProfileScope},
		},
		userInfo: cfg.UserInfoURL,
	}
}

func (p *GoogleProvider) Name() string { return domain.ProviderGoogle }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for a token and fetches the account profile.
// An email Google does not report as verified is refused.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*ports.FederatedProfile, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(p.oauth.TokenSource(ctx, tok))}
	if p.userInfo != "" {
		opts = append(opts, option.WithEndpoint(p.userInfo))
	}
	svc, err := googleoauth.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return nil, fmt.Errorf("userinfo is missing id or email")
	}
	if info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return nil, fmt.Errorf("google email %s is not verified", info.Email)
	}

	return &ports.FederatedProfile{
		Provider:    domain.ProviderGoogle,
		Subject:     info.Id,
		Email:       info.Email,
		DisplayName: info.Name,
		PhotoURL:    info.Picture,
	}, nil
}
