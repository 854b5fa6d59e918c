// Package auth implements the identity provider redirect flow and the
// session cookie that guards the application pages.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

var (
	ErrMissingCode  = errors.New("missing authorization code")
	ErrStateInvalid = errors.New("invalid oauth state")
	ErrNoSubject    = errors.New("userinfo has no subject")
)

// User is the identity returned by the provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Provider turns an authorization code into a user.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (User, error)
	// RequiresState reports whether a callback must carry the state issued
	// by the login redirect.
	RequiresState() bool
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// OAuthProvider runs the authorization code grant against any OpenID style
// provider and reads the user from its userinfo endpoint.
type OAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewOAuthProvider(cfg OAuthConfig) *OAuthProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *OAuthProvider) RequiresState() bool { return true }

func (p *OAuthProvider) Exchange(ctx context.Context, code string) (User, error) {
	if strings.TrimSpace(code) == "" {
		return User{}, ErrMissingCode
	}
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return User{}, fmt.Errorf("token exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return User{}, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := p.config.Client(ctx, tok).Do(req)
	if err != nil {
		return User{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return User{}, fmt.Errorf("fetch userinfo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return decodeUserInfo(resp.Body)
}

// decodeUserInfo accepts both OpenID ("sub") and plain ("id") claims.
func decodeUserInfo(r io.Reader) (User, error) {
	var claims struct {
		Sub   string `json:"sub"`
		ID    any    `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	dec := json.NewDecoder(io.LimitReader(r, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return User{}, fmt.Errorf("decode userinfo: %w", err)
	}
	u := User{ID: claims.Sub, Email: strings.ToLower(strings.TrimSpace(claims.Email)), Name: claims.Name}
	if u.ID == "" && claims.ID != nil {
		u.ID = strings.TrimSpace(fmt.Sprint(claims.ID))
	}
	if u.ID == "" {
		return User{}, ErrNoSubject
	}
	return u, nil
}

// DevProvider signs in a fixed user without leaving the app. It is used
// for local runs when no identity provider is configured.
type DevProvider struct {
	User User
}

func (p DevProvider) AuthCodeURL(state string) string {
	return CallbackPath + "?" + url.Values{"code": {"dev"}, "state": {state}}.Encode()
}

// RequiresState is false: the code is fixed and grants only the local user.
func (p DevProvider) RequiresState() bool { return false }

func (p DevProvider) Exchange(_ context.Context, code string) (User, error) {
	if code == "" {
		return User{}, ErrMissingCode
	}
	return p.User, nil
}
