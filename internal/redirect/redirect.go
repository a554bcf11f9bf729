// Package redirect builds the identity provider's authorize and end-session
// URLs and navigates to them.
package redirect

import (
	"net/url"

	"golang.org/x/oauth2"

	"github.com/markb/spaauth/internal/config"
)

const (
	authorizePath = "/oauth2/v2.0/authorize"
	logoutPath    = "/oauth2/v2.0/logout"
	tokenPath     = "/oauth2/v2.0/token"
)

// Endpoint returns the OAuth2 endpoint for the configured authority.
func Endpoint(cfg *config.Config) oauth2.Endpoint {
	base := "https://" + cfg.AuthorityOrDefault()
	return oauth2.Endpoint{
		AuthURL:  base + authorizePath,
		TokenURL: base + tokenPath,
	}
}

// LoginURL returns the authorization code request URL. The four query
// parameters are always present, even when a configured value is empty.
func LoginURL(cfg *config.Config) string {
	oc := &oauth2.Config{
		ClientID: cfg.ClientID,
		Endpoint: Endpoint(cfg),
	}
	// No state: the callback endpoint owns the code exchange.
	return oc.AuthCodeURL("",
		oauth2.SetAuthURLParam("redirect_uri", cfg.CallbackURI()),
		oauth2.SetAuthURLParam("scope", cfg.Scope),
	)
}

// LogoutURL returns the end-session URL. The identity provider signs the user
// out and then returns to the post-logout URI, which clears the session cookie.
func LogoutURL(cfg *config.Config) string {
	v := url.Values{}
	v.Set("post_logout_redirect_uri", cfg.PostLogoutURI())
	return "https://" + cfg.AuthorityOrDefault() + logoutPath + "?" + v.Encode()
}

// Redirector sends the user agent to the identity provider.
type Redirector struct {
	cfg *config.Config
}

// New creates a Redirector for cfg.
func New(cfg *config.Config) *Redirector {
	return &Redirector{cfg: cfg}
}

// Login navigates to the authorize URL.
func (r *Redirector) Login(nav Navigator) {
	nav.Navigate(LoginURL(r.cfg))
}

// Logout navigates to the end-session URL.
func (r *Redirector) Logout(nav Navigator) {
	nav.Navigate(LogoutURL(r.cfg))
}
