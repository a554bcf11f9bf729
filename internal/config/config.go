// Package config holds the identity provider and API settings shared by the
// redirectors and the API caller.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Keys used in the JSON config file.
const (
	BaseURIKey   = "base_uri"
	ClientIDKey  = "client_id"
	TenantIDKey  = "tenant_id"
	AuthorityKey = "authority"
	ScopeKey     = "scope"
)

// Environment variables consulted by LoadEnv.
const (
	EnvBaseURI   = "SPAAUTH_BASE_URI"
	EnvClientID  = "SPAAUTH_CLIENT_ID"
	EnvTenantID  = "SPAAUTH_TENANT_ID"
	EnvAuthority = "SPAAUTH_AUTHORITY"
	EnvScope     = "SPAAUTH_SCOPE"
)

const (
	// DefaultLoginHost is the Microsoft Entra ID login host.
	DefaultLoginHost = "login.microsoftonline.com"

	// DefaultScope requests a token for the Microsoft Graph API. Add
	// "offline_access" when a refresh token is also needed.
	DefaultScope = "https://graph.microsoft.com/.default"
)

var (
	ErrMissingBaseURI   = errors.New("base URI is not configured")
	ErrMissingClientID  = errors.New("client ID is not configured")
	ErrMissingAuthority = errors.New("authority or tenant ID is not configured")
)

// Config is the static configuration read once per call. Values are used
// verbatim; nothing here is validated when URLs are built.
type Config struct {
	BaseURI   string
	ClientID  string
	TenantID  string
	Authority string // host plus tenant path, e.g. login.microsoftonline.com/<tenant>
	Scope     string
}

// Default returns a Config with the default scope and nothing else set.
func Default() *Config {
	return &Config{
		Scope: DefaultScope,
	}
}

// AuthorityOrDefault returns Authority, falling back to the Entra ID login
// host partitioned by TenantID.
func (c *Config) AuthorityOrDefault() string {
	if c.Authority != "" {
		return c.Authority
	}
	return DefaultLoginHost + "/" + c.TenantID
}

// CallbackURI is where the identity provider returns the authorization code.
func (c *Config) CallbackURI() string {
	return c.BaseURI + "/auth/callback"
}

// PostLogoutURI is where the identity provider returns after signing out.
// The endpoint behind it clears the session cookie.
func (c *Config) PostLogoutURI() string {
	return c.BaseURI + "/auth/logout"
}

// MeURI is the API endpoint called with the session cookie.
func (c *Config) MeURI() string {
	return c.BaseURI + "/graph/me"
}

// Validate reports missing values. It is advisory: URL construction never
// calls it.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURI == "" {
		errs = append(errs, ErrMissingBaseURI)
	}
	if c.ClientID == "" {
		errs = append(errs, ErrMissingClientID)
	}
	if c.Authority == "" && c.TenantID == "" {
		errs = append(errs, ErrMissingAuthority)
	}
	return errors.Join(errs...)
}

// LoadFile overlays values from a JSON config file. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return c.LoadJSON(raw)
}

// LoadJSON overlays values from raw JSON.
func (c *Config) LoadJSON(raw []byte) error {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(raw), json.Parser()); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	overlay(&c.BaseURI, k.String(BaseURIKey))
	overlay(&c.ClientID, k.String(ClientIDKey))
	overlay(&c.TenantID, k.String(TenantIDKey))
	overlay(&c.Authority, k.String(AuthorityKey))
	overlay(&c.Scope, k.String(ScopeKey))
	return nil
}

// LoadEnv overlays values from SPAAUTH_* environment variables.
func (c *Config) LoadEnv() {
	overlay(&c.BaseURI, os.Getenv(EnvBaseURI))
	overlay(&c.ClientID, os.Getenv(EnvClientID))
	overlay(&c.TenantID, os.Getenv(EnvTenantID))
	overlay(&c.Authority, os.Getenv(EnvAuthority))
	overlay(&c.Scope, os.Getenv(EnvScope))
}

// String renders the config for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("base_uri=%s client_id=%s authority=%s scope=%q",
		c.BaseURI, c.ClientID, c.AuthorityOrDefault(), c.Scope)
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
