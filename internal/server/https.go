package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/acme/autocert"

	"github.com/markb/spaauth/internal/log"
)

// HTTPSConfig holds HTTPS/TLS configuration for the host page.
type HTTPSConfig struct {
	Domain   string // Public domain for the Let's Encrypt certificate
	CertDir  string // Certificate cache directory
	Addr     string // HTTPS listen address, ":443" by default
	HTTPAddr string // ACME challenges and HTTP->HTTPS redirect, ":80" by default
}

// ValidateDomain rejects names Let's Encrypt will not issue for: empty,
// localhost, IP literals, and malformed labels.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain required for HTTPS")
	}
	if strings.EqualFold(domain, "localhost") {
		return fmt.Errorf("Let's Encrypt requires a public domain, not localhost; terminate TLS in a reverse proxy for local use")
	}
	if net.ParseIP(strings.Trim(domain, "[]")) != nil {
		return fmt.Errorf("Let's Encrypt requires a domain name, not an IP address")
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") ||
		strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") ||
		strings.Contains(domain, "..") {
		return fmt.Errorf("invalid domain format: %s", domain)
	}
	return nil
}

// NewAutocertManager creates an autocert.Manager for domain, caching
// certificates in certDir.
func NewAutocertManager(domain, certDir string) *autocert.Manager {
	return &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domain),
		Cache:      autocert.DirCache(certDir),
	}
}

// NewTLSConfig creates a TLS config using the autocert manager.
func NewTLSConfig(manager *autocert.Manager) *tls.Config {
	return &tls.Config{
		GetCertificate: manager.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1", "acme-tls/1"},
		MinVersion:     tls.VersionTLS12,
	}
}

// HTTPRedirectHandler redirects every request to the same path on HTTPS.
// ACME HTTP-01 challenges are answered by wrapping it with
// autocert.Manager.HTTPHandler.
func HTTPRedirectHandler(domain string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := "https://" + domain + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}

// ListenAndServeTLS serves the host page over HTTPS with a Let's Encrypt
// certificate and runs a plain HTTP listener for challenges and redirects.
// The session cookie the API expects is usually Secure, so production hosts
// should run in this mode or behind a TLS-terminating proxy.
func (s *Server) ListenAndServeTLS(cfg HTTPSConfig) error {
	if err := ValidateDomain(cfg.Domain); err != nil {
		return err
	}
	if cfg.CertDir == "" {
		cfg.CertDir = "certs"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":443"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":80"
	}

	s.autocertMgr = NewAutocertManager(cfg.Domain, cfg.CertDir)
	s.httpRedirect = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.autocertMgr.HTTPHandler(HTTPRedirectHandler(cfg.Domain)),
	}
	s.httpsServer = &http.Server{
		Addr:      cfg.Addr,
		Handler:   s.router,
		TLSConfig: NewTLSConfig(s.autocertMgr),
	}

	go func() {
		if err := s.httpRedirect.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP redirect server failed", "addr", cfg.HTTPAddr, "error", err)
		}
	}()

	return s.httpsServer.ListenAndServeTLS("", "")
}
