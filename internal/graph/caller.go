// Package graph calls the downstream /graph/me endpoint with the session
// cookie and renders the outcome as text.
package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"

	"github.com/markb/spaauth/internal/config"
	"github.com/markb/spaauth/internal/log"
)

// Texts written to the display.
const (
	LoadingText          = "Loading..."
	NotAuthenticatedText = "User is not authenticated."
)

// Outcomes recorded on the call counter and span.
const (
	outcomeOK              = "ok"
	outcomeUnauthenticated = "unauthenticated"
	outcomeTransportError  = "transport_error"
	outcomeInvalidBody     = "invalid_body"
)

const instrumentationScope = "github.com/markb/spaauth/internal/graph"

var (
	tracer = otel.Tracer(instrumentationScope)
	calls  metric.Int64Counter
)

func init() {
	var err error
	calls, err = otel.Meter(instrumentationScope).Int64Counter("spaauth.api.calls",
		metric.WithDescription("Calls to the /graph/me endpoint by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

// Caller issues the credentialed API request.
type Caller struct {
	endpoint string
	client   *http.Client
}

// Option configures a Caller.
type Option func(*Caller) error

// WithHTTPClient replaces the HTTP client. A client without a jar gets the
// caller's cookie jar.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Caller) error {
		jar := c.client.Jar
		cp := *client
		if cp.Jar == nil {
			cp.Jar = jar
		}
		c.client = &cp
		return nil
	}
}

// WithoutJar drops the cookie jar so only cookies passed to Call are sent and
// response cookies are discarded. Callers shared between users need this.
func WithoutJar() Option {
	return func(c *Caller) error {
		cp := *c.client
		cp.Jar = nil
		c.client = &cp
		return nil
	}
}

// WithCookies seeds the cookie jar for the endpoint's origin, as if the
// browser already held the session cookie.
func WithCookies(cookies ...*http.Cookie) Option {
	return func(c *Caller) error {
		if c.client.Jar == nil {
			return errors.New("http client has no cookie jar")
		}
		u, err := url.Parse(c.endpoint)
		if err != nil {
			return fmt.Errorf("parse endpoint: %w", err)
		}
		c.client.Jar.SetCookies(u, cookies)
		return nil
	}
}

// NewCaller creates a Caller for cfg's /graph/me endpoint.
func NewCaller(cfg *config.Config, opts ...Option) (*Caller, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c := &Caller{
		endpoint: cfg.MeURI(),
		client:   &http.Client{Jar: jar},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Endpoint returns the URL the caller requests.
func (c *Caller) Endpoint() string {
	return c.endpoint
}

// Call shows the loading text, performs one GET and shows the outcome. It
// never retries and never returns an error: failures are rendered. Cookies
// are sent in addition to those held by the jar.
func (c *Caller) Call(ctx context.Context, display Display, cookies ...*http.Cookie) {
	display.SetText(LoadingText)
	display.SetText(c.fetch(ctx, cookies))
}

func (c *Caller) fetch(ctx context.Context, cookies []*http.Cookie) string {
	ctx, span := tracer.Start(ctx, "GET /graph/me", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	text, outcome := c.do(ctx, cookies)
	span.SetAttributes(attribute.String("spaauth.outcome", outcome))
	if outcome == outcomeTransportError || outcome == outcomeInvalidBody {
		span.SetStatus(codes.Error, text)
	}
	if calls != nil {
		calls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	return text
}

func (c *Caller) do(ctx context.Context, cookies []*http.Cookie) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return err.Error(), outcomeTransportError
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn("api call failed", "endpoint", c.endpoint, "error", err)
		return transportError(err), outcomeTransportError
	}
	defer resp.Body.Close()

	log.Debug("api call completed", "endpoint", c.endpoint, "status", resp.StatusCode)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized {
		return NotAuthenticatedText, outcomeUnauthenticated
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err.Error(), outcomeTransportError
	}
	text, err := Pretty(body)
	if err != nil {
		return err.Error(), outcomeInvalidBody
	}
	return text, outcomeOK
}

// transportError drops the method and URL that net/http prefixes to
// transport failures, leaving the underlying cause.
func transportError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
