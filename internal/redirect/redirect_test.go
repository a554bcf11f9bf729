package redirect

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markb/spaauth/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURI:  "https://api.codeshed.dev",
		ClientID: "11111111-2222-3333-4444-555555555555",
		TenantID: "contoso-tenant",
		Scope:    "https://graph.microsoft.com/.default offline_access",
	}
}

func TestLoginURL(t *testing.T) {
	cfg := testConfig()
	u, err := url.Parse(LoginURL(cfg))
	require.NoError(t, err)

	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "login.microsoftonline.com", u.Host)
	assert.Equal(t, "/contoso-tenant/oauth2/v2.0/authorize", u.Path)

	q := u.Query()
	assert.Len(t, q, 4)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "https://api.codeshed.dev/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, cfg.ClientID, q.Get("client_id"))
	assert.Equal(t, cfg.Scope, q.Get("scope"))
	assert.False(t, q.Has("state"))
}

func TestLoginURL_RoundTrip(t *testing.T) {
	tuples := []*config.Config{
		{Authority: "idp.example.com/t1", ClientID: "c1", BaseURI: "http://localhost:8080", Scope: "openid"},
		{Authority: "login.example.org/common", ClientID: "", BaseURI: "", Scope: ""},
		{Authority: "a.b/c", ClientID: "id with spaces", BaseURI: "https://x.y/z?q", Scope: "s1 s2  s3"},
		{TenantID: "ünïcode", ClientID: "ü", BaseURI: "https://例え.jp", Scope: "api://x/.default#frag"},
	}
	for _, cfg := range tuples {
		u, err := url.Parse(LoginURL(cfg))
		require.NoError(t, err)

		q := u.Query()
		assert.Len(t, q, 4, "url %s", u)
		for _, key := range []string{"response_type", "redirect_uri", "client_id", "scope"} {
			assert.Len(t, q[key], 1, "param %s", key)
		}
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, cfg.BaseURI+"/auth/callback", q.Get("redirect_uri"))
		assert.Equal(t, cfg.ClientID, q.Get("client_id"))
		assert.Equal(t, cfg.Scope, q.Get("scope"))
	}
}

func TestLogoutURL(t *testing.T) {
	cfg := testConfig()
	u, err := url.Parse(LogoutURL(cfg))
	require.NoError(t, err)

	assert.Equal(t, "login.microsoftonline.com", u.Host)
	assert.Equal(t, "/contoso-tenant/oauth2/v2.0/logout", u.Path)

	q := u.Query()
	assert.Len(t, q, 1)
	assert.Equal(t, "https://api.codeshed.dev/auth/logout", q.Get("post_logout_redirect_uri"))
}

func TestEndpoint_ExplicitAuthority(t *testing.T) {
	cfg := &config.Config{Authority: "idp.example.com/tenant", TenantID: "ignored"}
	ep := Endpoint(cfg)
	assert.Equal(t, "https://idp.example.com/tenant/oauth2/v2.0/authorize", ep.AuthURL)
	assert.Equal(t, "https://idp.example.com/tenant/oauth2/v2.0/token", ep.TokenURL)
}

func TestRedirector_LoginLogout(t *testing.T) {
	cfg := testConfig()
	r := New(cfg)

	var got []string
	nav := NavigatorFunc(func(u string) { got = append(got, u) })

	r.Login(nav)
	r.Logout(nav)

	require.Len(t, got, 2)
	assert.Equal(t, LoginURL(cfg), got[0])
	assert.Equal(t, LogoutURL(cfg), got[1])
}

func TestHTTPNavigator(t *testing.T) {
	req := httptest.NewRequest("GET", "/login", nil)
	w := httptest.NewRecorder()

	New(testConfig()).Login(HTTPNavigator{W: w, R: req})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, LoginURL(testConfig()), w.Header().Get("Location"))
}

func TestWriterNavigator(t *testing.T) {
	var buf bytes.Buffer
	New(testConfig()).Logout(WriterNavigator{W: &buf})
	assert.Equal(t, LogoutURL(testConfig())+"\n", buf.String())
}

func TestOpenCommand(t *testing.T) {
	name, args := openCommand("darwin", "https://x")
	assert.Equal(t, "open", name)
	assert.Equal(t, []string{"https://x"}, args)

	name, args = openCommand("windows", "https://x")
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, []string{"url.dll,FileProtocolHandler", "https://x"}, args)

	name, _ = openCommand("linux", "https://x")
	assert.Equal(t, "xdg-open", name)
}
