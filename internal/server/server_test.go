package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markb/spaauth/internal/config"
	"github.com/markb/spaauth/internal/redirect"
)

func testSite(baseURI string) *config.Config {
	return &config.Config{
		BaseURI:  baseURI,
		ClientID: "test-client-id",
		TenantID: "test-tenant",
		Scope:    config.DefaultScope,
	}
}

// setupTestServer starts api as the downstream API and returns a host server
// pointed at it.
func setupTestServer(t *testing.T, api http.Handler, origins ...string) *Server {
	t.Helper()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	srv, err := New(ServerConfig{Site: testSite(ts.URL), AllowedOrigins: origins})
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestNew_RequiresSite(t *testing.T) {
	_, err := New(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestServer(t, http.NotFoundHandler())

	w := serve(srv, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIndexHasResultElement(t *testing.T) {
	srv := setupTestServer(t, http.NotFoundHandler())

	w := serve(srv, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `<pre id="result"></pre>`)
	assert.Contains(t, w.Body.String(), `href="/login"`)
	assert.Contains(t, w.Body.String(), `href="/logout"`)
}

func TestLoginRedirect(t *testing.T) {
	srv := setupTestServer(t, http.NotFoundHandler())

	w := serve(srv, httptest.NewRequest("GET", "/login", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Equal(t, redirect.LoginURL(srv.site), location)
	assert.Contains(t, location, "https://login.microsoftonline.com/test-tenant/oauth2/v2.0/authorize?")
	assert.Contains(t, location, "client_id=test-client-id")
	assert.Contains(t, location, "response_type=code")
}

func TestLogoutRedirect(t *testing.T) {
	srv := setupTestServer(t, http.NotFoundHandler())

	w := serve(srv, httptest.NewRequest("GET", "/logout", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, redirect.LogoutURL(srv.site), w.Header().Get("Location"))
}

func TestCallNotAuthenticated(t *testing.T) {
	srv := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	w := serve(srv, httptest.NewRequest("GET", "/call", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<pre id="result">User is not authenticated.</pre>`)
}

func TestCallRendersJSON(t *testing.T) {
	srv := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"a":1}`))
	}))

	w := serve(srv, httptest.NewRequest("GET", "/call", nil))

	assert.Contains(t, w.Body.String(), "<pre id=\"result\">{\n    &#34;a&#34;: 1\n}</pre>")
}

func TestCallForwardsCookies(t *testing.T) {
	srv := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("session"); err != nil || ck.Value != "s3cr3t" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"displayName":"Ada"}`))
	}))

	req := httptest.NewRequest("GET", "/call", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "s3cr3t"})
	w := serve(srv, req)

	assert.Contains(t, w.Body.String(), "&#34;displayName&#34;: &#34;Ada&#34;")
	assert.NotContains(t, w.Body.String(), "User is not authenticated.")
}

func TestAPIMe(t *testing.T) {
	srv := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"a":1}`))
	}))

	w := serve(srv, httptest.NewRequest("GET", "/api/me", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ResultResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "{\n    \"a\": 1\n}", resp.Result)
}

func TestAPIMeUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	site := testSite(ts.URL)
	ts.Close()

	srv, err := New(ServerConfig{Site: site})
	require.NoError(t, err)

	w := serve(srv, httptest.NewRequest("GET", "/api/me", nil))

	var resp ResultResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Result, "connection refused")
}

func TestAPICORSWithCredentials(t *testing.T) {
	srv := setupTestServer(t, http.NotFoundHandler(), "https://spa.example.com")

	req := httptest.NewRequest("OPTIONS", "/api/me", nil)
	req.Header.Set("Origin", "https://spa.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := serve(srv, req)

	assert.Equal(t, "https://spa.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAPICORSAnyOriginWithoutCredentials(t *testing.T) {
	srv := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Origin", "https://other.example.com")
	w := serve(srv, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestUnknownRoute(t *testing.T) {
	srv := setupTestServer(t, http.NotFoundHandler())

	w := serve(srv, httptest.NewRequest("GET", "/auth/callback", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "not_found", resp.Error)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := setupTestServer(t, http.NotFoundHandler())

	w := serve(srv, httptest.NewRequest("POST", "/login", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "method_not_allowed", resp.Error)
}

func TestCallForwardsOnlyConfiguredCookies(t *testing.T) {
	var got []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, ck := range r.Cookies() {
			got = append(got, ck.Name)
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(ts.Close)

	srv, err := New(ServerConfig{Site: testSite(ts.URL), ForwardCookies: []string{"session"}})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "analytics", Value: "a1"})
	req.AddCookie(&http.Cookie{Name: "session", Value: "s3cr3t"})
	req.AddCookie(&http.Cookie{Name: "host_pref", Value: "dark"})
	w := serve(srv, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"session"}, got)
}

func TestNew_DefaultsToDisabledTelemetry(t *testing.T) {
	srv := setupTestServer(t, http.NotFoundHandler())

	require.NotNil(t, srv.telemetry)
	assert.Nil(t, srv.telemetry.Metrics())

	w := serve(srv, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
