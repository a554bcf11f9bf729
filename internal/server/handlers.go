package server

import (
	"encoding/json"
	"net/http"

	"github.com/markb/spaauth/internal/graph"
	"github.com/markb/spaauth/internal/log"
	"github.com/markb/spaauth/internal/redirect"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ResultResponse carries the rendered result text.
type ResultResponse struct {
	Result string `json:"result"`
}

type pageData struct {
	Title    string
	Endpoint string
	Result   string
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, errCode, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "not_found", "No route for "+r.URL.Path)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not supported on "+r.URL.Path)
}

// handleIndex serves the host page with an empty result element.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "")
}

// handleLogin sends the browser to the identity provider's authorize endpoint.
// GET /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.redirector.Login(redirect.HTTPNavigator{W: w, R: r})
}

// handleLogout sends the browser to the identity provider's end-session
// endpoint. The provider returns to {baseUri}/auth/logout, which clears the
// session cookie.
// GET /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.redirector.Logout(redirect.HTTPNavigator{W: w, R: r})
}

// handleCall calls the API with the browser's cookies and renders the host
// page with the outcome in the result element.
// GET /call
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var result graph.Result
	s.caller.Call(r.Context(), &result, s.apiCookies(r)...)
	s.renderPage(w, r, result.Text())
}

// handleAPIMe is handleCall for hosts that render the result themselves.
// GET /api/me
func (s *Server) handleAPIMe(w http.ResponseWriter, r *http.Request) {
	var result graph.Result
	s.caller.Call(r.Context(), &result, s.apiCookies(r)...)
	s.writeJSON(w, http.StatusOK, ResultResponse{Result: result.Text()})
}

// apiCookies returns the request cookies that may be sent to the API.
func (s *Server) apiCookies(r *http.Request) []*http.Cookie {
	cookies := r.Cookies()
	if s.forwardCookies == nil {
		return cookies
	}
	kept := cookies[:0]
	for _, ck := range cookies {
		if s.forwardCookies[ck.Name] {
			kept = append(kept, ck)
		}
	}
	return kept
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, result string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := s.page.Execute(w, pageData{
		Title:    pageTitle,
		Endpoint: s.caller.Endpoint(),
		Result:   result,
	})
	if err != nil {
		log.Error("failed to render host page", "error", err, "request_id", log.GetRequestID(r.Context()))
	}
}
