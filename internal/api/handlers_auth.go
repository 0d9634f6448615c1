package api

import (
	"encoding/json"
	"net/http"
)

// LoginRequest selects which M3 environment (TRN or PRD) to authenticate
// against; scheduling runs are submitted per environment, so the session
// carries the same distinction.
type LoginRequest struct {
	Environment string `json:"environment"`
}

// LoginResponse carries the OAuth authorization URL the frontend redirects to.
type LoginResponse struct {
	AuthURL string `json:"authUrl"`
}

// AuthStatusResponse reports whether the current session is authenticated
// and, if so, which environment it is scoped to.
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Environment   string `json:"environment,omitempty"`
}

// handleLogin initiates the OAuth authorization-code flow for the requested
// environment.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Environment != "TRN" && req.Environment != "PRD" {
		http.Error(w, "Invalid environment. Must be TRN or PRD", http.StatusBadRequest)
		return
	}

	session, _ := s.sessionStore.Get(r, "m3-session")
	session.Values["environment"] = req.Environment
	if err := session.Save(r, w); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	authURL, err := s.authManager.GetAuthorizationURL(req.Environment)
	if err != nil {
		http.Error(w, "Failed to generate authorization URL", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{AuthURL: authURL})
}

// handleAuthCallback completes the OAuth authorization-code exchange and
// marks the session authenticated for the environment selected at login.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, "m3-session")

	environment, ok := session.Values["environment"].(string)
	if !ok {
		http.Error(w, "Invalid session", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	tokens, err := s.authManager.ExchangeCodeForTokens(r.Context(), environment, code)
	if err != nil {
		http.Error(w, "Failed to exchange authorization code", http.StatusInternalServerError)
		return
	}

	session.Values["authenticated"] = true
	session.Values["access_token"] = tokens.AccessToken
	session.Values["refresh_token"] = tokens.RefreshToken
	session.Values["token_expiry"] = tokens.Expiry.Unix()

	if err := session.Save(r, w); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, s.config.FrontendURL, http.StatusFound)
}

// handleLogout clears the authenticated session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, "m3-session")

	environment, _ := session.Values["environment"].(string)

	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1

	if err := session.Save(r, w); err != nil {
		http.Error(w, "Failed to clear session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":      "logged out",
		"environment": environment,
	})
}

// handleAuthStatus reports the current session's authentication state.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, "m3-session")

	authenticated, ok := session.Values["authenticated"].(bool)
	w.Header().Set("Content-Type", "application/json")
	if !ok || !authenticated {
		json.NewEncoder(w).Encode(AuthStatusResponse{Authenticated: false})
		return
	}

	environment, _ := session.Values["environment"].(string)
	json.NewEncoder(w).Encode(AuthStatusResponse{
		Authenticated: true,
		Environment:   environment,
	})
}
