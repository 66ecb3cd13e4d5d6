package httpx

import (
	"errors"
	"net/http"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/auth"
)

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, pair, err := r.auth.Register(req.Context(), auth.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		r.metrics.authEvent("register", authOutcome(err))
		r.writeServiceError(w, req, err)
		return
	}
	r.metrics.authEvent("register", "success")
	r.cookies.attach(w, pair)
	writeJSON(w, http.StatusCreated, map[string]any{"user": user.View()})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, pair, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.metrics.authEvent("login", authOutcome(err))
		r.writeServiceError(w, req, err)
		return
	}
	r.metrics.authEvent("login", "success")
	r.cookies.attach(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{"user": user.View()})
}

// handleLogout always succeeds, with or without a session.
func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	r.auth.Logout(req.Context(), cookieValue(req, accessCookieName), cookieValue(req, refreshCookieName))
	r.metrics.authEvent("logout", "success")
	r.cookies.clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	pair, err := r.auth.Refresh(req.Context(), cookieValue(req, refreshCookieName))
	if err != nil {
		r.metrics.authEvent("refresh", authOutcome(err))
		r.writeServiceError(w, req, err)
		return
	}
	r.metrics.authEvent("refresh", "success")
	r.cookies.attach(w, pair)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	var claim *auth.Claim
	if info, ok := authInfoFromContext(req.Context()); ok {
		claim = info.claim()
	}
	user, err := r.auth.Me(req.Context(), claim)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user.View()})
}

func authOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return "invalid_token"
	case errors.Is(err, auth.ErrEmailTaken):
		return "conflict"
	case errors.Is(err, auth.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
