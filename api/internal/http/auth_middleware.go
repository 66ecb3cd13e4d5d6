package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/auth"
)

type authContextKey string

// authInfo is the verified identity threaded to handlers through the request context.
type authInfo struct {
	UserID  string
	Role    string
	TokenID string
}

const contextKeyAuth authContextKey = "estate-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth admits requests carrying a verifiable access_token cookie.
func (r *Router) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token := cookieValue(req, accessCookieName)
		if token == "" {
			writeError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		claim, err := r.auth.Authorize(req.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				r.logger.Debug("access token rejected", "path", req.URL.Path)
				writeError(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}
			r.logger.Error("token verification unavailable", "path", req.URL.Path, "error", err)
			writeError(w, http.StatusServiceUnavailable, "Authentication temporarily unavailable")
			return
		}
		ctx := withAuthInfo(req.Context(), authInfo{UserID: claim.Subject, Role: claim.Role, TokenID: claim.TokenID})
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// requireRole admits requests whose verified claim carries role. It never
// consults the user store, so a role change applies from the next token issue.
func (r *Router) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			info, ok := authInfoFromContext(req.Context())
			if !ok || info.Role != role {
				writeError(w, http.StatusForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func withAuthInfo(ctx context.Context, info authInfo) context.Context {
	return context.WithValue(ctx, contextKeyAuth, info)
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

func (info authInfo) claim() *auth.Claim {
	return &auth.Claim{Subject: info.UserID, Role: info.Role, TokenID: info.TokenID}
}
