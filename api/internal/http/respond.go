package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/auth"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/interest"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/property"
)

// Response messages shared by handlers and middleware.
const (
	msgUnauthenticated     = "Unauthenticated"
	msgInvalidToken        = "Invalid token"
	msgForbidden           = "Forbidden"
	msgInvalidCredentials  = "Invalid credentials"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgEmailTaken          = "Email already registered"
	msgPropertyNotFound    = "Property not found"
	msgPropertyNotOwned    = "Property not found or unauthorized"
	msgInterestNotFound    = "Interest not found"
	msgNotAuthorized       = "Not authorized"
	msgInvalidJSON         = "Invalid JSON body"
	msgBodyTooLarge        = "Request body too large"
	msgInternal            = "Internal Server Error"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// decodeJSON reads a single JSON document from the request body. It writes the
// error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	err := json.NewDecoder(req.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	default:
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
	}
	return false
}

// writeServiceError maps service sentinels onto the HTTP error taxonomy.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, property.ErrInvalidProperty),
		errors.Is(err, interest.ErrInvalidInterest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, msgEmailTaken)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, msgInvalidRefreshToken)
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
	case errors.Is(err, property.ErrNotFound), errors.Is(err, interest.ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, msgPropertyNotFound)
	case errors.Is(err, interest.ErrInterestNotFound):
		writeError(w, http.StatusNotFound, msgInterestNotFound)
	case errors.Is(err, interest.ErrNotOwner):
		writeError(w, http.StatusForbidden, msgNotAuthorized)
	default:
		r.logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
