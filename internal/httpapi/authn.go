package httpapi

import (
	"net/http"
	"strings"

	"inkpost.dev/internal/auth"
	"inkpost.dev/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// requireAuth is the Auth Gate: it verifies the access token and attaches
// the caller's email to the request context.
func (a *API) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(authHeader)
		if header == "" {
			unauthorized(w, r, "No token provided")
			return
		}
		tok := extractBearerToken(header)
		if tok == "" {
			unauthorized(w, r, "Malformed token: Bearer prefix missing")
			return
		}

		switch res := a.tokens.VerifyAccessToken(tok).(type) {
		case token.Valid:
			ctx := auth.ContextWithEmail(r.Context(), res.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		case token.Expired:
			unauthorized(w, r, "Token expired")
		default:
			unauthorized(w, r, "Invalid token")
		}
	})
}

// extractBearerToken returns the token following "Bearer ", or the raw
// header when the prefix is absent.
func extractBearerToken(header string) string {
	if !strings.HasPrefix(header, bearer) {
		return header
	}
	return strings.Split(header, " ")[1]
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}
