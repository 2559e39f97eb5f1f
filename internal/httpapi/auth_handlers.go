package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"inkpost.dev/internal/audit"
	"inkpost.dev/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, r, err)
		return
	}

	u, err := a.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		if msg, ok := asPublic(err); ok {
			writeError(w, r, http.StatusBadRequest, msg)
			return
		}
		if errors.Is(err, auth.ErrAlreadyExists) {
			writeError(w, r, http.StatusBadRequest, "Email already exists")
			return
		}
		serverError(w, r, "signup", err)
		return
	}

	ctx := auth.ContextWithEmail(r.Context(), u.Email)
	_ = audit.LogEvent(ctx, audit.AuthSignup, map[string]any{"user_id": u.ID})

	writeJSON(w, http.StatusOK, map[string]any{"message": "User registered successfully"})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, r, err)
		return
	}

	pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if msg, ok := asPublic(err); ok {
			writeError(w, r, http.StatusBadRequest, msg)
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			_ = audit.LogEvent(r.Context(), audit.AuthLoginFailed, map[string]any{"email": strings.TrimSpace(req.Email)})
			writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		serverError(w, r, "login", err)
		return
	}

	ctx := auth.ContextWithEmail(r.Context(), strings.TrimSpace(req.Email))
	_ = audit.LogEvent(ctx, audit.AuthLogin, nil)

	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, r, err)
		return
	}

	access, email, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if msg, ok := asPublic(err); ok {
			writeError(w, r, http.StatusBadRequest, msg)
			return
		}
		switch {
		case errors.Is(err, auth.ErrRefreshExpired):
			writeError(w, r, http.StatusUnauthorized, "Refresh token expired")
		case errors.Is(err, auth.ErrRefreshInvalid):
			writeError(w, r, http.StatusUnauthorized, "Invalid refresh token")
		default:
			serverError(w, r, "refresh", err)
		}
		return
	}

	_ = audit.LogEvent(auth.ContextWithEmail(r.Context(), email), audit.AuthRefresh, nil)

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}
