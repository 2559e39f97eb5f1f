package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"inkpost.dev/internal/auth"
	"inkpost.dev/internal/blog"
	"inkpost.dev/internal/obs"
	"inkpost.dev/internal/ratelimit"
	"inkpost.dev/internal/token"
)

// BodyLimit caps request bodies.
const BodyLimit = 5 << 20

const (
	generalLimitMessage = "Too many requests from this IP, please try again later"
	authLimitMessage    = "Too many auth requests from this IP, please try again after 1 minute"
)

// ReadyProbe checks the backing services the API depends on. Nil members
// are skipped.
type ReadyProbe struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// AccessVerifier classifies bearer tokens presented to protected routes.
type AccessVerifier interface {
	VerifyAccessToken(string) token.Result
}

// Deps are the collaborators the API is built from.
type Deps struct {
	Ready   ReadyProbe
	Version string

	Tokens AccessVerifier
	Auth   *auth.Service
	Blog   *blog.Service

	// GeneralLimiter applies to every request; AuthLimiter additionally to
	// the /api/auth routes. Nil disables the respective limit.
	GeneralLimiter ratelimit.Limiter
	AuthLimiter    ratelimit.Limiter
}

// API is the HTTP layer.
type API struct {
	mux     *http.ServeMux
	ready   ReadyProbe
	version string

	tokens AccessVerifier
	auth   *auth.Service
	blog   *blog.Service

	general     ratelimit.Limiter
	authLimiter ratelimit.Limiter
}

func New(d Deps) *API {
	a := &API{
		mux:         http.NewServeMux(),
		ready:       d.Ready,
		version:     d.Version,
		tokens:      d.Tokens,
		auth:        d.Auth,
		blog:        d.Blog,
		general:     d.GeneralLimiter,
		authLimiter: d.AuthLimiter,
	}

	// health/ready/metrics
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	// accounts
	a.mux.Handle("POST /api/auth/signup", a.limitAuth(http.HandlerFunc(a.handleSignUp)))
	a.mux.Handle("POST /api/auth/login", a.limitAuth(http.HandlerFunc(a.handleLogin)))
	a.mux.Handle("POST /api/auth/refresh", a.limitAuth(http.HandlerFunc(a.handleRefresh)))

	// posts and comments
	a.mux.HandleFunc("GET /api/posts", a.handleListPosts)
	a.mux.HandleFunc("GET /api/posts/{id}", a.handleGetPost)
	a.mux.Handle("POST /api/posts", a.requireAuth(a.handleCreatePost))
	a.mux.Handle("PUT /api/posts/{id}", a.requireAuth(a.handleUpdatePost))
	a.mux.Handle("DELETE /api/posts/{id}", a.requireAuth(a.handleDeletePost))
	a.mux.Handle("POST /api/posts/{id}/comments", a.requireAuth(a.handleCreateComment))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	if a.general != nil {
		h = RateLimit(h, a.general, "general", generalLimitMessage)
	}
	h = MaxBodyBytes(h, BodyLimit)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

func (a *API) limitAuth(next http.Handler) http.Handler {
	if a.authLimiter == nil {
		return next
	}
	return RateLimit(next, a.authLimiter, "auth", authLimitMessage)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "inkpost-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.Logger().Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"message": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// serverError logs err and answers 500 without exposing it.
func serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	obs.Logger().Error(op+" failed",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, "Server error")
}

var errBodyTooLarge = errors.New("request body too large")

// decodeJSON reads one JSON object into dst. An empty body leaves dst at
// its zero value so field validation reports what is missing.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &tooLarge):
			return errBodyTooLarge
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func badBody(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
}

// publicError is implemented by validation errors whose text is safe to
// return to clients.
type publicError interface {
	PublicMessage() string
}

func asPublic(err error) (string, bool) {
	var pe publicError
	if errors.As(err, &pe) {
		return pe.PublicMessage(), true
	}
	return "", false
}
