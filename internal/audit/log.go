// Package audit writes structured records of account and content changes.
package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"inkpost.dev/internal/auth"
	"inkpost.dev/internal/obs"
)

// Event names.
const (
	AuthSignup      = "auth.signup"
	AuthLogin       = "auth.login"
	AuthLoginFailed = "auth.login.failed"
	AuthRefresh     = "auth.refresh"
	PostCreated     = "post.created"
	PostUpdated     = "post.updated"
	PostDeleted     = "post.deleted"
	CommentCreated  = "comment.created"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request id and the
// authenticated email, when present.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	zf := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		zf = append(zf, zap.String("request_id", rid))
	}
	if email, ok := auth.EmailFromContext(ctx); ok {
		zf = append(zf, zap.String("email", email))
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	zf = append(zf, zap.Any("fields", copyFields))

	obs.Logger().Info("audit", zf...)
	return nil
}
