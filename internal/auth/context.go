package auth

import "context"

type emailContextKey struct{}

// ContextWithEmail attaches the authenticated user's email to the context.
func ContextWithEmail(ctx context.Context, email string) context.Context {
	if email == "" {
		return ctx
	}
	return context.WithValue(ctx, emailContextKey{}, email)
}

// EmailFromContext returns the email attached by ContextWithEmail.
func EmailFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(emailContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
