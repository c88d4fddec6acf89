package domain

import "context"

type tokenKey struct{}

// WithToken stores the caller's bearer token in the context so outgoing
// backend calls act on behalf of that user. Credentials travel
// explicitly; nothing here reads ambient global state.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token carried by the context, or ""
func TokenFrom(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		return token
	}
	return ""
}
