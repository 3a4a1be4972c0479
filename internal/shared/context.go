package shared

import (
	"context"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
)

type sessionContextKey struct{}

type principalContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithPrincipal stores the resolved principal for downstream handlers.
func ContextWithPrincipal(ctx context.Context, p *access.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal admitted by the access middleware.
func PrincipalFromContext(ctx context.Context) *access.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*access.Principal)
	return p
}
