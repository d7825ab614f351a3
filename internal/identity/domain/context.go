package domain

import "context"

// PrincipalContextKey is the request context key for the authenticated
// principal.
type PrincipalContextKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey{}, principal)
}

// PrincipalFromContext returns the principal from context, if set.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(PrincipalContextKey{}).(Principal)
	if !ok || principal.UserID == 0 {
		return Principal{}, false
	}
	return principal, true
}
