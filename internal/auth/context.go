// ABOUTME: Authenticated principal and its propagation through request contexts
// ABOUTME: Provides WithPrincipal/FromContext for handlers downstream of the auth middleware

package auth

import (
	"context"
)

// Principal is the authenticated identity extracted from a verified token.
// It is populated by the auth middleware and retrieved from context in
// handlers; there is no global current-user state.
type Principal struct {
	DeviceName string
	IsAdmin    bool
}

// principalKey is the key type for storing a Principal in context.Context.
type principalKey struct{}

// WithPrincipal returns a new context with the Principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the Principal from the context, returning nil if not
// present.
func FromContext(ctx context.Context) *Principal {
	val := ctx.Value(principalKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(*Principal)
	if !ok {
		return nil
	}
	return p
}

// MustFromContext retrieves the Principal from the context, panicking if not
// present. For handlers that sit behind the auth middleware.
func MustFromContext(ctx context.Context) *Principal {
	p := FromContext(ctx)
	if p == nil {
		panic("auth: Principal not found in context")
	}
	return p
}
