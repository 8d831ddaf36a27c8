package shared

import "context"

type sessionContextKey struct{}

type principalContextKey struct{}

// Principal describes the authenticated actor attached to a request.
// RoleID is zero when the account has no role assigned.
type Principal struct {
	ID     int64
	RoleID int64
}

// HasRole reports whether a role is assigned to the principal.
func (p Principal) HasRole() bool {
	return p.RoleID != 0
}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. The second
// return value is false when no authenticated principal is attached.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
