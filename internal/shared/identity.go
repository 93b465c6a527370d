package shared

import "context"

// Role identifies the acting user's privilege level.
type Role string

const (
	RoleCommercial Role = "comercial"
	RoleAdmin      Role = "admin"
)

// Identity describes the authenticated user acting on a request.
// Authentication itself happens upstream; this module only consumes the result.
type Identity struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the identity may act across all owners.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityContextKey struct{}

// ContextWithIdentity stores the acting identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the acting identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
