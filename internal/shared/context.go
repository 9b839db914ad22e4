package shared

import "context"

// Roles recognised by the access layer.
const (
	RoleUser          = "user"
	RoleSuper         = "super"
	RoleAdministrator = "administrator"
)

// Principal identifies the authenticated caller of an HTTP request.
type Principal struct {
	Username string
	Role     string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p.Username != ""
}
