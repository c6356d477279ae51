package shared

import "context"

// Scope identifies the tenant and actor a request operates under.
// Both values are supplied by the tenant-management collaborator in
// front of this service; the ledger core only propagates them.
type Scope struct {
	TenantID int64
	ActorID  int64
}

type scopeContextKey struct{}

// ContextWithScope stores the request scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the request scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
