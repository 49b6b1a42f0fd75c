// Package tenantctx carries the acting tenant through context.Context.
//
// Tenant identity is propagated explicitly, never stored in package-level
// state, so two concurrently handled requests cannot observe each other's
// tenant. A context without a tenant binding means "no tenant": downstream
// row-level security resolves that to zero visible tenant-scoped rows.
package tenantctx

import (
	"context"

	"github.com/google/uuid"
)

type tenantKey struct{}

// WithTenant returns a child context bound to the given tenant.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantID returns the tenant bound to ctx, or false when unset.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// WithoutTenant returns a child context with any tenant binding removed.
// Useful when a tenant-bound context must cross into maintenance code that
// operates outside tenant scope.
func WithoutTenant(ctx context.Context) context.Context {
	return context.WithValue(ctx, tenantKey{}, uuid.Nil)
}

// MustTenantID returns the bound tenant and panics when unset. Only call
// below code paths already guarded by the resolution middleware.
func MustTenantID(ctx context.Context) uuid.UUID {
	id, ok := TenantID(ctx)
	if !ok {
		panic("tenantctx: no tenant bound to context")
	}
	return id
}
