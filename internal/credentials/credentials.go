// Package credentials maps tenant identifiers to decrypted database
// connection strings. The gateway never accepts raw credentials from clients;
// every request carries a tenant id and the resolver supplies the secret.
package credentials

import (
	"context"
	"fmt"

	"github.com/askdb/askdb/internal/config"
)

// Resolver resolves a tenant id to a connection string.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string) (string, error)
}

// NotFoundError is returned when no credential exists for a tenant.
type NotFoundError struct {
	TenantID string
}

func (e *NotFoundError) Error() string {
	return "no database credential found for tenant " + e.TenantID
}

// New creates a Resolver for the configured provider.
func New(cfg *config.CredentialsConfig) (Resolver, error) {
	switch cfg.Provider {
	case "vault":
		return NewVaultResolver(cfg.Vault)
	case "awssm":
		return NewAWSResolver(cfg.AWS)
	case "static":
		return NewStaticResolver(cfg.Static), nil
	default:
		return nil, fmt.Errorf("unknown credentials provider: %s", cfg.Provider)
	}
}

// StaticResolver serves connection strings from an in-memory map. Intended
// for development and tests.
type StaticResolver struct {
	tenants map[string]string
}

// NewStaticResolver creates a resolver over the given tenant map.
func NewStaticResolver(tenants map[string]string) *StaticResolver {
	if tenants == nil {
		tenants = make(map[string]string)
	}
	return &StaticResolver{tenants: tenants}
}

func (r *StaticResolver) Resolve(_ context.Context, tenantID string) (string, error) {
	cs, ok := r.tenants[tenantID]
	if !ok {
		return "", &NotFoundError{TenantID: tenantID}
	}
	return cs, nil
}
