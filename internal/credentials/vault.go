package credentials

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/hashicorp/vault/api"

	"github.com/askdb/askdb/internal/config"
)

// VaultResolver reads tenant connection strings from a Vault KV v2 mount at
// <mount>/data/<prefix>/<tenant id>, under a single configured key.
type VaultResolver struct {
	client *api.Client
	mount  string
	prefix string
	key    string
}

// NewVaultResolver creates a resolver using VAULT_ADDR and VAULT_TOKEN from
// the environment.
func NewVaultResolver(cfg config.VaultCredsConfig) (*VaultResolver, error) {
	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return nil, fmt.Errorf("VAULT_ADDR environment variable not set")
	}
	token := os.Getenv("VAULT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("VAULT_TOKEN environment variable not set")
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Address = addr

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("creating Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultResolver{
		client: client,
		mount:  cfg.Mount,
		prefix: cfg.Prefix,
		key:    cfg.Key,
	}, nil
}

func (r *VaultResolver) Resolve(ctx context.Context, tenantID string) (string, error) {
	secretPath := path.Join(r.mount, "data", r.prefix, tenantID)

	secret, err := r.client.Logical().ReadWithContext(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("reading Vault secret at %s: %w", secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return "", &NotFoundError{TenantID: tenantID}
	}

	// KV v2 stores data under a "data" sub-key
	data := secret.Data
	if innerData, ok := data["data"].(map[string]interface{}); ok {
		data = innerData
	}

	val, ok := data[r.key]
	if !ok {
		return "", &NotFoundError{TenantID: tenantID}
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("Vault secret value for key %q is not a string", r.key)
	}

	return str, nil
}
