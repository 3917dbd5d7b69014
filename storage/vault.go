package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/contract-spec-publisher/interfaces"
)

// VaultBackend implements a storage backend on a HashiCorp Vault KV v2 mount.
// Values are stored base64 encoded under the "content" key.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a Vault storage backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "contract-specs")
//   - token: Vault token; empty falls back to VAULT_TOKEN
//   - log: Structured logger
func NewVaultBackend(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

func (b *VaultBackend) secretPath(section string, hash interfaces.ContentHash, kind interfaces.ObjectKind) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", b.mountPath, section, b.dataPath, kind, hash.Hex())
}

func (b *VaultBackend) Fetch(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) ([]byte, error) {
	start := time.Now()
	p := b.secretPath("data", hash, kind)

	secret, err := b.client.Logical().ReadWithContext(ctx, p)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", p),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrContentNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}
	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}
	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("invalid content encoding in Vault data: %w", err)
	}

	b.log.Debug("Fetched object from Vault",
		slog.String("hash", hash.Short()),
		slog.Duration("duration", time.Since(start)))

	return decoded, nil
}

// Store writes the base64 encoded object to the KV v2 mount.
func (b *VaultBackend) Store(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind, data []byte) error {
	start := time.Now()
	p := b.secretPath("data", hash, kind)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(data),
		},
	}

	if _, err := b.client.Logical().WriteWithContext(ctx, p, secretData); err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", p),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored object in Vault",
		slog.String("hash", hash.Short()),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Exists reads the KV v2 metadata of the object, which avoids transferring its value.
func (b *VaultBackend) Exists(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) (bool, error) {
	secret, err := b.client.Logical().ReadWithContext(ctx, b.secretPath("metadata", hash, kind))
	if err != nil {
		return false, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return secret != nil && secret.Data != nil, nil
}

// Available checks that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}
