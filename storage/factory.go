package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/contract-spec-publisher/interfaces"
)

// StorageBackendFactory creates storage backends from URIs and aggregates
// them into multi-backend configurations.
type StorageBackendFactory struct {
	log    *slog.Logger
	memory map[string]*MemoryBackend
}

// NewStorageBackendFactory returns a factory whose memory:// backends are
// shared by name for the life of the factory.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log:    logger,
		memory: make(map[string]*MemoryBackend),
	}
}

// StorageBackendFor creates a storage backend from a location URI.
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node mutable file system
//   - vault:// - HashiCorp Vault KV v2
//   - memory:// - In-process storage, shared per name within the factory
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch location.Scheme {
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "file":
		return sf.createFileBackend(location)
	case "vault":
		return sf.createVaultBackend(location)
	case "memory":
		return sf.memoryBackend(location.Host), nil
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend fails if any URI cannot be turned into a backend.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	if len(locations) == 0 {
		return nil, fmt.Errorf("%w: no storage locations", interfaces.ErrInvalidLocationURI)
	}

	backends := make([]interfaces.StorageBackend, 0, len(locations))
	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			return nil, fmt.Errorf("storage location %s: %w", location.Raw, err)
		}
		backends = append(backends, backend)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorageBackend(backends, sf.log), nil
}

func (sf *StorageBackendFactory) memoryBackend(name string) *MemoryBackend {
	if b, ok := sf.memory[name]; ok {
		return b
	}
	b := NewMemoryBackend(name)
	sf.memory[name] = b
	return b
}

// createIPFSBackend handles ipfs://host:port/root?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.Raw))

	host, port, found := strings.Cut(location.Host, ":")
	if !found || port == "" {
		port = "5001"
	}
	if host == "" {
		return nil, fmt.Errorf("%w: missing IPFS host", interfaces.ErrInvalidLocationURI)
	}

	timeout := 30 * time.Second
	if raw := location.GetParam("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = d
	}

	root := location.Path
	if strings.Trim(root, "/") == "" {
		root = "/contract-specs"
	}

	return NewIPFSBackend(host, port, root, timeout, sf.log)
}

// createS3Backend handles s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2&endpoint=custom.s3.com
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", location.Host))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: missing S3 bucket", interfaces.ErrInvalidLocationURI)
	}

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
	}

	return NewS3Backend(location.Host, strings.TrimPrefix(location.Path, "/"), region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

// createFileBackend handles file:///absolute/path and file://./relative/path
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.Raw))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, location.Raw)
	}

	return NewFileBackend(path, sf.log)
}

// createVaultBackend handles vault://host:port/mount/path?tls=true&token=...
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("host", location.Host))

	mount, dataPath, _ := strings.Cut(strings.Trim(location.Path, "/"), "/")
	if location.Host == "" || mount == "" {
		return nil, fmt.Errorf("%w: vault URI needs a host and a mount path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if location.GetParam("tls") == "false" {
		scheme = "http"
	}

	return NewVaultBackend(fmt.Sprintf("%s://%s", scheme, location.Host), mount, dataPath, location.GetParam("token"), sf.log)
}
