package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ruteri/contract-spec-publisher/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, uri string) interfaces.StorageBackendLocation {
	loc, err := interfaces.NewStorageBackendLocation(uri)
	require.NoError(t, err)
	return loc
}

func TestStorageBackendFactory_Schemes(t *testing.T) {
	factory := NewStorageBackendFactory(discardLogger())
	dir := t.TempDir()

	tests := []struct {
		uri  string
		want any
	}{
		{uri: "file://" + dir, want: &FileBackend{}},
		{uri: "memory://unit", want: &MemoryBackend{}},
		{uri: "s3://bucket/prefix?region=eu-west-1", want: &S3Backend{}},
		{uri: "ipfs://127.0.0.1:5001/specs?timeout=5s", want: &IPFSBackend{}},
		{uri: "vault://127.0.0.1:8200/secret/specs?tls=false&token=t", want: &VaultBackend{}},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			backend, err := factory.StorageBackendFor(mustLocation(t, tt.uri))
			require.NoError(t, err)
			assert.IsType(t, tt.want, backend)
		})
	}
}

func TestStorageBackendFactory_Rejects(t *testing.T) {
	factory := NewStorageBackendFactory(discardLogger())

	_, err := interfaces.NewStorageBackendLocation("ftp://host/path")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	for _, uri := range []string{"ipfs://127.0.0.1:5001/?timeout=soon", "vault://127.0.0.1:8200", "s3:///prefix"} {
		_, err := factory.StorageBackendFor(mustLocation(t, uri))
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI, uri)
	}

	_, err = factory.CreateMultiBackend(nil)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestStorageBackendFactory_MultiBackend(t *testing.T) {
	factory := NewStorageBackendFactory(discardLogger())
	dir := t.TempDir()

	single, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{mustLocation(t, "memory://a")})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, single)

	multi, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{
		mustLocation(t, "memory://a"),
		mustLocation(t, "file://"+filepath.Join(dir, "objects")),
	})
	require.NoError(t, err)
	assert.IsType(t, &MultiStorageBackend{}, multi)

	ctx := context.Background()
	hash := interfaces.ComputeHash([]byte("x"))
	require.NoError(t, multi.Store(ctx, hash, interfaces.ContractBundle, []byte("envelope")))

	// memory backends are shared per name within a factory
	ok, err := single.Exists(ctx, hash, interfaces.ContractBundle)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)
	hash := interfaces.ComputeHash([]byte("plaintext"))

	ok, err := backend.Exists(ctx, hash, interfaces.SpecDocument)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = backend.Fetch(ctx, hash, interfaces.SpecDocument)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	require.NoError(t, backend.Store(ctx, hash, interfaces.SpecDocument, []byte("stored")))
	ok, err = backend.Exists(ctx, hash, interfaces.SpecDocument)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := backend.Fetch(ctx, hash, interfaces.SpecDocument)
	require.NoError(t, err)
	assert.Equal(t, []byte("stored"), data)

	ok, err = backend.Exists(ctx, hash, interfaces.ContractBundle)
	require.NoError(t, err)
	assert.False(t, ok, "kinds are separate namespaces")
	assert.True(t, backend.Available(ctx))
}
