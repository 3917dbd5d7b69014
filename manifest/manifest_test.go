package manifest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/contract-spec-publisher/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, dir string) *Writer {
	t.Helper()
	return NewWriter(config.ManifestConfig{OutputDir: dir}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWriter_WriteAndClean(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build", "manifests")
	w := newTestWriter(t, dir)

	contract := Entry{RunID: "run-1", Classes: []string{"io.example.Onboard"}, Hash: "Y29udHJhY3Q="}
	schema := Entry{RunID: "run-1", Classes: []string{"io.example.Asset", "io.example.Loan"}, Hash: "c2NoZW1h"}
	require.NoError(t, w.Write(contract, schema))

	assert.Equal(t, filepath.Join(dir, config.DefaultContractManifest), w.ContractPath())
	assert.Equal(t, filepath.Join(dir, config.DefaultSchemaManifest), w.SchemaPath())

	got, err := Read(w.ContractPath())
	require.NoError(t, err)
	assert.Equal(t, contract, got)

	got, err = Read(w.SchemaPath())
	require.NoError(t, err)
	assert.Equal(t, schema, got)

	raw, err := os.ReadFile(w.ContractPath())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "run_id: run-1")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files must not be left behind")

	require.NoError(t, w.Clean())
	_, err = os.Stat(w.ContractPath())
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(w.SchemaPath())
	assert.ErrorIs(t, err, os.ErrNotExist)

	// cleaning twice is fine
	require.NoError(t, w.Clean())
}

func TestWriter_CustomFileNames(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(config.ManifestConfig{OutputDir: dir, ContractFile: "c.yaml", SchemaFile: "s.yaml"}, nil)

	require.NoError(t, w.Write(Entry{Hash: "a"}, Entry{Hash: "b"}))

	got, err := Read(filepath.Join(dir, "s.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "b", got.Hash)
}

func TestWriter_WriteFailsOnBlockedDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	w := newTestWriter(t, filepath.Join(blocker, "sub"))
	err := w.Write(Entry{Hash: "a"}, Entry{Hash: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest")
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
