// Package manifest records which artifact bundles a publish run stored, so
// that builds can reference the published content hashes.
package manifest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/contract-spec-publisher/config"
	"gopkg.in/yaml.v3"
)

// Entry is the manifest record for one artifact kind.
type Entry struct {
	RunID   string   `yaml:"run_id"`
	Classes []string `yaml:"classes"`
	Hash    string   `yaml:"hash"`
}

// Writer writes and removes the contract and schema manifest files.
type Writer struct {
	dir          string
	contractFile string
	schemaFile   string
	log          *slog.Logger
}

// NewWriter falls back to the default manifest file names and slog.Default.
func NewWriter(cfg config.ManifestConfig, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	contractFile := cfg.ContractFile
	if contractFile == "" {
		contractFile = config.DefaultContractManifest
	}
	schemaFile := cfg.SchemaFile
	if schemaFile == "" {
		schemaFile = config.DefaultSchemaManifest
	}
	return &Writer{
		dir:          cfg.OutputDir,
		contractFile: contractFile,
		schemaFile:   schemaFile,
		log:          log,
	}
}

// ContractPath returns the path of the contract bundle manifest.
func (w *Writer) ContractPath() string {
	return filepath.Join(w.dir, w.contractFile)
}

// SchemaPath returns the path of the schema bundle manifest.
func (w *Writer) SchemaPath() string {
	return filepath.Join(w.dir, w.schemaFile)
}

// Write stores both manifests. Both files are attempted even if the first fails.
func (w *Writer) Write(contract, schema Entry) error {
	return errors.Join(
		w.writeEntry(w.ContractPath(), contract),
		w.writeEntry(w.SchemaPath(), schema),
	)
}

func (w *Writer) writeEntry(path string, entry Entry) error {
	data, err := yaml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode manifest %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move manifest %s into place: %w", path, err)
	}

	w.log.Info("Wrote manifest",
		slog.String("path", path),
		slog.String("hash", entry.Hash),
		slog.Int("classes", len(entry.Classes)))
	return nil
}

// Clean removes both manifests. Missing files are not an error.
func (w *Writer) Clean() error {
	var errs []error
	for _, path := range []string{w.ContractPath(), w.SchemaPath()} {
		err := os.Remove(path)
		switch {
		case err == nil:
			w.log.Info("Removed manifest", slog.String("path", path))
		case errors.Is(err, os.ErrNotExist):
		default:
			errs = append(errs, fmt.Errorf("failed to remove manifest %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// Read loads a manifest file.
func Read(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return entry, nil
}
