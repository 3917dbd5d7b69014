package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/contract-spec-publisher/interfaces"
)

// MultiStorageBackend fans writes out to every available backend and reads
// from the first backend that has the object.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend keeps the order of backends for reads.
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

func (m *MultiStorageBackend) Fetch(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("hash", hash.Short()))
			continue
		}

		data, err := backend.Fetch(ctx, hash, kind)
		if err == nil {
			m.log.Debug("Fetched object",
				slog.String("backend_name", backend.Name()),
				slog.String("hash", hash.Short()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("hash", hash.Short()),
			"err", err)
	}

	if len(errs) == 0 {
		return nil, interfaces.ErrBackendUnavailable
	}
	return nil, fmt.Errorf("all backends failed to fetch %s: %w", hash.Short(), errors.Join(errs...))
}

// Store succeeds when at least one backend stored the object.
func (m *MultiStorageBackend) Store(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind, data []byte) error {
	start := time.Now()
	var stored int
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Store(ctx, hash, kind, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All backends failed to store object",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return interfaces.ErrBackendUnavailable
		}
		return fmt.Errorf("all backends failed to store object: %w", errors.Join(errs...))
	}

	m.log.Debug("Stored object",
		slog.String("hash", hash.Short()),
		slog.Int("backends", stored),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Exists reports true as soon as any available backend holds the object.
func (m *MultiStorageBackend) Exists(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) (bool, error) {
	var errs []error
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			continue
		}
		ok, err := backend.Exists(ctx, hash, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		if ok {
			return true, nil
		}
	}
	if len(errs) > 0 && len(errs) == len(m.backends) {
		return false, errors.Join(errs...)
	}
	return false, nil
}

// AvailableBackends returns the member backends that are currently available.
func (m *MultiStorageBackend) AvailableBackends(ctx context.Context) []interfaces.StorageBackend {
	available := make([]interfaces.StorageBackend, 0, len(m.backends))
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			available = append(available, backend)
		}
	}
	return available
}

// Available checks if any backend is available.
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
