package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/interfaces"
	"github.com/ruteri/contract-spec-publisher/metrics"
)

// ObjectStoreClient is a content-addressed object store over a storage
// backend. Objects are keyed by the SHA-256 of their plaintext and stored as
// signed, encrypted envelopes.
type ObjectStoreClient struct {
	backend interfaces.StorageBackend
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewObjectStoreClient wraps backend. m may be nil.
func NewObjectStoreClient(backend interfaces.StorageBackend, log *slog.Logger, m *metrics.Metrics) *ObjectStoreClient {
	return &ObjectStoreClient{
		backend: backend,
		log:     log,
		metrics: m,
	}
}

// backendSet is implemented by backends that fan out to several members.
type backendSet interface {
	AvailableBackends(ctx context.Context) []interfaces.StorageBackend
}

func (c *ObjectStoreClient) members(ctx context.Context) []interfaces.StorageBackend {
	if set, ok := c.backend.(backendSet); ok {
		return set.AvailableBackends(ctx)
	}
	return []interfaces.StorageBackend{c.backend}
}

// Put stores data sealed for the owner encryption key and the audience.
// A member backend is skipped when it already holds an envelope for the hash
// that every requested recipient can open. Members missing the object receive
// it; members holding an envelope without some recipient get a resealed
// envelope readable by the old and the new recipients.
func (c *ObjectStoreClient) Put(ctx context.Context, data []byte, kind interfaces.ObjectKind, keys interfaces.PutKeys) (interfaces.ContentHash, error) {
	hash := interfaces.ComputeHash(data)

	if keys.Signer == nil || keys.EncryptionKey == nil {
		return hash, errors.New("object store put needs a signer and an encryption key")
	}
	recipients := make([]*btcec.PublicKey, 0, len(keys.Audience)+1)
	recipients = append(recipients, keys.EncryptionKey.PubKey())
	recipients = append(recipients, keys.Audience...)

	members := c.members(ctx)
	if len(members) == 0 {
		return hash, interfaces.ErrBackendUnavailable
	}

	var (
		held    int
		pending []interfaces.StorageBackend
		errs    []error
	)
	for _, backend := range members {
		existing, err := c.existing(ctx, backend, hash, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		if existing != nil && existing.HasRecipients(recipients) {
			held++
			continue
		}
		if existing != nil {
			recipients = mergeRecipients(recipients, existing)
		}
		pending = append(pending, backend)
	}

	if len(pending) == 0 {
		if held == 0 {
			return hash, fmt.Errorf("failed to check for existing %s object: %w", kind, errors.Join(errs...))
		}
		c.log.Info("Object already stored, skipping upload",
			slog.String("kind", kind.String()),
			slog.String("hash", hash.String()))
		c.metrics.IncObject(kind.String(), "deduplicated")
		return hash, nil
	}

	env, err := cryptoutils.Seal(data, kind.String(), keys.Signer, recipients)
	if err != nil {
		return hash, fmt.Errorf("failed to seal %s object: %w", kind, err)
	}
	encoded, err := env.Marshal()
	if err != nil {
		return hash, fmt.Errorf("failed to encode %s envelope: %w", kind, err)
	}

	var stored int
	for _, backend := range pending {
		if err := backend.Store(ctx, hash, kind, encoded); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			c.log.Warn("Failed to store object",
				slog.String("kind", kind.String()),
				slog.String("backend", backend.Name()),
				"err", err)
			continue
		}
		stored++
	}
	if stored == 0 && held == 0 {
		return hash, fmt.Errorf("failed to store %s object: %w", kind, errors.Join(errs...))
	}

	c.log.Info("Stored object",
		slog.String("kind", kind.String()),
		slog.String("hash", hash.String()),
		slog.Int("size", len(data)),
		slog.Int("recipients", len(env.Recipients)),
		slog.Int("backends", stored),
		slog.Int("up_to_date", held))
	c.metrics.IncObject(kind.String(), "stored")

	return hash, nil
}

// existing returns the envelope a backend holds for hash, or nil when it holds
// none or only an unreadable one.
func (c *ObjectStoreClient) existing(ctx context.Context, backend interfaces.StorageBackend, hash interfaces.ContentHash, kind interfaces.ObjectKind) (*cryptoutils.Envelope, error) {
	ok, err := backend.Exists(ctx, hash, kind)
	if err != nil || !ok {
		return nil, err
	}
	raw, err := backend.Fetch(ctx, hash, kind)
	if err != nil {
		return nil, err
	}
	env, err := cryptoutils.UnmarshalEnvelope(raw)
	if err != nil || !bytes.Equal(env.Hash, hash.Bytes()) {
		c.log.Warn("Replacing unreadable stored object",
			slog.String("kind", kind.String()),
			slog.String("hash", hash.String()),
			slog.String("backend", backend.Name()))
		return nil, nil
	}
	return env, nil
}

func mergeRecipients(recipients []*btcec.PublicKey, env *cryptoutils.Envelope) []*btcec.PublicKey {
	for _, r := range env.Recipients {
		pub, err := btcec.ParsePubKey(r.PublicKey)
		if err != nil {
			continue
		}
		if !containsKey(recipients, pub) {
			recipients = append(recipients, pub)
		}
	}
	return recipients
}

func containsKey(keys []*btcec.PublicKey, key *btcec.PublicKey) bool {
	for _, k := range keys {
		if k.IsEqual(key) {
			return true
		}
	}
	return false
}

// Get fetches and opens the envelope stored under hash.
func (c *ObjectStoreClient) Get(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind, key *btcec.PrivateKey) ([]byte, error) {
	raw, err := c.backend.Fetch(ctx, hash, kind)
	if err != nil {
		return nil, err
	}
	env, err := cryptoutils.UnmarshalEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(env.Hash, hash.Bytes()) {
		return nil, fmt.Errorf("%w: stored under %s but carries %x", cryptoutils.ErrInvalidEnvelope, hash.Short(), env.Hash)
	}
	return cryptoutils.Open(env, key)
}

// Close is a no-op; backends hold no long-lived connections.
func (c *ObjectStoreClient) Close() error {
	return nil
}
