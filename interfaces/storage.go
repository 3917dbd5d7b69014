package interfaces

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ruteri/contract-spec-publisher/cryptoutils"
)

// ContentHash is the SHA-256 of an object's plaintext.
type ContentHash [32]byte

// ComputeHash calculates the content hash of plaintext data.
func ComputeHash(data []byte) ContentHash {
	return ContentHash(sha256.Sum256(data))
}

// NewContentHashFromBytes requires exactly 32 bytes.
func NewContentHashFromBytes(source []byte) (ContentHash, error) {
	if len(source) != 32 {
		return ContentHash{}, errors.New("invalid content hash: incorrect length")
	}
	var hash ContentHash
	copy(hash[:], source)
	return hash, nil
}

// NewContentHashFromString parses the base64 text form of a content hash.
func NewContentHashFromString(source string) (ContentHash, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(source))
	if err != nil {
		return ContentHash{}, fmt.Errorf("invalid base64 content hash: %w", err)
	}
	return NewContentHashFromBytes(raw)
}

// String returns the base64 text form.
func (h ContentHash) String() string {
	return base64.StdEncoding.EncodeToString(h[:])
}

// Hex returns the hex form, used for storage keys.
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// Short returns an abbreviated hex form for logging.
func (h ContentHash) Short() string {
	return hex.EncodeToString(h[:8])
}

func (h ContentHash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether the hash was never set.
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

// ObjectKind indicates the storage namespace of an object.
type ObjectKind int

const (
	// ContractBundle holds the executable contract bundle.
	ContractBundle ObjectKind = iota
	// SchemaBundle holds the schema type bundle.
	SchemaBundle
	// SpecDocument holds a serialized contract specification document.
	SpecDocument
)

func (k ObjectKind) String() string {
	switch k {
	case ContractBundle:
		return "contract"
	case SchemaBundle:
		return "schema"
	case SpecDocument:
		return "spec"
	default:
		return "unknown"
	}
}

// ObjectKinds lists every kind, in storage layout order.
var ObjectKinds = []ObjectKind{ContractBundle, SchemaBundle, SpecDocument}

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStorageBackendLocation parses and validates a storage URI.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "file", "s3", "ipfs", "vault", "memory":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend stores opaque values keyed by the content hash of the plaintext they carry.
type StorageBackend interface {
	// Fetch retrieves the stored value for a hash and kind.
	Fetch(ctx context.Context, hash ContentHash, kind ObjectKind) ([]byte, error)

	// Store saves a value under hash and kind.
	Store(ctx context.Context, hash ContentHash, kind ObjectKind, data []byte) error

	// Exists reports whether a value is stored under hash and kind.
	Exists(ctx context.Context, hash ContentHash, kind ObjectKind) (bool, error)

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, s3://, ipfs://, vault://, memory://
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)
}

// PutKeys is the key material used to store an object.
type PutKeys struct {
	Signer        cryptoutils.Signer
	EncryptionKey *btcec.PrivateKey
	Audience      []*btcec.PublicKey
}

// ObjectStore is a content-addressed object store that encrypts objects for
// the owner and audience keys.
type ObjectStore interface {
	// Put stores data unless every backend already holds an object with the
	// same plaintext hash that all requested recipients can open.
	Put(ctx context.Context, data []byte, kind ObjectKind, keys PutKeys) (ContentHash, error)

	// Get fetches and decrypts an object.
	Get(ctx context.Context, hash ContentHash, kind ObjectKind, key *btcec.PrivateKey) ([]byte, error)

	// Close releases backend connections.
	Close() error
}
