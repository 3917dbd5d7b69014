package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/contract-spec-publisher/interfaces"
)

// IPFSBackend stores objects in the mutable file system of an IPFS node under
// <root>/<kind>/<hash>, so lookups by content hash need no separate index.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	root        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS storage backend connected to the API at host:port.
func NewIPFSBackend(host, port, root string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)
	root = "/" + strings.Trim(root, "/")

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		root:        root,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s?timeout=%s", apiURL, root, timeout),
	}, nil
}

func isIPFSNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "file does not exist") || strings.Contains(msg, "no link named")
}

// Fetch returns ErrContentNotFound if the object doesn't exist or
// ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Fetch(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) ([]byte, error) {
	start := time.Now()
	p := b.getIPFSPath(hash, kind)

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, p)
	if err != nil {
		if isIPFSNotFound(err) {
			return nil, interfaces.ErrContentNotFound
		}
		b.log.Error("Failed to read object from IPFS",
			slog.String("path", p),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read object from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Fetched object from IPFS",
		slog.String("path", p),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store writes the object and validates the CID the node reports for it.
func (b *IPFSBackend) Store(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind, data []byte) error {
	if !b.shell.IsUp() {
		return interfaces.ErrBackendUnavailable
	}

	p := b.getIPFSPath(hash, kind)
	err := b.shell.FilesWrite(ctx, p, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return fmt.Errorf("failed to write object to IPFS: %w", err)
	}

	stat, err := b.shell.FilesStat(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to stat object in IPFS: %w", err)
	}
	c, err := cid.Decode(stat.Hash)
	if err != nil {
		return fmt.Errorf("IPFS returned invalid CID %q: %w", stat.Hash, err)
	}

	b.log.Debug("Stored object in IPFS",
		slog.String("ipfsCID", c.String()),
		slog.String("hash", hash.Short()),
		slog.String("kind", kind.String()))

	return nil
}

// Exists stats the object in the node's MFS tree.
func (b *IPFSBackend) Exists(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) (bool, error) {
	if !b.shell.IsUp() {
		return false, interfaces.ErrBackendUnavailable
	}
	_, err := b.shell.FilesStat(ctx, b.getIPFSPath(hash, kind))
	if err != nil {
		if isIPFSNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object in IPFS: %w", err)
	}
	return true, nil
}

func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) getIPFSPath(hash interfaces.ContentHash, kind interfaces.ObjectKind) string {
	return path.Join(b.root, kind.String(), hash.Hex())
}
