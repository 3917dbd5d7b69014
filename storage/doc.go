// Package storage provides the content-addressed object store used to publish
// artifact bundles and specification documents, over pluggable backends.
//
// Objects are keyed by the SHA-256 of their plaintext. The stored value is a
// signed, encrypted envelope (see cryptoutils.Envelope), so the same plaintext
// always maps to the same key while the stored bytes differ per upload. An
// upload is skipped when the key already exists.
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/contract-specs/
//   - s3://[KEY:SECRET@]bucket-name/prefix/?region=us-west-2&endpoint=minio:9000
//   - ipfs://ipfs.example.com:5001/contract-specs?timeout=30s
//   - vault://vault.example.com:8200/secret/contract-specs?token=...
//   - memory://name
//
// # Layout
//
// Every backend stores an object under <kind>/<hex hash>, where kind is one
// of "contract", "schema" or "spec".
//
// # Multiple Backends
//
// A Location listing several URIs gets a MultiStorageBackend. Writes go to
// every available backend and succeed if one of them stored the object. Reads
// return the first backend that has the object. Existence checks report true
// if any backend has it.
package storage
