// Package interfaces defines the core interfaces and types of the publisher,
// separating interface definitions from their implementations.
//
// # Storage Interfaces
//
// StorageBackend: Stores opaque values keyed by the content hash of the
// plaintext they carry, across multiple backend types (file, S3, IPFS, Vault,
// memory).
//
// StorageBackendFactory: Creates storage backends from URIs and combines them
// into a fan-out backend.
//
// ObjectStore: Content-addressed put and get of artifact bundles and
// specification documents, encrypted for the owner and an audience.
//
// # Chain Interfaces
//
// ChainClient: Queries scope and contract specifications and accounts, and
// writes metadata messages as signed transactions.
//
// # Types
//
// ContentHash, ObjectKind and StorageBackendLocation identify stored objects
// and backends. Account, TxResult and ContractSpecState carry chain state.
package interfaces
