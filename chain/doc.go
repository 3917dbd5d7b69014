// Package chain implements a client for a Provenance node's REST gateway.
//
// The client queries metadata module specifications and account state, and
// writes transactions through the full cycle of account fetch, gas
// simulation, signing, synchronous broadcast and inclusion polling. Writes
// that fail with an account sequence mismatch are retried with a freshly
// fetched sequence; every other rejection is returned to the caller as is.
//
// Transactions are encoded with protowire, field for field compatible with
// cosmos.tx.v1beta1, so no generated protobuf code is needed.
package chain
