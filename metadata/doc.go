// Package metadata derives metadata module addresses and builds the
// specification documents and write messages published to the chain.
//
// Addresses are a one byte type key followed by a 16-byte primary id and, for
// named sub-resources, a 16-byte secondary id taken from the sha256 of the
// trimmed lowercase name. Their text form is bech32 with a per-kind prefix.
//
// All documents and messages serialize to canonical protobuf bytes so that the
// same inputs always hash to the same specification id.
package metadata
