// Package bech32 implements the BIP-173 checksummed base32 encoding used for
// chain account addresses and metadata addresses.
//
// Strings are at most 90 characters, consist of a human-readable part, the
// separator '1', a data part and a 6 symbol checksum. Decoding rejects mixed
// case input, characters outside [33,126], missing separators, bad checksums
// and non-zero padding bits.
package bech32
