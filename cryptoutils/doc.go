// Package cryptoutils provides the key handling, transaction signing and
// object encryption used by the publisher.
//
//   - ParsePrivateKey, ParseEncryptionKey and ParsePublicKey read hex encoded
//     secp256k1 keys.
//   - KeySigner signs SHA-256 digests with low-S canonical 64-byte signatures
//     and derives the bech32 account address of its key.
//   - Seal and Open build and open envelopes: zstd compressed plaintext under
//     XChaCha20-Poly1305, the data key wrapped per recipient with ECDH and
//     HKDF, signed over the plaintext hash and encoded as deterministic CBOR.
package cryptoutils
