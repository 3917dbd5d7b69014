package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/contract-spec-publisher/bech32"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // hash160 is part of the address format
)

// Account address prefixes.
const (
	MainNetPrefix = "pb"
	TestNetPrefix = "tp"
)

// ErrInvalidKey is wrapped by every key parsing error.
var ErrInvalidKey = errors.New("invalid key")

func decodeHexKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return b, nil
}

// ParsePrivateKey parses a raw 32-byte secp256k1 scalar in hex, with or
// without a 0x prefix.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	b, err := decodeHexKey(s)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// ParseEncryptionKey parses a hex secp256k1 scalar used to unwrap envelopes.
func ParseEncryptionKey(s string) (*btcec.PrivateKey, error) {
	b, err := decodeHexKey(s)
	if err != nil {
		return nil, err
	}
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d", ErrInvalidKey, btcec.PrivKeyBytesLen, len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("%w: zero encryption key", ErrInvalidKey)
	}
	return priv, nil
}

// ParsePublicKey parses a SEC1 compressed or uncompressed secp256k1 public key in hex.
func ParsePublicKey(s string) (*btcec.PublicKey, error) {
	b, err := decodeHexKey(s)
	if err != nil {
		return nil, err
	}
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

// Hash160 is ripemd160(sha256(b)).
func Hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// AccountAddress returns the bech32 account address of a compressed public key.
func AccountAddress(compressedPubKey []byte, mainNet bool) (string, error) {
	prefix := TestNetPrefix
	if mainNet {
		prefix = MainNetPrefix
	}
	return bech32.Encode(prefix, Hash160(compressedPubKey))
}
