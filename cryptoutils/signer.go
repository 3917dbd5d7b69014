package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an encoded r||s signature.
const SignatureLength = 64

var (
	ErrSignatureOverflow = errors.New("signature component exceeds 32 bytes")

	curveOrder     = crypto.S256().Params().N
	curveHalfOrder = new(big.Int).Rsh(curveOrder, 1)
)

// Signer signs transaction payloads for a single chain account.
type Signer interface {
	// Address is the bech32 account address.
	Address() string
	// PubKey is the 33-byte compressed public key.
	PubKey() []byte
	// Sign returns a 64-byte low-S signature over sha256(payload).
	Sign(payload []byte) ([]byte, error)
}

// KeySigner is a Signer backed by an in-memory secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	pubKey  []byte
	address string
}

// NewSigner creates a signer for a secp256k1 key. mainNet selects the account address prefix.
func NewSigner(key *ecdsa.PrivateKey, mainNet bool) (*KeySigner, error) {
	if key == nil || key.Curve == nil || key.Curve.Params().N.Cmp(curveOrder) != 0 {
		return nil, fmt.Errorf("%w: signing key must be on secp256k1", ErrInvalidKey)
	}
	pub := crypto.CompressPubkey(&key.PublicKey)
	address, err := AccountAddress(pub, mainNet)
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: key, pubKey: pub, address: address}, nil
}

func (s *KeySigner) Address() string { return s.address }

// PubKey returns a copy of the compressed public key.
func (s *KeySigner) PubKey() []byte {
	out := make([]byte, len(s.pubKey))
	copy(out, s.pubKey)
	return out
}

// Sign uses RFC 6979 nonces, so equal payloads give equal signatures.
func (s *KeySigner) Sign(payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	r := new(big.Int).SetBytes(sig[:32])
	sv := new(big.Int).SetBytes(sig[32:64])
	return EncodeCanonical(r, sv)
}

// EncodeCanonical replaces s with N-s when s is in the upper half of the
// curve order and encodes r||s, each left-padded to 32 bytes.
func EncodeCanonical(r, s *big.Int) ([]byte, error) {
	if s.Cmp(curveHalfOrder) > 0 {
		s = new(big.Int).Sub(curveOrder, s)
	}
	if r.Sign() < 0 || s.Sign() < 0 || r.BitLen() > 256 || s.BitLen() > 256 {
		return nil, ErrSignatureOverflow
	}
	sig := make([]byte, 0, SignatureLength)
	sig = append(sig, math.PaddedBigBytes(r, 32)...)
	sig = append(sig, math.PaddedBigBytes(s, 32)...)
	return sig, nil
}

// VerifySignature checks a 64-byte low-S r||s signature over sha256(payload).
func VerifySignature(compressedPubKey, payload, sig []byte) bool {
	if len(sig) != SignatureLength {
		return false
	}
	if _, err := crypto.DecompressPubkey(compressedPubKey); err != nil {
		return false
	}
	digest := sha256.Sum256(payload)
	return crypto.VerifySignature(compressedPubKey, digest[:], sig)
}
