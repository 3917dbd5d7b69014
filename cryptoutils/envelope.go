package cryptoutils

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// EnvelopeVersion is authenticated as additional data of every ciphertext.
const EnvelopeVersion uint8 = 1

// Errors returned by Open.
var (
	ErrNotRecipient      = errors.New("key is not a recipient of the envelope")
	ErrInvalidEnvelope   = errors.New("invalid envelope")
	ErrEnvelopeSignature = errors.New("envelope signature verification failed")

	hkdfInfoKeyWrap = []byte("contract-spec-publisher.envelope.keywrap.v1")
)

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cryptoutils: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("cryptoutils: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("cryptoutils: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cryptoutils: zstd decoder initialization failed: " + err.Error())
	}
}

// Recipient carries the data key wrapped for one public key.
type Recipient struct {
	PublicKey    []byte `cbor:"1,keyasint"`
	EphemeralKey []byte `cbor:"2,keyasint"`
	Nonce        []byte `cbor:"3,keyasint"`
	WrappedKey   []byte `cbor:"4,keyasint"`
}

// Envelope is the stored form of an object: the zstd-compressed plaintext
// sealed under a random data key, the data key wrapped per recipient, and a
// signature by the publishing account over the plaintext hash.
type Envelope struct {
	Version    uint8       `cbor:"1,keyasint"`
	Hash       []byte      `cbor:"2,keyasint"`
	Kind       string      `cbor:"3,keyasint"`
	Nonce      []byte      `cbor:"4,keyasint"`
	Ciphertext []byte      `cbor:"5,keyasint"`
	Recipients []Recipient `cbor:"6,keyasint"`
	SignerKey  []byte      `cbor:"7,keyasint"`
	Signature  []byte      `cbor:"8,keyasint"`
}

func contentAAD(hash []byte) []byte {
	return append([]byte{EnvelopeVersion}, hash...)
}

func deriveWrapKey(shared, ephemeral, recipient []byte) ([]byte, error) {
	salt := make([]byte, 0, len(ephemeral)+len(recipient))
	salt = append(salt, ephemeral...)
	salt = append(salt, recipient...)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, hkdfInfoKeyWrap), key); err != nil {
		return nil, fmt.Errorf("failed to derive wrap key: %w", err)
	}
	return key, nil
}

func wrapKey(dataKey, hash []byte, recipient *btcec.PublicKey) (Recipient, error) {
	ephemeral, err := btcec.NewPrivateKey()
	if err != nil {
		return Recipient{}, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	ephemeralPub := ephemeral.PubKey().SerializeCompressed()
	recipientPub := recipient.SerializeCompressed()

	kek, err := deriveWrapKey(btcec.GenerateSharedSecret(ephemeral, recipient), ephemeralPub, recipientPub)
	if err != nil {
		return Recipient{}, err
	}
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return Recipient{}, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return Recipient{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return Recipient{
		PublicKey:    recipientPub,
		EphemeralKey: ephemeralPub,
		Nonce:        nonce,
		WrappedKey:   aead.Seal(nil, nonce, dataKey, hash),
	}, nil
}

func unwrapKey(r Recipient, hash []byte, key *btcec.PrivateKey) ([]byte, error) {
	ephemeral, err := btcec.ParsePubKey(r.EphemeralKey)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrInvalidEnvelope, err)
	}
	kek, err := deriveWrapKey(btcec.GenerateSharedSecret(key, ephemeral), r.EphemeralKey, r.PublicKey)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}
	dataKey, err := aead.Open(nil, r.Nonce, r.WrappedKey, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unwrap data key", ErrInvalidEnvelope)
	}
	return dataKey, nil
}

// Seal builds an envelope for plaintext readable by every recipient and signed by signer.
func Seal(plaintext []byte, kind string, signer Signer, recipients []*btcec.PublicKey) (*Envelope, error) {
	if len(recipients) == 0 {
		return nil, errors.New("envelope needs at least one recipient")
	}
	sum := sha256.Sum256(plaintext)
	hash := sum[:]

	dataKey := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(dataKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	env := &Envelope{
		Version:    EnvelopeVersion,
		Hash:       hash,
		Kind:       kind,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, zstdEncoder.EncodeAll(plaintext, nil), contentAAD(hash)),
		SignerKey:  signer.PubKey(),
	}

	seen := make(map[string]struct{}, len(recipients))
	for _, pub := range recipients {
		id := string(pub.SerializeCompressed())
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		r, err := wrapKey(dataKey, hash, pub)
		if err != nil {
			return nil, err
		}
		env.Recipients = append(env.Recipients, r)
	}

	env.Signature, err = signer.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign envelope: %w", err)
	}
	return env, nil
}

// Open verifies the envelope signature, unwraps the data key for key and
// returns the plaintext. The plaintext hash must match the envelope hash.
func Open(env *Envelope, key *btcec.PrivateKey) ([]byte, error) {
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidEnvelope, env.Version)
	}
	if !VerifySignature(env.SignerKey, env.Hash, env.Signature) {
		return nil, ErrEnvelopeSignature
	}

	self := key.PubKey().SerializeCompressed()
	var dataKey []byte
	for _, r := range env.Recipients {
		if !bytes.Equal(r.PublicKey, self) {
			continue
		}
		var err error
		if dataKey, err = unwrapKey(r, env.Hash, key); err != nil {
			return nil, err
		}
		break
	}
	if dataKey == nil {
		return nil, ErrNotRecipient
	}

	aead, err := chacha20poly1305.NewX(dataKey)
	if err != nil {
		return nil, err
	}
	compressed, err := aead.Open(nil, env.Nonce, env.Ciphertext, contentAAD(env.Hash))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt content", ErrInvalidEnvelope)
	}
	plaintext, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress content: %v", ErrInvalidEnvelope, err)
	}
	if sum := sha256.Sum256(plaintext); !bytes.Equal(sum[:], env.Hash) {
		return nil, fmt.Errorf("%w: content hash mismatch", ErrInvalidEnvelope)
	}
	return plaintext, nil
}

// HasRecipients reports whether every key can unwrap the data key.
func (e *Envelope) HasRecipients(keys []*btcec.PublicKey) bool {
	for _, key := range keys {
		self := key.SerializeCompressed()
		found := false
		for _, r := range e.Recipients {
			if bytes.Equal(r.PublicKey, self) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Marshal encodes the envelope with CBOR core deterministic encoding.
func (e *Envelope) Marshal() ([]byte, error) {
	return encMode.Marshal(e)
}

// UnmarshalEnvelope decodes an envelope without verifying it; see Open.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return &env, nil
}
