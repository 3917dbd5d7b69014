package bech32

import (
	"errors"
	"fmt"
	"strings"

	btcbech32 "github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

	// Separator divides the human-readable part from the data part.
	Separator = '1'

	// ChecksumLength is the number of 5-bit symbols in the checksum.
	ChecksumLength = 6

	// MinLength is the shortest valid string: a one-character prefix, the
	// separator and the checksum.
	MinLength = 8
	// MaxLength is the BIP-173 limit on the whole string.
	MaxLength = 90
)

// Decoding errors. Errors returned by this package wrap one of these.
var (
	ErrMixedCase        = errors.New("bech32: mixed case string")
	ErrInvalidLength    = errors.New("bech32: invalid length")
	ErrInvalidCharacter = errors.New("bech32: invalid character")
	ErrMissingSeparator = errors.New("bech32: missing separator")
	ErrInvalidChecksum  = errors.New("bech32: invalid checksum")
	ErrInvalidPadding   = errors.New("bech32: invalid padding")
)

// classify maps btcutil errors onto this package's sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var sentinel error
	switch e := err.(type) {
	case btcbech32.ErrMixedCase:
		sentinel = ErrMixedCase
	case btcbech32.ErrInvalidLength:
		sentinel = ErrInvalidLength
	case btcbech32.ErrInvalidCharacter, btcbech32.ErrNonCharsetChar, btcbech32.ErrInvalidDataByte:
		sentinel = ErrInvalidCharacter
	case btcbech32.ErrInvalidSeparatorIndex:
		if int(e) < 1 {
			sentinel = ErrMissingSeparator
		} else {
			sentinel = ErrInvalidLength
		}
	case btcbech32.ErrInvalidChecksum:
		sentinel = ErrInvalidChecksum
	case btcbech32.ErrInvalidIncompleteGroup:
		sentinel = ErrInvalidPadding
	default:
		return fmt.Errorf("bech32: %w", err)
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// ConvertBits regroups a byte slice from fromBits-wide groups into toBits-wide groups.
// With pad set, a trailing partial group is zero-padded; without it, leftover
// bits must be fewer than fromBits and all zero.
func ConvertBits(data []byte, fromBits, toBits uint8, pad bool) ([]byte, error) {
	for _, value := range data {
		if value>>fromBits != 0 {
			return nil, fmt.Errorf("%w: value %d exceeds %d bits", ErrInvalidCharacter, value, fromBits)
		}
	}
	out, err := btcbech32.ConvertBits(data, fromBits, toBits, pad)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Encode encodes 8-bit payload bytes under the given human-readable prefix.
func Encode(hrp string, payload []byte) (string, error) {
	data, err := ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return EncodeFromBase32(hrp, data)
}

// EncodeFromBase32 encodes data that is already grouped into 5-bit symbols.
// The result is lowercase and at most MaxLength characters.
func EncodeFromBase32(hrp string, data []byte) (string, error) {
	if len(hrp) == 0 {
		return "", fmt.Errorf("%w: empty human-readable part", ErrInvalidLength)
	}
	if total := len(hrp) + 1 + len(data) + ChecksumLength; total > MaxLength {
		return "", fmt.Errorf("%w: %d exceeds %d", ErrInvalidLength, total, MaxLength)
	}
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", fmt.Errorf("%w: %q in human-readable part", ErrInvalidCharacter, hrp[i])
		}
	}
	if strings.ToLower(hrp) != hrp && strings.ToUpper(hrp) != hrp {
		return "", ErrMixedCase
	}

	encoded, err := btcbech32.Encode(strings.ToLower(hrp), data)
	if err != nil {
		return "", classify(err)
	}
	return encoded, nil
}

// Decode decodes a bech32 string into its human-readable prefix and 8-bit payload.
func Decode(s string) (string, []byte, error) {
	hrp, data, err := DecodeToBase32(s)
	if err != nil {
		return "", nil, err
	}
	payload, err := ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, err
	}
	return hrp, payload, nil
}

// DecodeToBase32 decodes a bech32 string and returns the lowercase prefix and
// the 5-bit data symbols without the checksum.
func DecodeToBase32(s string) (string, []byte, error) {
	if len(s) < MinLength || len(s) > MaxLength {
		return "", nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidLength, len(s), MinLength, MaxLength)
	}
	hrp, data, err := btcbech32.Decode(s)
	if err != nil {
		return "", nil, classify(err)
	}
	return hrp, data, nil
}
