package bech32

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ValidVectors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		hrp  string
	}{
		{name: "uppercase", in: "A12UEL5L", hrp: "a"},
		{name: "lowercase", in: "a12uel5l", hrp: "a"},
		{name: "words", in: "split1checkupstagehandshakeupstreamerranterredcaperred2y9e3w", hrp: "split"},
		{name: "full charset", in: "abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw", hrp: "abcdef"},
		{name: "punctuation hrp", in: "?1ezyfcl", hrp: "?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hrp, _, err := DecodeToBase32(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.hrp, hrp)
		})
	}
}

func TestDecodeToBase32_CharsetOrder(t *testing.T) {
	_, data, err := DecodeToBase32("abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw")
	require.NoError(t, err)
	require.Len(t, data, 32)
	for i, v := range data {
		assert.Equal(t, byte(i), v)
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "missing separator", in: "pzry9x0s0muk", wantErr: ErrMissingSeparator},
		{name: "empty hrp", in: "1pzry9x0s0muk", wantErr: ErrMissingSeparator},
		{name: "empty hrp short", in: "10a06t8", wantErr: ErrInvalidLength},
		{name: "invalid data character", in: "x1b4n0q5v", wantErr: ErrInvalidCharacter},
		{name: "checksum too short", in: "li1dgmt3", wantErr: ErrInvalidLength},
		{name: "uppercase checksum computed", in: "A1G7SGD8", wantErr: ErrInvalidChecksum},
		{name: "mixed case", in: "a12UEL5L", wantErr: ErrMixedCase},
		{name: "control character", in: "\x201nwldj5", wantErr: ErrInvalidCharacter},
		{name: "del character", in: "\x7f1axkwrx", wantErr: ErrInvalidCharacter},
		{name: "too short", in: "a1qqqqq", wantErr: ErrInvalidLength},
		{name: "too long", in: "a1" + strings.Repeat("q", 89), wantErr: ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0xff},
		bytes.Repeat([]byte{0xab}, 17),
		bytes.Repeat([]byte{0x01, 0x02, 0x03}, 11),
	}

	for _, hrp := range []string{"scope", "contractspec", "recspec", "pb", "tp"} {
		for _, payload := range payloads {
			encoded, err := Encode(hrp, payload)
			require.NoError(t, err)

			gotHRP, gotPayload, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, hrp, gotHRP)
			assert.True(t, bytes.Equal(payload, gotPayload), "payload mismatch for %s", encoded)

			_, upperPayload, err := Decode(strings.ToUpper(encoded))
			require.NoError(t, err)
			assert.True(t, bytes.Equal(payload, upperPayload))
		}
	}
}

func TestDecode_ChecksumTampering(t *testing.T) {
	encoded, err := Encode("scopespec", bytes.Repeat([]byte{0x42}, 17))
	require.NoError(t, err)

	sep := strings.LastIndexByte(encoded, Separator)
	for i := sep + 1; i < len(encoded); i++ {
		tampered := []byte(encoded)
		for _, c := range []byte(charset) {
			if c != encoded[i] {
				tampered[i] = c
				break
			}
		}
		_, _, err := Decode(string(tampered))
		assert.ErrorIs(t, err, ErrInvalidChecksum, "flipping position %d must fail", i)
	}
}

func TestConvertBits_StrictDecode(t *testing.T) {
	// A single 5-bit group cannot hold a whole byte.
	_, err := ConvertBits([]byte{0x1f}, 5, 8, false)
	assert.ErrorIs(t, err, ErrInvalidPadding)

	// Two groups hold 10 bits: 8 data bits plus 2 padding bits that must be zero.
	_, err = ConvertBits([]byte{0x00, 0x01}, 5, 8, false)
	assert.ErrorIs(t, err, ErrInvalidPadding)

	out, err := ConvertBits([]byte{0x1f, 0x1c}, 5, 8, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, out)
}

func TestEncode_RejectsOversize(t *testing.T) {
	_, err := Encode("hrp", bytes.Repeat([]byte{0x01}, 60))
	assert.ErrorIs(t, err, ErrInvalidLength)
}
