package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAddress(t *testing.T) {
	id := "2b4c1d6e-6f43-4a7c-9d39-6c2e8d0a1b11"
	session := "9f0e3b52-1c7d-4e8a-8b61-0d4f2a6c9e33"

	tests := []struct {
		kind     string
		name     string
		expected metadata.AddressKind
		wantErr  bool
	}{
		{kind: "scope", expected: metadata.KindScope},
		{kind: "session", expected: metadata.KindSession},
		{kind: "record", name: "loan", expected: metadata.KindRecord},
		{kind: "record", wantErr: true},
		{kind: "scopespec", expected: metadata.KindScopeSpecification},
		{kind: "contractspec", expected: metadata.KindContractSpecification},
		{kind: "recspec", name: "loan", expected: metadata.KindRecordSpecification},
		{kind: "recspec", name: "   ", wantErr: true},
		{kind: "wallet", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.name, func(t *testing.T) {
			addr, err := encodeAddress(tt.kind, id, tt.name, session)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, addr.Kind())
			assert.Equal(t, uuid.MustParse(id), addr.PrimaryUUID())

			encoded, err := addr.Bech32()
			require.NoError(t, err)
			decoded, err := metadata.FromBech32(encoded)
			require.NoError(t, err)
			assert.Equal(t, addr, decoded)
		})
	}
}

func TestEncodeAddress_InvalidUUID(t *testing.T) {
	_, err := encodeAddress("scope", "not-a-uuid", "", "")
	assert.Error(t, err)

	_, err = encodeAddress("session", "2b4c1d6e-6f43-4a7c-9d39-6c2e8d0a1b11", "", "")
	assert.Error(t, err)
}
