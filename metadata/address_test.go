package metadata

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testScopeUUID   = uuid.MustParse("9b0e5ce1-2a3f-4c2e-9a56-1f7cbe4c4a10")
	testSessionUUID = uuid.MustParse("0d6f6b1c-6b53-4a43-9c4e-2ef1b2c3d4e5")
)

func allAddresses(t *testing.T) []MetadataAddress {
	record, err := ForRecord(testScopeUUID, "loan")
	require.NoError(t, err)
	recSpec, err := ForRecordSpecification(testScopeUUID, "loan")
	require.NoError(t, err)

	return []MetadataAddress{
		ForScope(testScopeUUID),
		ForSession(testScopeUUID, testSessionUUID),
		record,
		ForContractSpecification(testScopeUUID),
		ForScopeSpecification(testScopeUUID),
		recSpec,
	}
}

func TestMetadataAddress_Layout(t *testing.T) {
	tests := []struct {
		addr   MetadataAddress
		kind   AddressKind
		length int
		prefix string
	}{
		{ForScope(testScopeUUID), KindScope, 17, "scope"},
		{ForSession(testScopeUUID, testSessionUUID), KindSession, 33, "session"},
		{ForContractSpecification(testScopeUUID), KindContractSpecification, 17, "contractspec"},
		{ForScopeSpecification(testScopeUUID), KindScopeSpecification, 17, "scopespec"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.addr.Kind())
			assert.Len(t, tt.addr, tt.length)
			assert.Equal(t, tt.prefix, tt.addr.Kind().Prefix())
			assert.Equal(t, testScopeUUID, tt.addr.PrimaryUUID())
		})
	}

	session := ForSession(testScopeUUID, testSessionUUID)
	assert.Equal(t, testSessionUUID[:], session.SecondaryBytes())
	assert.Nil(t, ForScope(testScopeUUID).SecondaryBytes())
}

func TestMetadataAddress_RoundTrip(t *testing.T) {
	for _, addr := range allAddresses(t) {
		t.Run(addr.Kind().String(), func(t *testing.T) {
			fromBytes, err := FromBytes(addr)
			require.NoError(t, err)
			assert.True(t, addr.Equal(fromBytes))

			text, err := addr.Bech32()
			require.NoError(t, err)
			assert.Equal(t, text, addr.String())

			decoded, err := FromBech32(text)
			require.NoError(t, err)
			assert.True(t, addr.Equal(decoded))
			assert.Equal(t, addr.Kind(), decoded.Kind())
			assert.Equal(t, addr.PrimaryUUID(), decoded.PrimaryUUID())
			assert.Equal(t, addr.SecondaryBytes(), decoded.SecondaryBytes())
		})
	}
}

func TestNameHash_Normalization(t *testing.T) {
	assert.Equal(t, NameHash("loan"), NameHash("  LOAN \n"))
	assert.NotEqual(t, NameHash("loan"), NameHash("loans"))
	assert.Len(t, NameHash("loan"), 16)

	a, err := ForRecordSpecification(testScopeUUID, "Loan")
	require.NoError(t, err)
	b, err := ForRecordSpecification(testScopeUUID, " loan ")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestNamedAddress_RejectsBlankName(t *testing.T) {
	_, err := ForRecord(testScopeUUID, "")
	assert.ErrorIs(t, err, ErrBlankName)

	_, err = ForRecordSpecification(testScopeUUID, "   ")
	assert.ErrorIs(t, err, ErrBlankName)
}

func TestFromBytes_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{name: "empty", in: nil},
		{name: "unknown type key", in: append([]byte{0x09}, bytes.Repeat([]byte{1}, 16)...)},
		{name: "scope too long", in: append([]byte{byte(KindScope)}, bytes.Repeat([]byte{1}, 32)...)},
		{name: "record spec too short", in: append([]byte{byte(KindRecordSpecification)}, bytes.Repeat([]byte{1}, 16)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBytes(tt.in)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestFromBech32_PrefixCrossCheck(t *testing.T) {
	addr := ForScope(testScopeUUID)
	mislabeled, err := bech32.Encode("scopespec", addr)
	require.NoError(t, err)

	_, err = FromBech32(mislabeled)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = FromBech32("scope1qqqqqqq")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestFromBytes_Copies(t *testing.T) {
	raw := []byte(ForScope(testScopeUUID))
	addr, err := FromBytes(raw)
	require.NoError(t, err)
	raw[1] ^= 0xff
	assert.Equal(t, testScopeUUID, addr.PrimaryUUID())
}
