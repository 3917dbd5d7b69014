package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

type wireField struct {
	num    protowire.Number
	bytes  []byte
	varint uint64
}

func decodeWire(t *testing.T, b []byte) []wireField {
	t.Helper()
	var fields []wireField
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.GreaterOrEqual(t, n, 0, "bad tag")
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			require.GreaterOrEqual(t, n, 0, "bad length-delimited field %d", num)
			fields = append(fields, wireField{num: num, bytes: v})
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			require.GreaterOrEqual(t, n, 0, "bad varint field %d", num)
			fields = append(fields, wireField{num: num, varint: v})
			b = b[n:]
		default:
			t.Fatalf("unexpected wire type %d for field %d", typ, num)
		}
	}
	return fields
}

func fieldsNamed(fields []wireField, num protowire.Number) []wireField {
	var out []wireField
	for _, f := range fields {
		if f.num == num {
			out = append(out, f)
		}
	}
	return out
}

func testSigner(t *testing.T) *cryptoutils.KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := cryptoutils.NewSigner(key, false)
	require.NoError(t, err)
	return signer
}

func testMsg() metadata.Msg {
	return metadata.MsgAddContractSpecToScopeSpec{
		ContractSpecificationID: metadata.ForContractSpecification(uuid.MustParse("11111111-2222-3333-4444-555555555555")),
		ScopeSpecificationID:    metadata.ForScopeSpecification(uuid.MustParse("66666666-7777-8888-9999-000000000000")),
		Signers:                 []string{"tp1signer"},
	}
}

func TestEncodeAny(t *testing.T) {
	assert.Equal(t, []byte{0x0a, 0x02, '/', 'a', 0x12, 0x01, 0x01}, encodeAny("/a", []byte{0x01}))
	assert.Equal(t, []byte{0x0a, 0x02, '/', 'a'}, encodeAny("/a", nil))
}

func TestTxBatch_Sign(t *testing.T) {
	signer := testSigner(t)
	msg := testMsg()
	batch := TxBatch{
		Messages:      []metadata.Msg{msg},
		AccountNumber: 7,
		Sequence:      3,
	}
	gas := GasEstimate{Estimate: 100000, FeeAdjustment: 1.25, GasPrice: 1905}

	raw, err := batch.Sign(signer, "pio-testnet-1", gas, "nhash")
	require.NoError(t, err)

	txFields := decodeWire(t, raw)
	require.Len(t, txFields, 3)
	body := fieldsNamed(txFields, 1)[0].bytes
	authInfo := fieldsNamed(txFields, 2)[0].bytes
	sig := fieldsNamed(txFields, 3)[0].bytes

	require.Len(t, sig, cryptoutils.SignatureLength)
	assert.True(t, cryptoutils.VerifySignature(signer.PubKey(), SignDoc(body, authInfo, "pio-testnet-1", 7), sig))
	assert.False(t, cryptoutils.VerifySignature(signer.PubKey(), SignDoc(body, authInfo, "pio-mainnet-1", 7), sig))

	// body: one Any wrapping the message
	anyMsg := decodeWire(t, fieldsNamed(decodeWire(t, body), 1)[0].bytes)
	assert.Equal(t, msg.TypeURL(), string(fieldsNamed(anyMsg, 1)[0].bytes))
	assert.Equal(t, msg.Marshal(), fieldsNamed(anyMsg, 2)[0].bytes)

	auth := decodeWire(t, authInfo)
	signerInfo := decodeWire(t, fieldsNamed(auth, 1)[0].bytes)
	pubKeyAny := decodeWire(t, fieldsNamed(signerInfo, 1)[0].bytes)
	assert.Equal(t, secp256k1PubKeyTypeURL, string(fieldsNamed(pubKeyAny, 1)[0].bytes))
	assert.Equal(t, signer.PubKey(), fieldsNamed(decodeWire(t, fieldsNamed(pubKeyAny, 2)[0].bytes), 1)[0].bytes)
	modeInfo := decodeWire(t, fieldsNamed(signerInfo, 2)[0].bytes)
	single := decodeWire(t, fieldsNamed(modeInfo, 1)[0].bytes)
	assert.Equal(t, uint64(signModeDirect), fieldsNamed(single, 1)[0].varint)
	assert.Equal(t, uint64(3), fieldsNamed(signerInfo, 3)[0].varint)

	fee := decodeWire(t, fieldsNamed(auth, 2)[0].bytes)
	coin := decodeWire(t, fieldsNamed(fee, 1)[0].bytes)
	assert.Equal(t, "nhash", string(fieldsNamed(coin, 1)[0].bytes))
	assert.Equal(t, "238125000", string(fieldsNamed(coin, 2)[0].bytes))
	assert.Equal(t, uint64(125000), fieldsNamed(fee, 2)[0].varint)
}

func TestTxBatch_SimulationFee(t *testing.T) {
	auth := decodeWire(t, TxBatch{Sequence: 0}.AuthInfo([]byte{0x02}, GasEstimate{}, "nhash"))
	fee := decodeWire(t, fieldsNamed(auth, 2)[0].bytes)
	coin := decodeWire(t, fieldsNamed(fee, 1)[0].bytes)
	assert.Equal(t, "0", string(fieldsNamed(coin, 2)[0].bytes))
	assert.Empty(t, fieldsNamed(fee, 2), "zero gas limit is omitted")

	signerInfo := decodeWire(t, fieldsNamed(auth, 1)[0].bytes)
	assert.Empty(t, fieldsNamed(signerInfo, 3), "zero sequence is omitted")
}

func TestTxBatch_SignEmpty(t *testing.T) {
	_, err := TxBatch{}.Sign(testSigner(t), "chain", GasEstimate{}, "nhash")
	assert.Error(t, err)
}

func TestGasEstimate(t *testing.T) {
	tests := []struct {
		name  string
		gas   GasEstimate
		limit uint64
		fee   uint64
	}{
		{"defaults", GasEstimate{100000, 1.25, 1905.00}, 125000, 238125000},
		{"zero", GasEstimate{}, 0, 0},
		{"limit rounds up", GasEstimate{101, 1.25, 1}, 127, 127},
		{"fee rounds up", GasEstimate{101, 1.25, 0.5}, 127, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.limit, tt.gas.Limit())
			assert.Equal(t, tt.fee, tt.gas.Fee())
		})
	}
}
