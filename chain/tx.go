package chain

import (
	"fmt"
	"strconv"

	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/internal/protoenc"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	secp256k1PubKeyTypeURL = "/cosmos.crypto.secp256k1.PubKey"
	signModeDirect         = 1
)

// TxBatch is an ordered list of messages bound to the signer's account
// number and sequence at the time it was built. A batch is signed once; a
// retry builds a new batch with the refetched sequence.
type TxBatch struct {
	Messages      []metadata.Msg
	Memo          string
	AccountNumber uint64
	Sequence      uint64
}

// Body encodes cosmos.tx.v1beta1.TxBody.
func (b TxBatch) Body() []byte {
	var out []byte
	for _, msg := range b.Messages {
		out = protoenc.AppendMessage(out, 1, encodeAny(msg.TypeURL(), msg.Marshal()))
	}
	out = protoenc.AppendString(out, 2, b.Memo)
	return out
}

// AuthInfo encodes cosmos.tx.v1beta1.AuthInfo for a single secp256k1 signer
// in SIGN_MODE_DIRECT paying fee in denom.
func (b TxBatch) AuthInfo(pubKey []byte, gas GasEstimate, denom string) []byte {
	var key []byte
	key = protoenc.AppendBytes(key, 1, pubKey)

	var single []byte
	single = protoenc.AppendVarint(single, 1, signModeDirect)
	var modeInfo []byte
	modeInfo = protoenc.AppendMessage(modeInfo, 1, single)

	var signerInfo []byte
	signerInfo = protoenc.AppendMessage(signerInfo, 1, encodeAny(secp256k1PubKeyTypeURL, key))
	signerInfo = protoenc.AppendMessage(signerInfo, 2, modeInfo)
	signerInfo = protoenc.AppendVarint(signerInfo, 3, b.Sequence)

	var coin []byte
	coin = protoenc.AppendString(coin, 1, denom)
	coin = protoenc.AppendString(coin, 2, strconv.FormatUint(gas.Fee(), 10))

	var fee []byte
	fee = protoenc.AppendMessage(fee, 1, coin)
	fee = protoenc.AppendVarint(fee, 2, gas.Limit())

	var out []byte
	out = protoenc.AppendMessage(out, 1, signerInfo)
	out = protoenc.AppendMessage(out, 2, fee)
	return out
}

// SignDoc encodes cosmos.tx.v1beta1.SignDoc, the payload covered by a
// SIGN_MODE_DIRECT signature.
func SignDoc(body, authInfo []byte, chainID string, accountNumber uint64) []byte {
	var out []byte
	out = protoenc.AppendBytes(out, 1, body)
	out = protoenc.AppendBytes(out, 2, authInfo)
	out = protoenc.AppendString(out, 3, chainID)
	out = protoenc.AppendVarint(out, 4, accountNumber)
	return out
}

// TxRaw encodes cosmos.tx.v1beta1.TxRaw.
func TxRaw(body, authInfo []byte, signatures ...[]byte) []byte {
	var out []byte
	out = protoenc.AppendBytes(out, 1, body)
	out = protoenc.AppendBytes(out, 2, authInfo)
	for _, sig := range signatures {
		out = protowire.AppendTag(out, 3, protowire.BytesType)
		out = protowire.AppendBytes(out, sig)
	}
	return out
}

// Sign builds and signs the batch, returning TxRaw bytes ready to simulate or
// broadcast.
func (b TxBatch) Sign(signer cryptoutils.Signer, chainID string, gas GasEstimate, denom string) ([]byte, error) {
	if len(b.Messages) == 0 {
		return nil, fmt.Errorf("cannot sign an empty batch")
	}
	body := b.Body()
	authInfo := b.AuthInfo(signer.PubKey(), gas, denom)
	sig, err := signer.Sign(SignDoc(body, authInfo, chainID, b.AccountNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return TxRaw(body, authInfo, sig), nil
}

func encodeAny(typeURL string, value []byte) []byte {
	var out []byte
	out = protoenc.AppendString(out, 1, typeURL)
	out = protoenc.AppendBytes(out, 2, value)
	return out
}
