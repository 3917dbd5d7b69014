package chain

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_WriteTx(t *testing.T) {
	ctx := context.Background()
	chain := NewMemoryClient()
	signer := testSigner(t)

	specUUID := uuid.New()
	scopeID := metadata.ForScopeSpecification(uuid.New())
	contractID := metadata.ForContractSpecification(specUUID)
	recordID, err := metadata.ForRecordSpecification(specUUID, "result")
	require.NoError(t, err)

	// link to an unknown scope spec fails the whole transaction
	_, err = chain.WriteTx(ctx, signer, []metadata.Msg{
		metadata.MsgWriteContractSpecification{Specification: metadata.ContractSpecification{SpecificationID: contractID}},
		metadata.MsgAddContractSpecToScopeSpec{ContractSpecificationID: contractID, ScopeSpecificationID: scopeID},
	})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	state, err := chain.ContractSpecification(ctx, contractID)
	require.NoError(t, err)
	assert.Nil(t, state)

	result, err := chain.WriteTx(ctx, signer, []metadata.Msg{
		metadata.MsgWriteScopeSpecification{Specification: metadata.ScopeSpecification{SpecificationID: scopeID}},
		metadata.MsgWriteContractSpecification{Specification: metadata.ContractSpecification{SpecificationID: contractID}},
		metadata.MsgWriteRecordSpecification{Specification: metadata.RecordSpecification{SpecificationID: recordID, Name: "result"}},
		metadata.MsgAddContractSpecToScopeSpec{ContractSpecificationID: contractID, ScopeSpecificationID: scopeID},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Height)
	assert.NotEmpty(t, result.TxHash)

	scope, err := chain.ScopeSpecification(ctx, scopeID)
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.True(t, scope.HasContractSpec(contractID))

	state, err = chain.ContractSpecification(ctx, contractID)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.HasRecord(recordID))

	acct, err := chain.Account(ctx, signer.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), acct.Sequence)
	assert.Len(t, chain.Transactions(), 1)
}
