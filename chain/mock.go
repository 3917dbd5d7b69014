package chain

import (
	"context"

	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/interfaces"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/stretchr/testify/mock"
)

// MockClient mocks the ChainClient interface
type MockClient struct {
	mock.Mock
}

var _ interfaces.ChainClient = (*MockClient)(nil)

// Account mocks the Account method
func (m *MockClient) Account(ctx context.Context, address string) (interfaces.Account, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(interfaces.Account), args.Error(1)
}

// ScopeSpecification mocks the ScopeSpecification method
func (m *MockClient) ScopeSpecification(ctx context.Context, id metadata.MetadataAddress) (*metadata.ScopeSpecification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metadata.ScopeSpecification), args.Error(1)
}

// ContractSpecification mocks the ContractSpecification method
func (m *MockClient) ContractSpecification(ctx context.Context, id metadata.MetadataAddress) (*interfaces.ContractSpecState, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ContractSpecState), args.Error(1)
}

// WriteTx mocks the WriteTx method
func (m *MockClient) WriteTx(ctx context.Context, signer cryptoutils.Signer, msgs []metadata.Msg) (interfaces.TxResult, error) {
	args := m.Called(ctx, signer, msgs)
	return args.Get(0).(interfaces.TxResult), args.Error(1)
}

// Close mocks the Close method
func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
