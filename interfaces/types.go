package interfaces

import (
	"context"

	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/metadata"
)

// Account is the on-chain state of a signing account.
type Account struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// TxResult describes a transaction included in a block.
type TxResult struct {
	TxHash    string
	Height    int64
	GasWanted uint64
	GasUsed   uint64
}

// ContractSpecState is an on-chain contract specification together with its
// record specifications.
type ContractSpecState struct {
	Specification metadata.ContractSpecification
	Records       []metadata.RecordSpecification
}

// HasRecord reports whether a record specification with the given address exists.
func (s *ContractSpecState) HasRecord(id metadata.MetadataAddress) bool {
	for _, r := range s.Records {
		if r.SpecificationID.Equal(id) {
			return true
		}
	}
	return false
}

// ChainClient queries metadata module state and writes transactions.
type ChainClient interface {
	// Account fetches the account number and current sequence of an address.
	Account(ctx context.Context, address string) (Account, error)

	// ScopeSpecification returns nil when the scope specification does not exist.
	ScopeSpecification(ctx context.Context, id metadata.MetadataAddress) (*metadata.ScopeSpecification, error)

	// ContractSpecification returns nil when the contract specification does not exist.
	ContractSpecification(ctx context.Context, id metadata.MetadataAddress) (*ContractSpecState, error)

	// WriteTx signs, broadcasts and waits for inclusion of msgs as one transaction.
	WriteTx(ctx context.Context, signer cryptoutils.Signer, msgs []metadata.Msg) (TxResult, error)

	// Close releases the client's connections.
	Close() error
}
