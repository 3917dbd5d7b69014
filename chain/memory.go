package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/interfaces"
	"github.com/ruteri/contract-spec-publisher/metadata"
)

// MemoryClient is an in-memory chain holding metadata specifications. It
// applies written messages immediately and records every transaction, which
// makes it usable for dry runs and tests without a node.
type MemoryClient struct {
	mutex         sync.RWMutex
	sequences     map[string]uint64
	scopeSpecs    map[string]metadata.ScopeSpecification
	contractSpecs map[string]metadata.ContractSpecification
	recordSpecs   map[string][]metadata.RecordSpecification
	txs           [][]metadata.Msg
	height        int64
}

var _ interfaces.ChainClient = (*MemoryClient)(nil)

// NewMemoryClient returns an empty chain with no accounts.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		sequences:     make(map[string]uint64),
		scopeSpecs:    make(map[string]metadata.ScopeSpecification),
		contractSpecs: make(map[string]metadata.ContractSpecification),
		recordSpecs:   make(map[string][]metadata.RecordSpecification),
	}
}

func memKey(id metadata.MetadataAddress) string {
	return string(id)
}

// Account reports sequence 0 for addresses that never wrote.
func (m *MemoryClient) Account(ctx context.Context, address string) (interfaces.Account, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return interfaces.Account{Address: address, Sequence: m.sequences[address]}, nil
}

func (m *MemoryClient) ScopeSpecification(ctx context.Context, id metadata.MetadataAddress) (*metadata.ScopeSpecification, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	spec, ok := m.scopeSpecs[memKey(id)]
	if !ok {
		return nil, nil
	}
	spec.ContractSpecIDs = append([]metadata.MetadataAddress(nil), spec.ContractSpecIDs...)
	return &spec, nil
}

func (m *MemoryClient) ContractSpecification(ctx context.Context, id metadata.MetadataAddress) (*interfaces.ContractSpecState, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	spec, ok := m.contractSpecs[memKey(id)]
	if !ok {
		return nil, nil
	}
	return &interfaces.ContractSpecState{
		Specification: spec,
		Records:       append([]metadata.RecordSpecification(nil), m.recordSpecs[memKey(id)]...),
	}, nil
}

// WriteTx applies msgs atomically: either all messages apply or none do.
func (m *MemoryClient) WriteTx(ctx context.Context, signer cryptoutils.Signer, msgs []metadata.Msg) (interfaces.TxResult, error) {
	if len(msgs) == 0 {
		return interfaces.TxResult{}, errors.New("no messages to write")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	scopes := make(map[string]metadata.ScopeSpecification)
	for _, msg := range msgs {
		if err := m.apply(msg, scopes); err != nil {
			return interfaces.TxResult{}, &RejectedError{Code: 1, Codespace: "metadata", RawLog: err.Error()}
		}
	}

	// every message validated, apply in order
	for _, msg := range msgs {
		m.commit(msg)
	}

	m.txs = append(m.txs, append([]metadata.Msg(nil), msgs...))
	m.sequences[signer.Address()]++
	m.height++

	h := sha256.New()
	for _, msg := range msgs {
		h.Write(msg.Marshal())
	}
	return interfaces.TxResult{
		TxHash: strings.ToUpper(hex.EncodeToString(h.Sum(nil))),
		Height: m.height,
	}, nil
}

// apply validates msg against current state plus scope specs staged earlier
// in the same transaction.
func (m *MemoryClient) apply(msg metadata.Msg, staged map[string]metadata.ScopeSpecification) error {
	switch msg := msg.(type) {
	case metadata.MsgWriteScopeSpecification:
		staged[memKey(msg.Specification.SpecificationID)] = msg.Specification
	case metadata.MsgWriteContractSpecification:
		if msg.Specification.SpecificationID.Kind() != metadata.KindContractSpecification {
			return fmt.Errorf("invalid contract specification id %s", msg.Specification.SpecificationID)
		}
	case metadata.MsgWriteRecordSpecification:
		if msg.Specification.SpecificationID.Kind() != metadata.KindRecordSpecification {
			return fmt.Errorf("invalid record specification id %s", msg.Specification.SpecificationID)
		}
	case metadata.MsgAddContractSpecToScopeSpec:
		key := memKey(msg.ScopeSpecificationID)
		if _, ok := m.scopeSpecs[key]; !ok {
			if _, ok := staged[key]; !ok {
				return fmt.Errorf("scope specification %s not found", msg.ScopeSpecificationID)
			}
		}
	default:
		return fmt.Errorf("unsupported message %s", msg.TypeURL())
	}
	return nil
}

func (m *MemoryClient) commit(msg metadata.Msg) {
	switch msg := msg.(type) {
	case metadata.MsgWriteScopeSpecification:
		m.scopeSpecs[memKey(msg.Specification.SpecificationID)] = msg.Specification
	case metadata.MsgWriteContractSpecification:
		m.contractSpecs[memKey(msg.Specification.SpecificationID)] = msg.Specification
	case metadata.MsgWriteRecordSpecification:
		contractKey := memKey(metadata.ForContractSpecification(msg.Specification.SpecificationID.PrimaryUUID()))
		records := m.recordSpecs[contractKey]
		for i, existing := range records {
			if existing.SpecificationID.Equal(msg.Specification.SpecificationID) {
				records[i] = msg.Specification
				return
			}
		}
		m.recordSpecs[contractKey] = append(records, msg.Specification)
	case metadata.MsgAddContractSpecToScopeSpec:
		key := memKey(msg.ScopeSpecificationID)
		spec := m.scopeSpecs[key]
		if !spec.HasContractSpec(msg.ContractSpecificationID) {
			spec.ContractSpecIDs = append(spec.ContractSpecIDs, msg.ContractSpecificationID)
		}
		m.scopeSpecs[key] = spec
	}
}

// Transactions returns the messages of every written transaction in order.
func (m *MemoryClient) Transactions() [][]metadata.Msg {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return append([][]metadata.Msg(nil), m.txs...)
}

// Close is a no-op.
func (m *MemoryClient) Close() error {
	return nil
}
