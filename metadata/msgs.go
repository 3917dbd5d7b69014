package metadata

import (
	"fmt"

	"github.com/ruteri/contract-spec-publisher/internal/protoenc"
)

const typeURLPrefix = "/provenance.metadata.v1."

// Msg is a metadata module write message ready to be wrapped in an Any.
type Msg interface {
	TypeURL() string
	Marshal() []byte
	fmt.Stringer
}

// MsgWriteScopeSpecification creates or replaces a scope specification.
type MsgWriteScopeSpecification struct {
	Specification ScopeSpecification
	Signers       []string
}

func (m MsgWriteScopeSpecification) TypeURL() string {
	return typeURLPrefix + "MsgWriteScopeSpecificationRequest"
}

func (m MsgWriteScopeSpecification) Marshal() []byte {
	var b []byte
	b = protoenc.AppendMessage(b, 1, m.Specification.Marshal())
	b = protoenc.AppendStrings(b, 2, m.Signers)
	return b
}

func (m MsgWriteScopeSpecification) String() string {
	return fmt.Sprintf("write-scope-spec %s", m.Specification.SpecificationID)
}

// MsgWriteContractSpecification creates or replaces a contract specification.
type MsgWriteContractSpecification struct {
	Specification ContractSpecification
	Signers       []string
}

func (m MsgWriteContractSpecification) TypeURL() string {
	return typeURLPrefix + "MsgWriteContractSpecificationRequest"
}

func (m MsgWriteContractSpecification) Marshal() []byte {
	var b []byte
	b = protoenc.AppendMessage(b, 1, m.Specification.Marshal())
	b = protoenc.AppendStrings(b, 2, m.Signers)
	return b
}

func (m MsgWriteContractSpecification) String() string {
	return fmt.Sprintf("write-contract-spec %s (%s)", m.Specification.SpecificationID, m.Specification.ClassName)
}

// MsgWriteRecordSpecification carries the owning contract specification's
// UUID so the chain can validate the record specification id against it.
type MsgWriteRecordSpecification struct {
	Specification    RecordSpecification
	Signers          []string
	ContractSpecUUID string
}

func (m MsgWriteRecordSpecification) TypeURL() string {
	return typeURLPrefix + "MsgWriteRecordSpecificationRequest"
}

func (m MsgWriteRecordSpecification) Marshal() []byte {
	var b []byte
	b = protoenc.AppendMessage(b, 1, m.Specification.Marshal())
	b = protoenc.AppendStrings(b, 2, m.Signers)
	b = protoenc.AppendString(b, 4, m.ContractSpecUUID)
	return b
}

func (m MsgWriteRecordSpecification) String() string {
	return fmt.Sprintf("write-record-spec %s (%s)", m.Specification.SpecificationID, m.Specification.Name)
}

// MsgAddContractSpecToScopeSpec links a contract specification to a scope
// specification it may be used in.
type MsgAddContractSpecToScopeSpec struct {
	ContractSpecificationID MetadataAddress
	ScopeSpecificationID    MetadataAddress
	Signers                 []string
}

func (m MsgAddContractSpecToScopeSpec) TypeURL() string {
	return typeURLPrefix + "MsgAddContractSpecToScopeSpecRequest"
}

func (m MsgAddContractSpecToScopeSpec) Marshal() []byte {
	var b []byte
	b = protoenc.AppendBytes(b, 1, m.ContractSpecificationID)
	b = protoenc.AppendBytes(b, 2, m.ScopeSpecificationID)
	b = protoenc.AppendStrings(b, 3, m.Signers)
	return b
}

func (m MsgAddContractSpecToScopeSpec) String() string {
	return fmt.Sprintf("add-contract-spec-to-scope-spec %s -> %s", m.ContractSpecificationID, m.ScopeSpecificationID)
}
