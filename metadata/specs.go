package metadata

import (
	"fmt"
	"strings"

	"github.com/ruteri/contract-spec-publisher/internal/protoenc"
)

// PartyType mirrors provenance.metadata.v1.PartyType.
type PartyType int32

// Party types, numbered as on chain. 9 is unassigned.
const (
	PartyTypeUnspecified PartyType = 0
	PartyTypeOriginator  PartyType = 1
	PartyTypeServicer    PartyType = 2
	PartyTypeInvestor    PartyType = 3
	PartyTypeCustodian   PartyType = 4
	PartyTypeOwner       PartyType = 5
	PartyTypeAffiliate   PartyType = 6
	PartyTypeOmnibus     PartyType = 7
	PartyTypeProvenance  PartyType = 8
	PartyTypeController  PartyType = 10
	PartyTypeValidator   PartyType = 11
)

var partyTypeNames = map[PartyType]string{
	PartyTypeUnspecified: "UNSPECIFIED",
	PartyTypeOriginator:  "ORIGINATOR",
	PartyTypeServicer:    "SERVICER",
	PartyTypeInvestor:    "INVESTOR",
	PartyTypeCustodian:   "CUSTODIAN",
	PartyTypeOwner:       "OWNER",
	PartyTypeAffiliate:   "AFFILIATE",
	PartyTypeOmnibus:     "OMNIBUS",
	PartyTypeProvenance:  "PROVENANCE",
	PartyTypeController:  "CONTROLLER",
	PartyTypeValidator:   "VALIDATOR",
}

func (p PartyType) String() string {
	if name, ok := partyTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PartyType(%d)", int32(p))
}

// ParsePartyType accepts "OWNER", "owner" or "PARTY_TYPE_OWNER".
func ParsePartyType(s string) (PartyType, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "PARTY_TYPE_")
	for p, n := range partyTypeNames {
		if n == name && p != PartyTypeUnspecified {
			return p, nil
		}
	}
	return PartyTypeUnspecified, fmt.Errorf("unknown party type %q", s)
}

// UnmarshalText lets party types be read directly from YAML and JSON.
func (p *PartyType) UnmarshalText(text []byte) error {
	parsed, err := ParsePartyType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p PartyType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DefinitionType mirrors provenance.metadata.v1.DefinitionType.
type DefinitionType int32

// Definition types, numbered as on chain.
const (
	DefinitionTypeUnspecified DefinitionType = 0
	DefinitionTypeProposed    DefinitionType = 1
	DefinitionTypeRecord      DefinitionType = 2
	DefinitionTypeRecordList  DefinitionType = 3
)

var definitionTypeNames = map[DefinitionType]string{
	DefinitionTypeUnspecified: "DEFINITION_TYPE_UNSPECIFIED",
	DefinitionTypeProposed:    "DEFINITION_TYPE_PROPOSED",
	DefinitionTypeRecord:      "DEFINITION_TYPE_RECORD",
	DefinitionTypeRecordList:  "DEFINITION_TYPE_RECORD_LIST",
}

func (d DefinitionType) String() string {
	if name, ok := definitionTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DefinitionType(%d)", int32(d))
}

func (d *DefinitionType) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	if !strings.HasPrefix(name, "DEFINITION_TYPE_") {
		name = "DEFINITION_TYPE_" + name
	}
	for t, n := range definitionTypeNames {
		if n == name {
			*d = t
			return nil
		}
	}
	return fmt.Errorf("unknown definition type %q", string(text))
}

// Description is the human readable part of a specification.
type Description struct {
	Name        string
	Description string
	WebsiteURL  string
	IconURL     string
}

func (d Description) Marshal() []byte {
	var b []byte
	b = protoenc.AppendString(b, 1, d.Name)
	b = protoenc.AppendString(b, 2, d.Description)
	b = protoenc.AppendString(b, 3, d.WebsiteURL)
	b = protoenc.AppendString(b, 4, d.IconURL)
	return b
}

// ScopeSpecification lists the parties and contract specifications allowed
// in scopes created from it.
type ScopeSpecification struct {
	SpecificationID MetadataAddress
	Description     *Description
	OwnerAddresses  []string
	PartiesInvolved []PartyType
	ContractSpecIDs []MetadataAddress
}

// Marshal encodes provenance.metadata.v1.ScopeSpecification.
func (s ScopeSpecification) Marshal() []byte {
	var b []byte
	b = protoenc.AppendBytes(b, 1, s.SpecificationID)
	if s.Description != nil {
		b = protoenc.AppendMessage(b, 2, s.Description.Marshal())
	}
	b = protoenc.AppendStrings(b, 3, s.OwnerAddresses)
	b = protoenc.AppendPackedEnums(b, 4, s.PartiesInvolved)
	for _, id := range s.ContractSpecIDs {
		b = protoenc.AppendOneofBytes(b, 5, id)
	}
	return b
}

// HasContractSpec reports whether id is listed in the scope specification.
func (s ScopeSpecification) HasContractSpec(id MetadataAddress) bool {
	for _, existing := range s.ContractSpecIDs {
		if existing.Equal(id) {
			return true
		}
	}
	return false
}

// ContractSpecification is the on-chain contract specification. Exactly one of
// ResourceID and Hash identifies the source.
type ContractSpecification struct {
	SpecificationID MetadataAddress
	Description     *Description
	OwnerAddresses  []string
	PartiesInvolved []PartyType
	ResourceID      MetadataAddress
	Hash            string
	ClassName       string
}

// Marshal encodes provenance.metadata.v1.ContractSpecification.
func (c ContractSpecification) Marshal() []byte {
	var b []byte
	b = protoenc.AppendBytes(b, 1, c.SpecificationID)
	if c.Description != nil {
		b = protoenc.AppendMessage(b, 2, c.Description.Marshal())
	}
	b = protoenc.AppendStrings(b, 3, c.OwnerAddresses)
	b = protoenc.AppendPackedEnums(b, 4, c.PartiesInvolved)
	if c.ResourceID != nil {
		b = protoenc.AppendOneofBytes(b, 5, c.ResourceID)
	} else {
		b = protoenc.AppendOneofString(b, 6, c.Hash)
	}
	b = protoenc.AppendString(b, 7, c.ClassName)
	return b
}

// InputSpecification is an input of a record specification. Exactly one of
// RecordID and Hash identifies the source.
type InputSpecification struct {
	Name     string
	TypeName string
	RecordID MetadataAddress
	Hash     string
}

func (i InputSpecification) Marshal() []byte {
	var b []byte
	b = protoenc.AppendString(b, 1, i.Name)
	b = protoenc.AppendString(b, 2, i.TypeName)
	if i.RecordID != nil {
		b = protoenc.AppendOneofBytes(b, 3, i.RecordID)
	} else {
		b = protoenc.AppendOneofString(b, 4, i.Hash)
	}
	return b
}

// RecordSpecification describes a record a contract function writes.
type RecordSpecification struct {
	SpecificationID    MetadataAddress
	Name               string
	Inputs             []InputSpecification
	TypeName           string
	ResultType         DefinitionType
	ResponsibleParties []PartyType
}

// Marshal encodes provenance.metadata.v1.RecordSpecification.
func (r RecordSpecification) Marshal() []byte {
	var b []byte
	b = protoenc.AppendBytes(b, 1, r.SpecificationID)
	b = protoenc.AppendString(b, 2, r.Name)
	for _, in := range r.Inputs {
		b = protoenc.AppendMessage(b, 3, in.Marshal())
	}
	b = protoenc.AppendString(b, 4, r.TypeName)
	b = protoenc.AppendVarint(b, 5, uint64(r.ResultType))
	b = protoenc.AppendPackedEnums(b, 6, r.ResponsibleParties)
	return b
}
