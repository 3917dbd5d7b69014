package chain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ruteri/contract-spec-publisher/metadata"
)

// jsonUint64 accepts the gateway's quoted 64-bit integers as well as bare numbers.
type jsonUint64 uint64

func (n *jsonUint64) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", b, err)
	}
	*n = jsonUint64(v)
	return nil
}

// jsonAddress accepts a metadata address as bech32 text or base64 bytes.
type jsonAddress metadata.MetadataAddress

func (a *jsonAddress) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*a = nil
		return nil
	}
	if addr, err := metadata.FromBech32(s); err == nil {
		*a = jsonAddress(addr)
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("metadata address %q is neither bech32 nor base64", s)
	}
	addr, err := metadata.FromBytes(raw)
	if err != nil {
		return err
	}
	*a = jsonAddress(addr)
	return nil
}

type gatewayStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type baseAccountJSON struct {
	Address       string           `json:"address"`
	AccountNumber jsonUint64       `json:"account_number"`
	Sequence      jsonUint64       `json:"sequence"`
	BaseAccount   *baseAccountJSON `json:"base_account,omitempty"`
}

type accountResponse struct {
	Account baseAccountJSON `json:"account"`
}

type gasInfoJSON struct {
	GasWanted jsonUint64 `json:"gas_wanted"`
	GasUsed   jsonUint64 `json:"gas_used"`
}

type simulateResponse struct {
	GasInfo gasInfoJSON `json:"gas_info"`
}

type txRequest struct {
	TxBytes string `json:"tx_bytes"`
	Mode    string `json:"mode,omitempty"`
}

type txResponseJSON struct {
	Height    jsonUint64 `json:"height"`
	TxHash    string     `json:"txhash"`
	Codespace string     `json:"codespace"`
	Code      uint32     `json:"code"`
	RawLog    string     `json:"raw_log"`
	GasWanted jsonUint64 `json:"gas_wanted"`
	GasUsed   jsonUint64 `json:"gas_used"`
}

type txResponseEnvelope struct {
	TxResponse txResponseJSON `json:"tx_response"`
}

type descriptionJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	WebsiteURL  string `json:"website_url"`
	IconURL     string `json:"icon_url"`
}

func (d *descriptionJSON) toDescription() *metadata.Description {
	if d == nil {
		return nil
	}
	return &metadata.Description{
		Name:        d.Name,
		Description: d.Description,
		WebsiteURL:  d.WebsiteURL,
		IconURL:     d.IconURL,
	}
}

type scopeSpecJSON struct {
	SpecificationID jsonAddress          `json:"specification_id"`
	Description     *descriptionJSON     `json:"description"`
	OwnerAddresses  []string             `json:"owner_addresses"`
	PartiesInvolved []metadata.PartyType `json:"parties_involved"`
	ContractSpecIDs []jsonAddress        `json:"contract_spec_ids"`
}

func (s *scopeSpecJSON) toSpec() metadata.ScopeSpecification {
	spec := metadata.ScopeSpecification{
		SpecificationID: metadata.MetadataAddress(s.SpecificationID),
		Description:     s.Description.toDescription(),
		OwnerAddresses:  s.OwnerAddresses,
		PartiesInvolved: s.PartiesInvolved,
	}
	for _, id := range s.ContractSpecIDs {
		spec.ContractSpecIDs = append(spec.ContractSpecIDs, metadata.MetadataAddress(id))
	}
	return spec
}

type scopeSpecResponse struct {
	ScopeSpecification struct {
		Specification *scopeSpecJSON `json:"specification"`
	} `json:"scope_specification"`
}

type contractSpecJSON struct {
	SpecificationID jsonAddress          `json:"specification_id"`
	Description     *descriptionJSON     `json:"description"`
	OwnerAddresses  []string             `json:"owner_addresses"`
	PartiesInvolved []metadata.PartyType `json:"parties_involved"`
	ResourceID      jsonAddress          `json:"resource_id"`
	Hash            string               `json:"hash"`
	ClassName       string               `json:"class_name"`
}

func (c *contractSpecJSON) toSpec() metadata.ContractSpecification {
	return metadata.ContractSpecification{
		SpecificationID: metadata.MetadataAddress(c.SpecificationID),
		Description:     c.Description.toDescription(),
		OwnerAddresses:  c.OwnerAddresses,
		PartiesInvolved: c.PartiesInvolved,
		ResourceID:      metadata.MetadataAddress(c.ResourceID),
		Hash:            c.Hash,
		ClassName:       c.ClassName,
	}
}

type inputSpecJSON struct {
	Name     string      `json:"name"`
	TypeName string      `json:"type_name"`
	RecordID jsonAddress `json:"record_id"`
	Hash     string      `json:"hash"`
}

type recordSpecJSON struct {
	SpecificationID    jsonAddress             `json:"specification_id"`
	Name               string                  `json:"name"`
	Inputs             []inputSpecJSON         `json:"inputs"`
	TypeName           string                  `json:"type_name"`
	ResultType         metadata.DefinitionType `json:"result_type"`
	ResponsibleParties []metadata.PartyType    `json:"responsible_parties"`
}

func (r *recordSpecJSON) toSpec() metadata.RecordSpecification {
	spec := metadata.RecordSpecification{
		SpecificationID:    metadata.MetadataAddress(r.SpecificationID),
		Name:               r.Name,
		TypeName:           r.TypeName,
		ResultType:         r.ResultType,
		ResponsibleParties: r.ResponsibleParties,
	}
	for _, in := range r.Inputs {
		spec.Inputs = append(spec.Inputs, metadata.InputSpecification{
			Name:     in.Name,
			TypeName: in.TypeName,
			RecordID: metadata.MetadataAddress(in.RecordID),
			Hash:     in.Hash,
		})
	}
	return spec
}

type contractSpecResponse struct {
	ContractSpecification struct {
		Specification *contractSpecJSON `json:"specification"`
	} `json:"contract_specification"`
	RecordSpecifications []struct {
		Specification *recordSpecJSON `json:"specification"`
	} `json:"record_specifications"`
}
