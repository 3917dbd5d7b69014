package publisher

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/interfaces"
	"github.com/ruteri/contract-spec-publisher/metadata"
)

// ContractSpec is a desired contract specification document together with
// the identifiers derived from its content.
type ContractSpec struct {
	Document metadata.ContractDocument
	ID       uuid.UUID
	Hash     string
}

// NewContractSpec derives the specification id and hash from the encoded document.
func NewContractSpec(doc metadata.ContractDocument) ContractSpec {
	return ContractSpec{
		Document: doc,
		ID:       metadata.SpecID(doc),
		Hash:     metadata.HashString(doc),
	}
}

// Address is the contract specification address of the id.
func (c ContractSpec) Address() metadata.MetadataAddress {
	return metadata.ForContractSpecification(c.ID)
}

// Desired is everything a location should hold on chain after a run.
type Desired struct {
	// Owner is the account address that owns and signs the specifications.
	Owner     string
	Scopes    []metadata.ScopeDefinition
	Contracts []ContractSpec
}

// ChainState is the observed on-chain state of the desired specifications.
// A nil entry means the specification does not exist.
type ChainState struct {
	ScopeSpecs    map[string]*metadata.ScopeSpecification
	ContractSpecs map[string]*interfaces.ContractSpecState
}

func (s ChainState) scopeSpec(id metadata.MetadataAddress) *metadata.ScopeSpecification {
	return s.ScopeSpecs[id.String()]
}

func (s ChainState) contractSpec(id metadata.MetadataAddress) *interfaces.ContractSpecState {
	return s.ContractSpecs[id.String()]
}

// GatherChainState queries the chain for every desired specification.
func GatherChainState(ctx context.Context, client interfaces.ChainClient, d Desired) (ChainState, error) {
	scopes, err := gatherScopeSpecs(ctx, client, d)
	if err != nil {
		return ChainState{}, err
	}

	contracts := make(map[string]*interfaces.ContractSpecState, len(d.Contracts))
	for _, c := range d.Contracts {
		id := c.Address()
		existing, err := client.ContractSpecification(ctx, id)
		if err != nil {
			return ChainState{}, fmt.Errorf("failed to query contract specification %s: %w", id, err)
		}
		contracts[id.String()] = existing
	}

	return ChainState{ScopeSpecs: scopes, ContractSpecs: contracts}, nil
}

func gatherScopeSpecs(ctx context.Context, client interfaces.ChainClient, d Desired) (map[string]*metadata.ScopeSpecification, error) {
	scopes := make(map[string]*metadata.ScopeSpecification, len(d.Scopes))
	for _, s := range d.Scopes {
		id := s.Address()
		existing, err := client.ScopeSpecification(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to query scope specification %s: %w", id, err)
		}
		scopes[id.String()] = existing
	}
	return scopes, nil
}

// Staged holds the write messages of a run in the order they must be written.
type Staged struct {
	ScopeSpecs []metadata.Msg
	// ContractSpecs interleaves each contract specification with the record
	// specifications that belong to it.
	ContractSpecs []metadata.Msg
	Links         []metadata.Msg
}

// Messages returns every staged message in write order.
func (s Staged) Messages() []metadata.Msg {
	out := make([]metadata.Msg, 0, s.Len())
	out = append(out, s.ScopeSpecs...)
	out = append(out, s.ContractSpecs...)
	return append(out, s.Links...)
}

// Len is the total number of staged messages.
func (s Staged) Len() int {
	return len(s.ScopeSpecs) + len(s.ContractSpecs) + len(s.Links)
}

// Plan computes the writes that take the chain from state to d. Existing
// scope and contract specifications are never rewritten; missing record
// specifications are added to existing contracts; links are staged for every
// declared membership the observed scope specification does not list.
func Plan(d Desired, state ChainState) (Staged, error) {
	var staged Staged
	signers := []string{d.Owner}

	for _, s := range d.Scopes {
		if state.scopeSpec(s.Address()) != nil {
			continue
		}
		staged.ScopeSpecs = append(staged.ScopeSpecs, metadata.MsgWriteScopeSpecification{
			Specification: scopeSpecification(s, d.Owner),
			Signers:       signers,
		})
	}

	for _, c := range d.Contracts {
		existing := state.contractSpec(c.Address())
		if existing == nil {
			staged.ContractSpecs = append(staged.ContractSpecs, metadata.MsgWriteContractSpecification{
				Specification: contractSpecification(c, d.Owner),
				Signers:       signers,
			})
		}

		for _, fn := range c.Document.Definition.Outputs() {
			record, err := recordSpecification(c.ID, fn)
			if err != nil {
				return Staged{}, fmt.Errorf("contract %s: %w", c.Document.Definition.ClassName, err)
			}
			if existing != nil && existing.HasRecord(record.SpecificationID) {
				continue
			}
			staged.ContractSpecs = append(staged.ContractSpecs, metadata.MsgWriteRecordSpecification{
				Specification:    record,
				Signers:          signers,
				ContractSpecUUID: c.ID.String(),
			})
		}
	}

	staged.Links = planLinks(d, state, signers)
	return staged, nil
}

func planLinks(d Desired, state ChainState, signers []string) []metadata.Msg {
	var links []metadata.Msg
	for _, s := range d.Scopes {
		scopeID := s.Address()
		existing := state.scopeSpec(scopeID)
		seen := make(map[uuid.UUID]struct{})

		for _, c := range d.Contracts {
			if _, dup := seen[c.ID]; dup || !declaresScope(c, s.ID) {
				continue
			}
			seen[c.ID] = struct{}{}

			contractID := c.Address()
			if existing != nil && existing.HasContractSpec(contractID) {
				continue
			}
			links = append(links, metadata.MsgAddContractSpecToScopeSpec{
				ContractSpecificationID: contractID,
				ScopeSpecificationID:    scopeID,
				Signers:                 signers,
			})
		}
	}
	return links
}

func declaresScope(c ContractSpec, scope uuid.UUID) bool {
	for _, id := range c.Document.Definition.ScopeSpecs {
		if id == scope {
			return true
		}
	}
	return false
}

func scopeSpecification(s metadata.ScopeDefinition, owner string) metadata.ScopeSpecification {
	return metadata.ScopeSpecification{
		SpecificationID: s.Address(),
		Description: &metadata.Description{
			Name:        s.Name,
			Description: s.Description,
			WebsiteURL:  s.WebsiteURL,
			IconURL:     s.IconURL,
		},
		OwnerAddresses:  []string{owner},
		PartiesInvolved: s.Parties,
	}
}

func contractSpecification(c ContractSpec, owner string) metadata.ContractSpecification {
	def := c.Document.Definition
	return metadata.ContractSpecification{
		SpecificationID: c.Address(),
		Description: &metadata.Description{
			Name:        def.Name,
			Description: def.ClassName,
		},
		OwnerAddresses:  []string{owner},
		PartiesInvolved: def.Parties,
		Hash:            c.Hash,
		ClassName:       def.ClassName,
	}
}

func recordSpecification(contract uuid.UUID, fn metadata.FunctionDefinition) (metadata.RecordSpecification, error) {
	id, err := metadata.ForRecordSpecification(contract, fn.Output.Name)
	if err != nil {
		return metadata.RecordSpecification{}, fmt.Errorf("function %s: %w", fn.Name, err)
	}

	inputs := make([]metadata.InputSpecification, 0, len(fn.Inputs))
	for _, in := range fn.Inputs {
		inputs = append(inputs, metadata.InputSpecification{
			Name:     in.Name,
			TypeName: in.TypeName,
			Hash:     in.Hash,
		})
	}

	return metadata.RecordSpecification{
		SpecificationID:    id,
		Name:               fn.Output.Name,
		Inputs:             inputs,
		TypeName:           fn.Output.TypeName,
		ResultType:         metadata.DefinitionTypeProposed,
		ResponsibleParties: []metadata.PartyType{fn.Invoker},
	}, nil
}
