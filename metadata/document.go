package metadata

import (
	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/internal/protoenc"
)

// ScopeDefinition is a desired scope specification. Its address is derived
// from the declared UUID, not from content.
type ScopeDefinition struct {
	ID          uuid.UUID
	Name        string
	Description string
	WebsiteURL  string
	IconURL     string
	Parties     []PartyType
}

// Address returns the scope specification address of the definition.
func (s ScopeDefinition) Address() MetadataAddress {
	return ForScopeSpecification(s.ID)
}

// InputDefinition is a function input. Hash is empty for proposed inputs.
type InputDefinition struct {
	Name     string
	TypeName string
	Hash     string
}

// OutputDefinition is the record a function writes.
type OutputDefinition struct {
	Name     string
	TypeName string
}

// FunctionDefinition is one contract step and the party that invokes it.
type FunctionDefinition struct {
	Name    string
	Invoker PartyType
	Inputs  []InputDefinition
	Output  OutputDefinition
}

// ContractDefinition is a desired contract specification together with the
// scope specifications it declares membership in.
type ContractDefinition struct {
	Name       string
	ClassName  string
	Parties    []PartyType
	ScopeSpecs []uuid.UUID
	Inputs     []InputDefinition
	Functions  []FunctionDefinition
}

// BundleRef points at an artifact bundle in the object store.
type BundleRef struct {
	Hash string
	Name string
}

func (r BundleRef) Marshal() []byte {
	var b []byte
	b = protoenc.AppendString(b, 1, r.Hash)
	b = protoenc.AppendString(b, 2, r.Name)
	return b
}

// ContractDocument is the content-addressed contract specification document.
// Scope membership is not part of the document, so linking a contract to a new
// scope keeps its id stable.
type ContractDocument struct {
	Definition ContractDefinition
	Executable BundleRef
	Schema     BundleRef
}

func marshalInput(in InputDefinition) []byte {
	var b []byte
	b = protoenc.AppendString(b, 1, in.Name)
	b = protoenc.AppendString(b, 2, in.TypeName)
	b = protoenc.AppendString(b, 3, in.Hash)
	return b
}

func marshalFunction(fn FunctionDefinition) []byte {
	var b []byte
	b = protoenc.AppendString(b, 1, fn.Name)
	b = protoenc.AppendVarint(b, 2, uint64(int64(fn.Invoker)))
	for _, in := range fn.Inputs {
		b = protoenc.AppendMessage(b, 3, marshalInput(in))
	}
	var out []byte
	out = protoenc.AppendString(out, 1, fn.Output.Name)
	out = protoenc.AppendString(out, 2, fn.Output.TypeName)
	b = protoenc.AppendMessage(b, 4, out)
	return b
}

// Marshal serializes the document deterministically in ascending field order.
func (d ContractDocument) Marshal() []byte {
	def := d.Definition
	var b []byte
	b = protoenc.AppendString(b, 1, def.Name)
	b = protoenc.AppendString(b, 2, def.ClassName)
	b = protoenc.AppendMessage(b, 3, d.Executable.Marshal())
	b = protoenc.AppendMessage(b, 4, d.Schema.Marshal())
	b = protoenc.AppendPackedEnums(b, 5, def.Parties)
	for _, in := range def.Inputs {
		b = protoenc.AppendMessage(b, 6, marshalInput(in))
	}
	for _, fn := range def.Functions {
		b = protoenc.AppendMessage(b, 7, marshalFunction(fn))
	}
	return b
}

// Outputs returns the named outputs of the contract in declaration order.
func (d ContractDefinition) Outputs() []FunctionDefinition {
	out := make([]FunctionDefinition, 0, len(d.Functions))
	for _, fn := range d.Functions {
		if fn.Output.Name != "" {
			out = append(out, fn)
		}
	}
	return out
}
