// Package descriptor loads the descriptor file that lists what to publish:
// the two artifact bundles, the scope specifications, and the contracts with
// their functions and outputs.
package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"gopkg.in/yaml.v3"
)

// Bundle is an artifact bundle on disk and the class or type names it provides.
type Bundle struct {
	// Path is resolved relative to the descriptor file.
	Path    string   `yaml:"path"`
	Classes []string `yaml:"classes"`
}

// Read returns the bundle bytes.
func (b Bundle) Read() ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	return data, nil
}

// Scope declares a scope specification by its fixed UUID.
type Scope struct {
	ID          uuid.UUID            `yaml:"id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	WebsiteURL  string               `yaml:"website_url"`
	IconURL     string               `yaml:"icon_url"`
	Parties     []metadata.PartyType `yaml:"parties"`
}

// Input is a function input. Hash is the base64 hash of a record the input
// reads, empty for proposed inputs.
type Input struct {
	Name     string `yaml:"name"`
	TypeName string `yaml:"type_name"`
	Hash     string `yaml:"hash"`
}

// Output names the record a function writes.
type Output struct {
	Name     string `yaml:"name"`
	TypeName string `yaml:"type_name"`
}

// Function is one step of a contract, run by the invoker party.
type Function struct {
	Name    string             `yaml:"name"`
	Invoker metadata.PartyType `yaml:"invoker"`
	Inputs  []Input            `yaml:"inputs"`
	Output  Output             `yaml:"output"`
}

// Contract describes one contract class and the scopes it belongs to.
type Contract struct {
	Name       string               `yaml:"name"`
	ClassName  string               `yaml:"class_name"`
	Parties    []metadata.PartyType `yaml:"parties"`
	ScopeSpecs []uuid.UUID          `yaml:"scope_specs"`
	Inputs     []Input              `yaml:"inputs"`
	Functions  []Function           `yaml:"functions"`
}

// Descriptor is the full publish descriptor.
type Descriptor struct {
	ContractBundle Bundle     `yaml:"contract_bundle"`
	SchemaBundle   Bundle     `yaml:"schema_bundle"`
	Scopes         []Scope    `yaml:"scopes"`
	Contracts      []Contract `yaml:"contracts"`
}

// Load reads and validates the descriptor at path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	d, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a descriptor, rejecting unknown fields, and resolves bundle
// paths against baseDir.
func Parse(data []byte, baseDir string) (*Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Descriptor
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	for _, b := range []*Bundle{&d.ContractBundle, &d.SchemaBundle} {
		if b.Path != "" && !filepath.IsAbs(b.Path) {
			b.Path = filepath.Join(baseDir, b.Path)
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the descriptor is structurally complete. Contract rules are
// checked separately by metadata.Check.
func (d *Descriptor) Validate() error {
	var errs []error
	if d.ContractBundle.Path == "" {
		errs = append(errs, errors.New("contract_bundle.path is required"))
	}
	if d.SchemaBundle.Path == "" {
		errs = append(errs, errors.New("schema_bundle.path is required"))
	}
	if len(d.Contracts) == 0 {
		errs = append(errs, errors.New("at least one contract is required"))
	}

	scopes := make(map[uuid.UUID]struct{})
	for i, s := range d.Scopes {
		if s.ID == uuid.Nil {
			errs = append(errs, fmt.Errorf("scopes[%d]: id is required", i))
			continue
		}
		if _, dup := scopes[s.ID]; dup {
			errs = append(errs, fmt.Errorf("scopes[%d]: duplicate id %s", i, s.ID))
		}
		scopes[s.ID] = struct{}{}
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, fmt.Errorf("scope %s: name is required", s.ID))
		}
	}

	classes := make(map[string]struct{})
	for i, c := range d.Contracts {
		if c.ClassName == "" {
			continue
		}
		if _, dup := classes[c.ClassName]; dup {
			errs = append(errs, fmt.Errorf("contracts[%d]: duplicate class name %s", i, c.ClassName))
		}
		classes[c.ClassName] = struct{}{}
	}

	return errors.Join(errs...)
}

// ScopeDefinitions returns the scopes in declaration order.
func (d *Descriptor) ScopeDefinitions() []metadata.ScopeDefinition {
	out := make([]metadata.ScopeDefinition, 0, len(d.Scopes))
	for _, s := range d.Scopes {
		out = append(out, metadata.ScopeDefinition{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			WebsiteURL:  s.WebsiteURL,
			IconURL:     s.IconURL,
			Parties:     s.Parties,
		})
	}
	return out
}

func toInputs(in []Input) []metadata.InputDefinition {
	out := make([]metadata.InputDefinition, 0, len(in))
	for _, i := range in {
		out = append(out, metadata.InputDefinition{Name: i.Name, TypeName: i.TypeName, Hash: i.Hash})
	}
	return out
}

// ContractDefinitions returns the contracts in declaration order.
func (d *Descriptor) ContractDefinitions() []metadata.ContractDefinition {
	out := make([]metadata.ContractDefinition, 0, len(d.Contracts))
	for _, c := range d.Contracts {
		def := metadata.ContractDefinition{
			Name:       c.Name,
			ClassName:  c.ClassName,
			Parties:    c.Parties,
			ScopeSpecs: c.ScopeSpecs,
			Inputs:     toInputs(c.Inputs),
		}
		for _, fn := range c.Functions {
			def.Functions = append(def.Functions, metadata.FunctionDefinition{
				Name:    fn.Name,
				Invoker: fn.Invoker,
				Inputs:  toInputs(fn.Inputs),
				Output:  metadata.OutputDefinition{Name: fn.Output.Name, TypeName: fn.Output.TypeName},
			})
		}
		out = append(out, def)
	}
	return out
}
