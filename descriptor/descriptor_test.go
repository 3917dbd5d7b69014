package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescriptor = `
contract_bundle:
  path: build/contracts.jar
  classes: [io.example.LoanContract]
schema_bundle:
  path: /opt/bundles/protos.jar
  classes: [io.example.Loan, io.example.Payment]
scopes:
  - id: 2b4c1d6e-6f43-4a7c-9d39-6c2e8d0a1b11
    name: loan
    description: A loan scope
    website_url: https://example.com
    parties: [OWNER, servicer]
contracts:
  - name: Onboard loan
    class_name: io.example.LoanContract
    parties: [PARTY_TYPE_OWNER]
    scope_specs: [2b4c1d6e-6f43-4a7c-9d39-6c2e8d0a1b11]
    functions:
      - name: onboard
        invoker: OWNER
        inputs:
          - name: loanIn
            type_name: io.example.Loan
            hash: aGFzaA==
        output:
          name: loan
          type_name: io.example.Loan
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publish.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDescriptor), 0o600))

	d, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "build/contracts.jar"), d.ContractBundle.Path)
	assert.Equal(t, "/opt/bundles/protos.jar", d.SchemaBundle.Path)
	assert.Equal(t, []string{"io.example.Loan", "io.example.Payment"}, d.SchemaBundle.Classes)

	scopes := d.ScopeDefinitions()
	require.Len(t, scopes, 1)
	assert.Equal(t, uuid.MustParse("2b4c1d6e-6f43-4a7c-9d39-6c2e8d0a1b11"), scopes[0].ID)
	assert.Equal(t, []metadata.PartyType{metadata.PartyTypeOwner, metadata.PartyTypeServicer}, scopes[0].Parties)

	contracts := d.ContractDefinitions()
	require.Len(t, contracts, 1)
	c := contracts[0]
	assert.Equal(t, "io.example.LoanContract", c.ClassName)
	assert.Equal(t, []uuid.UUID{scopes[0].ID}, c.ScopeSpecs)
	require.Len(t, c.Functions, 1)
	assert.Equal(t, metadata.PartyTypeOwner, c.Functions[0].Invoker)
	assert.Equal(t, "aGFzaA==", c.Functions[0].Inputs[0].Hash)
	assert.Equal(t, "loan", c.Functions[0].Output.Name)

	assert.NoError(t, metadata.Check(scopes, contracts))
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", sampleDescriptor + "extra: true\n"},
		{"unknown party", `
contract_bundle: {path: a}
schema_bundle: {path: b}
contracts:
  - class_name: X
    parties: [LANDLORD]
`},
		{"bad uuid", `
contract_bundle: {path: a}
schema_bundle: {path: b}
scopes:
  - id: not-a-uuid
    name: x
contracts: [{class_name: X}]
`},
		{"missing bundles", `
contracts: [{class_name: X}]
`},
		{"no contracts", `
contract_bundle: {path: a}
schema_bundle: {path: b}
`},
		{"duplicate scope", `
contract_bundle: {path: a}
schema_bundle: {path: b}
scopes:
  - {id: 2b4c1d6e-6f43-4a7c-9d39-6c2e8d0a1b11, name: a}
  - {id: 2b4c1d6e-6f43-4a7c-9d39-6c2e8d0a1b11, name: b}
contracts: [{class_name: X}]
`},
		{"duplicate class", `
contract_bundle: {path: a}
schema_bundle: {path: b}
contracts: [{class_name: X}, {class_name: X}]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "/tmp")
			assert.Error(t, err)
		})
	}
}

func TestBundle_Read(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jar"), []byte("bytes"), 0o600))

	data, err := Bundle{Path: filepath.Join(dir, "b.jar")}.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)

	_, err = Bundle{Path: filepath.Join(dir, "missing.jar")}.Read()
	assert.Error(t, err)
}
