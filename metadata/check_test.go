package metadata

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	scopes := []ScopeDefinition{{ID: testScopeUUID, Name: "loans"}}

	valid := testContractDocument().Definition

	tests := []struct {
		name       string
		mutate     func(c *ContractDefinition)
		violations int
	}{
		{name: "valid", mutate: func(c *ContractDefinition) {}, violations: 0},
		{name: "no parties", mutate: func(c *ContractDefinition) {
			c.Parties = nil
		}, violations: 2}, // also flags the invoker
		{name: "invoker not a party", mutate: func(c *ContractDefinition) {
			c.Functions[0].Invoker = PartyTypeServicer
		}, violations: 1},
		{name: "no scope membership", mutate: func(c *ContractDefinition) {
			c.ScopeSpecs = nil
		}, violations: 1},
		{name: "unknown scope", mutate: func(c *ContractDefinition) {
			c.ScopeSpecs = []uuid.UUID{uuid.New()}
		}, violations: 1},
		{name: "blank output", mutate: func(c *ContractDefinition) {
			c.Functions[0].Output.Name = " "
		}, violations: 1},
		{name: "duplicate output", mutate: func(c *ContractDefinition) {
			c.Functions = append(c.Functions, FunctionDefinition{
				Name:    "again",
				Invoker: PartyTypeOwner,
				Output:  OutputDefinition{Name: "LOAN"},
			})
		}, violations: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			c.Functions = append([]FunctionDefinition(nil), valid.Functions...)
			c.Parties = append([]PartyType(nil), valid.Parties...)
			tt.mutate(&c)

			err := Check(scopes, []ContractDefinition{c})
			if tt.violations == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var v *RuleViolation
			require.True(t, errors.As(err, &v))
			assert.Equal(t, "io.example.LoanOnboarding", v.Contract)

			joined, ok := err.(interface{ Unwrap() []error })
			require.True(t, ok)
			assert.Len(t, joined.Unwrap(), tt.violations)
		})
	}
}
