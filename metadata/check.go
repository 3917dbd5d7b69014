package metadata

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// RuleViolation describes a contract definition that cannot be published.
type RuleViolation struct {
	Contract string
	Rule     string
}

func (v *RuleViolation) Error() string {
	return fmt.Sprintf("contract %s: %s", v.Contract, v.Rule)
}

// Check validates contract definitions against the known scope definitions
// and returns all violations joined together.
func Check(scopes []ScopeDefinition, contracts []ContractDefinition) error {
	known := make(map[uuid.UUID]struct{}, len(scopes))
	for _, s := range scopes {
		known[s.ID] = struct{}{}
	}

	var errs []error
	violation := func(c ContractDefinition, format string, args ...any) {
		errs = append(errs, &RuleViolation{Contract: contractLabel(c), Rule: fmt.Sprintf(format, args...)})
	}

	for _, c := range contracts {
		if strings.TrimSpace(c.ClassName) == "" {
			violation(c, "class name must not be blank")
		}
		if len(c.Parties) == 0 {
			violation(c, "must have at least one party involved")
		}
		if len(c.ScopeSpecs) == 0 {
			violation(c, "must declare membership in at least one scope specification")
		}
		for _, id := range c.ScopeSpecs {
			if _, ok := known[id]; !ok {
				violation(c, "unknown scope specification %s", id)
			}
		}

		outputs := make(map[string]struct{})
		for _, fn := range c.Functions {
			if !slices.Contains(c.Parties, fn.Invoker) {
				violation(c, "function %s invoker %s is not a party of the contract", fn.Name, fn.Invoker)
			}
			name := strings.TrimSpace(strings.ToLower(fn.Output.Name))
			if name == "" {
				violation(c, "function %s output name must not be blank", fn.Name)
				continue
			}
			if _, dup := outputs[name]; dup {
				violation(c, "duplicate output name %s", fn.Output.Name)
			}
			outputs[name] = struct{}{}
		}
	}

	return errors.Join(errs...)
}

func contractLabel(c ContractDefinition) string {
	if c.ClassName != "" {
		return c.ClassName
	}
	return c.Name
}
