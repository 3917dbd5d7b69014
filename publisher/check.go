package publisher

import (
	"log/slog"

	"github.com/ruteri/contract-spec-publisher/descriptor"
	"github.com/ruteri/contract-spec-publisher/metadata"
)

// Check validates the contracts of a descriptor without touching any
// location.
func Check(d *descriptor.Descriptor, log *slog.Logger) error {
	scopes := d.ScopeDefinitions()
	contracts := d.ContractDefinitions()

	if err := metadata.Check(scopes, contracts); err != nil {
		return err
	}

	for _, c := range contracts {
		log.Debug("Contract passed checks",
			slog.String("class_name", c.ClassName),
			slog.Int("functions", len(c.Functions)),
			slog.Int("scope_specs", len(c.ScopeSpecs)))
	}
	log.Info("Checked contracts",
		slog.Int("contracts", len(contracts)),
		slog.Int("scopes", len(scopes)))
	return nil
}
