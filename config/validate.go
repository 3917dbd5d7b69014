package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/interfaces"
)

// ValidationError is a missing or invalid configuration value.
type ValidationError struct {
	Location string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("config: location %s: %s: %s", e.Location, e.Field, e.Reason)
}

// Validate checks every location and returns all problems joined. It makes
// no network calls.
func (c *Config) Validate() error {
	if len(c.Locations) == 0 {
		return &ValidationError{Field: "locations", Reason: "at least one location is required"}
	}

	var errs []error
	for _, loc := range c.OrderedLocations() {
		errs = append(errs, loc.Validate()...)
	}
	return errors.Join(errs...)
}

// Validate returns the problems with a single location.
func (l *Location) Validate() []error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Location: l.Name, Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(l.ChainID) == "" {
		invalid("chain_id", "is required")
	}

	if l.ChainURL == "" {
		invalid("chain_url", "is required")
	} else if u, err := url.Parse(l.ChainURL); err != nil {
		invalid("chain_url", "%v", err)
	} else if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "dnssrv" {
		invalid("chain_url", "scheme must be http, https or dnssrv, got %q", u.Scheme)
	} else if u.Host == "" {
		invalid("chain_url", "host is required")
	}

	if len(l.ObjectStores) == 0 {
		invalid("object_stores", "at least one object store is required")
	}
	for i, uri := range l.ObjectStores {
		if _, err := interfaces.NewStorageBackendLocation(uri); err != nil {
			invalid(fmt.Sprintf("object_stores[%d]", i), "%v", err)
		}
	}

	if l.SigningPrivateKey == "" {
		invalid("signing_private_key", "is required")
	} else if _, err := cryptoutils.ParsePrivateKey(l.SigningPrivateKey); err != nil {
		invalid("signing_private_key", "%v", err)
	}
	if l.EncryptionPrivateKey == "" {
		invalid("encryption_private_key", "is required")
	} else if _, err := cryptoutils.ParseEncryptionKey(l.EncryptionPrivateKey); err != nil {
		invalid("encryption_private_key", "%v", err)
	}
	for _, name := range l.AudienceNames() {
		if _, err := cryptoutils.ParsePublicKey(l.Audience[name]); err != nil {
			invalid("audience."+name, "%v", err)
		}
	}

	if l.TxBatchSize < 1 {
		invalid("tx_batch_size", "must be positive, got %d", l.TxBatchSize)
	}
	if l.FeeAdjustment <= 0 {
		invalid("tx_fee_adjustment", "must be positive, got %v", l.FeeAdjustment)
	}
	if l.GasPrice < 0 {
		invalid("tx_gas_price", "must not be negative, got %v", l.GasPrice)
	}
	if l.QueryTimeout < 0 || l.BroadcastTimeout < 0 {
		invalid("timeouts", "must not be negative")
	}

	return errs
}
