// Package config loads the publisher configuration: the publish Locations
// and where the artifact manifest is written.
//
// Configuration comes from a single YAML file. Key material may reference
// environment variables as ${NAME} so secrets stay out of the file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Parse to fields a location leaves empty.
const (
	DefaultTxBatchSize   = 10
	DefaultFeeAdjustment = 1.25
	DefaultGasPrice      = 1905.0
	DefaultFeeDenom      = "nhash"
	MainNetChainID       = "pio-mainnet-1"

	DefaultContractManifest = "contract-hash.yaml"
	DefaultSchemaManifest   = "schema-hash.yaml"
)

// Config is the publisher configuration.
type Config struct {
	// Locations are the publish targets by name. They are processed one at
	// a time in name order.
	Locations map[string]*Location `yaml:"locations"`

	// Manifest configures the artifact manifest output.
	Manifest ManifestConfig `yaml:"manifest"`
}

// Location is a publish target: a chain, the object stores backing it, and
// the keys used for both.
type Location struct {
	// Name is the key of the location in Config.Locations.
	Name string `yaml:"-"`

	// ObjectStores are storage backend URIs, e.g. file:///var/specs or
	// s3://bucket/prefix?region=us-east-1. All of them receive every object.
	ObjectStores []string `yaml:"object_stores"`

	// ChainURL is the REST gateway of a node, http(s):// or dnssrv://.
	ChainURL string `yaml:"chain_url"`
	ChainID  string `yaml:"chain_id"`

	// MainNet selects the "pb" account prefix; defaults to true when
	// ChainID is pio-mainnet-1.
	MainNet *bool `yaml:"main_net"`

	// Hex encoded secp256k1 private keys.
	EncryptionPrivateKey string `yaml:"encryption_private_key"`
	SigningPrivateKey    string `yaml:"signing_private_key"`

	// Audience maps party names to hex encoded public keys that can also
	// decrypt stored objects.
	Audience map[string]string `yaml:"audience"`

	TxBatchSize   int     `yaml:"tx_batch_size"`
	FeeAdjustment float64 `yaml:"tx_fee_adjustment"`
	GasPrice      float64 `yaml:"tx_gas_price"`
	FeeDenom      string  `yaml:"tx_fee_denom"`

	QueryTimeout     time.Duration `yaml:"query_timeout"`
	BroadcastTimeout time.Duration `yaml:"broadcast_timeout"`
}

// IsMainNet reports whether account addresses use the mainnet prefix.
func (l *Location) IsMainNet() bool {
	if l.MainNet != nil {
		return *l.MainNet
	}
	return l.ChainID == MainNetChainID
}

// AudienceNames returns the audience party names sorted.
func (l *Location) AudienceNames() []string {
	names := make([]string, 0, len(l.Audience))
	for name := range l.Audience {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ManifestConfig controls where bootstrap writes the contract and schema
// hash manifests.
type ManifestConfig struct {
	// OutputDir receives the manifest files. Empty disables manifest output.
	OutputDir    string `yaml:"output_dir"`
	ContractFile string `yaml:"contract_file"`
	SchemaFile   string `yaml:"schema_file"`
}

// Default returns a configuration with no locations and default manifest names.
func Default() *Config {
	return &Config{
		Locations: map[string]*Location{},
		Manifest: ManifestConfig{
			ContractFile: DefaultContractManifest,
			SchemaFile:   DefaultSchemaManifest,
		},
	}
}

// LoadFile reads the configuration at path and applies defaults. It does not
// validate; call Validate before any network activity.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration, rejecting unknown fields.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for name, loc := range cfg.Locations {
		if loc == nil {
			loc = &Location{}
			cfg.Locations[name] = loc
		}
		loc.Name = name
		loc.applyDefaults()
		loc.expandVariables()
	}
	if cfg.Manifest.ContractFile == "" {
		cfg.Manifest.ContractFile = DefaultContractManifest
	}
	if cfg.Manifest.SchemaFile == "" {
		cfg.Manifest.SchemaFile = DefaultSchemaManifest
	}
	return cfg, nil
}

func (l *Location) applyDefaults() {
	if l.TxBatchSize == 0 {
		l.TxBatchSize = DefaultTxBatchSize
	}
	if l.FeeAdjustment == 0 {
		l.FeeAdjustment = DefaultFeeAdjustment
	}
	if l.GasPrice == 0 {
		l.GasPrice = DefaultGasPrice
	}
	if l.FeeDenom == "" {
		l.FeeDenom = DefaultFeeDenom
	}
}

func (l *Location) expandVariables() {
	l.EncryptionPrivateKey = os.ExpandEnv(l.EncryptionPrivateKey)
	l.SigningPrivateKey = os.ExpandEnv(l.SigningPrivateKey)
	for name, key := range l.Audience {
		l.Audience[name] = os.ExpandEnv(key)
	}
}

// OrderedLocations returns the locations sorted by name.
func (c *Config) OrderedLocations() []*Location {
	names := make([]string, 0, len(c.Locations))
	for name := range c.Locations {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Location, 0, len(names))
	for _, name := range names {
		out = append(out, c.Locations[name])
	}
	return out
}
