package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/chain"
	"github.com/ruteri/contract-spec-publisher/config"
	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/descriptor"
	"github.com/ruteri/contract-spec-publisher/interfaces"
	"github.com/ruteri/contract-spec-publisher/manifest"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/ruteri/contract-spec-publisher/metrics"
	"github.com/ruteri/contract-spec-publisher/storage"
)

// ChainDialer opens the chain client of a location.
type ChainDialer func(ctx context.Context, loc *config.Location) (interfaces.ChainClient, error)

// StoreOpener opens the object store of a location.
type StoreOpener func(loc *config.Location) (interfaces.ObjectStore, error)

// Options carries the optional dependencies of a Publisher.
type Options struct {
	Log     *slog.Logger
	Metrics *metrics.Metrics

	// DialChain defaults to chain.Dial against the location's chain URL.
	DialChain ChainDialer

	// OpenStore defaults to the storage backends named by the location's
	// object stores.
	OpenStore StoreOpener
}

// Publisher publishes contract specifications to every configured location.
type Publisher struct {
	mutex     sync.Mutex
	cfg       *config.Config
	log       *slog.Logger
	metrics   *metrics.Metrics
	dialChain ChainDialer
	openStore StoreOpener
}

// LocationResult is the outcome of publishing to one location.
type LocationResult struct {
	Name         string
	ContractHash interfaces.ContentHash
	SchemaHash   interfaces.ContentHash
	Staged       int
	Transactions int
	Err          error
}

// Report summarizes an Execute run.
type Report struct {
	RunID     string
	Locations []LocationResult
}

// Succeeded returns the results of the locations that completed without error.
func (r *Report) Succeeded() []LocationResult {
	var out []LocationResult
	for _, res := range r.Locations {
		if res.Err == nil {
			out = append(out, res)
		}
	}
	return out
}

// New returns a Publisher for cfg. Nil options fall back to slog.Default, no
// metrics, chain.Dial and the storage backends named in each location.
func New(cfg *config.Config, opts Options) *Publisher {
	p := &Publisher{
		cfg:       cfg,
		log:       opts.Log,
		metrics:   opts.Metrics,
		dialChain: opts.DialChain,
		openStore: opts.OpenStore,
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.dialChain == nil {
		p.dialChain = p.dialLocation
	}
	if p.openStore == nil {
		p.openStore = p.storeOpener(storage.NewStorageBackendFactory(p.log))
	}
	return p
}

func (p *Publisher) dialLocation(ctx context.Context, loc *config.Location) (interfaces.ChainClient, error) {
	client, err := chain.Dial(ctx, chain.Config{
		Endpoint:         loc.ChainURL,
		ChainID:          loc.ChainID,
		FeeDenom:         loc.FeeDenom,
		FeeAdjustment:    loc.FeeAdjustment,
		GasPrice:         loc.GasPrice,
		QueryTimeout:     loc.QueryTimeout,
		BroadcastTimeout: loc.BroadcastTimeout,
		Log:              p.log.With(slog.String("location", loc.Name)),
		Metrics:          p.metrics,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (p *Publisher) storeOpener(factory interfaces.StorageBackendFactory) StoreOpener {
	return func(loc *config.Location) (interfaces.ObjectStore, error) {
		locations := make([]interfaces.StorageBackendLocation, 0, len(loc.ObjectStores))
		for _, uri := range loc.ObjectStores {
			parsed, err := interfaces.NewStorageBackendLocation(uri)
			if err != nil {
				return nil, err
			}
			locations = append(locations, parsed)
		}
		backend, err := factory.CreateMultiBackend(locations)
		if err != nil {
			return nil, err
		}
		return storage.NewObjectStoreClient(backend, p.log.With(slog.String("location", loc.Name)), p.metrics), nil
	}
}

// inputs are the location independent inputs of a run.
type inputs struct {
	contractBundle []byte
	schemaBundle   []byte
	contractName   string
	schemaName     string
	scopes         []metadata.ScopeDefinition
	contracts      []metadata.ContractDefinition
}

// locationKeys is the parsed key material of a location.
type locationKeys struct {
	signer *cryptoutils.KeySigner
	put    interfaces.PutKeys
}

// Execute publishes the descriptor's bundles and specifications to every
// location in name order. Configuration and contract rule violations fail
// before any network call. A failing location does not stop the others; a
// bundle hash mismatch between locations aborts the run.
//
// When at least one location succeeded the artifact manifests are written
// before ErrBootstrapFailed is returned for the failed ones.
func (p *Publisher) Execute(ctx context.Context, d *descriptor.Descriptor) (*Report, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	in, err := p.loadInputs(d)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString()}
	hashes := make(map[interfaces.ObjectKind]interfaces.ContentHash)

	for _, loc := range p.cfg.OrderedLocations() {
		log := p.log.With(slog.String("location", loc.Name))
		log.Info("Publishing contracts",
			slog.String("chain_url", loc.ChainURL),
			slog.Any("object_stores", loc.ObjectStores))

		result := p.publishLocation(ctx, loc, in, hashes, log)
		report.Locations = append(report.Locations, result)

		var consistency *ConsistencyError
		if errors.As(result.Err, &consistency) {
			p.metrics.IncLocation("failed")
			log.Error("Artifact bundles are not reproducible, aborting run", "err", result.Err)
			return report, result.Err
		}
		if result.Err != nil {
			p.metrics.IncLocation("failed")
			log.Error("Failed to publish location", "err", result.Err)
			continue
		}

		p.metrics.IncLocation("succeeded")
		log.Info("Published location",
			slog.Int("staged", result.Staged),
			slog.Int("transactions", result.Transactions))
	}

	manifestErr := p.writeManifests(report, d)

	var failed []error
	for _, res := range report.Locations {
		if res.Err != nil {
			failed = append(failed, fmt.Errorf("location %s: %w", res.Name, res.Err))
		}
	}
	if len(failed) > 0 {
		summary := fmt.Errorf("%w: %d of %d locations failed", ErrBootstrapFailed, len(failed), len(report.Locations))
		return report, errors.Join(append([]error{summary, manifestErr}, failed...)...)
	}
	return report, manifestErr
}

func (p *Publisher) loadInputs(d *descriptor.Descriptor) (inputs, error) {
	in := inputs{
		contractName: filepath.Base(d.ContractBundle.Path),
		schemaName:   filepath.Base(d.SchemaBundle.Path),
		scopes:       d.ScopeDefinitions(),
		contracts:    d.ContractDefinitions(),
	}
	if err := metadata.Check(in.scopes, in.contracts); err != nil {
		return inputs{}, fmt.Errorf("contract check failed: %w", err)
	}

	var err error
	if in.contractBundle, err = d.ContractBundle.Read(); err != nil {
		return inputs{}, fmt.Errorf("contract bundle: %w", err)
	}
	if in.schemaBundle, err = d.SchemaBundle.Read(); err != nil {
		return inputs{}, fmt.Errorf("schema bundle: %w", err)
	}
	return in, nil
}

func (p *Publisher) publishLocation(ctx context.Context, loc *config.Location, in inputs, hashes map[interfaces.ObjectKind]interfaces.ContentHash, log *slog.Logger) LocationResult {
	result := LocationResult{Name: loc.Name}

	keys, err := parseLocationKeys(loc)
	if err != nil {
		result.Err = err
		return result
	}

	store, err := p.openStore(loc)
	if err != nil {
		result.Err = fmt.Errorf("failed to open object store: %w", err)
		return result
	}
	defer store.Close()

	client, err := p.dialChain(ctx, loc)
	if err != nil {
		result.Err = fmt.Errorf("failed to connect to chain: %w", err)
		return result
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn("Failed to close chain client", "err", err)
		}
	}()

	result.ContractHash, err = putBundle(ctx, store, loc, in.contractBundle, interfaces.ContractBundle, keys.put, hashes)
	if err != nil {
		result.Err = err
		return result
	}
	result.SchemaHash, err = putBundle(ctx, store, loc, in.schemaBundle, interfaces.SchemaBundle, keys.put, hashes)
	if err != nil {
		result.Err = err
		return result
	}

	desired := Desired{Owner: keys.signer.Address(), Scopes: in.scopes}
	for _, def := range in.contracts {
		spec := NewContractSpec(metadata.ContractDocument{
			Definition: def,
			Executable: metadata.BundleRef{Hash: result.ContractHash.String(), Name: in.contractName},
			Schema:     metadata.BundleRef{Hash: result.SchemaHash.String(), Name: in.schemaName},
		})
		if _, err := store.Put(ctx, spec.Document.Marshal(), interfaces.SpecDocument, keys.put); err != nil {
			result.Err = fmt.Errorf("failed to store contract specification %s: %w", def.ClassName, err)
			return result
		}
		desired.Contracts = append(desired.Contracts, spec)
	}
	log.Info("Stored contract specifications", slog.Int("count", len(desired.Contracts)))

	state, err := GatherChainState(ctx, client, desired)
	if err != nil {
		result.Err = err
		return result
	}
	staged, err := Plan(desired, state)
	if err != nil {
		result.Err = err
		return result
	}

	log.Info("Adding scope specifications to batch", slog.Int("count", len(staged.ScopeSpecs)))
	log.Info("Adding contract and record specifications to batch", slog.Int("count", len(staged.ContractSpecs)))
	p.recordStaged(staged.ScopeSpecs)
	p.recordStaged(staged.ContractSpecs)

	for _, msgs := range [][]metadata.Msg{staged.ScopeSpecs, staged.ContractSpecs} {
		n, err := p.writeBatches(ctx, client, keys.signer, msgs, loc.TxBatchSize, log)
		result.Staged += len(msgs)
		result.Transactions += n
		if err != nil {
			result.Err = err
			return result
		}
	}

	// Links are planned against the scope specifications as they are after
	// the writes above.
	if len(staged.ScopeSpecs) > 0 || len(staged.ContractSpecs) > 0 {
		scopes, err := gatherScopeSpecs(ctx, client, desired)
		if err != nil {
			result.Err = err
			return result
		}
		state.ScopeSpecs = scopes
		staged.Links = planLinks(desired, state, []string{desired.Owner})
	}

	log.Info("Adding contract specifications to scope specifications", slog.Int("count", len(staged.Links)))
	p.recordStaged(staged.Links)

	n, err := p.writeBatches(ctx, client, keys.signer, staged.Links, loc.TxBatchSize, log)
	result.Staged += len(staged.Links)
	result.Transactions += n
	if err != nil {
		result.Err = err
	}
	return result
}

func parseLocationKeys(loc *config.Location) (locationKeys, error) {
	signingKey, err := cryptoutils.ParsePrivateKey(loc.SigningPrivateKey)
	if err != nil {
		return locationKeys{}, fmt.Errorf("signing key: %w", err)
	}
	signer, err := cryptoutils.NewSigner(signingKey, loc.IsMainNet())
	if err != nil {
		return locationKeys{}, fmt.Errorf("signing key: %w", err)
	}
	encryptionKey, err := cryptoutils.ParseEncryptionKey(loc.EncryptionPrivateKey)
	if err != nil {
		return locationKeys{}, fmt.Errorf("encryption key: %w", err)
	}

	audience := make([]*btcec.PublicKey, 0, len(loc.Audience))
	for _, name := range loc.AudienceNames() {
		key, err := cryptoutils.ParsePublicKey(loc.Audience[name])
		if err != nil {
			return locationKeys{}, fmt.Errorf("audience %s: %w", name, err)
		}
		audience = append(audience, key)
	}

	return locationKeys{
		signer: signer,
		put: interfaces.PutKeys{
			Signer:        signer,
			EncryptionKey: encryptionKey,
			Audience:      audience,
		},
	}, nil
}

// putBundle stores a bundle and checks its hash against the hash recorded by
// earlier locations.
func putBundle(ctx context.Context, store interfaces.ObjectStore, loc *config.Location, data []byte, kind interfaces.ObjectKind, keys interfaces.PutKeys, hashes map[interfaces.ObjectKind]interfaces.ContentHash) (interfaces.ContentHash, error) {
	hash, err := store.Put(ctx, data, kind, keys)
	if err != nil {
		return hash, fmt.Errorf("failed to store %s bundle: %w", kind, err)
	}
	if expected, ok := hashes[kind]; ok && expected != hash {
		return hash, &ConsistencyError{Kind: kind, Location: loc.Name, Expected: expected, Got: hash}
	}
	hashes[kind] = hash
	return hash, nil
}

func (p *Publisher) recordStaged(msgs []metadata.Msg) {
	counts := make(map[string]int)
	for _, msg := range msgs {
		switch msg.(type) {
		case metadata.MsgWriteScopeSpecification:
			counts["scope_spec"]++
		case metadata.MsgWriteContractSpecification:
			counts["contract_spec"]++
		case metadata.MsgWriteRecordSpecification:
			counts["record_spec"]++
		case metadata.MsgAddContractSpecToScopeSpec:
			counts["link"]++
		}
	}
	for label, n := range counts {
		p.metrics.AddStaged(label, n)
	}
}

// writeBatches writes msgs in batches of at most size messages and returns
// the number of transactions written.
func (p *Publisher) writeBatches(ctx context.Context, client interfaces.ChainClient, signer cryptoutils.Signer, msgs []metadata.Msg, size int, log *slog.Logger) (int, error) {
	if size < 1 {
		size = config.DefaultTxBatchSize
	}

	var written int
	for batch := range slices.Chunk(msgs, size) {
		res, err := client.WriteTx(ctx, signer, batch)
		if err != nil {
			log.Info("Failed batch", slog.Any("messages", batch))
			return written, fmt.Errorf("failed to write batch of %d messages: %w", len(batch), err)
		}
		written++
		log.Info("Wrote batch",
			slog.String("tx_hash", res.TxHash),
			slog.Int64("height", res.Height),
			slog.Int("messages", len(batch)))
	}
	return written, nil
}

func (p *Publisher) writeManifests(report *Report, d *descriptor.Descriptor) error {
	succeeded := report.Succeeded()
	if len(succeeded) == 0 {
		p.log.Warn("No location published successfully, skipping manifest")
		return nil
	}
	if p.cfg.Manifest.OutputDir == "" {
		p.log.Debug("No manifest output directory configured")
		return nil
	}

	first := succeeded[0]
	w := manifest.NewWriter(p.cfg.Manifest, p.log)
	return w.Write(
		manifest.Entry{RunID: report.RunID, Classes: d.ContractBundle.Classes, Hash: first.ContractHash.String()},
		manifest.Entry{RunID: report.RunID, Classes: d.SchemaBundle.Classes, Hash: first.SchemaHash.String()},
	)
}
