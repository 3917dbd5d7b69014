package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ruteri/contract-spec-publisher/interfaces"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/ruteri/contract-spec-publisher/metrics"
	"go.uber.org/atomic"
)

// Config configures a chain client. Zero durations and counts take the
// defaults below.
type Config struct {
	// Endpoint is the REST gateway, http(s)://host:port or
	// dnssrv://_service._proto.domain.
	Endpoint string
	ChainID  string

	FeeDenom      string
	FeeAdjustment float64
	GasPrice      float64

	QueryTimeout     time.Duration
	BroadcastTimeout time.Duration
	PollInterval     time.Duration
	MaxPolls         int
	MaxAttempts      int

	// CloseGrace bounds how long Close waits for in-flight requests.
	CloseGrace time.Duration

	// DNSServer answers SRV queries for dnssrv endpoints. Defaults to the
	// first nameserver in /etc/resolv.conf.
	DNSServer string

	HTTPClient *http.Client
	Log        *slog.Logger
	Metrics    *metrics.Metrics
}

// Timeouts and limits applied when Config leaves the field zero.
const (
	DefaultQueryTimeout     = 10 * time.Second
	DefaultBroadcastTimeout = 20 * time.Second
	DefaultPollInterval     = time.Second
	DefaultMaxPolls         = 25
	DefaultMaxAttempts      = 5
	DefaultCloseGrace       = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.FeeDenom == "" {
		c.FeeDenom = DefaultFeeDenom
	}
	if c.FeeAdjustment == 0 {
		c.FeeAdjustment = DefaultFeeAdjustment
	}
	if c.GasPrice == 0 {
		c.GasPrice = DefaultGasPrice
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.BroadcastTimeout == 0 {
		c.BroadcastTimeout = DefaultBroadcastTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPolls == 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.CloseGrace == 0 {
		c.CloseGrace = DefaultCloseGrace
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return c
}

// Client talks to a single node's REST gateway. It implements
// interfaces.ChainClient.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	transport  *http.Transport
	log        *slog.Logger
	metrics    *metrics.Metrics

	closed   atomic.Bool
	inflight sync.WaitGroup
}

var _ interfaces.ChainClient = (*Client)(nil)

// Dial resolves the endpoint and prepares a client. No request is made until
// the first query. The caller must Close the client.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.ChainID) == "" {
		return nil, errors.New("chain id is required")
	}
	if cfg.FeeAdjustment < 0 || cfg.GasPrice < 0 {
		return nil, fmt.Errorf("invalid fee policy (adjustment %v, gas price %v)", cfg.FeeAdjustment, cfg.GasPrice)
	}

	endpoint, err := resolveEndpoint(ctx, cfg.Endpoint, cfg.DNSServer)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid chain endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid chain endpoint %q: scheme must be http, https or dnssrv", cfg.Endpoint)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid chain endpoint %q: host is required", cfg.Endpoint)
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(parsed.String(), "/"),
		log:     cfg.Log.With(slog.String("chain_id", cfg.ChainID)),
		metrics: cfg.Metrics,
	}
	if cfg.HTTPClient != nil {
		c.httpClient = cfg.HTTPClient
	} else {
		c.transport = http.DefaultTransport.(*http.Transport).Clone()
		c.httpClient = &http.Client{Transport: c.transport}
	}

	c.log.Debug("Chain client ready", slog.String("endpoint", c.baseURL))
	return c, nil
}

// Close stops new requests, waits up to the configured grace for in-flight
// ones, and drops idle connections.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(c.cfg.CloseGrace):
		err = fmt.Errorf("chain client closed with requests still in flight after %s", c.cfg.CloseGrace)
		c.log.Warn("Chain client close timed out", slog.Duration("grace", c.cfg.CloseGrace))
	}

	if c.transport != nil {
		c.transport.CloseIdleConnections()
	} else {
		c.httpClient.CloseIdleConnections()
	}
	return err
}

// Endpoint returns the resolved gateway URL.
func (c *Client) Endpoint() string {
	return c.baseURL
}

// Account fetches the account number and sequence for address.
func (c *Client) Account(ctx context.Context, address string) (interfaces.Account, error) {
	var resp accountResponse
	if err := c.getJSON(ctx, "/cosmos/auth/v1beta1/accounts/"+url.PathEscape(address), &resp); err != nil {
		return interfaces.Account{}, fmt.Errorf("failed to fetch account %s: %w", address, err)
	}
	acct := resp.Account
	if acct.BaseAccount != nil {
		acct = *acct.BaseAccount
	}
	return interfaces.Account{
		Address:       address,
		AccountNumber: uint64(acct.AccountNumber),
		Sequence:      uint64(acct.Sequence),
	}, nil
}

// ScopeSpecification returns nil without error when the chain has no
// scope specification at id.
func (c *Client) ScopeSpecification(ctx context.Context, id metadata.MetadataAddress) (*metadata.ScopeSpecification, error) {
	bech, err := id.Bech32()
	if err != nil {
		return nil, err
	}

	var resp scopeSpecResponse
	err = c.getJSON(ctx, "/provenance/metadata/v1/scopespec/"+url.PathEscape(bech), &resp)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scope specification %s: %w", bech, err)
	}
	if resp.ScopeSpecification.Specification == nil || len(resp.ScopeSpecification.Specification.SpecificationID) == 0 {
		return nil, nil
	}
	spec := resp.ScopeSpecification.Specification.toSpec()
	return &spec, nil
}

// ContractSpecification returns the contract specification at id together
// with its record specifications, or nil when it does not exist.
func (c *Client) ContractSpecification(ctx context.Context, id metadata.MetadataAddress) (*interfaces.ContractSpecState, error) {
	bech, err := id.Bech32()
	if err != nil {
		return nil, err
	}

	var resp contractSpecResponse
	err = c.getJSON(ctx, "/provenance/metadata/v1/contractspec/"+url.PathEscape(bech)+"?include_record_specs=true", &resp)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query contract specification %s: %w", bech, err)
	}
	if resp.ContractSpecification.Specification == nil || len(resp.ContractSpecification.Specification.SpecificationID) == 0 {
		return nil, nil
	}

	state := &interfaces.ContractSpecState{
		Specification: resp.ContractSpecification.Specification.toSpec(),
	}
	for _, wrapper := range resp.RecordSpecifications {
		if wrapper.Specification != nil {
			state.Records = append(state.Records, wrapper.Specification.toSpec())
		}
	}
	return state, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	return c.do(ctx, http.MethodGet, path, nil, target, c.cfg.QueryTimeout)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, target any, timeout time.Duration) error {
	return c.do(ctx, http.MethodPost, path, payload, target, timeout)
}

// do issues one request under its own deadline. Non-2xx responses become
// *apiError, everything that prevents reading a response becomes
// *TransportError.
func (c *Client) do(ctx context.Context, method, path string, payload, target any, timeout time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.inflight.Add(1)
	defer c.inflight.Done()

	op := method + " " + strings.SplitN(path, "?", 2)[0]

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var status gatewayStatus
		if json.Unmarshal(raw, &status) == nil && (status.Code != 0 || status.Message != "") {
			apiErr.Code = status.Code
			apiErr.Message = status.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
