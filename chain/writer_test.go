package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/metadata"
	"github.com/ruteri/contract-spec-publisher/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainID = "pio-testnet-1"

// fakeGateway scripts the broadcast and get-tx responses of a REST gateway.
type fakeGateway struct {
	t *testing.T

	mu             sync.Mutex
	sequence       uint64
	accountFetches int
	simulations    int
	broadcasts     int
	polls          int

	// broadcastCodes are returned by successive broadcasts; once exhausted
	// broadcasts are accepted.
	broadcastCodes []uint32
	rawLog         string
	// pendingPolls get-tx calls return not found before the tx shows up.
	pendingPolls int
	// neverInclude keeps returning not found.
	neverInclude bool
	// txCode is the code of the included transaction.
	txCode uint32

	signer cryptoutils.Signer
}

func (g *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cosmos/auth/v1beta1/accounts/{address}", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.accountFetches++
		writeJSON(w, http.StatusOK, map[string]any{
			"account": map[string]any{
				"@type":          "/cosmos.auth.v1beta1.BaseAccount",
				"address":        r.PathValue("address"),
				"account_number": "7",
				"sequence":       strconv.FormatUint(g.sequence, 10),
			},
		})
	})
	mux.HandleFunc("POST /cosmos/tx/v1beta1/simulate", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.simulations++
		g.verifyTx(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"gas_info": map[string]any{"gas_wanted": "0", "gas_used": "100000"},
		})
	})
	mux.HandleFunc("POST /cosmos/tx/v1beta1/txs", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.broadcasts++
		g.verifyTx(r)

		var code uint32
		if len(g.broadcastCodes) > 0 {
			code = g.broadcastCodes[0]
			g.broadcastCodes = g.broadcastCodes[1:]
		}
		rawLog := "[]"
		if code != 0 {
			rawLog = g.rawLog
		} else {
			g.sequence++
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tx_response": map[string]any{"height": "0", "txhash": "ABCDEF", "code": code, "raw_log": rawLog},
		})
	})
	mux.HandleFunc("GET /cosmos/tx/v1beta1/txs/{hash}", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.polls++
		if g.neverInclude || g.polls <= g.pendingPolls {
			writeJSON(w, http.StatusNotFound, map[string]any{"code": 5, "message": "tx not found: " + r.PathValue("hash")})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tx_response": map[string]any{
				"height":     "42",
				"txhash":     r.PathValue("hash"),
				"code":       g.txCode,
				"raw_log":    "out of gas",
				"gas_wanted": "125000",
				"gas_used":   "99000",
			},
		})
	})
	return mux
}

// verifyTx checks the submitted transaction is signed by the test signer
// over the expected chain id and account number.
func (g *fakeGateway) verifyTx(r *http.Request) {
	var req txRequest
	require.NoError(g.t, json.NewDecoder(r.Body).Decode(&req))
	raw, err := base64.StdEncoding.DecodeString(req.TxBytes)
	require.NoError(g.t, err)

	fields := decodeWire(g.t, raw)
	body := fieldsNamed(fields, 1)[0].bytes
	authInfo := fieldsNamed(fields, 2)[0].bytes
	sig := fieldsNamed(fields, 3)[0].bytes
	assert.True(g.t, cryptoutils.VerifySignature(g.signer.PubKey(), SignDoc(body, authInfo, testChainID, 7), sig))

	signerInfo := decodeWire(g.t, fieldsNamed(decodeWire(g.t, authInfo), 1)[0].bytes)
	var sequence uint64
	if seq := fieldsNamed(signerInfo, 3); len(seq) > 0 {
		sequence = seq[0].varint
	}
	assert.Equal(g.t, g.sequence, sequence)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, url string, m *metrics.Metrics) *Client {
	t.Helper()
	client, err := Dial(context.Background(), Config{
		Endpoint:     url,
		ChainID:      testChainID,
		PollInterval: time.Millisecond,
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:      m,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestWriteTx_RetriesSequenceMismatch(t *testing.T) {
	signer := testSigner(t)
	gw := &fakeGateway{
		t:              t,
		signer:         signer,
		broadcastCodes: []uint32{32, 32},
		rawLog:         "account sequence mismatch, expected 1, got 0: incorrect account sequence",
		pendingPolls:   2,
	}
	server := httptest.NewServer(gw.handler())
	defer server.Close()

	m := metrics.New(prometheus.NewRegistry())
	client := newTestClient(t, server.URL, m)

	result, err := client.WriteTx(context.Background(), signer, []metadata.Msg{testMsg()})
	require.NoError(t, err)

	assert.Equal(t, "ABCDEF", result.TxHash)
	assert.Equal(t, int64(42), result.Height)
	assert.Equal(t, uint64(99000), result.GasUsed)

	assert.Equal(t, 3, gw.broadcasts)
	assert.Equal(t, 3, gw.accountFetches)
	assert.Equal(t, 3, gw.simulations)
	assert.Equal(t, 3, gw.polls)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SequenceRetries))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxBroadcasts.WithLabelValues("sequence_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxBroadcasts.WithLabelValues("accepted")))
}

func TestWriteTx_FatalRejectionIsNotRetried(t *testing.T) {
	signer := testSigner(t)
	gw := &fakeGateway{
		t:              t,
		signer:         signer,
		broadcastCodes: []uint32{13},
		rawLog:         "insufficient fee",
	}
	server := httptest.NewServer(gw.handler())
	defer server.Close()

	m := metrics.New(prometheus.NewRegistry())
	client := newTestClient(t, server.URL, m)

	_, err := client.WriteTx(context.Background(), signer, []metadata.Msg{testMsg()})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.False(t, rejected.Retryable)
	assert.Equal(t, uint32(13), rejected.Code)
	assert.Equal(t, "insufficient fee", rejected.RawLog)

	assert.Equal(t, 1, gw.broadcasts)
	assert.Equal(t, 0, gw.polls)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SequenceRetries))
}

func TestWriteTx_SequenceMismatchExhaustsAttempts(t *testing.T) {
	signer := testSigner(t)
	gw := &fakeGateway{
		t:              t,
		signer:         signer,
		broadcastCodes: []uint32{32, 32, 32, 32, 32, 32},
		rawLog:         "account sequence mismatch, expected 1, got 0",
	}
	server := httptest.NewServer(gw.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.WriteTx(context.Background(), signer, []metadata.Msg{testMsg()})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.True(t, rejected.Retryable)
	assert.Equal(t, DefaultMaxAttempts, gw.broadcasts)
}

func TestWriteTx_InclusionTimeout(t *testing.T) {
	signer := testSigner(t)
	gw := &fakeGateway{t: t, signer: signer, neverInclude: true}
	server := httptest.NewServer(gw.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	client.cfg.MaxPolls = 3

	_, err := client.WriteTx(context.Background(), signer, []metadata.Msg{testMsg()})
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "ABCDEF", timeout.TxHash)
	assert.Equal(t, 3, timeout.Polls)
	assert.Equal(t, 3, gw.polls)

	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected), "timeout must be distinguishable from rejection")
}

func TestWriteTx_FailedInBlock(t *testing.T) {
	signer := testSigner(t)
	gw := &fakeGateway{t: t, signer: signer, txCode: 11}
	server := httptest.NewServer(gw.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.WriteTx(context.Background(), signer, []metadata.Msg{testMsg()})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, uint32(11), rejected.Code)
	assert.Equal(t, "ABCDEF", rejected.TxHash)
	assert.Equal(t, 1, gw.broadcasts)
}

func TestWriteTx_SimulationSequenceMismatch(t *testing.T) {
	signer := testSigner(t)
	var simulations int
	mux := http.NewServeMux()
	gw := &fakeGateway{t: t, signer: signer}
	mux.Handle("/", gw.handler())
	mux.HandleFunc("POST /cosmos/tx/v1beta1/simulate", func(w http.ResponseWriter, r *http.Request) {
		simulations++
		if simulations == 1 {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"code":    2,
				"message": "account sequence mismatch, expected 1, got 0: incorrect account sequence",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"gas_info": map[string]any{"gas_used": "50000"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	_, err := client.WriteTx(context.Background(), signer, []metadata.Msg{testMsg()})
	require.NoError(t, err)
	assert.Equal(t, 2, simulations)
	assert.Equal(t, 1, gw.broadcasts)
}

func TestWriteTx_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(t, url, nil)
	_, err := client.WriteTx(context.Background(), testSigner(t), []metadata.Msg{testMsg()})
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
}

func TestWriteTx_NoMessages(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1", nil)
	_, err := client.WriteTx(context.Background(), testSigner(t), nil)
	assert.Error(t, err)
}
