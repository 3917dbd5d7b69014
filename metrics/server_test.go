package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncBroadcast("accepted")
	m.IncObject("contract", "deduplicated")
	m.ObserveWriteTx(time.Now())

	srv := NewServer(&ServerConfig{
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Gatherer: reg,
	})
	handler := srv.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)
	srv.SetReady(true)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	rec := get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `contract_spec_publisher_tx_broadcasts_total{result="accepted"} 1`))
	assert.True(t, strings.Contains(body, `contract_spec_publisher_objects_total{kind="contract",outcome="deduplicated"} 1`))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncBroadcast("accepted")
		m.IncSequenceRetry()
		m.IncPoll()
		m.AddStaged("x", 2)
		m.IncObject("spec", "stored")
		m.ObserveWriteTx(time.Now())
		m.IncLocation("ok")
	})
}
