package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contract_spec_publisher"

// Metrics holds the publisher's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	TxBroadcasts     *prometheus.CounterVec
	SequenceRetries  prometheus.Counter
	InclusionPolls   prometheus.Counter
	MessagesStaged   *prometheus.CounterVec
	ObjectsStored    *prometheus.CounterVec
	WriteTxDuration  prometheus.Histogram
	LocationOutcomes *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TxBroadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_broadcasts_total",
			Help:      "Transaction broadcast attempts by result",
		}, []string{"result"}), // result: "accepted", "sequence_mismatch", "rejected", "error"

		SequenceRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_retries_total",
			Help:      "Write cycles retried after an account sequence mismatch",
		}),

		InclusionPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inclusion_polls_total",
			Help:      "Get-transaction polls issued while waiting for inclusion",
		}),

		MessagesStaged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_staged_total",
			Help:      "Metadata write messages staged by type",
		}, []string{"type"}),

		ObjectsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Objects put to the object store by kind and outcome",
		}, []string{"kind", "outcome"}), // outcome: "stored", "deduplicated"

		WriteTxDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_tx_duration_seconds",
			Help:      "Duration of a full write cycle from account fetch to inclusion",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),

		LocationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_runs_total",
			Help:      "Location publish runs by outcome",
		}, []string{"outcome"}),
	}
}

// IncBroadcast counts a broadcast by result. All Inc and Add helpers accept
// a nil receiver.
func (m *Metrics) IncBroadcast(result string) {
	if m != nil {
		m.TxBroadcasts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncSequenceRetry() {
	if m != nil {
		m.SequenceRetries.Inc()
	}
}

func (m *Metrics) IncPoll() {
	if m != nil {
		m.InclusionPolls.Inc()
	}
}

// AddStaged counts n staged messages of msgType.
func (m *Metrics) AddStaged(msgType string, n int) {
	if m != nil {
		m.MessagesStaged.WithLabelValues(msgType).Add(float64(n))
	}
}

// IncObject counts an object store put by kind and outcome.
func (m *Metrics) IncObject(kind, outcome string) {
	if m != nil {
		m.ObjectsStored.WithLabelValues(kind, outcome).Inc()
	}
}

// ObserveWriteTx records the duration of a write cycle started at start.
func (m *Metrics) ObserveWriteTx(start time.Time) {
	if m != nil {
		m.WriteTxDuration.Observe(time.Since(start).Seconds())
	}
}

// IncLocation counts a finished location by outcome.
func (m *Metrics) IncLocation(outcome string) {
	if m != nil {
		m.LocationOutcomes.WithLabelValues(outcome).Inc()
	}
}
