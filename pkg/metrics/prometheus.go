package metrics

import (
	"CopyFlow/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsDetected    prometheus.Counter
	tradesReplicated   *prometheus.CounterVec
	replicationsFailed *prometheus.CounterVec
	connectionStatus   *prometheus.GaugeVec
	accountBalance     *prometheus.GaugeVec
	roundTrip          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsDetected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "copyflow_signals_detected_total",
				Help: "Total number of trade signals detected on the master account",
			},
		),
		tradesReplicated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copyflow_trades_replicated_total",
				Help: "Total number of trades executed on client accounts",
			},
			[]string{"loginid"},
		),
		replicationsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copyflow_replications_failed_total",
				Help: "Total number of failed replication attempts",
			},
			[]string{"kind"},
		),
		connectionStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "copyflow_connection_status",
				Help: "Connection status per account (0 idle, 1 connecting, 2 connected, 3 disconnected, 4 error)",
			},
			[]string{"role", "loginid"},
		),
		accountBalance: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "copyflow_account_balance",
				Help: "Last observed balance per account",
			},
			[]string{"role", "loginid"},
		),
		roundTrip: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copyflow_api_roundtrip_seconds",
				Help:    "Duration of trading-API round trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

// RecordSignalDetected counts an accepted detection.
func (r *Recorder) RecordSignalDetected() {
	r.signalsDetected.Inc()
}

// RecordTradeReplicated counts a confirmed execution on a client account.
func (r *Recorder) RecordTradeReplicated(loginid string) {
	r.tradesReplicated.WithLabelValues(loginid).Inc()
}

// RecordReplicationFailed counts a failed replication attempt by kind.
func (r *Recorder) RecordReplicationFailed(kind string) {
	r.replicationsFailed.WithLabelValues(kind).Inc()
}

// RecordConnectionStatus records an account's connection state.
func (r *Recorder) RecordConnectionStatus(role, loginid string, status models.ConnectionStatus) {
	r.connectionStatus.WithLabelValues(role, loginid).Set(float64(status))
}

// RecordBalance records an account's last observed balance.
func (r *Recorder) RecordBalance(role, loginid string, balance float64) {
	r.accountBalance.WithLabelValues(role, loginid).Set(balance)
}

// RecordRoundTrip records an API round-trip latency in seconds.
func (r *Recorder) RecordRoundTrip(op string, seconds float64) {
	r.roundTrip.WithLabelValues(op).Observe(seconds)
}
