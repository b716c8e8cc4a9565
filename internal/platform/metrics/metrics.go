package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the auction service. A nil
// *Metrics is valid and records nothing, so components can run without it.
type Metrics struct {
	Settlements         *prometheus.CounterVec
	SettlementDuration  prometheus.Histogram
	BidUpdates          *prometheus.CounterVec
	LiveSessions        prometheus.Gauge
	SessionsReaped      prometheus.Counter
	BroadcastDeliveries *prometheus.CounterVec
	HTTPLatency         *prometheus.HistogramVec
}

// New creates and registers all metrics on reg. Pass
// prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crewauction_settlements_total",
			Help: "Settlement attempts by outcome code",
		}, []string{"outcome"}),
		SettlementDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "crewauction_settlement_duration_seconds",
			Help:    "Latency of settlement transactions",
			Buckets: prometheus.DefBuckets,
		}),
		BidUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crewauction_bid_updates_total",
			Help: "Bid updates by outcome code",
		}, []string{"outcome"}),
		LiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crewauction_live_sessions",
			Help: "Current number of registered live sessions",
		}),
		SessionsReaped: factory.NewCounter(prometheus.CounterOpts{
			Name: "crewauction_sessions_reaped_total",
			Help: "Sessions evicted by the inactivity reaper",
		}),
		BroadcastDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crewauction_broadcast_deliveries_total",
			Help: "Per-session broadcast delivery attempts by result",
		}, []string{"result"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crewauction_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) ObserveSettlement(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(outcome).Inc()
	m.SettlementDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementBidUpdates(outcome string) {
	if m == nil {
		return
	}
	m.BidUpdates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetLiveSessions(count int) {
	if m == nil {
		return
	}
	m.LiveSessions.Set(float64(count))
}

func (m *Metrics) AddSessionsReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsReaped.Add(float64(n))
}

func (m *Metrics) IncrementBroadcast(result string) {
	if m == nil {
		return
	}
	m.BroadcastDeliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(route, status).Observe(d.Seconds())
}
