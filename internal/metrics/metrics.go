package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry    *prometheus.Registry
	mints       *prometheus.CounterVec
	submissions *prometheus.CounterVec
	transitions *prometheus.CounterVec
	pending     prometheus.Gauge
	deliveries  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nftbot_mints_total",
			Help: "NFT mint attempts by mode and result.",
		}, []string{"mode", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nftbot_wallet_submissions_total",
			Help: "External messages submitted from the service wallet.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nftbot_promo_transitions_total",
			Help: "Promo code state transitions by outcome.",
		}, []string{"transition", "result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nftbot_pending_nft_addresses",
			Help: "Minted tokens still waiting for their collection address.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nftbot_broadcast_deliveries_total",
			Help: "Broadcast deliveries by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.mints,
		m.submissions,
		m.transitions,
		m.pending,
		m.deliveries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Mint(mode, result string) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) WalletSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) PromoTransition(transition string, ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "applied"
	}
	m.transitions.WithLabelValues(transition, result).Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) BroadcastDelivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}
