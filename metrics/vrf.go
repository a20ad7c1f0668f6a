package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	vrfMetricsOnce     sync.Once
	vrfMetricsInstance *VrfMetrics
)

// VrfMetrics tracks requests served by the randomness coordinator
type VrfMetrics struct {
	requests            prometheus.Counter
	fulfillments        *prometheus.CounterVec
	pendingRequests     prometheus.Gauge
	subscriptionBalance *prometheus.GaugeVec
}

func NewVrfMetrics() *VrfMetrics {
	vrfMetricsOnce.Do(func() {
		vrfMetricsInstance = newVrfMetrics(prometheus.DefaultRegisterer)
	})

	return vrfMetricsInstance
}

func newVrfMetrics(registerer prometheus.Registerer) *VrfMetrics {
	m := &VrfMetrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vrf_random_words_requests_total",
			Help: "Total number of accepted random words requests",
		}),
		fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vrf_random_words_fulfillments_total",
			Help: "Total number of fulfillments, by callback outcome",
		}, []string{"success"}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vrf_pending_requests",
			Help: "Number of requests waiting for fulfillment",
		}),
		subscriptionBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vrf_subscription_balance",
			Help: "Balance of each subscription in base units",
		}, []string{"sub_id"}),
	}

	registerer.MustRegister(
		m.requests,
		m.fulfillments,
		m.pendingRequests,
		m.subscriptionBalance,
	)

	return m
}

func (m *VrfMetrics) IncrementRequests() {
	m.requests.Inc()
}

func (m *VrfMetrics) IncrementFulfillments(success bool) {
	m.fulfillments.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func (m *VrfMetrics) RecordPendingRequests(n int) {
	m.pendingRequests.Set(float64(n))
}

func (m *VrfMetrics) RecordSubscriptionBalance(subID uint64, balance float64) {
	m.subscriptionBalance.WithLabelValues(strconv.FormatUint(subID, 10)).Set(balance)
}
