package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	raffleMetricsOnce     sync.Once
	raffleMetricsInstance *RaffleMetrics
)

// RaffleMetrics tracks the round state machine of rfd
type RaffleMetrics struct {
	entries           prometheus.Counter
	participants      prometheus.Gauge
	poolBalance       prometheus.Gauge
	roundState        prometheus.Gauge
	roundNumber       prometheus.Gauge
	drawsRequested    prometheus.Counter
	winnersPicked     prometheus.Counter
	payoutFailures    prometheus.Counter
	lastDrawTimestamp prometheus.Gauge
	upkeepChecks      *prometheus.CounterVec
}

// NewRaffleMetrics returns the process wide raffle collectors, registering
// them on first use
func NewRaffleMetrics() *RaffleMetrics {
	raffleMetricsOnce.Do(func() {
		raffleMetricsInstance = newRaffleMetrics(prometheus.DefaultRegisterer)
	})

	return raffleMetricsInstance
}

func newRaffleMetrics(registerer prometheus.Registerer) *RaffleMetrics {
	m := &RaffleMetrics{
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_entries_total",
			Help: "Total number of accepted raffle entries",
		}),
		participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raffle_participants",
			Help: "Number of participants in the current round",
		}),
		poolBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raffle_pool_balance_ether",
			Help: "Balance of the prize pool in ether",
		}),
		roundState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raffle_round_state",
			Help: "State of the current round (0 open, 1 calculating)",
		}),
		roundNumber: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raffle_round_number",
			Help: "Number of completed draws",
		}),
		drawsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_draws_requested_total",
			Help: "Total number of randomness requests issued for draws",
		}),
		winnersPicked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_winners_picked_total",
			Help: "Total number of completed draws",
		}),
		payoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_payout_failures_total",
			Help: "Total number of prize transfers rejected by the recipient",
		}),
		lastDrawTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raffle_last_draw_timestamp_seconds",
			Help: "Unix time of the last completed draw",
		}),
		upkeepChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raffle_upkeep_checks_total",
			Help: "Upkeep checks performed by the keeper, by result",
		}, []string{"result"}),
	}

	registerer.MustRegister(
		m.entries,
		m.participants,
		m.poolBalance,
		m.roundState,
		m.roundNumber,
		m.drawsRequested,
		m.winnersPicked,
		m.payoutFailures,
		m.lastDrawTimestamp,
		m.upkeepChecks,
	)

	return m
}

func (m *RaffleMetrics) IncrementEntries() {
	m.entries.Inc()
}

func (m *RaffleMetrics) RecordParticipants(n int) {
	m.participants.Set(float64(n))
}

func (m *RaffleMetrics) RecordPoolBalance(ether float64) {
	m.poolBalance.Set(ether)
}

func (m *RaffleMetrics) RecordRoundState(state uint8) {
	m.roundState.Set(float64(state))
}

func (m *RaffleMetrics) RecordRoundNumber(n uint64) {
	m.roundNumber.Set(float64(n))
}

func (m *RaffleMetrics) IncrementDrawsRequested() {
	m.drawsRequested.Inc()
}

func (m *RaffleMetrics) RecordWinnerPicked(unixSeconds int64) {
	m.winnersPicked.Inc()
	m.lastDrawTimestamp.Set(float64(unixSeconds))
}

func (m *RaffleMetrics) IncrementPayoutFailures() {
	m.payoutFailures.Inc()
}

func (m *RaffleMetrics) IncrementUpkeepChecks(result string) {
	m.upkeepChecks.WithLabelValues(result).Inc()
}
