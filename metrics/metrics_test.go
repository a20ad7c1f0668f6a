package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestConfigAddress(t *testing.T) {
	t.Parallel()

	cfg := DefaultRaffleConfig()
	addr, err := cfg.Address()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:2112", addr)

	cfg.Host = "not-an-ip"
	_, err = cfg.Address()
	require.Error(t, err)

	cfg = DefaultVrfConfig()
	cfg.UpdateInterval = 0
	require.Error(t, cfg.Validate())
}

func TestRaffleMetrics(t *testing.T) {
	t.Parallel()

	m := newRaffleMetrics(prometheus.NewRegistry())
	m.IncrementEntries()
	m.IncrementEntries()
	m.RecordParticipants(2)
	m.RecordWinnerPicked(1700000000)
	m.IncrementUpkeepChecks("not_needed")

	require.InDelta(t, 2, testutil.ToFloat64(m.entries), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.participants), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.winnersPicked), 0)
	require.InDelta(t, 1700000000, testutil.ToFloat64(m.lastDrawTimestamp), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.upkeepChecks.WithLabelValues("not_needed")), 0)
}

func TestVrfMetrics(t *testing.T) {
	t.Parallel()

	m := newVrfMetrics(prometheus.NewRegistry())
	m.IncrementRequests()
	m.IncrementFulfillments(true)
	m.IncrementFulfillments(false)
	m.RecordSubscriptionBalance(1, 10)

	require.InDelta(t, 1, testutil.ToFloat64(m.requests), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.fulfillments.WithLabelValues("true")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.fulfillments.WithLabelValues("false")), 0)
	require.InDelta(t, 10, testutil.ToFloat64(m.subscriptionBalance.WithLabelValues("1")), 0)
}
