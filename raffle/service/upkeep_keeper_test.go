package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/raffle/service"
	"github.com/raffle-labs/raffle/testutil"
	"github.com/raffle-labs/raffle/types"
)

type fakeUpkeepable struct {
	mu        sync.Mutex
	checkErrs int
	needed    bool
	checks    int
	performed int
}

func (f *fakeUpkeepable) CheckUpkeep(context.Context) (bool, *service.UpkeepStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checks++
	if f.checkErrs > 0 {
		f.checkErrs--
		return false, nil, errors.New("store unavailable")
	}

	return f.needed, &service.UpkeepStatus{UpkeepNeeded: f.needed, Balance: sdkmath.ZeroInt()}, nil
}

func (f *fakeUpkeepable) PerformUpkeep(context.Context) (types.RequestID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.performed++
	// one draw per round
	f.needed = false

	return types.RequestID{1}, nil
}

func (f *fakeUpkeepable) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.checks, f.performed
}

func TestUpkeepKeeperPerformsWhenNeeded(t *testing.T) {
	t.Parallel()

	target := &fakeUpkeepable{needed: true, checkErrs: 2}
	keeper := service.NewUpkeepKeeper(target, 10*time.Millisecond, metrics.NewRaffleMetrics(), testutil.GetTestLogger(t))

	require.NoError(t, keeper.Start())
	require.Error(t, keeper.Start())
	require.True(t, keeper.IsRunning())

	require.Eventually(t, func() bool {
		checks, performed := target.counts()
		return performed == 1 && checks > 4
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, keeper.Stop())
	require.Error(t, keeper.Stop())
	require.False(t, keeper.IsRunning())

	_, performed := target.counts()
	require.Equal(t, 1, performed)
}

func TestUpkeepKeeperIdle(t *testing.T) {
	t.Parallel()

	target := &fakeUpkeepable{}
	keeper := service.NewUpkeepKeeper(target, 5*time.Millisecond, metrics.NewRaffleMetrics(), testutil.GetTestLogger(t))

	require.NoError(t, keeper.Start())
	require.Eventually(t, func() bool {
		checks, _ := target.counts()
		return checks >= 3
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, keeper.Stop())

	_, performed := target.counts()
	require.Zero(t, performed)
}
