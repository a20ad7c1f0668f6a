package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/raffle/config"
	"github.com/raffle-labs/raffle/raffle/service/client"
	"github.com/raffle-labs/raffle/testutil"
	"github.com/raffle-labs/raffle/types"
)

func TestRaffleServerRunUntilShutdown(t *testing.T) {
	r := testutil.NewRand(4)
	logger := testutil.GetTestLogger(t)

	cfg := config.DefaultConfigWithHome(t.TempDir())
	cfg.RPCListener = testutil.AllocateListenAddress(t)
	cfg.Metrics.Port = testutil.AllocateUniquePort(t)
	cfg.HMACKey = testHMACKey
	cfg.Upkeep.Enabled = false
	require.NoError(t, cfg.Validate())

	db, err := cfg.DatabaseConfig.GetDBBackend()
	require.NoError(t, err)

	app, err := NewRaffleAppFromConfig(&cfg, db, logger)
	require.NoError(t, err)
	require.NotNil(t, app.LocalCoordinator())
	require.NotZero(t, app.Raffle().Params().SubscriptionID)

	s := NewRaffleServer(&cfg, logger, app, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.RunUntilShutdown(ctx)
	}()

	var c *client.RaffleServiceClient
	require.Eventually(t, func() bool {
		c, err = client.NewRaffleServiceClient(cfg.RPCListener, testHMACKey, time.Second)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	params, err := c.Params(ctx)
	require.NoError(t, err)

	player := testutil.GenRandomAddress(r)
	_, err = c.Fund(ctx, player, "1")
	require.NoError(t, err)
	status, err := c.Enter(ctx, player, params.EntranceFee)
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateOpen.String(), status.State)
	require.EqualValues(t, 1, status.NumParticipants)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("the server did not shut down")
	}
}
