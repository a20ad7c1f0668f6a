package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/testutil"
	"github.com/raffle-labs/raffle/vrf/client"
	"github.com/raffle-labs/raffle/vrf/config"
)

func TestVrfServerRunUntilShutdown(t *testing.T) {
	r := testutil.NewRand(3)

	cfg := config.DefaultConfigWithHomePath(t.TempDir())
	cfg.RPCListener = testutil.AllocateListenAddress(t)
	cfg.Metrics.Port = testutil.AllocateUniquePort(t)
	cfg.HMACKey = testHMACKey

	db, err := cfg.DatabaseConfig.GetDBBackend()
	require.NoError(t, err)

	s, err := NewVrfServer(cfg, testutil.GetTestLogger(t), db)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.RunUntilShutdown(ctx)
	}()

	var c *client.VrfCoordinatorClient
	require.Eventually(t, func() bool {
		c, err = client.NewVrfCoordinatorClient(cfg.RPCListener, testHMACKey, time.Second)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	subID, err := c.CreateSubscription(ctx, testutil.GenRandomAddress(r))
	require.NoError(t, err)
	sub, err := s.Coordinator().GetSubscription(subID)
	require.NoError(t, err)
	require.Equal(t, subID, sub.ID)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("the server did not shut down")
	}

	// a server runs once
	require.NoError(t, s.RunUntilShutdown(context.Background()))
}
