package service

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/lib/httpjson"
	"github.com/raffle-labs/raffle/lib/kvstore"
	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/raffle/config"
	"github.com/raffle-labs/raffle/raffle/events"
	"github.com/raffle-labs/raffle/raffle/service/client"
	"github.com/raffle-labs/raffle/testutil"
	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/vrf"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

const testHMACKey = "test-hmac-key"

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestAppDB(t *testing.T) kvdb.Backend {
	t.Helper()

	db, err := kvstore.DefaultDBConfigWithPath(t.TempDir(), kvstore.DefaultDBFileName).GetDBBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

type testRaffleRPC struct {
	app   *RaffleApp
	c     *client.RaffleServiceClient
	clock *testClock
	url   string
}

// newTestRaffleRPC serves a raffle with an in-process coordinator whose
// fulfillments are only triggered through the RPC
func newTestRaffleRPC(t *testing.T, modify func(cfg *config.Config)) *testRaffleRPC {
	t.Helper()
	logger := testutil.GetTestLogger(t)
	ctx := context.Background()

	cfg := config.DefaultConfigWithHome(t.TempDir())
	cfg.HMACKey = testHMACKey
	if modify != nil {
		modify(&cfg)
	}
	db := newTestAppDB(t)

	cp, err := cfg.Coordinator.Local.Params()
	require.NoError(t, err)
	lc, err := vrf.NewLocalCoordinator(cp, db, metrics.NewVrfMetrics(), logger)
	require.NoError(t, err)

	params, err := cfg.Raffle.Params()
	require.NoError(t, err)
	params.SubscriptionID, err = EnsureSubscription(ctx, NewLocalSubscriptionManager(lc),
		cfg.GetRaffleAddress(), cfg.Coordinator.SubscriptionFunding, logger)
	require.NoError(t, err)

	clock := &testClock{now: time.Unix(1700000000, 0)}
	app, err := NewRaffleApp(&cfg, params, RaffleOptions{
		Address:            cfg.GetRaffleAddress(),
		CoordinatorAddress: lc.Address(),
		Clock:              clock.Now,
	}, lc, db, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(newRPCServer(app).Handler(cfg.HMACKey))
	t.Cleanup(ts.Close)

	c, err := client.NewRaffleServiceClient(ts.URL, cfg.HMACKey, 5*time.Second)
	require.NoError(t, err)

	return &testRaffleRPC{app: app, c: c, clock: clock, url: ts.URL}
}

func enableManualFulfill(cfg *config.Config) {
	cfg.EnableManualFulfill = true
}

func TestRaffleRPCRound(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(1)
	ctx := context.Background()
	rpc := newTestRaffleRPC(t, enableManualFulfill)
	app, c, clock := rpc.app, rpc.c, rpc.clock

	players := testutil.GenRandomAddresses(r, 3)
	for _, p := range players {
		_, err := c.Fund(ctx, p, "1")
		require.NoError(t, err)
		_, err = c.Enter(ctx, p, "0.01")
		require.NoError(t, err)
	}

	status, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateOpen.String(), status.State)
	require.Equal(t, uint64(3), status.NumParticipants)
	require.Equal(t, "0.03", status.PoolBalance)

	participants, err := c.Participants(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{players[0].Hex(), players[1].Hex(), players[2].Hex()}, participants)

	upkeep, err := c.CheckUpkeep(ctx)
	require.NoError(t, err)
	require.False(t, upkeep.UpkeepNeeded)
	_, err = c.PerformUpkeep(ctx)
	require.ErrorIs(t, err, ErrUpkeepNotNeeded)

	clock.now = clock.now.Add(31 * time.Second)
	upkeep, err = c.CheckUpkeep(ctx)
	require.NoError(t, err)
	require.True(t, upkeep.UpkeepNeeded)
	require.Equal(t, int64(31), upkeep.ElapsedSeconds)

	requestID, err := c.PerformUpkeep(ctx)
	require.NoError(t, err)
	status, err = c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateCalculating.String(), status.State)
	require.Equal(t, requestID.Hex(), status.OutstandingRequest)

	_, err = c.Enter(ctx, players[0], "0.01")
	require.ErrorIs(t, err, ErrRoundNotOpen)

	// 4 mod 3 picks the second entrant
	f, err := c.Fulfill(ctx, requestID, types.RandomWords{big.NewInt(4)})
	require.NoError(t, err)
	require.True(t, f.Success)

	status, err = c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateOpen.String(), status.State)
	require.Equal(t, uint64(0), status.NumParticipants)
	require.Equal(t, players[1].Hex(), status.RecentWinner)
	require.Equal(t, "0", status.PoolBalance)
	require.Empty(t, status.OutstandingRequest)

	balance, err := c.Balance(ctx, players[1])
	require.NoError(t, err)
	require.Equal(t, "1.02", balance.Balance)

	draws, err := c.Draws(ctx, 10)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	require.Equal(t, players[1].Hex(), draws[0].Winner)
	require.Equal(t, "0.03", draws[0].Prize)
	require.Equal(t, uint64(1), draws[0].WinnerIndex)

	evs, err := c.Events(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, evs, 5)
	require.Equal(t, string(events.EventDrawRequested), evs[3].Type)
	require.Equal(t, requestID.Hex(), evs[3].RequestID)
	require.Equal(t, string(events.EventWinnerPicked), evs[4].Type)
	require.Equal(t, players[1].Hex(), evs[4].Participant)

	_, err = c.Participant(ctx, 0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	// the in-process fulfillment reached the raffle directly
	require.Equal(t, players[1], mustRecentWinner(t, app))
}

func mustRecentWinner(t *testing.T, app *RaffleApp) common.Address {
	t.Helper()
	winner, err := app.Raffle().RecentWinner()
	require.NoError(t, err)

	return winner
}

func TestRaffleRPCRejectsBadCallbacks(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(2)
	ctx := context.Background()
	c := newTestRaffleRPC(t, enableManualFulfill).c

	player := testutil.GenRandomAddress(r)
	_, err := c.Fund(ctx, player, "0.001")
	require.NoError(t, err)

	// below the entrance fee
	_, err = c.Enter(ctx, player, "0.001")
	require.ErrorIs(t, err, ErrInsufficientPayment)

	// enough to pay the fee but not owned by the player
	_, err = c.Enter(ctx, player, "0.5")
	require.ErrorContains(t, err, "insufficient funds")

	// no draw was requested
	_, err = c.Fulfill(ctx, testutil.GenRandomHash(r), nil)
	require.ErrorIs(t, err, vrftypes.ErrRequestNotFound)
}

// enterPlayers funds and enters each player through the RPC, then moves
// the round to CALCULATING
func enterPlayers(t *testing.T, rpc *testRaffleRPC, players []common.Address) types.RequestID {
	t.Helper()
	ctx := context.Background()

	for _, p := range players {
		_, err := rpc.c.Fund(ctx, p, "1")
		require.NoError(t, err)
		_, err = rpc.c.Enter(ctx, p, "0.01")
		require.NoError(t, err)
	}
	rpc.clock.now = rpc.clock.now.Add(31 * time.Second)

	requestID, err := rpc.c.PerformUpkeep(ctx)
	require.NoError(t, err)

	return requestID
}

func TestRaffleRPCLocalCoordinatorIgnoresCallbacks(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(3)
	ctx := context.Background()

	// no HMAC key, so nothing on the RPC is authenticated
	rpc := newTestRaffleRPC(t, func(cfg *config.Config) { cfg.HMACKey = "" })
	lc := rpc.app.LocalCoordinator()

	players := testutil.GenRandomAddresses(r, 3)
	requestID := enterPlayers(t, rpc, players)

	unsigned := httpjson.NewClient(rpc.url, "", 5*time.Second)
	forged := types.NewFulfillRandomWordsMsg(lc.Address(), requestID, types.RandomWords{big.NewInt(2)})
	err := unsigned.Post(ctx, "/v1/vrf/fulfill", forged, nil)
	require.ErrorContains(t, err, "status 404")

	err = unsigned.Post(ctx, "/v1/requests/"+requestID.Hex()+"/fulfill",
		&vrftypes.FulfillMsg{RandomWords: []string{"2"}}, nil)
	require.ErrorContains(t, err, "status 404")

	status, err := rpc.c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateCalculating.String(), status.State)
	require.Equal(t, requestID.Hex(), status.OutstandingRequest)
	require.Equal(t, uint64(3), status.NumParticipants)

	// the coordinator still delivers its own words in process
	f, err := lc.FulfillRandomWords(ctx, requestID)
	require.NoError(t, err)
	require.True(t, f.Success)

	expected := new(big.Int).Mod(f.Words[0], big.NewInt(3)).Int64()
	require.Equal(t, players[expected], mustRecentWinner(t, rpc.app))
}

// newCalculatingRaffleApp returns an app with a stubbed remote coordinator
// whose round holds the given players and awaits requestID
func newCalculatingRaffleApp(
	t *testing.T,
	coordinator common.Address,
	requestID types.RequestID,
	players []common.Address,
) *RaffleApp {
	t.Helper()
	ctx := context.Background()
	clock := &testClock{now: time.Unix(1700000000, 0)}

	cfg := config.DefaultConfigWithHome(t.TempDir())
	cfg.HMACKey = testHMACKey
	app, err := NewRaffleApp(&cfg, testutil.DefaultRaffleParams(), RaffleOptions{
		Address:            cfg.GetRaffleAddress(),
		CoordinatorAddress: coordinator,
		Clock:              clock.Now,
	}, testutil.PrepareMockedCoordinator(t, requestID), newTestAppDB(t), testutil.GetTestLogger(t))
	require.NoError(t, err)

	fee := app.Raffle().EntranceFee()
	for _, p := range players {
		_, err := app.Mint(p, fee)
		require.NoError(t, err)
		require.NoError(t, app.Raffle().Enter(ctx, p, fee))
	}
	clock.now = clock.now.Add(2 * time.Minute)
	_, err = app.Raffle().PerformUpkeep(ctx)
	require.NoError(t, err)

	return app
}

func TestRaffleRPCAuthenticatesRemoteCallbacks(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(4)
	ctx := context.Background()

	requestID := testutil.GenRandomHash(r)
	coordinator := testutil.GenRandomAddress(r)
	players := testutil.GenRandomAddresses(r, 3)
	app := newCalculatingRaffleApp(t, coordinator, requestID, players)

	keyed := httptest.NewServer(newRPCServer(app).Handler(testHMACKey))
	t.Cleanup(keyed.Close)
	unkeyed := httptest.NewServer(newRPCServer(app).Handler(""))
	t.Cleanup(unkeyed.Close)

	msg := types.NewFulfillRandomWordsMsg(coordinator, requestID, types.RandomWords{big.NewInt(2)})

	err := httpjson.NewClient(keyed.URL, "", 5*time.Second).Post(ctx, "/v1/vrf/fulfill", msg, nil)
	require.ErrorContains(t, err, "HMAC not provided")

	err = httpjson.NewClient(keyed.URL, "other-key", 5*time.Second).Post(ctx, "/v1/vrf/fulfill", msg, nil)
	require.ErrorContains(t, err, "invalid HMAC")

	// a daemon without a key refuses callbacks whatever they carry
	err = httpjson.NewClient(unkeyed.URL, "", 5*time.Second).Post(ctx, "/v1/vrf/fulfill", msg, nil)
	require.ErrorContains(t, err, "HMAC key not configured")
	err = httpjson.NewClient(unkeyed.URL, testHMACKey, 5*time.Second).Post(ctx, "/v1/vrf/fulfill", msg, nil)
	require.ErrorContains(t, err, "status 401")

	signed := httpjson.NewClient(keyed.URL, testHMACKey, 5*time.Second)

	// signed, but not sent on behalf of the coordinator
	spoofed := types.NewFulfillRandomWordsMsg(testutil.GenRandomAddress(r), requestID, types.RandomWords{big.NewInt(2)})
	err = signed.Post(ctx, "/v1/vrf/fulfill", spoofed, nil)
	require.ErrorIs(t, err, ErrOnlyCoordinatorCanFulfill)

	// manual fulfillment is off
	err = signed.Post(ctx, "/v1/requests/"+requestID.Hex()+"/fulfill",
		&vrftypes.FulfillMsg{RandomWords: []string{"2"}}, nil)
	require.ErrorContains(t, err, "status 404")

	state, err := app.Raffle().RaffleState()
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateCalculating, state)
	require.Equal(t, common.Address{}, mustRecentWinner(t, app))

	require.NoError(t, signed.Post(ctx, "/v1/vrf/fulfill", msg, nil))
	require.Equal(t, players[2], mustRecentWinner(t, app))
	state, err = app.Raffle().RaffleState()
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateOpen, state)

	// a retried delivery of the same request is acknowledged without effect
	retried := types.NewFulfillRandomWordsMsg(coordinator, requestID, types.RandomWords{big.NewInt(1)})
	require.NoError(t, signed.Post(ctx, "/v1/vrf/fulfill", retried, nil))
	require.Equal(t, players[2], mustRecentWinner(t, app))
	draws, err := app.Raffle().Draws(10)
	require.NoError(t, err)
	require.Len(t, draws, 1)

	// an unknown request still fails
	other := types.NewFulfillRandomWordsMsg(coordinator, testutil.GenRandomHash(r), types.RandomWords{big.NewInt(1)})
	err = signed.Post(ctx, "/v1/vrf/fulfill", other, nil)
	require.ErrorIs(t, err, ErrRoundNotCalculating)
}

func TestRaffleRPCCallbackAfterRejectedPayout(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(5)
	ctx := context.Background()

	requestID := testutil.GenRandomHash(r)
	coordinator := testutil.GenRandomAddress(r)
	winner := testutil.GenRandomAddress(r)
	app := newCalculatingRaffleApp(t, coordinator, requestID, []common.Address{winner})
	require.NoError(t, app.Ledger().SetRejectsTransfers(winner, true))

	ts := httptest.NewServer(newRPCServer(app).Handler(testHMACKey))
	t.Cleanup(ts.Close)

	// the draw completed, so the coordinator is told the words were delivered
	msg := types.NewFulfillRandomWordsMsg(coordinator, requestID, testutil.GenRandomWords(r, 1))
	require.NoError(t, httpjson.NewClient(ts.URL, testHMACKey, 5*time.Second).Post(ctx, "/v1/vrf/fulfill", msg, nil))

	status, err := app.Raffle().Status()
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateOpen, status.State)
	require.Equal(t, winner, status.RecentWinner)
	require.True(t, status.PoolBalance.Equal(testutil.Ether(1)))
}

func TestRaffleAppReusesSubscription(t *testing.T) {
	t.Parallel()
	logger := testutil.GetTestLogger(t)

	cfg := config.DefaultConfigWithHome(t.TempDir())
	db := newTestAppDB(t)

	app, err := NewRaffleAppFromConfig(&cfg, db, logger)
	require.NoError(t, err)
	subID := app.Raffle().Params().SubscriptionID
	require.Equal(t, uint64(1), subID)

	sub, err := app.LocalCoordinator().GetSubscription(subID)
	require.NoError(t, err)
	require.True(t, sub.HasConsumer(cfg.GetRaffleAddress()))
	require.Equal(t, "3", types.FormatEther(sub.Balance))

	// a restart finds the subscription instead of creating another one
	restarted, err := NewRaffleAppFromConfig(&cfg, db, logger)
	require.NoError(t, err)
	require.Equal(t, subID, restarted.Raffle().Params().SubscriptionID)

	subs, err := restarted.LocalCoordinator().ListSubscriptions()
	require.NoError(t, err)
	require.Len(t, subs, 1)

	require.NoError(t, restarted.Start())
	require.Error(t, restarted.Start())
	require.NoError(t, restarted.Stop())
}
