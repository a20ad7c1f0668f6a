package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/lib/httpjson"
	"github.com/raffle-labs/raffle/lib/kvstore"
	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/testutil"
	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/vrf"
	"github.com/raffle-labs/raffle/vrf/client"
	"github.com/raffle-labs/raffle/vrf/config"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

const testHMACKey = "test-hmac-key"

// callbackRecorder stands in for a consumer's fulfillment endpoint
type callbackRecorder struct {
	mu       sync.Mutex
	received []*types.FulfillRandomWordsMsg
}

func (cr *callbackRecorder) handler(t *testing.T) http.Handler {
	engine := httpjson.NewEngine(testutil.GetTestLogger(t))
	engine.POST("/v1/vrf/fulfill", httpjson.HMACMiddleware(testHMACKey, testutil.GetTestLogger(t)), func(c *gin.Context) {
		var msg types.FulfillRandomWordsMsg
		if err := c.ShouldBindJSON(&msg); err != nil {
			httpjson.AbortWithStatus(c, http.StatusBadRequest, err)
			return
		}
		cr.mu.Lock()
		cr.received = append(cr.received, &msg)
		cr.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{})
	})

	return engine
}

func newTestVrfRPC(t *testing.T, enableManualFulfill bool) (*vrf.LocalCoordinator, *client.VrfCoordinatorClient) {
	t.Helper()
	logger := testutil.GetTestLogger(t)

	cfg := config.DefaultCoordinatorConfig()
	params, err := cfg.Params()
	require.NoError(t, err)

	dbCfg := kvstore.DefaultDBConfigWithPath(t.TempDir(), "vrf.db")
	db, err := dbCfg.GetDBBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	resolver := func(callbackURL string) (types.RandomnessConsumer, error) {
		return client.NewCallbackConsumer(callbackURL, testHMACKey, logger), nil
	}
	lc, err := vrf.NewLocalCoordinator(params, db, metrics.NewVrfMetrics(), logger, vrf.WithCallbackResolver(resolver))
	require.NoError(t, err)

	ts := httptest.NewServer(newRPCServer(lc, enableManualFulfill, logger).Handler(testHMACKey))
	t.Cleanup(ts.Close)

	c, err := client.NewVrfCoordinatorClient(ts.URL, testHMACKey, 5*time.Second)
	require.NoError(t, err)

	return lc, c
}

func TestVrfRPCRoundTrip(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(1)
	ctx := context.Background()
	lc, c := newTestVrfRPC(t, true)

	recorder := &callbackRecorder{}
	consumerServer := httptest.NewServer(recorder.handler(t))
	defer consumerServer.Close()

	info, err := c.CoordinatorInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, lc.Address().Hex(), info.Address)

	consumer := testutil.GenRandomAddress(r)
	subID, err := c.CreateSubscription(ctx, consumer)
	require.NoError(t, err)

	sub, err := c.FundSubscription(ctx, subID, "3")
	require.NoError(t, err)
	require.Equal(t, "3", sub.Balance)

	sub, err = c.AddConsumer(ctx, subID, consumer)
	require.NoError(t, err)
	require.Equal(t, []string{consumer.Hex()}, sub.Consumers)

	found, err := c.FindSubscriptionByConsumer(ctx, consumer)
	require.NoError(t, err)
	require.Equal(t, subID, found.SubscriptionID)

	req := &types.RandomWordsRequest{
		KeyHash:              testutil.GenRandomHash(r),
		SubscriptionID:       subID,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             1,
		Consumer:             consumer,
		CallbackURL:          consumerServer.URL + "/v1/vrf/fulfill",
	}
	requestID, err := c.RequestRandomWords(ctx, req)
	require.NoError(t, err)

	pending, err := c.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, requestID.Hex(), pending[0].RequestID)

	words := testutil.GenRandomWords(r, 1)
	f, err := c.Fulfill(ctx, requestID, words)
	require.NoError(t, err)
	require.True(t, f.Success)
	require.Equal(t, words.Strings(), f.RandomWords)

	recorder.mu.Lock()
	require.Len(t, recorder.received, 1)
	require.Equal(t, lc.Address().Hex(), recorder.received[0].Sender)
	require.Equal(t, requestID.Hex(), recorder.received[0].RequestID)
	recorder.mu.Unlock()

	stored, err := c.GetFulfillment(ctx, requestID)
	require.NoError(t, err)
	require.Equal(t, f.RandomWords, stored.RandomWords)

	sub, err = c.RemoveConsumer(ctx, subID, consumer)
	require.NoError(t, err)
	require.Empty(t, sub.Consumers)
}

func TestVrfRPCErrors(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(2)
	ctx := context.Background()
	_, c := newTestVrfRPC(t, true)

	_, err := c.GetSubscription(ctx, 42)
	require.ErrorIs(t, err, vrftypes.ErrSubscriptionNotFound)
	require.False(t, client.IsTransient(err))

	_, err = c.FindSubscriptionByConsumer(ctx, testutil.GenRandomAddress(r))
	require.ErrorIs(t, err, vrftypes.ErrSubscriptionNotFound)

	_, err = c.Fulfill(ctx, testutil.GenRandomHash(r), nil)
	require.ErrorIs(t, err, vrftypes.ErrRequestNotFound)

	subID, err := c.CreateSubscription(ctx, testutil.GenRandomAddress(r))
	require.NoError(t, err)
	_, err = c.FundSubscription(ctx, subID, "0")
	require.ErrorIs(t, err, vrftypes.ErrInvalidAmount)

	_, err = c.RequestRandomWords(ctx, &types.RandomWordsRequest{
		SubscriptionID:       subID,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             config.MaxNumWords + 1,
		Consumer:             testutil.GenRandomAddress(r),
	})
	require.ErrorIs(t, err, vrftypes.ErrNumWordsTooBig)
}

func TestVrfRPCManualFulfillDisabled(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(4)
	ctx := context.Background()
	lc, c := newTestVrfRPC(t, false)

	consumer := testutil.GenRandomAddress(r)
	subID, err := c.CreateSubscription(ctx, consumer)
	require.NoError(t, err)
	_, err = c.FundSubscription(ctx, subID, "3")
	require.NoError(t, err)
	_, err = c.AddConsumer(ctx, subID, consumer)
	require.NoError(t, err)

	requestID, err := c.RequestRandomWords(ctx, &types.RandomWordsRequest{
		KeyHash:              testutil.GenRandomHash(r),
		SubscriptionID:       subID,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             1,
		Consumer:             consumer,
		CallbackURL:          "http://127.0.0.1:1/v1/vrf/fulfill",
	})
	require.NoError(t, err)

	_, err = c.Fulfill(ctx, requestID, testutil.GenRandomWords(r, 1))
	require.ErrorContains(t, err, "status 404")

	// the request is still waiting for the coordinator's own words
	pending, err := lc.PendingRequests()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, requestID, pending[0].ID)
}

func TestVrfRPCRequiresHMAC(t *testing.T) {
	t.Parallel()

	logger := testutil.GetTestLogger(t)
	ts := httptest.NewServer(newRPCServer(nil, false, logger).Handler(testHMACKey))
	defer ts.Close()

	// health is open
	_, err := client.NewVrfCoordinatorClient(ts.URL, "", time.Second)
	require.NoError(t, err)

	unsigned := httpjson.NewClient(ts.URL, "", time.Second)
	err = unsigned.Get(context.Background(), "/v1/subscriptions", nil, nil)
	require.ErrorContains(t, err, "401")

	wrong := httpjson.NewClient(ts.URL, "wrong-key", time.Second)
	err = wrong.Get(context.Background(), "/v1/subscriptions", nil, nil)
	require.ErrorContains(t, err, "401")
}
