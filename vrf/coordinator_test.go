package vrf_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/raffle-labs/raffle/lib/kvstore"
	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/testutil"
	"github.com/raffle-labs/raffle/testutil/mocks"
	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/vrf"
	"github.com/raffle-labs/raffle/vrf/config"
	"github.com/raffle-labs/raffle/vrf/randgen"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCoordinator(t *testing.T, opts ...vrf.CoordinatorOption) (*vrf.LocalCoordinator, *config.CoordinatorParams) {
	t.Helper()

	cfg := config.DefaultCoordinatorConfig()
	cfg.FulfillmentInterval = 10 * time.Millisecond
	params, err := cfg.Params()
	require.NoError(t, err)

	dbCfg := kvstore.DefaultDBConfigWithPath(t.TempDir(), "vrf.db")
	db, err := dbCfg.GetDBBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	lc, err := vrf.NewLocalCoordinator(params, db, metrics.NewVrfMetrics(), testutil.GetTestLogger(t), opts...)
	require.NoError(t, err)

	return lc, params
}

// newFundedSubscription creates a subscription for consumer holding n fees
func newFundedSubscription(t *testing.T, lc *vrf.LocalCoordinator, params *config.CoordinatorParams, consumer common.Address, n int64) uint64 {
	t.Helper()

	subID, err := lc.CreateSubscription(consumer)
	require.NoError(t, err)
	_, err = lc.FundSubscription(subID, params.Fee(500000).MulRaw(n))
	require.NoError(t, err)
	require.NoError(t, lc.AddConsumer(subID, consumer))

	return subID
}

func newRequest(r *rand.Rand, subID uint64, consumer common.Address) *types.RandomWordsRequest {
	return &types.RandomWordsRequest{
		KeyHash:              common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"),
		SubscriptionID:       subID,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             uint32(r.Intn(3) + 1),
		Consumer:             consumer,
	}
}

func TestRequestRandomWordsValidation(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(1)
	lc, params := newTestCoordinator(t)

	consumer := testutil.GenRandomAddress(r)
	subID := newFundedSubscription(t, lc, params, consumer, 1)

	testCases := []struct {
		name   string
		modify func(req *types.RandomWordsRequest)
		err    error
	}{
		{"zero words", func(req *types.RandomWordsRequest) { req.NumWords = 0 }, vrftypes.ErrInvalidRequest},
		{"too many words", func(req *types.RandomWordsRequest) { req.NumWords = config.MaxNumWords + 1 }, vrftypes.ErrNumWordsTooBig},
		{"gas limit too big", func(req *types.RandomWordsRequest) { req.CallbackGasLimit = params.MaxCallbackGasLimit + 1 }, vrftypes.ErrGasLimitTooBig},
		{"too few confirmations", func(req *types.RandomWordsRequest) { req.RequestConfirmations = params.MinRequestConfirmations - 1 }, vrftypes.ErrInvalidRequestConfirmations},
		{"too many confirmations", func(req *types.RandomWordsRequest) { req.RequestConfirmations = config.MaxRequestConfirmations + 1 }, vrftypes.ErrInvalidRequestConfirmations},
		{"unknown subscription", func(req *types.RandomWordsRequest) { req.SubscriptionID = subID + 1 }, vrftypes.ErrSubscriptionNotFound},
		{"unknown consumer", func(req *types.RandomWordsRequest) { req.Consumer = common.HexToAddress("0x01") }, vrftypes.ErrInvalidConsumer},
	}

	for _, tc := range testCases {
		req := newRequest(r, subID, consumer)
		tc.modify(req)
		_, err := lc.RequestRandomWords(context.Background(), req)
		require.ErrorIs(t, err, tc.err, tc.name)
	}

	pending, err := lc.PendingRequests()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestFulfillDeliversDerivedWords(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(2)
	lc, params := newTestCoordinator(t)
	ctx := context.Background()

	consumerAddr := testutil.GenRandomAddress(r)
	subID := newFundedSubscription(t, lc, params, consumerAddr, 2)

	req := newRequest(r, subID, consumerAddr)
	requestID, err := lc.RequestRandomWords(ctx, req)
	require.NoError(t, err)

	expected := randgen.GenerateWords(params.SeedKey, requestID, req.NumWords)
	ctl := gomock.NewController(t)
	consumer := mocks.NewMockRandomnessConsumer(ctl)
	consumer.EXPECT().
		RawFulfillRandomWords(gomock.Any(), params.Address, requestID, expected).
		Return(nil).
		Times(1)
	lc.RegisterConsumer(consumerAddr, consumer)

	f, err := lc.FulfillRandomWords(ctx, requestID)
	require.NoError(t, err)
	require.True(t, f.Success)
	require.True(t, f.Payment.Equal(params.Fee(req.CallbackGasLimit)))

	_, err = lc.FulfillRandomWords(ctx, requestID)
	require.ErrorIs(t, err, vrftypes.ErrRequestNotFound)

	sub, err := lc.GetSubscription(subID)
	require.NoError(t, err)
	require.True(t, sub.Balance.Equal(params.Fee(req.CallbackGasLimit)))

	stored, err := lc.GetFulfillment(requestID)
	require.NoError(t, err)
	require.Equal(t, expected, stored.Words)
}

func TestFulfillWithOverride(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(3)
	lc, params := newTestCoordinator(t)
	ctx := context.Background()

	consumerAddr := testutil.GenRandomAddress(r)
	subID := newFundedSubscription(t, lc, params, consumerAddr, 1)

	req := newRequest(r, subID, consumerAddr)
	req.NumWords = 2
	requestID, err := lc.RequestRandomWords(ctx, req)
	require.NoError(t, err)

	_, err = lc.FulfillRandomWordsWithOverride(ctx, requestID, testutil.GenRandomWords(r, 1))
	require.ErrorIs(t, err, vrftypes.ErrWrongNumberOfWords)

	words := testutil.GenRandomWords(r, 2)
	ctl := gomock.NewController(t)
	consumer := mocks.NewMockRandomnessConsumer(ctl)
	consumer.EXPECT().RawFulfillRandomWords(gomock.Any(), params.Address, requestID, words).Return(nil).Times(1)
	lc.RegisterConsumer(consumerAddr, consumer)

	f, err := lc.FulfillRandomWordsWithOverride(ctx, requestID, words)
	require.NoError(t, err)
	require.Equal(t, words, f.Words)
}

func TestFulfillInsufficientBalanceKeepsRequest(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(4)
	lc, _ := newTestCoordinator(t)
	ctx := context.Background()

	consumerAddr := testutil.GenRandomAddress(r)
	subID, err := lc.CreateSubscription(consumerAddr)
	require.NoError(t, err)
	require.NoError(t, lc.AddConsumer(subID, consumerAddr))

	// the consumer must not be called
	ctl := gomock.NewController(t)
	consumer := mocks.NewMockRandomnessConsumer(ctl)
	lc.RegisterConsumer(consumerAddr, consumer)

	requestID, err := lc.RequestRandomWords(ctx, newRequest(r, subID, consumerAddr))
	require.NoError(t, err)

	_, err = lc.FulfillRandomWords(ctx, requestID)
	require.ErrorIs(t, err, vrftypes.ErrInsufficientSubscriptionBalance)

	pending, err := lc.PendingRequests()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, requestID, pending[0].ID)
}

func TestFailedCallbackConsumesRequest(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(5)
	lc, params := newTestCoordinator(t)
	ctx := context.Background()

	consumerAddr := testutil.GenRandomAddress(r)
	subID := newFundedSubscription(t, lc, params, consumerAddr, 1)

	ctl := gomock.NewController(t)
	consumer := mocks.NewMockRandomnessConsumer(ctl)
	consumer.EXPECT().
		RawFulfillRandomWords(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("prize transfer failed")).
		Times(1)
	lc.RegisterConsumer(consumerAddr, consumer)

	requestID, err := lc.RequestRandomWords(ctx, newRequest(r, subID, consumerAddr))
	require.NoError(t, err)

	f, err := lc.FulfillRandomWords(ctx, requestID)
	require.NoError(t, err)
	require.False(t, f.Success)

	pending, err := lc.PendingRequests()
	require.NoError(t, err)
	require.Empty(t, pending)

	sub, err := lc.GetSubscription(subID)
	require.NoError(t, err)
	require.True(t, sub.Balance.IsZero())
}

func TestConsumedWordsCountAsDelivered(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(8)
	lc, params := newTestCoordinator(t)
	ctx := context.Background()

	consumerAddr := testutil.GenRandomAddress(r)
	subID := newFundedSubscription(t, lc, params, consumerAddr, 1)

	ctl := gomock.NewController(t)
	consumer := mocks.NewMockRandomnessConsumer(ctl)
	consumer.EXPECT().
		RawFulfillRandomWords(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(types.WordsConsumed(errors.New("prize transfer failed"))).
		Times(1)
	lc.RegisterConsumer(consumerAddr, consumer)

	requestID, err := lc.RequestRandomWords(ctx, newRequest(r, subID, consumerAddr))
	require.NoError(t, err)

	f, err := lc.FulfillRandomWords(ctx, requestID)
	require.NoError(t, err)
	require.True(t, f.Success)

	stored, err := lc.GetFulfillment(requestID)
	require.NoError(t, err)
	require.True(t, stored.Success)
}

func TestUnreachableConsumer(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(6)

	var resolved []string
	lc, params := newTestCoordinator(t, vrf.WithCallbackResolver(func(url string) (types.RandomnessConsumer, error) {
		resolved = append(resolved, url)
		return testutil.NopConsumer{}, nil
	}))
	ctx := context.Background()

	consumerAddr := testutil.GenRandomAddress(r)
	subID := newFundedSubscription(t, lc, params, consumerAddr, 2)

	requestID, err := lc.RequestRandomWords(ctx, newRequest(r, subID, consumerAddr))
	require.NoError(t, err)
	f, err := lc.FulfillRandomWords(ctx, requestID)
	require.NoError(t, err)
	require.False(t, f.Success)

	req := newRequest(r, subID, consumerAddr)
	req.CallbackURL = "http://127.0.0.1:12582/v1/vrf/fulfill"
	requestID, err = lc.RequestRandomWords(ctx, req)
	require.NoError(t, err)
	f, err = lc.FulfillRandomWords(ctx, requestID)
	require.NoError(t, err)
	require.True(t, f.Success)
	require.Equal(t, []string{req.CallbackURL}, resolved)
}

func TestFulfillmentLoopWaitsForDelay(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(7)

	clock := &testClock{now: time.Unix(1700000000, 0)}
	lc, params := newTestCoordinator(t, vrf.WithClock(clock.Now))
	ctx := context.Background()

	consumerAddr := testutil.GenRandomAddress(r)
	subID := newFundedSubscription(t, lc, params, consumerAddr, 1)

	delivered := make(chan types.RequestID, 1)
	ctl := gomock.NewController(t)
	consumer := mocks.NewMockRandomnessConsumer(ctl)
	consumer.EXPECT().
		RawFulfillRandomWords(gomock.Any(), params.Address, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ common.Address, id types.RequestID, _ types.RandomWords) error {
			delivered <- id
			return nil
		}).
		Times(1)
	lc.RegisterConsumer(consumerAddr, consumer)

	requestID, err := lc.RequestRandomWords(ctx, newRequest(r, subID, consumerAddr))
	require.NoError(t, err)

	require.NoError(t, lc.Start())
	defer func() {
		require.NoError(t, lc.Stop())
	}()

	select {
	case <-delivered:
		t.Fatal("request fulfilled before the delay elapsed")
	case <-time.After(100 * time.Millisecond):
	}

	clock.Advance(params.FulfillmentDelay)

	select {
	case id := <-delivered:
		require.Equal(t, requestID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("request was not fulfilled")
	}
}
