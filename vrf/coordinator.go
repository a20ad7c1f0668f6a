package vrf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/kvdb"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/vrf/config"
	"github.com/raffle-labs/raffle/vrf/randgen"
	"github.com/raffle-labs/raffle/vrf/store"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

var _ types.RandomnessCoordinator = &LocalCoordinator{}

// CallbackResolver returns the consumer reachable at a callback url
type CallbackResolver func(callbackURL string) (types.RandomnessConsumer, error)

type CoordinatorOption func(*LocalCoordinator)

// WithClock replaces time.Now, mostly for tests
func WithClock(clock func() time.Time) CoordinatorOption {
	return func(lc *LocalCoordinator) {
		lc.clock = clock
	}
}

// WithCallbackResolver routes requests of consumers that are not registered
// in process to their callback url
func WithCallbackResolver(resolver CallbackResolver) CoordinatorOption {
	return func(lc *LocalCoordinator) {
		lc.resolver = resolver
	}
}

// LocalCoordinator is a randomness coordinator backed by a local store.
// Requests are paid by subscriptions and fulfilled by a background loop once
// they have been pending for the configured delay. Fulfillment never happens
// inside RequestRandomWords.
type LocalCoordinator struct {
	params  *config.CoordinatorParams
	vs      *store.VrfStore
	logger  *zap.Logger
	metrics *metrics.VrfMetrics
	clock   func() time.Time

	consumersMu sync.RWMutex
	consumers   map[common.Address]types.RandomnessConsumer
	resolver    CallbackResolver

	// serializes fulfillments, it is never held by RequestRandomWords
	fulfillMu sync.Mutex

	isStarted *atomic.Bool
	wg        sync.WaitGroup
	quit      chan struct{}
}

func NewLocalCoordinator(
	params *config.CoordinatorParams,
	db kvdb.Backend,
	m *metrics.VrfMetrics,
	logger *zap.Logger,
	opts ...CoordinatorOption,
) (*LocalCoordinator, error) {
	vs, err := store.NewVrfStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	lc := &LocalCoordinator{
		params:    params,
		vs:        vs,
		logger:    logger,
		metrics:   m,
		clock:     time.Now,
		consumers: make(map[common.Address]types.RandomnessConsumer),
		isStarted: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(lc)
	}

	return lc, nil
}

// Address is the sender of every fulfillment
func (lc *LocalCoordinator) Address() common.Address {
	return lc.params.Address
}

func (lc *LocalCoordinator) Params() config.CoordinatorParams {
	return *lc.params
}

// RegisterConsumer delivers the fulfillments of requests issued by addr to
// consumer in process
func (lc *LocalCoordinator) RegisterConsumer(addr common.Address, consumer types.RandomnessConsumer) {
	lc.consumersMu.Lock()
	defer lc.consumersMu.Unlock()

	lc.consumers[addr] = consumer
}

func (lc *LocalCoordinator) CreateSubscription(owner common.Address) (uint64, error) {
	subID, err := lc.vs.CreateSubscription(owner)
	if err != nil {
		return 0, err
	}

	lc.logger.Info("subscription created",
		zap.Uint64("sub_id", subID),
		zap.String("owner", owner.Hex()),
	)
	lc.metrics.RecordSubscriptionBalance(subID, 0)

	return subID, nil
}

func (lc *LocalCoordinator) FundSubscription(subID uint64, amount sdkmath.Int) (*vrftypes.Subscription, error) {
	sub, err := lc.vs.FundSubscription(subID, amount)
	if err != nil {
		return nil, err
	}

	lc.logger.Info("subscription funded",
		zap.Uint64("sub_id", subID),
		zap.String("amount", types.FormatEther(amount)),
		zap.String("balance", types.FormatEther(sub.Balance)),
	)
	lc.metrics.RecordSubscriptionBalance(subID, types.EtherFloat64(sub.Balance))

	return sub, nil
}

func (lc *LocalCoordinator) AddConsumer(subID uint64, consumer common.Address) error {
	if err := lc.vs.AddConsumer(subID, consumer); err != nil {
		return err
	}

	lc.logger.Info("consumer added",
		zap.Uint64("sub_id", subID),
		zap.String("consumer", consumer.Hex()),
	)

	return nil
}

func (lc *LocalCoordinator) RemoveConsumer(subID uint64, consumer common.Address) error {
	if err := lc.vs.RemoveConsumer(subID, consumer); err != nil {
		return err
	}

	lc.logger.Info("consumer removed",
		zap.Uint64("sub_id", subID),
		zap.String("consumer", consumer.Hex()),
	)

	return nil
}

func (lc *LocalCoordinator) GetSubscription(subID uint64) (*vrftypes.Subscription, error) {
	return lc.vs.GetSubscription(subID)
}

func (lc *LocalCoordinator) ListSubscriptions() ([]*vrftypes.Subscription, error) {
	return lc.vs.ListSubscriptions()
}

func (lc *LocalCoordinator) FindSubscriptionByConsumer(consumer common.Address) (*vrftypes.Subscription, error) {
	return lc.vs.FindSubscriptionByConsumer(consumer)
}

// RequestRandomWords validates req against the coordinator limits and the
// subscription, then records it as pending
func (lc *LocalCoordinator) RequestRandomWords(_ context.Context, req *types.RandomWordsRequest) (types.RequestID, error) {
	if err := req.Validate(); err != nil {
		return types.RequestID{}, errorsmod.Wrap(vrftypes.ErrInvalidRequest, err.Error())
	}
	if req.NumWords > config.MaxNumWords {
		return types.RequestID{}, errorsmod.Wrapf(vrftypes.ErrNumWordsTooBig, "have %d, max %d", req.NumWords, config.MaxNumWords)
	}
	if req.CallbackGasLimit > lc.params.MaxCallbackGasLimit {
		return types.RequestID{}, errorsmod.Wrapf(vrftypes.ErrGasLimitTooBig,
			"have %d, max %d", req.CallbackGasLimit, lc.params.MaxCallbackGasLimit)
	}
	if req.RequestConfirmations < lc.params.MinRequestConfirmations ||
		req.RequestConfirmations > config.MaxRequestConfirmations {
		return types.RequestID{}, errorsmod.Wrapf(vrftypes.ErrInvalidRequestConfirmations,
			"have %d, want between %d and %d",
			req.RequestConfirmations, lc.params.MinRequestConfirmations, config.MaxRequestConfirmations)
	}

	pending, err := lc.vs.AddRequest(req, lc.clock())
	if err != nil {
		return types.RequestID{}, err
	}

	lc.logger.Info("random words requested",
		zap.String("request_id", pending.ID.Hex()),
		zap.Uint64("sub_id", req.SubscriptionID),
		zap.String("consumer", req.Consumer.Hex()),
		zap.Uint32("num_words", req.NumWords),
		zap.Uint64("nonce", pending.Nonce),
	)
	lc.metrics.IncrementRequests()
	lc.recordPending()

	return pending.ID, nil
}

func (lc *LocalCoordinator) PendingRequests() ([]*vrftypes.PendingRequest, error) {
	return lc.vs.ListPendingRequests()
}

func (lc *LocalCoordinator) GetFulfillment(requestID types.RequestID) (*vrftypes.Fulfillment, error) {
	return lc.vs.GetFulfillment(requestID)
}

// FulfillRandomWords delivers the words derived from the seed key
func (lc *LocalCoordinator) FulfillRandomWords(ctx context.Context, requestID types.RequestID) (*vrftypes.Fulfillment, error) {
	return lc.FulfillRandomWordsWithOverride(ctx, requestID, nil)
}

// FulfillRandomWordsWithOverride delivers words instead of the derived ones.
// Empty words fall back to the derived ones. The subscription pays the
// fulfillment fee whether or not the consumer accepts the words, and the
// request is consumed either way.
func (lc *LocalCoordinator) FulfillRandomWordsWithOverride(
	ctx context.Context,
	requestID types.RequestID,
	words types.RandomWords,
) (*vrftypes.Fulfillment, error) {
	lc.fulfillMu.Lock()
	defer lc.fulfillMu.Unlock()

	pending, err := lc.vs.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	req := pending.Request

	if len(words) == 0 {
		words = randgen.GenerateWords(lc.params.SeedKey, requestID, req.NumWords)
	} else if uint32(len(words)) != req.NumWords {
		return nil, errorsmod.Wrapf(vrftypes.ErrWrongNumberOfWords, "have %d, want %d", len(words), req.NumWords)
	}

	payment := lc.params.Fee(req.CallbackGasLimit)
	sub, err := lc.vs.GetSubscription(req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Balance.LT(payment) {
		return nil, errorsmod.Wrapf(vrftypes.ErrInsufficientSubscriptionBalance,
			"subscription %d has %s, payment is %s", sub.ID, types.FormatEther(sub.Balance), types.FormatEther(payment))
	}

	success := true
	consumer, err := lc.resolveConsumer(&req)
	if err == nil {
		err = consumer.RawFulfillRandomWords(ctx, lc.params.Address, requestID, words)
	}
	switch {
	case err == nil:
	case errors.Is(err, types.ErrRandomWordsConsumed):
		lc.logger.Warn("consumer failed after using the random words",
			zap.String("request_id", requestID.Hex()),
			zap.String("consumer", req.Consumer.Hex()),
			zap.Error(err),
		)
	default:
		success = false
		lc.logger.Warn("consumer rejected the random words",
			zap.String("request_id", requestID.Hex()),
			zap.String("consumer", req.Consumer.Hex()),
			zap.Error(err),
		)
	}

	f := &vrftypes.Fulfillment{
		RequestID:      requestID,
		SubscriptionID: req.SubscriptionID,
		Consumer:       req.Consumer,
		Words:          words,
		Payment:        payment,
		Success:        success,
		FulfilledAt:    time.Unix(lc.clock().Unix(), 0).UTC(),
	}
	if err := lc.vs.CompleteRequest(f); err != nil {
		return nil, fmt.Errorf("failed to complete request %s: %w", requestID.Hex(), err)
	}

	lc.logger.Info("random words fulfilled",
		zap.String("request_id", requestID.Hex()),
		zap.String("consumer", req.Consumer.Hex()),
		zap.String("payment", types.FormatEther(payment)),
		zap.Bool("success", success),
	)
	lc.metrics.IncrementFulfillments(success)
	lc.metrics.RecordSubscriptionBalance(sub.ID, types.EtherFloat64(sub.Balance.Sub(payment)))
	lc.recordPending()

	return f, nil
}

func (lc *LocalCoordinator) resolveConsumer(req *types.RandomWordsRequest) (types.RandomnessConsumer, error) {
	lc.consumersMu.RLock()
	consumer, ok := lc.consumers[req.Consumer]
	lc.consumersMu.RUnlock()
	if ok {
		return consumer, nil
	}

	if req.CallbackURL != "" && lc.resolver != nil {
		return lc.resolver(req.CallbackURL)
	}

	return nil, errorsmod.Wrapf(vrftypes.ErrConsumerUnreachable, "consumer %s", req.Consumer.Hex())
}

func (lc *LocalCoordinator) Start() error {
	if lc.isStarted.Swap(true) {
		return fmt.Errorf("the coordinator is already started")
	}

	lc.logger.Info("starting the randomness coordinator",
		zap.String("address", lc.params.Address.Hex()),
		zap.Duration("fulfillment_delay", lc.params.FulfillmentDelay),
	)

	lc.quit = make(chan struct{})
	lc.wg.Add(1)
	go lc.fulfillmentLoop()

	return nil
}

func (lc *LocalCoordinator) Stop() error {
	if !lc.isStarted.Swap(false) {
		return fmt.Errorf("the coordinator has already stopped")
	}

	close(lc.quit)
	lc.wg.Wait()

	lc.logger.Info("the randomness coordinator is successfully stopped")

	return nil
}

func (lc *LocalCoordinator) fulfillmentLoop() {
	defer lc.wg.Done()

	ticker := time.NewTicker(lc.params.FulfillmentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lc.fulfillReadyRequests()
		case <-lc.quit:
			lc.logger.Info("the fulfillment loop is closing")

			return
		}
	}
}

func (lc *LocalCoordinator) fulfillReadyRequests() {
	pending, err := lc.vs.ListPendingRequests()
	if err != nil {
		lc.logger.Error("failed to list pending requests", zap.Error(err))

		return
	}

	ctx, cancel := lc.quitContext()
	defer cancel()

	now := lc.clock()
	for _, req := range pending {
		if now.Sub(req.RequestedAt) < lc.params.FulfillmentDelay {
			// pending requests are ordered oldest first
			return
		}

		if _, err := lc.FulfillRandomWords(ctx, req.ID); err != nil {
			if errors.Is(err, vrftypes.ErrInsufficientSubscriptionBalance) {
				lc.logger.Warn("request waits for the subscription to be funded",
					zap.String("request_id", req.ID.Hex()),
					zap.Uint64("sub_id", req.Request.SubscriptionID),
				)

				continue
			}
			lc.logger.Error("failed to fulfill request",
				zap.String("request_id", req.ID.Hex()),
				zap.Error(err),
			)
		}
	}
}

func (lc *LocalCoordinator) recordPending() {
	pending, err := lc.vs.ListPendingRequests()
	if err != nil {
		return
	}
	lc.metrics.RecordPendingRequests(len(pending))
}

func (lc *LocalCoordinator) quitContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-lc.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
