package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/kvdb"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/raffle/archive"
	"github.com/raffle-labs/raffle/raffle/config"
	"github.com/raffle-labs/raffle/raffle/events"
	"github.com/raffle-labs/raffle/raffle/store"
	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/vrf"
	"github.com/raffle-labs/raffle/vrf/client"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

// RaffleApp runs a raffle together with its coordinator, keeper and event
// sinks
type RaffleApp struct {
	isStarted *atomic.Bool
	wg        sync.WaitGroup
	quit      chan struct{}

	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.RaffleMetrics

	raffle *Raffle
	ledger *store.LedgerStore
	es     *store.EventStore
	bus    *events.Bus
	keeper *UpkeepKeeper

	// at most one of lc and remote is set
	lc     *vrf.LocalCoordinator
	remote *client.VrfCoordinatorClient

	archive *archive.MongoSink
}

// NewRaffleAppFromConfig builds the app described by cfg. Without a
// configured subscription, the subscription of the raffle is looked up on
// the coordinator, or created and funded.
func NewRaffleAppFromConfig(
	cfg *config.Config,
	db kvdb.Backend,
	logger *zap.Logger,
) (*RaffleApp, error) {
	params, err := cfg.Raffle.Params()
	if err != nil {
		return nil, err
	}
	raffleAddr := cfg.GetRaffleAddress()

	var (
		coordinator     types.RandomnessCoordinator
		coordinatorAddr common.Address
		callbackURL     string
		subs            SubscriptionManager
	)
	switch cfg.Coordinator.Mode {
	case config.CoordinatorModeLocal:
		cp, err := cfg.Coordinator.Local.Params()
		if err != nil {
			return nil, err
		}
		lc, err := vrf.NewLocalCoordinator(cp, db, metrics.NewVrfMetrics(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create the local coordinator: %w", err)
		}
		coordinator = lc
		coordinatorAddr = lc.Address()
		subs = NewLocalSubscriptionManager(lc)
	case config.CoordinatorModeRemote:
		rc, err := client.NewVrfCoordinatorClient(cfg.Coordinator.RemoteAddress, cfg.HMACKey, cfg.Coordinator.RequestTimeout)
		if err != nil {
			return nil, err
		}
		logger.Info("successfully connected to a remote coordinator", zap.String("address", cfg.Coordinator.RemoteAddress))
		coordinator = rc
		coordinatorAddr = common.HexToAddress(cfg.Coordinator.RemoteSender)
		callbackURL = cfg.Coordinator.CallbackURL
		subs = NewRemoteSubscriptionManager(rc)
	default:
		return nil, fmt.Errorf("unknown coordinator mode %q", cfg.Coordinator.Mode)
	}

	if params.SubscriptionID == 0 {
		subID, err := EnsureSubscription(context.Background(), subs, raffleAddr, cfg.Coordinator.SubscriptionFunding, logger)
		if err != nil {
			return nil, err
		}
		params.SubscriptionID = subID
	}

	return NewRaffleApp(cfg, params, RaffleOptions{
		Address:            raffleAddr,
		CoordinatorAddress: coordinatorAddr,
		CallbackURL:        callbackURL,
	}, coordinator, db, logger)
}

// NewRaffleApp opens the stores and sinks and creates the raffle. A local
// coordinator gets the raffle registered as the consumer of its requests.
func NewRaffleApp(
	cfg *config.Config,
	params *types.RaffleParams,
	opts RaffleOptions,
	coordinator types.RandomnessCoordinator,
	db kvdb.Backend,
	logger *zap.Logger,
) (*RaffleApp, error) {
	app := &RaffleApp{
		isStarted: atomic.NewBool(false),
		config:    cfg,
		logger:    logger,
		metrics:   metrics.NewRaffleMetrics(),
	}
	switch c := coordinator.(type) {
	case *vrf.LocalCoordinator:
		app.lc = c
	case *client.VrfCoordinatorClient:
		app.remote = c
	}

	rs, err := store.NewRoundStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate round store: %w", err)
	}
	ledger, err := store.NewLedgerStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate ledger store: %w", err)
	}
	es, err := store.NewEventStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate event store: %w", err)
	}

	bus := events.NewBus(app.logger)
	bus.AddSink(events.NewStoreSink(es))
	if app.config.EventArchive.Enabled() {
		sink, err := archive.NewMongoSink(context.Background(), app.config.EventArchive, app.logger)
		if err != nil {
			return nil, err
		}
		bus.AddSink(sink)
		app.archive = sink
	}

	r, err := NewRaffle(params, opts, coordinator, ledger, rs, bus, app.metrics, app.logger)
	if err != nil {
		return nil, err
	}
	if app.lc != nil {
		app.lc.RegisterConsumer(opts.Address, r)
	}

	app.raffle = r
	app.ledger = ledger
	app.es = es
	app.bus = bus
	if app.config.Upkeep.Enabled {
		app.keeper = NewUpkeepKeeper(r, app.config.Upkeep.CheckInterval, app.metrics, app.logger)
	}

	return app, nil
}

func (app *RaffleApp) Raffle() *Raffle {
	return app.raffle
}

func (app *RaffleApp) Ledger() *store.LedgerStore {
	return app.ledger
}

func (app *RaffleApp) EventStore() *store.EventStore {
	return app.es
}

func (app *RaffleApp) Bus() *events.Bus {
	return app.bus
}

func (app *RaffleApp) Config() *config.Config {
	return app.config
}

func (app *RaffleApp) Logger() *zap.Logger {
	return app.logger
}

// Archive is nil unless the event archive is enabled
func (app *RaffleApp) Archive() *archive.MongoSink {
	return app.archive
}

// LocalCoordinator is nil with a remote coordinator
func (app *RaffleApp) LocalCoordinator() *vrf.LocalCoordinator {
	return app.lc
}

// Fulfill has the coordinator fulfill a pending request now. Empty words
// are derived as usual.
func (app *RaffleApp) Fulfill(ctx context.Context, requestID types.RequestID, words types.RandomWords) (*vrftypes.FulfillmentResponse, error) {
	if app.remote != nil {
		return app.remote.Fulfill(ctx, requestID, words)
	}
	if app.lc == nil {
		return nil, fmt.Errorf("the coordinator does not support manual fulfillment")
	}

	f, err := app.lc.FulfillRandomWordsWithOverride(ctx, requestID, words)
	if err != nil {
		return nil, err
	}

	return vrftypes.NewFulfillmentResponse(f), nil
}

// Mint credits amount to addr out of thin air
func (app *RaffleApp) Mint(addr common.Address, amount sdkmath.Int) (sdkmath.Int, error) {
	balance, err := app.ledger.Mint(addr, amount)
	if err != nil {
		return sdkmath.Int{}, err
	}

	app.logger.Info("account funded",
		zap.String("account", addr.Hex()),
		zap.String("amount_eth", types.FormatEther(amount)),
		zap.String("balance_eth", types.FormatEther(balance)),
	)

	return balance, nil
}

func (app *RaffleApp) Start() error {
	if app.isStarted.Swap(true) {
		return fmt.Errorf("the raffle app is already started")
	}

	app.logger.Info("Starting RaffleApp")

	if app.lc != nil {
		if err := app.lc.Start(); err != nil {
			return fmt.Errorf("failed to start the local coordinator: %w", err)
		}
	}
	if app.keeper != nil {
		if err := app.keeper.Start(); err != nil {
			return err
		}
	}

	app.quit = make(chan struct{})
	app.wg.Add(1)
	go app.metricsUpdateLoop()

	return nil
}

func (app *RaffleApp) Stop() error {
	if !app.isStarted.Swap(false) {
		return fmt.Errorf("the raffle app has already stopped")
	}

	app.logger.Info("Stopping RaffleApp")

	close(app.quit)
	app.wg.Wait()

	if app.keeper != nil {
		if err := app.keeper.Stop(); err != nil {
			return fmt.Errorf("failed to stop the upkeep keeper: %w", err)
		}
	}
	if app.lc != nil {
		if err := app.lc.Stop(); err != nil {
			return fmt.Errorf("failed to stop the local coordinator: %w", err)
		}
	}
	if app.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.config.EventArchive.Timeout)
		defer cancel()
		if err := app.archive.Close(ctx); err != nil {
			return fmt.Errorf("failed to close the event archive: %w", err)
		}
	}

	app.logger.Debug("RaffleApp successfully stopped")

	return nil
}

// metricsUpdateLoop refreshes the gauges that change without an event, the
// pool balance among them
func (app *RaffleApp) metricsUpdateLoop() {
	defer app.wg.Done()

	interval := app.config.Metrics.UpdateInterval
	app.logger.Info("starting metrics update loop",
		zap.Float64("interval seconds", interval.Seconds()))

	updateTicker := time.NewTicker(interval)
	defer updateTicker.Stop()

	for {
		if status, err := app.raffle.Status(); err == nil {
			app.metrics.RecordPoolBalance(types.EtherFloat64(status.PoolBalance))
			app.metrics.RecordParticipants(int(status.NumParticipants))
			app.metrics.RecordRoundState(uint8(status.State))
		} else {
			app.logger.Debug("failed to read the raffle status", zap.Error(err))
		}
		select {
		case <-updateTicker.C:
			continue
		case <-app.quit:
			app.logger.Info("exiting metrics update loop")

			return
		}
	}
}
