package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/types"
)

var (
	RtyAttNum = uint(5)
	RtyAtt    = retry.Attempts(RtyAttNum)
	RtyDel    = retry.Delay(time.Millisecond * 400)
	RtyErr    = retry.LastErrorOnly(true)
)

// Upkeepable is the surface the keeper drives
type Upkeepable interface {
	CheckUpkeep(ctx context.Context) (bool, *UpkeepStatus, error)
	PerformUpkeep(ctx context.Context) (types.RequestID, error)
}

// UpkeepKeeper polls CheckUpkeep and triggers PerformUpkeep whenever a draw
// is due
type UpkeepKeeper struct {
	target   Upkeepable
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.RaffleMetrics

	isStarted *atomic.Bool
	wg        sync.WaitGroup
	quit      chan struct{}
}

func NewUpkeepKeeper(target Upkeepable, interval time.Duration, m *metrics.RaffleMetrics, logger *zap.Logger) *UpkeepKeeper {
	return &UpkeepKeeper{
		target:    target,
		interval:  interval,
		logger:    logger,
		metrics:   m,
		isStarted: atomic.NewBool(false),
	}
}

func (k *UpkeepKeeper) Start() error {
	if k.isStarted.Swap(true) {
		return fmt.Errorf("the upkeep keeper is already started")
	}

	k.logger.Info("starting the upkeep keeper", zap.Duration("check_interval", k.interval))

	k.quit = make(chan struct{})
	k.wg.Add(1)
	go k.upkeepLoop()

	return nil
}

func (k *UpkeepKeeper) Stop() error {
	if !k.isStarted.Swap(false) {
		return fmt.Errorf("the upkeep keeper has already stopped")
	}

	close(k.quit)
	k.wg.Wait()

	k.logger.Info("the upkeep keeper is successfully stopped")

	return nil
}

func (k *UpkeepKeeper) IsRunning() bool {
	return k.isStarted.Load()
}

func (k *UpkeepKeeper) upkeepLoop() {
	defer k.wg.Done()

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.tryUpkeep()
		case <-k.quit:
			k.logger.Info("the upkeep loop is closing")

			return
		}
	}
}

func (k *UpkeepKeeper) tryUpkeep() {
	ctx, cancel := k.quitContext()
	defer cancel()

	needed, status, err := k.checkUpkeepWithRetry(ctx)
	if err != nil {
		k.metrics.IncrementUpkeepChecks("error")
		k.logger.Error("failed to check upkeep", zap.Error(err))

		return
	}
	if !needed {
		k.metrics.IncrementUpkeepChecks("not_needed")
		k.logger.Debug("upkeep not needed",
			zap.String("state", status.State.String()),
			zap.Uint64("participants", status.NumParticipants),
			zap.Bool("time_passed", status.TimePassed),
			zap.String("balance", status.Balance.String()),
		)

		return
	}
	k.metrics.IncrementUpkeepChecks("needed")

	// PerformUpkeep re-validates under the raffle lock, so it is not retried:
	// a concurrent trigger may have closed the round in the meantime
	requestID, err := k.target.PerformUpkeep(ctx)
	if err != nil {
		if errors.Is(err, ErrUpkeepNotNeeded) {
			k.logger.Debug("upkeep no longer needed", zap.Error(err))

			return
		}
		k.logger.Error("failed to perform upkeep", zap.Error(err))

		return
	}

	k.logger.Info("upkeep performed", zap.String("request_id", requestID.Hex()))
}

func (k *UpkeepKeeper) checkUpkeepWithRetry(ctx context.Context) (bool, *UpkeepStatus, error) {
	var (
		needed bool
		status *UpkeepStatus
	)

	if err := retry.Do(func() error {
		var err error
		needed, status, err = k.target.CheckUpkeep(ctx)

		return err
	}, RtyAtt, RtyDel, RtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
		k.logger.Debug(
			"failed to check upkeep",
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err),
		)
	})); err != nil {
		return false, nil, err
	}

	return needed, status, nil
}

// quitContext returns a context cancelled once the keeper is stopped
func (k *UpkeepKeeper) quitContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-k.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
