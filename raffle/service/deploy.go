package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/vrf"
	"github.com/raffle-labs/raffle/vrf/client"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

// SubscriptionManager is the subscription surface of a coordinator, local
// or remote
type SubscriptionManager interface {
	FindSubscriptionByConsumer(ctx context.Context, consumer common.Address) (uint64, error)
	CreateSubscription(ctx context.Context, owner common.Address) (uint64, error)
	FundSubscription(ctx context.Context, subID uint64, amount string) error
	AddConsumer(ctx context.Context, subID uint64, consumer common.Address) error
}

// EnsureSubscription returns the subscription paying for the requests of
// consumer. A subscription already listing consumer is reused; otherwise one
// is created, funded with funding ether and consumer is added to it.
func EnsureSubscription(
	ctx context.Context,
	sm SubscriptionManager,
	consumer common.Address,
	funding string,
	logger *zap.Logger,
) (uint64, error) {
	subID, err := sm.FindSubscriptionByConsumer(ctx, consumer)
	if err == nil {
		logger.Info("reusing the subscription of the raffle", zap.Uint64("sub_id", subID))

		return subID, nil
	}
	if !errors.Is(err, vrftypes.ErrSubscriptionNotFound) {
		return 0, fmt.Errorf("failed to look up the subscription of %s: %w", consumer.Hex(), err)
	}

	subID, err = sm.CreateSubscription(ctx, consumer)
	if err != nil {
		return 0, fmt.Errorf("failed to create subscription: %w", err)
	}
	logger.Info("subscription created", zap.Uint64("sub_id", subID), zap.String("owner", consumer.Hex()))

	if err := sm.FundSubscription(ctx, subID, funding); err != nil {
		return 0, fmt.Errorf("failed to fund subscription %d: %w", subID, err)
	}
	logger.Info("subscription funded", zap.Uint64("sub_id", subID), zap.String("amount", funding))

	if err := sm.AddConsumer(ctx, subID, consumer); err != nil {
		return 0, fmt.Errorf("failed to add consumer to subscription %d: %w", subID, err)
	}
	logger.Info("consumer added", zap.Uint64("sub_id", subID), zap.String("consumer", consumer.Hex()))

	return subID, nil
}

type localSubscriptions struct {
	lc *vrf.LocalCoordinator
}

func NewLocalSubscriptionManager(lc *vrf.LocalCoordinator) SubscriptionManager {
	return &localSubscriptions{lc: lc}
}

func (s *localSubscriptions) FindSubscriptionByConsumer(_ context.Context, consumer common.Address) (uint64, error) {
	sub, err := s.lc.FindSubscriptionByConsumer(consumer)
	if err != nil {
		return 0, err
	}

	return sub.ID, nil
}

func (s *localSubscriptions) CreateSubscription(_ context.Context, owner common.Address) (uint64, error) {
	return s.lc.CreateSubscription(owner)
}

func (s *localSubscriptions) FundSubscription(_ context.Context, subID uint64, amount string) error {
	wei, err := types.ParseEther(amount)
	if err != nil {
		return err
	}
	_, err = s.lc.FundSubscription(subID, wei)

	return err
}

func (s *localSubscriptions) AddConsumer(_ context.Context, subID uint64, consumer common.Address) error {
	return s.lc.AddConsumer(subID, consumer)
}

type remoteSubscriptions struct {
	c *client.VrfCoordinatorClient
}

func NewRemoteSubscriptionManager(c *client.VrfCoordinatorClient) SubscriptionManager {
	return &remoteSubscriptions{c: c}
}

func (s *remoteSubscriptions) FindSubscriptionByConsumer(ctx context.Context, consumer common.Address) (uint64, error) {
	sub, err := s.c.FindSubscriptionByConsumer(ctx, consumer)
	if err != nil {
		return 0, err
	}

	return sub.SubscriptionID, nil
}

func (s *remoteSubscriptions) CreateSubscription(ctx context.Context, owner common.Address) (uint64, error) {
	return s.c.CreateSubscription(ctx, owner)
}

func (s *remoteSubscriptions) FundSubscription(ctx context.Context, subID uint64, amount string) error {
	_, err := s.c.FundSubscription(ctx, subID, amount)

	return err
}

func (s *remoteSubscriptions) AddConsumer(ctx context.Context, subID uint64, consumer common.Address) error {
	_, err := s.c.AddConsumer(ctx, subID, consumer)

	return err
}
