package store

import (
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/raffle-labs/raffle/types"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

type subscriptionRecord struct {
	Owner     common.Address
	Balance   *big.Int
	Consumers []common.Address
}

func marshalSubscription(sub *vrftypes.Subscription) ([]byte, error) {
	return rlp.EncodeToBytes(&subscriptionRecord{
		Owner:     sub.Owner,
		Balance:   sub.Balance.BigInt(),
		Consumers: sub.Consumers,
	})
}

func unmarshalSubscription(id uint64, bz []byte) (*vrftypes.Subscription, error) {
	var rec subscriptionRecord
	if err := rlp.DecodeBytes(bz, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedVrfDB, err)
	}

	return &vrftypes.Subscription{
		ID:        id,
		Owner:     rec.Owner,
		Balance:   sdkmath.NewIntFromBigInt(rec.Balance),
		Consumers: rec.Consumers,
	}, nil
}

type requestRecord struct {
	Nonce                uint64
	KeyHash              common.Hash
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	Consumer             common.Address
	CallbackURL          string
	RequestedAt          uint64
}

func marshalRequest(req *vrftypes.PendingRequest) ([]byte, error) {
	return rlp.EncodeToBytes(&requestRecord{
		Nonce:                req.Nonce,
		KeyHash:              req.Request.KeyHash,
		SubscriptionID:       req.Request.SubscriptionID,
		RequestConfirmations: req.Request.RequestConfirmations,
		CallbackGasLimit:     req.Request.CallbackGasLimit,
		NumWords:             req.Request.NumWords,
		Consumer:             req.Request.Consumer,
		CallbackURL:          req.Request.CallbackURL,
		RequestedAt:          uint64(req.RequestedAt.Unix()),
	})
}

func unmarshalRequest(id types.RequestID, bz []byte) (*vrftypes.PendingRequest, error) {
	var rec requestRecord
	if err := rlp.DecodeBytes(bz, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedVrfDB, err)
	}

	return &vrftypes.PendingRequest{
		ID:    id,
		Nonce: rec.Nonce,
		Request: types.RandomWordsRequest{
			KeyHash:              rec.KeyHash,
			SubscriptionID:       rec.SubscriptionID,
			RequestConfirmations: rec.RequestConfirmations,
			CallbackGasLimit:     rec.CallbackGasLimit,
			NumWords:             rec.NumWords,
			Consumer:             rec.Consumer,
			CallbackURL:          rec.CallbackURL,
		},
		RequestedAt: time.Unix(int64(rec.RequestedAt), 0).UTC(),
	}, nil
}

type fulfillmentRecord struct {
	SubscriptionID uint64
	Consumer       common.Address
	Words          []*big.Int
	Payment        *big.Int
	Success        bool
	FulfilledAt    uint64
}

func marshalFulfillment(f *vrftypes.Fulfillment) ([]byte, error) {
	for i, w := range f.Words {
		if w == nil || w.Sign() < 0 {
			return nil, fmt.Errorf("random word %d must be non-negative", i)
		}
	}

	return rlp.EncodeToBytes(&fulfillmentRecord{
		SubscriptionID: f.SubscriptionID,
		Consumer:       f.Consumer,
		Words:          f.Words,
		Payment:        f.Payment.BigInt(),
		Success:        f.Success,
		FulfilledAt:    uint64(f.FulfilledAt.Unix()),
	})
}

func unmarshalFulfillment(id types.RequestID, bz []byte) (*vrftypes.Fulfillment, error) {
	var rec fulfillmentRecord
	if err := rlp.DecodeBytes(bz, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedVrfDB, err)
	}

	return &vrftypes.Fulfillment{
		RequestID:      id,
		SubscriptionID: rec.SubscriptionID,
		Consumer:       rec.Consumer,
		Words:          rec.Words,
		Payment:        sdkmath.NewIntFromBigInt(rec.Payment),
		Success:        rec.Success,
		FulfilledAt:    time.Unix(int64(rec.FulfilledAt), 0).UTC(),
	}, nil
}
