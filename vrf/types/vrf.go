package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/raffle-labs/raffle/types"
)

// Subscription pays for the requests of its consumers
type Subscription struct {
	ID        uint64
	Owner     common.Address
	Balance   sdkmath.Int
	Consumers []common.Address
}

func (s *Subscription) HasConsumer(addr common.Address) bool {
	for _, c := range s.Consumers {
		if c == addr {
			return true
		}
	}

	return false
}

// PendingRequest is a request waiting for its fulfillment
type PendingRequest struct {
	ID          types.RequestID
	Nonce       uint64
	Request     types.RandomWordsRequest
	RequestedAt time.Time
}

// Fulfillment is the outcome of a delivered request
type Fulfillment struct {
	RequestID      types.RequestID
	SubscriptionID uint64
	Consumer       common.Address
	Words          types.RandomWords
	Payment        sdkmath.Int
	Success        bool
	FulfilledAt    time.Time
}
