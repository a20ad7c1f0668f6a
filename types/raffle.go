package types

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// RaffleState is the phase of the current raffle round
type RaffleState uint8

const (
	RaffleStateOpen RaffleState = iota
	RaffleStateCalculating
)

func (s RaffleState) String() string {
	switch s {
	case RaffleStateOpen:
		return "OPEN"
	case RaffleStateCalculating:
		return "CALCULATING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

func ParseRaffleState(s string) (RaffleState, error) {
	switch s {
	case "OPEN":
		return RaffleStateOpen, nil
	case "CALCULATING":
		return RaffleStateCalculating, nil
	default:
		return 0, fmt.Errorf("unknown raffle state %q", s)
	}
}

// RaffleParams are fixed when the raffle is created and never change afterwards.
type RaffleParams struct {
	// EntranceFee is the minimum amount, in wei, required to enter
	EntranceFee sdkmath.Int
	// Interval is the minimum time between two draws
	Interval time.Duration
	// KeyHash selects the gas lane of the randomness coordinator
	KeyHash common.Hash
	// SubscriptionID is the coordinator subscription paying for requests
	SubscriptionID uint64
	// CallbackGasLimit is the gas allowance of the fulfillment callback
	CallbackGasLimit uint32
	// RequestConfirmations is the number of confirmations the coordinator waits for
	RequestConfirmations uint16
	// NumWords is the number of random words requested per draw
	NumWords uint32
}

func (p *RaffleParams) Validate() error {
	if p.EntranceFee.IsNil() || p.EntranceFee.IsNegative() {
		return fmt.Errorf("entrance fee must be non-negative")
	}
	if p.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", p.Interval)
	}
	if p.CallbackGasLimit == 0 {
		return fmt.Errorf("callback gas limit must be positive")
	}
	if p.NumWords == 0 {
		return fmt.Errorf("number of random words must be positive")
	}

	return nil
}
