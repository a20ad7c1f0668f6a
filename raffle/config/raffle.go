package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/raffle-labs/raffle/types"
)

const (
	NetworkLocal   = "local"
	NetworkSepolia = "sepolia"
)

// RaffleConfig holds the raffle parameters as written in rfd.conf
type RaffleConfig struct {
	EntranceFee          string        `long:"entrancefee" description:"The minimum payment to enter, in ether"`
	Interval             time.Duration `long:"interval" description:"The minimum time between two draws"`
	KeyHash              string        `long:"keyhash" description:"The gas lane key hash passed to the randomness coordinator"`
	SubscriptionID       uint64        `long:"subscriptionid" description:"The coordinator subscription paying for draws; 0 creates one on start with a local coordinator"`
	CallbackGasLimit     uint32        `long:"callbackgaslimit" description:"The gas allowance of the fulfillment callback"`
	RequestConfirmations uint16        `long:"requestconfirmations" description:"The number of confirmations the coordinator waits before fulfilling"`
	NumWords             uint32        `long:"numwords" description:"The number of random words requested per draw"`
}

// network presets of the raffle parameters
var networkPresets = map[string]RaffleConfig{
	NetworkLocal: {
		EntranceFee:          "0.01",
		Interval:             30 * time.Second,
		KeyHash:              "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c",
		SubscriptionID:       0,
		CallbackGasLimit:     500000,
		RequestConfirmations: 3,
		NumWords:             1,
	},
	NetworkSepolia: {
		EntranceFee:          "0.01",
		Interval:             30 * time.Second,
		KeyHash:              "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c",
		SubscriptionID:       0,
		CallbackGasLimit:     500000,
		RequestConfirmations: 3,
		NumWords:             1,
	},
}

// coordinator addresses of the network presets
var networkCoordinators = map[string]common.Address{
	NetworkSepolia: common.HexToAddress("0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625"),
}

// DefaultRaffleConfig returns the raffle parameters of the given network
func DefaultRaffleConfig(network string) (*RaffleConfig, error) {
	preset, ok := networkPresets[network]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", network)
	}

	return &preset, nil
}

// Params parses the raffle parameters
func (cfg *RaffleConfig) Params() (*types.RaffleParams, error) {
	fee, err := types.ParseEther(cfg.EntranceFee)
	if err != nil {
		return nil, fmt.Errorf("invalid entrance fee: %w", err)
	}

	keyHash := common.FromHex(cfg.KeyHash)
	if len(keyHash) != common.HashLength {
		return nil, fmt.Errorf("key hash must be %d bytes, got %q", common.HashLength, cfg.KeyHash)
	}

	params := &types.RaffleParams{
		EntranceFee:          fee,
		Interval:             cfg.Interval,
		KeyHash:              common.BytesToHash(keyHash),
		SubscriptionID:       cfg.SubscriptionID,
		CallbackGasLimit:     cfg.CallbackGasLimit,
		RequestConfirmations: cfg.RequestConfirmations,
		NumWords:             cfg.NumWords,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return params, nil
}

func (cfg *RaffleConfig) Validate() error {
	_, err := cfg.Params()

	return err
}
