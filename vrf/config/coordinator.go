package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/util"
)

const (
	// MaxNumWords is the largest number of words a single request may ask for
	MaxNumWords = 500
	// MaxRequestConfirmations bounds the confirmations a request may wait for
	MaxRequestConfirmations = 200

	seedKeyLength = 32

	defaultBaseFee                 = "0.25"
	defaultGasPriceLink            = "1000000000"
	defaultMaxCallbackGasLimit     = 2500000
	defaultMinRequestConfirmations = 3
	defaultFulfillmentDelay        = 2 * time.Second
	defaultFulfillmentInterval     = 500 * time.Millisecond
)

// DefaultCoordinatorAddress is the account a freshly initialized coordinator
// fulfills from
var DefaultCoordinatorAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// CoordinatorConfig configures the local randomness coordinator
type CoordinatorConfig struct {
	Address                 string        `long:"address" description:"The account address the coordinator fulfills from"`
	SeedKey                 string        `long:"seedkey" description:"Hex encoded 32 byte key from which random words are derived"`
	BaseFee                 string        `long:"basefee" description:"Flat fee charged to the subscription per fulfillment, in LINK"`
	GasPriceLink            string        `long:"gaspricelink" description:"Price of one unit of callback gas, in juels"`
	MaxCallbackGasLimit     uint32        `long:"maxcallbackgaslimit" description:"The largest callback gas limit a request may ask for"`
	MinRequestConfirmations uint16        `long:"minrequestconfirmations" description:"The least number of confirmations a request must wait for"`
	FulfillmentDelay        time.Duration `long:"fulfillmentdelay" description:"How long a request stays pending before it is fulfilled"`
	FulfillmentInterval     time.Duration `long:"fulfillmentinterval" description:"The interval between each scan for requests ready to fulfill"`
}

// CoordinatorParams is the parsed form of CoordinatorConfig
type CoordinatorParams struct {
	Address                 common.Address
	SeedKey                 []byte
	BaseFee                 sdkmath.Int
	GasPriceLink            sdkmath.Int
	MaxCallbackGasLimit     uint32
	MinRequestConfirmations uint16
	FulfillmentDelay        time.Duration
	FulfillmentInterval     time.Duration
}

// Fee is what a fulfillment with the given callback gas limit costs
func (p *CoordinatorParams) Fee(callbackGasLimit uint32) sdkmath.Int {
	return p.BaseFee.Add(p.GasPriceLink.MulRaw(int64(callbackGasLimit)))
}

// NewSeedKey returns a fresh random hex encoded seed key
func NewSeedKey() (string, error) {
	key := make([]byte, seedKeyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate seed key: %w", err)
	}

	return hex.EncodeToString(key), nil
}

func DefaultCoordinatorConfig() *CoordinatorConfig {
	seed, err := NewSeedKey()
	if err != nil {
		panic(err)
	}

	return &CoordinatorConfig{
		Address:                 DefaultCoordinatorAddress.Hex(),
		SeedKey:                 seed,
		BaseFee:                 defaultBaseFee,
		GasPriceLink:            defaultGasPriceLink,
		MaxCallbackGasLimit:     defaultMaxCallbackGasLimit,
		MinRequestConfirmations: defaultMinRequestConfirmations,
		FulfillmentDelay:        defaultFulfillmentDelay,
		FulfillmentInterval:     defaultFulfillmentInterval,
	}
}

func (cfg *CoordinatorConfig) Validate() error {
	_, err := cfg.Params()

	return err
}

// Params parses and checks the configured values
func (cfg *CoordinatorConfig) Params() (*CoordinatorParams, error) {
	addr, err := util.ParseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinator address: %w", err)
	}

	seed, err := hex.DecodeString(cfg.SeedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid seed key: %w", err)
	}
	if len(seed) != seedKeyLength {
		return nil, fmt.Errorf("seed key must be %d bytes, got %d", seedKeyLength, len(seed))
	}

	baseFee, err := types.ParseEther(cfg.BaseFee)
	if err != nil {
		return nil, fmt.Errorf("invalid base fee: %w", err)
	}

	gasPrice, ok := sdkmath.NewIntFromString(cfg.GasPriceLink)
	if !ok || gasPrice.IsNegative() {
		return nil, fmt.Errorf("invalid gas price %q", cfg.GasPriceLink)
	}

	if cfg.MaxCallbackGasLimit == 0 {
		return nil, fmt.Errorf("max callback gas limit must be positive")
	}
	if cfg.MinRequestConfirmations > MaxRequestConfirmations {
		return nil, fmt.Errorf("min request confirmations must not exceed %d, got %d",
			MaxRequestConfirmations, cfg.MinRequestConfirmations)
	}
	if cfg.FulfillmentDelay < 0 {
		return nil, fmt.Errorf("fulfillment delay cannot be negative, got %v", cfg.FulfillmentDelay)
	}
	if cfg.FulfillmentInterval <= 0 {
		return nil, fmt.Errorf("fulfillment interval must be positive, got %v", cfg.FulfillmentInterval)
	}

	return &CoordinatorParams{
		Address:                 addr,
		SeedKey:                 seed,
		BaseFee:                 baseFee,
		GasPriceLink:            gasPrice,
		MaxCallbackGasLimit:     cfg.MaxCallbackGasLimit,
		MinRequestConfirmations: cfg.MinRequestConfirmations,
		FulfillmentDelay:        cfg.FulfillmentDelay,
		FulfillmentInterval:     cfg.FulfillmentInterval,
	}, nil
}
