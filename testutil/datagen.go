package testutil

import (
	"encoding/hex"
	"math/big"
	"math/rand"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/raffle-labs/raffle/types"
)

func GenRandomByteArray(r *rand.Rand, length uint64) []byte {
	newHeaderBytes := make([]byte, length)
	r.Read(newHeaderBytes)

	return newHeaderBytes
}

func GenRandomHexStr(r *rand.Rand, length uint64) string {
	randBytes := GenRandomByteArray(r, length)

	return hex.EncodeToString(randBytes)
}

func AddRandomSeedsToFuzzer(f *testing.F, num uint) {
	// Seed based on the current time
	r := rand.New(rand.NewSource(time.Now().Unix()))
	var idx uint
	for idx = 0; idx < num; idx++ {
		f.Add(r.Int63())
	}
}

// GenRandomAddress returns a random non-zero account address
func GenRandomAddress(r *rand.Rand) common.Address {
	for {
		addr := common.BytesToAddress(GenRandomByteArray(r, common.AddressLength))
		if addr != (common.Address{}) {
			return addr
		}
	}
}

func GenRandomAddresses(r *rand.Rand, n int) []common.Address {
	addrs := make([]common.Address, 0, n)
	for i := 0; i < n; i++ {
		addrs = append(addrs, GenRandomAddress(r))
	}

	return addrs
}

func GenRandomHash(r *rand.Rand) common.Hash {
	return common.BytesToHash(GenRandomByteArray(r, common.HashLength))
}

// GenRandomWords returns n uniformly random 256-bit words
func GenRandomWords(r *rand.Rand, n int) types.RandomWords {
	words := make(types.RandomWords, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, new(big.Int).SetBytes(GenRandomByteArray(r, 32)))
	}

	return words
}

// GenRandomWei returns an amount in [1, max]
func GenRandomWei(r *rand.Rand, max int64) sdkmath.Int {
	return sdkmath.NewInt(r.Int63n(max) + 1)
}

// Ether returns n whole ether in wei
func Ether(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(sdkmath.NewIntWithDecimal(1, 18))
}

// DefaultRaffleParams mirrors the local network preset
func DefaultRaffleParams() *types.RaffleParams {
	return &types.RaffleParams{
		EntranceFee:          Ether(1),
		Interval:             time.Minute,
		KeyHash:              common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"),
		SubscriptionID:       1,
		CallbackGasLimit:     500000,
		RequestConfirmations: 3,
		NumWords:             1,
	}
}

func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
