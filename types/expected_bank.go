package types

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// Bank holds the balances of accounts, including the raffle pool.
type Bank interface {
	Balance(addr common.Address) (sdkmath.Int, error)

	// Transfer moves amount from one account to another. It fails without
	// side effects if the sender cannot cover it or the recipient rejects it.
	Transfer(from, to common.Address, amount sdkmath.Int) error
}
