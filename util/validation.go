//nolint:revive
package util

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a hex account address and rejects the zero address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid hex address %q", s)
	}

	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("the zero address is not allowed")
	}

	return addr, nil
}

// HasDuplicateAddresses reports the first address that occurs twice in addrs.
func HasDuplicateAddresses(addrs []common.Address) (bool, common.Address) {
	seen := make(map[common.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		if _, exists := seen[addr]; exists {
			return true, addr
		}
		seen[addr] = struct{}{}
	}

	return false, common.Address{}
}
