//nolint:revive
package util_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/util"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "checksummed", in: "0x5FbDB2315678afecb367f032d93F642f64180aa3"},
		{name: "lower case without prefix", in: "5fbdb2315678afecb367f032d93f642f64180aa3"},
		{name: "zero address", in: "0x0000000000000000000000000000000000000000", wantErr: true},
		{name: "too short", in: "0x1234", wantErr: true},
		{name: "not hex", in: "0xzzbDB2315678afecb367f032d93F642f64180aa3", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			addr, err := util.ParseAddress(tt.in)
			if tt.wantErr {
				require.Error(t, err)

				return
			}
			require.NoError(t, err)
			require.Equal(t, common.HexToAddress(tt.in), addr)
		})
	}
}

func TestHasDuplicateAddresses(t *testing.T) {
	t.Parallel()

	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")

	tests := []struct {
		name      string
		addrs     []common.Address
		expectDup bool
		dup       common.Address
	}{
		{name: "empty slice", addrs: nil},
		{name: "single element", addrs: []common.Address{a}},
		{name: "no duplicates", addrs: []common.Address{a, b}},
		{name: "duplicate at end", addrs: []common.Address{a, b, b}, expectDup: true, dup: b},
		{name: "duplicate apart", addrs: []common.Address{a, b, a}, expectDup: true, dup: a},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			hasDup, dup := util.HasDuplicateAddresses(tt.addrs)
			require.Equal(t, tt.expectDup, hasDup)
			require.Equal(t, tt.dup, dup)
		})
	}
}

func TestHMAC(t *testing.T) {
	t.Parallel()

	body := []byte(`{"request_id":"0x01"}`)
	mac := util.ComputeHMAC("secret", body)

	require.True(t, util.VerifyHMAC("secret", body, mac))
	require.False(t, util.VerifyHMAC("other", body, mac))
	require.False(t, util.VerifyHMAC("secret", []byte(`{}`), mac))
}
