package types_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/types"
)

func TestRandomWordsRequestMsg(t *testing.T) {
	t.Parallel()

	req := &types.RandomWordsRequest{
		KeyHash:              common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"),
		SubscriptionID:       7,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             2,
		Consumer:             common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"),
		CallbackURL:          "http://127.0.0.1:12582/v1/vrf/fulfill",
	}

	got, err := types.NewRandomWordsRequestMsg(req).ToRequest()
	require.NoError(t, err)
	require.Equal(t, req, got)

	msg := types.NewRandomWordsRequestMsg(req)
	msg.Consumer = "not an address"
	_, err = msg.ToRequest()
	require.Error(t, err)

	msg = types.NewRandomWordsRequestMsg(req)
	msg.KeyHash = "0x1234"
	_, err = msg.ToRequest()
	require.Error(t, err)
}

func TestFulfillRandomWordsMsg(t *testing.T) {
	t.Parallel()

	sender := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	requestID := common.HexToHash("0x01")
	words := types.RandomWords{big.NewInt(7), new(big.Int).Lsh(big.NewInt(1), 255)}

	gotSender, gotID, gotWords, err := types.NewFulfillRandomWordsMsg(sender, requestID, words).Parse()
	require.NoError(t, err)
	require.Equal(t, sender, gotSender)
	require.Equal(t, requestID, gotID)
	require.Equal(t, words.Strings(), gotWords.Strings())

	_, _, _, err = (&types.FulfillRandomWordsMsg{Sender: sender.Hex(), RequestID: "xyz"}).Parse()
	require.Error(t, err)
}
