package types_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/types"
)

func TestWordsConsumed(t *testing.T) {
	t.Parallel()

	require.NoError(t, types.WordsConsumed(nil))

	errPayout := errors.New("payout failed")
	err := types.WordsConsumed(fmt.Errorf("draw 3: %w", errPayout))
	require.ErrorIs(t, err, types.ErrRandomWordsConsumed)
	require.ErrorIs(t, err, errPayout)
	require.Equal(t, "draw 3: payout failed", err.Error())

	require.NotErrorIs(t, errPayout, types.ErrRandomWordsConsumed)
}
