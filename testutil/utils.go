package testutil

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/mock/gomock"

	"github.com/raffle-labs/raffle/testutil/mocks"
	"github.com/raffle-labs/raffle/types"
)

// PrepareMockedCoordinator returns a coordinator that hands out the given
// request ids in order, once each
func PrepareMockedCoordinator(t *testing.T, requestIDs ...types.RequestID) *mocks.MockRandomnessCoordinator {
	ctl := gomock.NewController(t)
	mockCoordinator := mocks.NewMockRandomnessCoordinator(ctl)

	for _, id := range requestIDs {
		mockCoordinator.EXPECT().
			RequestRandomWords(gomock.Any(), gomock.Any()).
			Return(id, nil).
			Times(1)
	}

	return mockCoordinator
}

// PrepareMockedBank returns a bank whose every call succeeds and reports
// the given balance
func PrepareMockedBank(t *testing.T, balance sdkmath.Int) *mocks.MockBank {
	ctl := gomock.NewController(t)
	mockBank := mocks.NewMockBank(ctl)

	mockBank.EXPECT().Balance(gomock.Any()).Return(balance, nil).AnyTimes()
	mockBank.EXPECT().
		Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_, _ common.Address, _ sdkmath.Int) error { return nil }).
		AnyTimes()

	return mockBank
}

// NopConsumer accepts every fulfillment
type NopConsumer struct{}

func (NopConsumer) RawFulfillRandomWords(context.Context, common.Address, types.RequestID, types.RandomWords) error {
	return nil
}
