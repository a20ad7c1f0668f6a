package service

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/raffle-labs/raffle/types"
)

// RaffleCodespace is the codespace of the raffle errors reported over RPC
const RaffleCodespace = "raffle"

var (
	ErrInsufficientPayment       = errorsmod.Register(RaffleCodespace, 2, "payment is below the entrance fee")
	ErrRoundNotOpen              = errorsmod.Register(RaffleCodespace, 3, "raffle round is not open")
	ErrUpkeepNotNeeded           = errorsmod.Register(RaffleCodespace, 4, "upkeep not needed")
	ErrEmptyParticipantPool      = errorsmod.Register(RaffleCodespace, 5, "no participants to draw from")
	ErrTransferFailed            = errorsmod.Register(RaffleCodespace, 6, "prize transfer failed")
	ErrIndexOutOfRange           = errorsmod.Register(RaffleCodespace, 7, "participant index out of range")
	ErrOnlyCoordinatorCanFulfill = errorsmod.Register(RaffleCodespace, 8, "only the coordinator can fulfill")
	ErrUnknownRequest            = errorsmod.Register(RaffleCodespace, 9, "unknown randomness request")
	ErrNoRandomWords             = errorsmod.Register(RaffleCodespace, 10, "no random words")
	ErrRoundNotCalculating       = errorsmod.Register(RaffleCodespace, 11, "raffle round is not calculating")
)

// UpkeepNotNeededError carries the diagnostics of a refused PerformUpkeep
type UpkeepNotNeededError struct {
	Balance         sdkmath.Int
	NumParticipants uint64
	State           types.RaffleState
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("%s: balance=%s participants=%d state=%s",
		ErrUpkeepNotNeeded.Error(), e.Balance, e.NumParticipants, e.State)
}

func (e *UpkeepNotNeededError) Unwrap() error {
	return ErrUpkeepNotNeeded
}
