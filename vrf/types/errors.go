package types

import (
	errorsmod "cosmossdk.io/errors"
)

// VrfCodespace is the codespace of the coordinator errors reported over RPC
const VrfCodespace = "vrf"

var (
	ErrSubscriptionNotFound            = errorsmod.Register(VrfCodespace, 2, "subscription not found")
	ErrInvalidConsumer                 = errorsmod.Register(VrfCodespace, 3, "consumer is not registered with the subscription")
	ErrInsufficientSubscriptionBalance = errorsmod.Register(VrfCodespace, 4, "insufficient subscription balance")
	ErrNumWordsTooBig                  = errorsmod.Register(VrfCodespace, 5, "too many random words requested")
	ErrGasLimitTooBig                  = errorsmod.Register(VrfCodespace, 6, "callback gas limit too big")
	ErrInvalidRequestConfirmations     = errorsmod.Register(VrfCodespace, 7, "invalid number of request confirmations")
	ErrRequestNotFound                 = errorsmod.Register(VrfCodespace, 8, "randomness request not found")
	ErrInvalidRequest                  = errorsmod.Register(VrfCodespace, 9, "invalid randomness request")
	ErrInvalidAmount                   = errorsmod.Register(VrfCodespace, 10, "invalid amount")
	ErrConsumerAlreadyAdded            = errorsmod.Register(VrfCodespace, 11, "consumer already added to the subscription")
	ErrConsumerUnreachable             = errorsmod.Register(VrfCodespace, 12, "no route to the consumer")
	ErrWrongNumberOfWords              = errorsmod.Register(VrfCodespace, 13, "wrong number of random words")
)
