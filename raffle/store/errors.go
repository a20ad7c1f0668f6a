package store

import "errors"

var (
	// ErrCorruptedRaffleDB For some reason, db on disk representation have changed
	ErrCorruptedRaffleDB = errors.New("raffle db is corrupted")

	// ErrRoundNotFound The round has not been initialized yet
	ErrRoundNotFound = errors.New("round not found")

	// ErrParticipantNotFound No participant at the given index
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrUnexpectedRoundState The round is not in the state the update requires
	ErrUnexpectedRoundState = errors.New("unexpected round state")

	// ErrRequestMismatch The draw does not answer the outstanding request
	ErrRequestMismatch = errors.New("request does not match the outstanding request")

	// ErrDrawNotFound No draw recorded for the given round
	ErrDrawNotFound = errors.New("draw not found")

	// ErrInsufficientFunds The sender cannot cover the transfer
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransferRejected The recipient refuses incoming transfers
	ErrTransferRejected = errors.New("recipient rejected the transfer")

	// ErrInvalidAmount Amounts must be non-negative
	ErrInvalidAmount = errors.New("invalid amount")
)
