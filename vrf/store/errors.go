package store

import "errors"

var (
	// ErrCorruptedVrfDB For some reason, db on disk representation have changed
	ErrCorruptedVrfDB = errors.New("vrf coordinator db is corrupted")

	// ErrFulfillmentNotFound The request has not been fulfilled
	ErrFulfillmentNotFound = errors.New("fulfillment not found")
)
