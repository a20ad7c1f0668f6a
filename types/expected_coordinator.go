package types

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// RandomnessCoordinator accepts randomness requests and later delivers the
// random words to the requesting consumer through RandomnessConsumer.
type RandomnessCoordinator interface {
	// RequestRandomWords registers a request and returns its id. It never
	// calls back into the consumer before returning.
	RequestRandomWords(ctx context.Context, req *RandomWordsRequest) (RequestID, error)
}

// RandomnessConsumer is implemented by components that receive random words.
type RandomnessConsumer interface {
	// RawFulfillRandomWords is invoked by the coordinator identified by sender
	// exactly once per request.
	RawFulfillRandomWords(ctx context.Context, sender common.Address, requestID RequestID, randomWords RandomWords) error
}

// ErrRandomWordsConsumed matches consumer errors raised after the random
// words were used. The coordinator counts such deliveries as successful.
var ErrRandomWordsConsumed = errors.New("random words consumed")

type consumedError struct {
	err error
}

func (e *consumedError) Error() string { return e.err.Error() }

func (e *consumedError) Unwrap() error { return e.err }

func (e *consumedError) Is(target error) bool { return target == ErrRandomWordsConsumed }

// WordsConsumed marks err as raised after the random words were used, so
// that errors.Is matches both err's chain and ErrRandomWordsConsumed
func WordsConsumed(err error) error {
	if err == nil {
		return nil
	}

	return &consumedError{err: err}
}
