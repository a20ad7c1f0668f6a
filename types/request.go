package types

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RequestID correlates a randomness request with its fulfillment
type RequestID = common.Hash

// RandomWordsRequest carries the routing parameters of a randomness request.
// The coordinator treats all of them as opaque except for validation.
type RandomWordsRequest struct {
	KeyHash              common.Hash
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	// Consumer is the account that receives the fulfillment callback
	Consumer common.Address
	// CallbackURL is only used by remote coordinators
	CallbackURL string
}

func (r *RandomWordsRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("request cannot be nil")
	}
	if r.NumWords == 0 {
		return fmt.Errorf("number of words must be positive")
	}
	if r.CallbackGasLimit == 0 {
		return fmt.Errorf("callback gas limit must be positive")
	}
	if r.Consumer == (common.Address{}) {
		return fmt.Errorf("consumer address cannot be empty")
	}

	return nil
}

// NewRequestID derives the id of the nonce-th request issued by consumer
// under the given key hash and subscription
func NewRequestID(keyHash common.Hash, consumer common.Address, subID uint64, nonce uint64) RequestID {
	var subBz, nonceBz [8]byte
	binary.BigEndian.PutUint64(subBz[:], subID)
	binary.BigEndian.PutUint64(nonceBz[:], nonce)

	return crypto.Keccak256Hash(keyHash.Bytes(), consumer.Bytes(), subBz[:], nonceBz[:])
}

// RandomWords is the payload delivered to a consumer
type RandomWords []*big.Int

func (w RandomWords) Strings() []string {
	out := make([]string, 0, len(w))
	for _, word := range w {
		out = append(out, word.String())
	}

	return out
}

func ParseRandomWords(words []string) (RandomWords, error) {
	out := make(RandomWords, 0, len(words))
	for i, s := range words {
		word, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("invalid random word at index %d: %q", i, s)
		}
		if word.Sign() < 0 {
			return nil, fmt.Errorf("random word at index %d is negative", i)
		}
		out = append(out, word)
	}

	return out, nil
}
