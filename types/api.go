package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RandomWordsRequestMsg is the JSON form of RandomWordsRequest
type RandomWordsRequestMsg struct {
	KeyHash              string `json:"key_hash"`
	SubscriptionID       uint64 `json:"sub_id"`
	RequestConfirmations uint16 `json:"request_confirmations"`
	CallbackGasLimit     uint32 `json:"callback_gas_limit"`
	NumWords             uint32 `json:"num_words"`
	Consumer             string `json:"consumer"`
	CallbackURL          string `json:"callback_url,omitempty"`
}

func NewRandomWordsRequestMsg(req *RandomWordsRequest) *RandomWordsRequestMsg {
	return &RandomWordsRequestMsg{
		KeyHash:              req.KeyHash.Hex(),
		SubscriptionID:       req.SubscriptionID,
		RequestConfirmations: req.RequestConfirmations,
		CallbackGasLimit:     req.CallbackGasLimit,
		NumWords:             req.NumWords,
		Consumer:             req.Consumer.Hex(),
		CallbackURL:          req.CallbackURL,
	}
}

func (m *RandomWordsRequestMsg) ToRequest() (*RandomWordsRequest, error) {
	if !common.IsHexAddress(m.Consumer) {
		return nil, fmt.Errorf("invalid consumer address %q", m.Consumer)
	}
	keyHash, err := ParseHash(m.KeyHash)
	if err != nil {
		return nil, fmt.Errorf("invalid key hash: %w", err)
	}

	return &RandomWordsRequest{
		KeyHash:              keyHash,
		SubscriptionID:       m.SubscriptionID,
		RequestConfirmations: m.RequestConfirmations,
		CallbackGasLimit:     m.CallbackGasLimit,
		NumWords:             m.NumWords,
		Consumer:             common.HexToAddress(m.Consumer),
		CallbackURL:          m.CallbackURL,
	}, nil
}

// FulfillRandomWordsMsg is the body of a fulfillment callback
type FulfillRandomWordsMsg struct {
	Sender      string   `json:"sender"`
	RequestID   string   `json:"request_id"`
	RandomWords []string `json:"random_words"`
}

func NewFulfillRandomWordsMsg(sender common.Address, requestID RequestID, words RandomWords) *FulfillRandomWordsMsg {
	return &FulfillRandomWordsMsg{
		Sender:      sender.Hex(),
		RequestID:   requestID.Hex(),
		RandomWords: words.Strings(),
	}
}

func (m *FulfillRandomWordsMsg) Parse() (common.Address, RequestID, RandomWords, error) {
	if !common.IsHexAddress(m.Sender) {
		return common.Address{}, RequestID{}, nil, fmt.Errorf("invalid sender address %q", m.Sender)
	}
	requestID, err := ParseHash(m.RequestID)
	if err != nil {
		return common.Address{}, RequestID{}, nil, fmt.Errorf("invalid request id: %w", err)
	}
	words, err := ParseRandomWords(m.RandomWords)
	if err != nil {
		return common.Address{}, RequestID{}, nil, err
	}

	return common.HexToAddress(m.Sender), requestID, words, nil
}

// RequestIDResponse answers a randomness request
type RequestIDResponse struct {
	RequestID string `json:"request_id"`
}

// ParseHash parses a 0x prefixed 32 byte hex string
func ParseHash(s string) (common.Hash, error) {
	bz, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(bz) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(bz))
	}

	return common.BytesToHash(bz), nil
}
