package types

import (
	"time"

	"github.com/raffle-labs/raffle/types"
)

type CreateSubscriptionMsg struct {
	Owner string `json:"owner"`
}

type CreateSubscriptionResponse struct {
	SubscriptionID uint64 `json:"sub_id"`
}

// FundSubscriptionMsg carries the amount in ether
type FundSubscriptionMsg struct {
	Amount string `json:"amount"`
}

type AddConsumerMsg struct {
	Consumer string `json:"consumer"`
}

// FulfillMsg optionally overrides the derived random words
type FulfillMsg struct {
	RandomWords []string `json:"random_words,omitempty"`
}

type SubscriptionResponse struct {
	SubscriptionID uint64   `json:"sub_id"`
	Owner          string   `json:"owner"`
	Balance        string   `json:"balance"`
	Consumers      []string `json:"consumers"`
}

func NewSubscriptionResponse(sub *Subscription) *SubscriptionResponse {
	consumers := make([]string, 0, len(sub.Consumers))
	for _, c := range sub.Consumers {
		consumers = append(consumers, c.Hex())
	}

	return &SubscriptionResponse{
		SubscriptionID: sub.ID,
		Owner:          sub.Owner.Hex(),
		Balance:        types.FormatEther(sub.Balance),
		Consumers:      consumers,
	}
}

type PendingRequestResponse struct {
	RequestID   string                       `json:"request_id"`
	Nonce       uint64                       `json:"nonce"`
	Request     *types.RandomWordsRequestMsg `json:"request"`
	RequestedAt time.Time                    `json:"requested_at"`
}

func NewPendingRequestResponse(req *PendingRequest) *PendingRequestResponse {
	return &PendingRequestResponse{
		RequestID:   req.ID.Hex(),
		Nonce:       req.Nonce,
		Request:     types.NewRandomWordsRequestMsg(&req.Request),
		RequestedAt: req.RequestedAt,
	}
}

type FulfillmentResponse struct {
	RequestID      string    `json:"request_id"`
	SubscriptionID uint64    `json:"sub_id"`
	Consumer       string    `json:"consumer"`
	RandomWords    []string  `json:"random_words"`
	Payment        string    `json:"payment"`
	Success        bool      `json:"success"`
	FulfilledAt    time.Time `json:"fulfilled_at"`
}

func NewFulfillmentResponse(f *Fulfillment) *FulfillmentResponse {
	return &FulfillmentResponse{
		RequestID:      f.RequestID.Hex(),
		SubscriptionID: f.SubscriptionID,
		Consumer:       f.Consumer.Hex(),
		RandomWords:    f.Words.Strings(),
		Payment:        types.FormatEther(f.Payment),
		Success:        f.Success,
		FulfilledAt:    f.FulfilledAt,
	}
}
