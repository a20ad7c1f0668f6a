package client

import (
	"context"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/lib/httpjson"
	"github.com/raffle-labs/raffle/types"
)

const callbackTimeout = 10 * time.Second

var _ types.RandomnessConsumer = &CallbackConsumer{}

// CallbackConsumer delivers random words to a consumer reachable over HTTP
type CallbackConsumer struct {
	url    string
	client *httpjson.Client
	logger *zap.Logger
}

func NewCallbackConsumer(callbackURL, hmacKey string, logger *zap.Logger) *CallbackConsumer {
	return &CallbackConsumer{
		url:    callbackURL,
		client: httpjson.NewClient(callbackURL, hmacKey, callbackTimeout),
		logger: logger,
	}
}

// RawFulfillRandomWords posts the words to the callback url. Failures that
// did not come from the consumer itself are retried.
func (cc *CallbackConsumer) RawFulfillRandomWords(
	ctx context.Context,
	sender common.Address,
	requestID types.RequestID,
	randomWords types.RandomWords,
) error {
	msg := types.NewFulfillRandomWordsMsg(sender, requestID, randomWords)

	return retry.Do(func() error {
		return cc.client.Do(ctx, http.MethodPost, cc.url, msg, nil)
	}, RtyAtt, RtyDel, RtyErr, retry.Context(ctx), retry.RetryIf(IsTransient), retry.OnRetry(func(n uint, err error) {
		cc.logger.Debug(
			"failed to deliver random words",
			zap.String("callback_url", cc.url),
			zap.String("request_id", requestID.Hex()),
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err),
		)
	}))
}
