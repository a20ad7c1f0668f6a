package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/raffle-labs/raffle/lib/httpjson"
	"github.com/raffle-labs/raffle/types"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

var (
	RtyAttNum = uint(3)
	RtyAtt    = retry.Attempts(RtyAttNum)
	RtyDel    = retry.Delay(time.Millisecond * 400)
	RtyErr    = retry.LastErrorOnly(true)
)

var _ types.RandomnessCoordinator = &VrfCoordinatorClient{}

// VrfCoordinatorClient talks to a remote vrfd
type VrfCoordinatorClient struct {
	client *httpjson.Client
}

// NewVrfCoordinatorClient creates a client for the coordinator at addr and
// checks that it responds
func NewVrfCoordinatorClient(addr, hmacKey string, timeout time.Duration) (*VrfCoordinatorClient, error) {
	c := &VrfCoordinatorClient{
		client: httpjson.NewClient(addr, hmacKey, timeout),
	}

	if err := c.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("the VRF coordinator is not responding: %w", err)
	}

	return c, nil
}

func (c *VrfCoordinatorClient) Ping(ctx context.Context) error {
	if err := c.client.Get(ctx, "/health", nil, nil); err != nil {
		return fmt.Errorf("failed to ping the VRF coordinator: %w", err)
	}

	return nil
}

type CoordinatorInfo struct {
	Address                 string `json:"address"`
	BaseFee                 string `json:"base_fee"`
	GasPriceLink            string `json:"gas_price_link"`
	MaxCallbackGasLimit     uint32 `json:"max_callback_gas_limit"`
	MinRequestConfirmations uint16 `json:"min_request_confirmations"`
}

func (c *VrfCoordinatorClient) CoordinatorInfo(ctx context.Context) (*CoordinatorInfo, error) {
	var info CoordinatorInfo
	if err := c.getWithRetry(ctx, "/v1/coordinator", nil, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// RequestRandomWords is not retried, a lost response would otherwise issue
// a second request
func (c *VrfCoordinatorClient) RequestRandomWords(ctx context.Context, req *types.RandomWordsRequest) (types.RequestID, error) {
	var resp types.RequestIDResponse
	if err := c.client.Post(ctx, "/v1/requests", types.NewRandomWordsRequestMsg(req), &resp); err != nil {
		return types.RequestID{}, err
	}

	requestID, err := types.ParseHash(resp.RequestID)
	if err != nil {
		return types.RequestID{}, fmt.Errorf("invalid request id in response: %w", err)
	}

	return requestID, nil
}

func (c *VrfCoordinatorClient) PendingRequests(ctx context.Context) ([]*vrftypes.PendingRequestResponse, error) {
	var resp []*vrftypes.PendingRequestResponse
	if err := c.getWithRetry(ctx, "/v1/requests", nil, &resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// Fulfill delivers the request now, with words overriding the derived ones
// when not empty
func (c *VrfCoordinatorClient) Fulfill(ctx context.Context, requestID types.RequestID, words types.RandomWords) (*vrftypes.FulfillmentResponse, error) {
	var resp vrftypes.FulfillmentResponse
	msg := &vrftypes.FulfillMsg{RandomWords: words.Strings()}
	if err := c.client.Post(ctx, "/v1/requests/"+requestID.Hex()+"/fulfill", msg, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *VrfCoordinatorClient) GetFulfillment(ctx context.Context, requestID types.RequestID) (*vrftypes.FulfillmentResponse, error) {
	var resp vrftypes.FulfillmentResponse
	if err := c.getWithRetry(ctx, "/v1/fulfillments/"+requestID.Hex(), nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *VrfCoordinatorClient) CreateSubscription(ctx context.Context, owner common.Address) (uint64, error) {
	var resp vrftypes.CreateSubscriptionResponse
	if err := c.client.Post(ctx, "/v1/subscriptions", &vrftypes.CreateSubscriptionMsg{Owner: owner.Hex()}, &resp); err != nil {
		return 0, err
	}

	return resp.SubscriptionID, nil
}

// FundSubscription adds amount, in ether, to the subscription balance
func (c *VrfCoordinatorClient) FundSubscription(ctx context.Context, subID uint64, amount string) (*vrftypes.SubscriptionResponse, error) {
	var resp vrftypes.SubscriptionResponse
	if err := c.client.Post(ctx, subscriptionPath(subID)+"/fund", &vrftypes.FundSubscriptionMsg{Amount: amount}, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *VrfCoordinatorClient) AddConsumer(ctx context.Context, subID uint64, consumer common.Address) (*vrftypes.SubscriptionResponse, error) {
	var resp vrftypes.SubscriptionResponse
	if err := c.client.Post(ctx, subscriptionPath(subID)+"/consumers", &vrftypes.AddConsumerMsg{Consumer: consumer.Hex()}, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *VrfCoordinatorClient) RemoveConsumer(ctx context.Context, subID uint64, consumer common.Address) (*vrftypes.SubscriptionResponse, error) {
	var resp vrftypes.SubscriptionResponse
	if err := c.client.Delete(ctx, subscriptionPath(subID)+"/consumers/"+consumer.Hex(), &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *VrfCoordinatorClient) GetSubscription(ctx context.Context, subID uint64) (*vrftypes.SubscriptionResponse, error) {
	var resp vrftypes.SubscriptionResponse
	if err := c.getWithRetry(ctx, subscriptionPath(subID), nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *VrfCoordinatorClient) ListSubscriptions(ctx context.Context) ([]*vrftypes.SubscriptionResponse, error) {
	var resp []*vrftypes.SubscriptionResponse
	if err := c.getWithRetry(ctx, "/v1/subscriptions", nil, &resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// FindSubscriptionByConsumer returns the subscription consumer is registered
// with, vrftypes.ErrSubscriptionNotFound if there is none
func (c *VrfCoordinatorClient) FindSubscriptionByConsumer(ctx context.Context, consumer common.Address) (*vrftypes.SubscriptionResponse, error) {
	var resp []*vrftypes.SubscriptionResponse
	query := url.Values{"consumer": []string{consumer.Hex()}}
	if err := c.getWithRetry(ctx, "/v1/subscriptions", query, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, vrftypes.ErrSubscriptionNotFound
	}

	return resp[0], nil
}

// getWithRetry retries reads that failed before reaching the coordinator
func (c *VrfCoordinatorClient) getWithRetry(ctx context.Context, path string, query url.Values, out any) error {
	return retry.Do(func() error {
		return c.client.Get(ctx, path, query, out)
	}, RtyAtt, RtyDel, RtyErr, retry.Context(ctx), retry.RetryIf(IsTransient))
}

// IsTransient reports whether err did not come from a registered error, so
// that trying again may succeed
func IsTransient(err error) bool {
	codespace, _ := httpjson.ErrorCode(err)

	return codespace == "" || codespace == errorsmod.UndefinedCodespace
}

func subscriptionPath(subID uint64) string {
	return "/v1/subscriptions/" + strconv.FormatUint(subID, 10)
}
