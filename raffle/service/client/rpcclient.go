package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/raffle-labs/raffle/lib/httpjson"
	"github.com/raffle-labs/raffle/raffle/api"
	"github.com/raffle-labs/raffle/types"
	vrfclient "github.com/raffle-labs/raffle/vrf/client"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

var (
	RtyAttNum = uint(3)
	RtyAtt    = retry.Attempts(RtyAttNum)
	RtyDel    = retry.Delay(time.Millisecond * 400)
	RtyErr    = retry.LastErrorOnly(true)
)

// RaffleServiceClient talks to a running rfd
type RaffleServiceClient struct {
	client *httpjson.Client
}

func NewRaffleServiceClient(addr, hmacKey string, timeout time.Duration) (*RaffleServiceClient, error) {
	c := &RaffleServiceClient{
		client: httpjson.NewClient(addr, hmacKey, timeout),
	}

	if err := c.client.Get(context.Background(), "/health", nil, nil); err != nil {
		return nil, fmt.Errorf("rfd is not responding: %w", err)
	}

	return c, nil
}

func (c *RaffleServiceClient) Status(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.getWithRetry(ctx, "/v1/status", nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *RaffleServiceClient) Params(ctx context.Context) (*api.ParamsResponse, error) {
	var resp api.ParamsResponse
	if err := c.getWithRetry(ctx, "/v1/params", nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Enter pays amount ether from player's account. It is not retried, a lost
// response would otherwise enter the player twice.
func (c *RaffleServiceClient) Enter(ctx context.Context, player common.Address, amount string) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	msg := &api.EnterMsg{Player: player.Hex(), Amount: amount}
	if err := c.client.Post(ctx, "/v1/enter", msg, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *RaffleServiceClient) Participants(ctx context.Context) ([]string, error) {
	var resp api.ParticipantsResponse
	if err := c.getWithRetry(ctx, "/v1/participants", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Participants, nil
}

func (c *RaffleServiceClient) Participant(ctx context.Context, index uint64) (*api.ParticipantResponse, error) {
	var resp api.ParticipantResponse
	if err := c.getWithRetry(ctx, "/v1/participants/"+strconv.FormatUint(index, 10), nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *RaffleServiceClient) CheckUpkeep(ctx context.Context) (*api.UpkeepResponse, error) {
	var resp api.UpkeepResponse
	if err := c.getWithRetry(ctx, "/v1/upkeep", nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *RaffleServiceClient) PerformUpkeep(ctx context.Context) (types.RequestID, error) {
	var resp types.RequestIDResponse
	if err := c.client.Post(ctx, "/v1/upkeep/perform", struct{}{}, &resp); err != nil {
		return types.RequestID{}, err
	}

	requestID, err := types.ParseHash(resp.RequestID)
	if err != nil {
		return types.RequestID{}, fmt.Errorf("invalid request id in response: %w", err)
	}

	return requestID, nil
}

// Fulfill has the coordinator of rfd deliver the request now, with words
// overriding the derived ones when not empty
func (c *RaffleServiceClient) Fulfill(ctx context.Context, requestID types.RequestID, words types.RandomWords) (*vrftypes.FulfillmentResponse, error) {
	var resp vrftypes.FulfillmentResponse
	msg := &vrftypes.FulfillMsg{RandomWords: words.Strings()}
	if err := c.client.Post(ctx, "/v1/requests/"+requestID.Hex()+"/fulfill", msg, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *RaffleServiceClient) Draws(ctx context.Context, limit int) ([]*api.DrawResponse, error) {
	var resp []*api.DrawResponse
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	if err := c.getWithRetry(ctx, "/v1/draws", query, &resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *RaffleServiceClient) Events(ctx context.Context, from uint64, limit int) ([]*api.EventResponse, error) {
	var resp []*api.EventResponse
	query := url.Values{
		"from":  []string{strconv.FormatUint(from, 10)},
		"limit": []string{strconv.Itoa(limit)},
	}
	if err := c.getWithRetry(ctx, "/v1/events", query, &resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *RaffleServiceClient) Balance(ctx context.Context, account common.Address) (*api.BalanceResponse, error) {
	var resp api.BalanceResponse
	if err := c.getWithRetry(ctx, "/v1/balances/"+account.Hex(), nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Fund mints amount ether to account; rfd serves it only with the faucet
// enabled
func (c *RaffleServiceClient) Fund(ctx context.Context, account common.Address, amount string) (*api.BalanceResponse, error) {
	var resp api.BalanceResponse
	if err := c.client.Post(ctx, "/v1/faucet/fund", &api.FundMsg{Account: account.Hex(), Amount: amount}, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *RaffleServiceClient) SetRejectsTransfers(ctx context.Context, account common.Address, rejects bool) error {
	return c.client.Post(ctx, "/v1/faucet/reject", &api.RejectMsg{Account: account.Hex(), Rejects: rejects}, nil)
}

// getWithRetry retries reads that failed before reaching rfd
func (c *RaffleServiceClient) getWithRetry(ctx context.Context, path string, query url.Values, out any) error {
	return retry.Do(func() error {
		return c.client.Get(ctx, path, query, out)
	}, RtyAtt, RtyDel, RtyErr, retry.Context(ctx), retry.RetryIf(vrfclient.IsTransient))
}
