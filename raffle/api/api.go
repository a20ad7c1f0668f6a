package api

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/raffle-labs/raffle/raffle/events"
	"github.com/raffle-labs/raffle/raffle/store"
	"github.com/raffle-labs/raffle/types"
)

// EnterMsg enters Player paying Amount, in ether
type EnterMsg struct {
	Player string `json:"player"`
	Amount string `json:"amount"`
}

// FundMsg mints Amount ether to Account
type FundMsg struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// RejectMsg makes Account refuse, or accept again, incoming transfers
type RejectMsg struct {
	Account string `json:"account"`
	Rejects bool   `json:"rejects"`
}

type StatusResponse struct {
	Address            string    `json:"address"`
	Coordinator        string    `json:"coordinator"`
	State              string    `json:"state"`
	RoundNumber        uint64    `json:"round_number"`
	NumParticipants    uint64    `json:"num_participants"`
	LastTimestamp      time.Time `json:"last_timestamp"`
	RecentWinner       string    `json:"recent_winner"`
	OutstandingRequest string    `json:"outstanding_request,omitempty"`
	PoolBalance        string    `json:"pool_balance"`
	EntranceFee        string    `json:"entrance_fee"`
	Interval           string    `json:"interval"`
}

type ParamsResponse struct {
	EntranceFee          string `json:"entrance_fee"`
	Interval             string `json:"interval"`
	KeyHash              string `json:"key_hash"`
	SubscriptionID       uint64 `json:"sub_id"`
	CallbackGasLimit     uint32 `json:"callback_gas_limit"`
	RequestConfirmations uint16 `json:"request_confirmations"`
	NumWords             uint32 `json:"num_words"`
}

func NewParamsResponse(p *types.RaffleParams) *ParamsResponse {
	return &ParamsResponse{
		EntranceFee:          types.FormatEther(p.EntranceFee),
		Interval:             p.Interval.String(),
		KeyHash:              p.KeyHash.Hex(),
		SubscriptionID:       p.SubscriptionID,
		CallbackGasLimit:     p.CallbackGasLimit,
		RequestConfirmations: p.RequestConfirmations,
		NumWords:             p.NumWords,
	}
}

type ParticipantResponse struct {
	Index   uint64 `json:"index"`
	Address string `json:"address"`
}

type ParticipantsResponse struct {
	Participants []string `json:"participants"`
}

func NewParticipantsResponse(participants []common.Address) *ParticipantsResponse {
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		out = append(out, p.Hex())
	}

	return &ParticipantsResponse{Participants: out}
}

type UpkeepResponse struct {
	UpkeepNeeded    bool   `json:"upkeep_needed"`
	State           string `json:"state"`
	TimePassed      bool   `json:"time_passed"`
	ElapsedSeconds  int64  `json:"elapsed_seconds"`
	NumParticipants uint64 `json:"num_participants"`
	Balance         string `json:"balance"`
}

type DrawResponse struct {
	RoundNumber     uint64    `json:"round_number"`
	Winner          string    `json:"winner"`
	Prize           string    `json:"prize"`
	RequestID       string    `json:"request_id"`
	RandomWord      string    `json:"random_word"`
	WinnerIndex     uint64    `json:"winner_index"`
	NumParticipants uint64    `json:"num_participants"`
	Timestamp       time.Time `json:"timestamp"`
}

func NewDrawResponse(d *store.DrawRecord) *DrawResponse {
	return &DrawResponse{
		RoundNumber:     d.RoundNumber,
		Winner:          d.Winner.Hex(),
		Prize:           types.FormatEther(d.Prize),
		RequestID:       d.RequestID.Hex(),
		RandomWord:      d.RandomWord.String(),
		WinnerIndex:     d.WinnerIndex,
		NumParticipants: d.NumParticipants,
		Timestamp:       d.Timestamp,
	}
}

type EventResponse struct {
	Seq         uint64    `json:"seq"`
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	RoundNumber uint64    `json:"round_number"`
	Participant string    `json:"participant,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewEventResponse(seq uint64, ev *events.Event) *EventResponse {
	resp := &EventResponse{
		Seq:         seq,
		ID:          ev.ID.String(),
		Type:        string(ev.Type),
		RoundNumber: ev.RoundNumber,
		Timestamp:   ev.Timestamp,
	}
	if ev.Type == events.EventDrawRequested {
		resp.RequestID = ev.RequestID.Hex()
	} else {
		resp.Participant = ev.Participant.Hex()
	}

	return resp
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}
