package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/raffle/events"
	"github.com/raffle-labs/raffle/raffle/store"
	"github.com/raffle-labs/raffle/types"
)

var _ types.RandomnessConsumer = &Raffle{}

// RaffleOptions are the accounts and collaborators' endpoints of a raffle
type RaffleOptions struct {
	// Address is the account holding the prize pool, also the consumer id
	// towards the coordinator
	Address common.Address
	// CoordinatorAddress is the only sender allowed to fulfill
	CoordinatorAddress common.Address
	// CallbackURL is passed along with requests to remote coordinators
	CallbackURL string
	// Clock defaults to time.Now
	Clock func() time.Time
}

// UpkeepStatus is the diagnostic snapshot behind an upkeep decision
type UpkeepStatus struct {
	UpkeepNeeded    bool
	State           types.RaffleState
	TimePassed      bool
	Elapsed         time.Duration
	NumParticipants uint64
	Balance         sdkmath.Int
}

// RaffleStatus is a consistent snapshot of the raffle
type RaffleStatus struct {
	State              types.RaffleState
	RoundNumber        uint64
	NumParticipants    uint64
	LastTimestamp      time.Time
	RecentWinner       common.Address
	OutstandingRequest *types.RequestID
	PoolBalance        sdkmath.Int
	EntranceFee        sdkmath.Int
	Interval           time.Duration
}

// Raffle is the round state machine. Entries, upkeep and fulfillment are
// serialized by mu; queries take it as well to read consistent snapshots.
type Raffle struct {
	mu sync.Mutex

	params      *types.RaffleParams
	opts        RaffleOptions
	coordinator types.RandomnessCoordinator
	bank        types.Bank
	rs          *store.RoundStore
	bus         *events.Bus
	metrics     *metrics.RaffleMetrics
	logger      *zap.Logger
}

// NewRaffle opens the first round if the store holds none yet
func NewRaffle(
	params *types.RaffleParams,
	opts RaffleOptions,
	coordinator types.RandomnessCoordinator,
	bank types.Bank,
	rs *store.RoundStore,
	bus *events.Bus,
	m *metrics.RaffleMetrics,
	logger *zap.Logger,
) (*Raffle, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid raffle params: %w", err)
	}
	if opts.Address == (common.Address{}) {
		return nil, fmt.Errorf("raffle address cannot be empty")
	}
	if opts.CoordinatorAddress == (common.Address{}) {
		return nil, fmt.Errorf("coordinator address cannot be empty")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	r := &Raffle{
		params:      params,
		opts:        opts,
		coordinator: coordinator,
		bank:        bank,
		rs:          rs,
		bus:         bus,
		metrics:     m,
		logger:      logger,
	}

	round, err := rs.InitRound(r.now())
	if err != nil {
		return nil, err
	}

	logger.Info("raffle is ready",
		zap.String("address", opts.Address.Hex()),
		zap.String("state", round.State.String()),
		zap.Uint64("round", round.RoundNumber),
		zap.Uint64("participants", round.NumParticipants),
		zap.String("entrance_fee_eth", types.FormatEther(params.EntranceFee)),
		zap.Duration("interval", params.Interval),
	)
	r.metrics.RecordRoundState(uint8(round.State))
	r.metrics.RecordRoundNumber(round.RoundNumber)
	r.metrics.RecordParticipants(int(round.NumParticipants))

	return r, nil
}

// now is truncated to whole seconds, the resolution of round timestamps
func (r *Raffle) now() time.Time {
	return time.Unix(r.opts.Clock().Unix(), 0).UTC()
}

// Enter records player as a participant of the open round after collecting
// amount from its account into the pool
func (r *Raffle) Enter(ctx context.Context, player common.Address, amount sdkmath.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount.IsNil() || amount.LT(r.params.EntranceFee) {
		return errorsmod.Wrapf(ErrInsufficientPayment, "sent %s wei, entrance fee is %s wei", amount, r.params.EntranceFee)
	}

	round, err := r.rs.GetRound()
	if err != nil {
		return err
	}
	if round.State != types.RaffleStateOpen {
		return errorsmod.Wrapf(ErrRoundNotOpen, "round %d is %s", round.RoundNumber, round.State)
	}

	if err := r.bank.Transfer(player, r.opts.Address, amount); err != nil {
		return fmt.Errorf("failed to collect the entrance payment of %s: %w", player.Hex(), err)
	}

	round, err = r.rs.AddParticipant(player)
	if err != nil {
		if refundErr := r.bank.Transfer(r.opts.Address, player, amount); refundErr != nil {
			r.logger.Error("failed to refund entrance payment",
				zap.String("player", player.Hex()),
				zap.String("amount", amount.String()),
				zap.Error(refundErr),
			)
		}

		return fmt.Errorf("failed to record entry of %s: %w", player.Hex(), err)
	}

	r.metrics.IncrementEntries()
	r.metrics.RecordParticipants(int(round.NumParticipants))
	r.bus.Emit(ctx, events.NewEntryRecorded(round.RoundNumber, player, r.now()))

	return nil
}

// CheckUpkeep reports whether a draw should be requested now. It never
// changes state.
func (r *Raffle) CheckUpkeep(_ context.Context) (bool, *UpkeepStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.checkUpkeep()
	if err != nil {
		return false, nil, err
	}

	return status.UpkeepNeeded, status, nil
}

func (r *Raffle) checkUpkeep() (*UpkeepStatus, error) {
	round, err := r.rs.GetRound()
	if err != nil {
		return nil, err
	}

	balance, err := r.bank.Balance(r.opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool balance: %w", err)
	}

	elapsed := r.now().Sub(round.LastTimestamp)
	status := &UpkeepStatus{
		State:           round.State,
		TimePassed:      elapsed > r.params.Interval,
		Elapsed:         elapsed,
		NumParticipants: round.NumParticipants,
		Balance:         balance,
	}
	status.UpkeepNeeded = status.TimePassed &&
		status.State == types.RaffleStateOpen &&
		status.NumParticipants > 0 &&
		status.Balance.IsPositive()

	return status, nil
}

// PerformUpkeep closes the round and requests the random words deciding it.
// It fails with an *UpkeepNotNeededError, changing nothing, when CheckUpkeep
// would report false.
func (r *Raffle) PerformUpkeep(ctx context.Context) (types.RequestID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.checkUpkeep()
	if err != nil {
		return types.RequestID{}, err
	}
	if !status.UpkeepNeeded {
		return types.RequestID{}, &UpkeepNotNeededError{
			Balance:         status.Balance,
			NumParticipants: status.NumParticipants,
			State:           status.State,
		}
	}

	requestID, err := r.coordinator.RequestRandomWords(ctx, &types.RandomWordsRequest{
		KeyHash:              r.params.KeyHash,
		SubscriptionID:       r.params.SubscriptionID,
		RequestConfirmations: r.params.RequestConfirmations,
		CallbackGasLimit:     r.params.CallbackGasLimit,
		NumWords:             r.params.NumWords,
		Consumer:             r.opts.Address,
		CallbackURL:          r.opts.CallbackURL,
	})
	if err != nil {
		return types.RequestID{}, fmt.Errorf("failed to request random words: %w", err)
	}

	round, err := r.rs.SetCalculating(requestID)
	if err != nil {
		r.logger.Error("random words requested but the round could not be closed",
			zap.String("request_id", requestID.Hex()),
			zap.Error(err),
		)

		return types.RequestID{}, err
	}

	r.logger.Info("draw requested",
		zap.String("request_id", requestID.Hex()),
		zap.Uint64("round", round.RoundNumber),
		zap.Uint64("participants", round.NumParticipants),
		zap.String("pool_eth", types.FormatEther(status.Balance)),
	)
	r.metrics.IncrementDrawsRequested()
	r.metrics.RecordRoundState(uint8(round.State))
	r.bus.Emit(ctx, events.NewDrawRequested(round.RoundNumber, requestID, r.now()))

	return requestID, nil
}

// RawFulfillRandomWords completes the draw answered by requestID. The
// winner is the participant at words[0] mod n. The round is reset and the
// WinnerPicked event emitted before the pool is paid out. A failed payout
// is reported as ErrTransferFailed marked with types.WordsConsumed, the
// round being already reset.
func (r *Raffle) RawFulfillRandomWords(
	ctx context.Context,
	sender common.Address,
	requestID types.RequestID,
	words types.RandomWords,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sender != r.opts.CoordinatorAddress {
		return errorsmod.Wrapf(ErrOnlyCoordinatorCanFulfill, "sender %s, coordinator %s",
			sender.Hex(), r.opts.CoordinatorAddress.Hex())
	}

	round, err := r.rs.GetRound()
	if err != nil {
		return err
	}
	if round.State != types.RaffleStateCalculating {
		return errorsmod.Wrapf(ErrRoundNotCalculating, "round %d is %s", round.RoundNumber, round.State)
	}
	if round.OutstandingRequest == nil || *round.OutstandingRequest != requestID {
		return errorsmod.Wrapf(ErrUnknownRequest, "request %s", requestID.Hex())
	}
	if len(words) == 0 || words[0] == nil {
		return errorsmod.Wrapf(ErrNoRandomWords, "request %s", requestID.Hex())
	}
	if words[0].Sign() < 0 {
		return errorsmod.Wrapf(ErrNoRandomWords, "request %s: negative random word %s", requestID.Hex(), words[0])
	}
	if round.NumParticipants == 0 {
		return errorsmod.Wrapf(ErrEmptyParticipantPool, "round %d", round.RoundNumber)
	}

	n := round.NumParticipants
	index := new(big.Int).Mod(words[0], new(big.Int).SetUint64(n)).Uint64()

	winner, err := r.rs.GetParticipant(index)
	if err != nil {
		return err
	}

	prize, err := r.bank.Balance(r.opts.Address)
	if err != nil {
		return fmt.Errorf("failed to get pool balance: %w", err)
	}

	now := r.now()
	draw := &store.DrawRecord{
		Winner:          winner,
		Prize:           prize,
		RequestID:       requestID,
		RandomWord:      new(big.Int).Set(words[0]),
		WinnerIndex:     index,
		NumParticipants: n,
		Timestamp:       now,
	}
	round, err = r.rs.CompleteDraw(draw)
	if err != nil {
		return err
	}

	r.logger.Info("winner picked",
		zap.String("winner", winner.Hex()),
		zap.Uint64("winner_index", index),
		zap.Uint64("participants", n),
		zap.Uint64("round", draw.RoundNumber),
		zap.String("request_id", requestID.Hex()),
		zap.String("prize_eth", types.FormatEther(prize)),
	)
	r.metrics.RecordWinnerPicked(now.Unix())
	r.metrics.RecordRoundState(uint8(round.State))
	r.metrics.RecordRoundNumber(round.RoundNumber)
	r.metrics.RecordParticipants(0)
	r.bus.Emit(ctx, events.NewWinnerPicked(draw.RoundNumber, winner, now))

	if err := r.bank.Transfer(r.opts.Address, winner, prize); err != nil {
		// the round is already reset, the prize stays in the pool
		r.metrics.IncrementPayoutFailures()
		r.logger.Error("failed to pay out the prize",
			zap.String("winner", winner.Hex()),
			zap.String("prize_eth", types.FormatEther(prize)),
			zap.Error(err),
		)

		return types.WordsConsumed(fmt.Errorf("%w: %w", ErrTransferFailed, err))
	}

	return nil
}

func (r *Raffle) Params() types.RaffleParams {
	return *r.params
}

func (r *Raffle) Address() common.Address {
	return r.opts.Address
}

func (r *Raffle) CoordinatorAddress() common.Address {
	return r.opts.CoordinatorAddress
}

func (r *Raffle) EntranceFee() sdkmath.Int {
	return r.params.EntranceFee
}

func (r *Raffle) Interval() time.Duration {
	return r.params.Interval
}

func (r *Raffle) RaffleState() (types.RaffleState, error) {
	round, err := r.getRound()
	if err != nil {
		return 0, err
	}

	return round.State, nil
}

// Participant returns the i-th participant of the current round
func (r *Raffle) Participant(i uint64) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	round, err := r.rs.GetRound()
	if err != nil {
		return common.Address{}, err
	}
	if i >= round.NumParticipants {
		return common.Address{}, errorsmod.Wrapf(ErrIndexOutOfRange, "index %d, participants %d", i, round.NumParticipants)
	}

	p, err := r.rs.GetParticipant(i)
	if errors.Is(err, store.ErrParticipantNotFound) {
		return common.Address{}, errorsmod.Wrapf(ErrIndexOutOfRange, "index %d", i)
	}

	return p, err
}

func (r *Raffle) Participants() ([]common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rs.GetParticipants()
}

func (r *Raffle) NumberOfParticipants() (uint64, error) {
	round, err := r.getRound()
	if err != nil {
		return 0, err
	}

	return round.NumParticipants, nil
}

func (r *Raffle) LastTimestamp() (time.Time, error) {
	round, err := r.getRound()
	if err != nil {
		return time.Time{}, err
	}

	return round.LastTimestamp, nil
}

// RecentWinner returns the zero address before the first draw
func (r *Raffle) RecentWinner() (common.Address, error) {
	round, err := r.getRound()
	if err != nil {
		return common.Address{}, err
	}
	if round.RecentWinner == nil {
		return common.Address{}, nil
	}

	return *round.RecentWinner, nil
}

// OutstandingRequest returns nil unless the round is CALCULATING
func (r *Raffle) OutstandingRequest() (*types.RequestID, error) {
	round, err := r.getRound()
	if err != nil {
		return nil, err
	}

	return round.OutstandingRequest, nil
}

func (r *Raffle) RoundNumber() (uint64, error) {
	round, err := r.getRound()
	if err != nil {
		return 0, err
	}

	return round.RoundNumber, nil
}

func (r *Raffle) PoolBalance() (sdkmath.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.bank.Balance(r.opts.Address)
}

func (r *Raffle) Status() (*RaffleStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	round, err := r.rs.GetRound()
	if err != nil {
		return nil, err
	}
	balance, err := r.bank.Balance(r.opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool balance: %w", err)
	}

	status := &RaffleStatus{
		State:              round.State,
		RoundNumber:        round.RoundNumber,
		NumParticipants:    round.NumParticipants,
		LastTimestamp:      round.LastTimestamp,
		OutstandingRequest: round.OutstandingRequest,
		PoolBalance:        balance,
		EntranceFee:        r.params.EntranceFee,
		Interval:           r.params.Interval,
	}
	if round.RecentWinner != nil {
		status.RecentWinner = *round.RecentWinner
	}

	return status, nil
}

// Draws returns up to limit completed draws, most recent first
// HasDrawn reports whether the latest draw answered requestID
func (r *Raffle) HasDrawn(requestID types.RequestID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	draws, err := r.rs.ListDraws(1)
	if err != nil {
		return false, err
	}

	return len(draws) == 1 && draws[0].RequestID == requestID, nil
}

func (r *Raffle) Draws(limit int) ([]*store.DrawRecord, error) {
	return r.rs.ListDraws(limit)
}

func (r *Raffle) getRound() (*store.StoredRound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rs.GetRound()
}
