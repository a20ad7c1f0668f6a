package store

import (
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/raffle-labs/raffle/types"
)

// StoredRound is the single round record of the raffle
type StoredRound struct {
	State types.RaffleState
	// RoundNumber counts the completed draws
	RoundNumber     uint64
	LastTimestamp   time.Time
	NumParticipants uint64
	// RecentWinner is nil until the first draw completes
	RecentWinner *common.Address
	// OutstandingRequest is set while the round is CALCULATING
	OutstandingRequest *types.RequestID
}

// on disk form of StoredRound
type roundRecord struct {
	State              uint8
	RoundNumber        uint64
	LastTimestamp      uint64
	NumParticipants    uint64
	HasWinner          bool
	RecentWinner       common.Address
	HasRequest         bool
	OutstandingRequest common.Hash
}

func (r *StoredRound) marshal() ([]byte, error) {
	rec := roundRecord{
		State:           uint8(r.State),
		RoundNumber:     r.RoundNumber,
		LastTimestamp:   uint64(r.LastTimestamp.Unix()),
		NumParticipants: r.NumParticipants,
	}
	if r.RecentWinner != nil {
		rec.HasWinner = true
		rec.RecentWinner = *r.RecentWinner
	}
	if r.OutstandingRequest != nil {
		rec.HasRequest = true
		rec.OutstandingRequest = *r.OutstandingRequest
	}

	return rlp.EncodeToBytes(&rec)
}

func unmarshalRound(bz []byte) (*StoredRound, error) {
	var rec roundRecord
	if err := rlp.DecodeBytes(bz, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedRaffleDB, err)
	}

	r := &StoredRound{
		State:           types.RaffleState(rec.State),
		RoundNumber:     rec.RoundNumber,
		LastTimestamp:   time.Unix(int64(rec.LastTimestamp), 0).UTC(),
		NumParticipants: rec.NumParticipants,
	}
	if rec.HasWinner {
		winner := rec.RecentWinner
		r.RecentWinner = &winner
	}
	if rec.HasRequest {
		reqID := rec.OutstandingRequest
		r.OutstandingRequest = &reqID
	}

	return r, nil
}

// DrawRecord is the history entry written when a draw completes
type DrawRecord struct {
	RoundNumber     uint64
	Winner          common.Address
	Prize           sdkmath.Int
	RequestID       types.RequestID
	RandomWord      *big.Int
	WinnerIndex     uint64
	NumParticipants uint64
	Timestamp       time.Time
}

type drawRecord struct {
	RoundNumber     uint64
	Winner          common.Address
	Prize           *big.Int
	RequestID       common.Hash
	RandomWord      *big.Int
	WinnerIndex     uint64
	NumParticipants uint64
	Timestamp       uint64
}

func (d *DrawRecord) marshal() ([]byte, error) {
	if d.Prize.IsNil() || d.Prize.IsNegative() {
		return nil, fmt.Errorf("%w: prize %v", ErrInvalidAmount, d.Prize)
	}
	if d.RandomWord == nil || d.RandomWord.Sign() < 0 {
		return nil, fmt.Errorf("random word must be non-negative")
	}

	return rlp.EncodeToBytes(&drawRecord{
		RoundNumber:     d.RoundNumber,
		Winner:          d.Winner,
		Prize:           d.Prize.BigInt(),
		RequestID:       d.RequestID,
		RandomWord:      d.RandomWord,
		WinnerIndex:     d.WinnerIndex,
		NumParticipants: d.NumParticipants,
		Timestamp:       uint64(d.Timestamp.Unix()),
	})
}

func unmarshalDraw(bz []byte) (*DrawRecord, error) {
	var rec drawRecord
	if err := rlp.DecodeBytes(bz, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedRaffleDB, err)
	}

	return &DrawRecord{
		RoundNumber:     rec.RoundNumber,
		Winner:          rec.Winner,
		Prize:           sdkmath.NewIntFromBigInt(rec.Prize),
		RequestID:       rec.RequestID,
		RandomWord:      rec.RandomWord,
		WinnerIndex:     rec.WinnerIndex,
		NumParticipants: rec.NumParticipants,
		Timestamp:       time.Unix(int64(rec.Timestamp), 0).UTC(),
	}, nil
}
