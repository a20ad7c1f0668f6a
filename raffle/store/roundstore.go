package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/raffle-labs/raffle/lib/kvstore"
	"github.com/raffle-labs/raffle/types"
)

var (
	// key "current" -> roundRecord
	roundBucketName = []byte("round")

	// index -> participant address of the current round
	participantsBucketName = []byte("participants")

	// round number -> drawRecord
	drawsBucketName = []byte("draws")

	currentRoundKey = []byte("current")
)

type RoundStore struct {
	db kvdb.Backend
}

// NewRoundStore returns a new store backed by db
func NewRoundStore(db kvdb.Backend) (*RoundStore, error) {
	s := &RoundStore{db}
	if err := s.initBuckets(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *RoundStore) initBuckets() error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		for _, name := range [][]byte{roundBucketName, participantsBucketName, drawsBucketName} {
			if _, err := tx.CreateTopLevelBucket(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		return nil
	}); err != nil {
		return fmt.Errorf("failed to initialize round buckets: %w", err)
	}

	return nil
}

// InitRound opens the first round at now unless a round already exists,
// in which case the stored round is returned untouched
func (s *RoundStore) InitRound(now time.Time) (*StoredRound, error) {
	var round *StoredRound

	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(roundBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		if bz := bucket.Get(currentRoundKey); bz != nil {
			stored, err := unmarshalRound(bz)
			if err != nil {
				return err
			}
			round = stored

			return nil
		}

		round = &StoredRound{
			State:         types.RaffleStateOpen,
			LastTimestamp: time.Unix(now.Unix(), 0).UTC(),
		}

		return saveRound(bucket, round)
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize round: %w", err)
	}

	return round, nil
}

func (s *RoundStore) GetRound() (*StoredRound, error) {
	var round *StoredRound

	if err := s.db.View(func(tx kvdb.RTx) error {
		stored, err := getRound(tx)
		if err != nil {
			return err
		}
		round = stored

		return nil
	}, func() {}); err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	return round, nil
}

// GetParticipant returns the participant at index i of the current round
func (s *RoundStore) GetParticipant(i uint64) (common.Address, error) {
	var participant common.Address

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(participantsBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		bz := bucket.Get(kvstore.Uint64ToBytes(i))
		if bz == nil {
			return ErrParticipantNotFound
		}
		participant = common.BytesToAddress(bz)

		return nil
	}, func() {}); err != nil {
		return common.Address{}, fmt.Errorf("failed to get participant %d: %w", i, err)
	}

	return participant, nil
}

// GetParticipants returns the participants of the current round in entry order
func (s *RoundStore) GetParticipants() ([]common.Address, error) {
	var participants []common.Address

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(participantsBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		return bucket.ForEach(func(_, v []byte) error {
			participants = append(participants, common.BytesToAddress(v))

			return nil
		})
	}, func() {}); err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	return participants, nil
}

// AddParticipant appends player to the participants of an OPEN round
func (s *RoundStore) AddParticipant(player common.Address) (*StoredRound, error) {
	var round *StoredRound

	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		pBucket := tx.ReadWriteBucket(participantsBucketName)
		if pBucket == nil {
			return ErrCorruptedRaffleDB
		}

		return updateRound(tx, func(r *StoredRound) error {
			if r.State != types.RaffleStateOpen {
				return fmt.Errorf("%w: %s", ErrUnexpectedRoundState, r.State)
			}

			if err := pBucket.Put(kvstore.Uint64ToBytes(r.NumParticipants), player.Bytes()); err != nil {
				return fmt.Errorf("failed to store participant: %w", err)
			}
			r.NumParticipants++
			round = r

			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}

	return round, nil
}

// SetCalculating closes an OPEN round and records the randomness request
// that will decide it
func (s *RoundStore) SetCalculating(requestID types.RequestID) (*StoredRound, error) {
	var round *StoredRound

	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		return updateRound(tx, func(r *StoredRound) error {
			if r.State != types.RaffleStateOpen {
				return fmt.Errorf("%w: %s", ErrUnexpectedRoundState, r.State)
			}

			reqID := requestID
			r.State = types.RaffleStateCalculating
			r.OutstandingRequest = &reqID
			round = r

			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("failed to set round calculating: %w", err)
	}

	return round, nil
}

// CompleteDraw resets the round for the next entries and appends the draw to
// the history in one transaction. draw.RoundNumber is assigned here.
func (s *RoundStore) CompleteDraw(draw *DrawRecord) (*StoredRound, error) {
	var round *StoredRound

	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		dBucket := tx.ReadWriteBucket(drawsBucketName)
		if dBucket == nil {
			return ErrCorruptedRaffleDB
		}

		if err := updateRound(tx, func(r *StoredRound) error {
			if r.State != types.RaffleStateCalculating {
				return fmt.Errorf("%w: %s", ErrUnexpectedRoundState, r.State)
			}
			if r.OutstandingRequest == nil || *r.OutstandingRequest != draw.RequestID {
				return ErrRequestMismatch
			}

			winner := draw.Winner
			r.State = types.RaffleStateOpen
			r.LastTimestamp = time.Unix(draw.Timestamp.Unix(), 0).UTC()
			r.RecentWinner = &winner
			r.OutstandingRequest = nil
			r.NumParticipants = 0
			r.RoundNumber++
			draw.RoundNumber = r.RoundNumber
			round = r

			return nil
		}); err != nil {
			return err
		}

		if err := clearParticipants(tx); err != nil {
			return err
		}

		bz, err := draw.marshal()
		if err != nil {
			return err
		}

		return dBucket.Put(kvstore.Uint64ToBytes(draw.RoundNumber), bz)
	}); err != nil {
		return nil, fmt.Errorf("failed to complete draw: %w", err)
	}

	return round, nil
}

func (s *RoundStore) GetDraw(roundNumber uint64) (*DrawRecord, error) {
	var draw *DrawRecord

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(drawsBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		bz := bucket.Get(kvstore.Uint64ToBytes(roundNumber))
		if bz == nil {
			return ErrDrawNotFound
		}

		d, err := unmarshalDraw(bz)
		if err != nil {
			return err
		}
		draw = d

		return nil
	}, func() {}); err != nil {
		return nil, fmt.Errorf("failed to get draw of round %d: %w", roundNumber, err)
	}

	return draw, nil
}

// ListDraws returns up to limit draws, most recent first
func (s *RoundStore) ListDraws(limit int) ([]*DrawRecord, error) {
	var draws []*DrawRecord

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(drawsBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		c := bucket.ReadCursor()
		for k, v := c.Last(); k != nil && len(draws) < limit; k, v = c.Prev() {
			d, err := unmarshalDraw(v)
			if err != nil {
				return err
			}
			draws = append(draws, d)
		}

		return nil
	}, func() {}); err != nil {
		return nil, fmt.Errorf("failed to list draws: %w", err)
	}

	return draws, nil
}

func getRound(tx kvdb.RTx) (*StoredRound, error) {
	bucket := tx.ReadBucket(roundBucketName)
	if bucket == nil {
		return nil, ErrCorruptedRaffleDB
	}

	bz := bucket.Get(currentRoundKey)
	if bz == nil {
		return nil, ErrRoundNotFound
	}

	return unmarshalRound(bz)
}

func updateRound(tx kvdb.RwTx, stateTransitionFn func(r *StoredRound) error) error {
	bucket := tx.ReadWriteBucket(roundBucketName)
	if bucket == nil {
		return ErrCorruptedRaffleDB
	}

	bz := bucket.Get(currentRoundKey)
	if bz == nil {
		return ErrRoundNotFound
	}

	round, err := unmarshalRound(bz)
	if err != nil {
		return err
	}

	if err := stateTransitionFn(round); err != nil {
		return err
	}

	return saveRound(bucket, round)
}

func saveRound(bucket walletdb.ReadWriteBucket, round *StoredRound) error {
	bz, err := round.marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	return bucket.Put(currentRoundKey, bz)
}

func clearParticipants(tx kvdb.RwTx) error {
	if err := tx.DeleteTopLevelBucket(participantsBucketName); err != nil && !errors.Is(err, walletdb.ErrBucketNotFound) {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	if _, err := tx.CreateTopLevelBucket(participantsBucketName); err != nil {
		return fmt.Errorf("failed to recreate participants bucket: %w", err)
	}

	return nil
}
