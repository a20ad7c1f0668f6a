package store

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/raffle-labs/raffle/lib/kvstore"
)

var (
	// sequence -> eventRecord
	eventsBucketName = []byte("events")
)

// StoredEvent is one entry of the append-only event log
type StoredEvent struct {
	Seq         uint64
	ID          uuid.UUID
	Type        string
	RoundNumber uint64
	// Subject is the participant address or the request id, by event type
	Subject   []byte
	Timestamp time.Time
}

type eventRecord struct {
	ID          [16]byte
	Type        string
	RoundNumber uint64
	Subject     []byte
	Timestamp   uint64
}

type EventStore struct {
	db kvdb.Backend
}

func NewEventStore(db kvdb.Backend) (*EventStore, error) {
	s := &EventStore{db}
	if err := s.initBuckets(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *EventStore) initBuckets() error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		_, err := tx.CreateTopLevelBucket(eventsBucketName)

		return err
	})
}

// AddEvent appends ev to the log and sets its sequence number
func (s *EventStore) AddEvent(ev *StoredEvent) error {
	bz, err := rlp.EncodeToBytes(&eventRecord{
		ID:          ev.ID,
		Type:        ev.Type,
		RoundNumber: ev.RoundNumber,
		Subject:     ev.Subject,
		Timestamp:   uint64(ev.Timestamp.Unix()),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var seq uint64
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(eventsBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		next, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		seq = next

		return bucket.Put(kvstore.Uint64ToBytes(seq), bz)
	}); err != nil {
		return fmt.Errorf("failed to add event %s: %w", ev.Type, err)
	}
	ev.Seq = seq

	return nil
}

// ListEvents returns up to limit events with a sequence number of at least
// fromSeq, oldest first
func (s *EventStore) ListEvents(fromSeq uint64, limit int) ([]*StoredEvent, error) {
	var events []*StoredEvent

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(eventsBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		c := bucket.ReadCursor()
		for k, v := c.Seek(kvstore.Uint64ToBytes(fromSeq)); k != nil && len(events) < limit; k, v = c.Next() {
			var rec eventRecord
			if err := rlp.DecodeBytes(v, &rec); err != nil {
				return fmt.Errorf("%w: %w", ErrCorruptedRaffleDB, err)
			}
			events = append(events, &StoredEvent{
				Seq:         kvstore.BytesToUint64(k),
				ID:          rec.ID,
				Type:        rec.Type,
				RoundNumber: rec.RoundNumber,
				Subject:     rec.Subject,
				Timestamp:   time.Unix(int64(rec.Timestamp), 0).UTC(),
			})
		}

		return nil
	}, func() {}); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}
