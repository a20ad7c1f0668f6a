package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/raffle-labs/raffle/raffle/store"
	"github.com/raffle-labs/raffle/types"
)

type EventType string

const (
	// EventEntryRecorded is emitted for every accepted entry
	EventEntryRecorded EventType = "EntryRecorded"
	// EventDrawRequested is emitted when a draw is requested from the coordinator
	EventDrawRequested EventType = "DrawRequested"
	// EventWinnerPicked is emitted when a draw completes, before the payout
	EventWinnerPicked EventType = "WinnerPicked"
)

// Event is a notification about a raffle state change
type Event struct {
	ID          uuid.UUID
	Type        EventType
	RoundNumber uint64
	// Participant is the entrant or the winner
	Participant common.Address
	// RequestID is set for DrawRequested
	RequestID types.RequestID
	Timestamp time.Time
}

func NewEntryRecorded(round uint64, player common.Address, ts time.Time) *Event {
	return &Event{ID: uuid.New(), Type: EventEntryRecorded, RoundNumber: round, Participant: player, Timestamp: ts}
}

func NewDrawRequested(round uint64, requestID types.RequestID, ts time.Time) *Event {
	return &Event{ID: uuid.New(), Type: EventDrawRequested, RoundNumber: round, RequestID: requestID, Timestamp: ts}
}

func NewWinnerPicked(round uint64, winner common.Address, ts time.Time) *Event {
	return &Event{ID: uuid.New(), Type: EventWinnerPicked, RoundNumber: round, Participant: winner, Timestamp: ts}
}

func (e *Event) String() string {
	switch e.Type {
	case EventDrawRequested:
		return fmt.Sprintf("%s(%s)", e.Type, e.RequestID.Hex())
	default:
		return fmt.Sprintf("%s(%s)", e.Type, e.Participant.Hex())
	}
}

// ToStoredEvent converts the event to its event log form
func (e *Event) ToStoredEvent() *store.StoredEvent {
	var subject []byte
	if e.Type == EventDrawRequested {
		subject = e.RequestID.Bytes()
	} else {
		subject = e.Participant.Bytes()
	}

	return &store.StoredEvent{
		ID:          e.ID,
		Type:        string(e.Type),
		RoundNumber: e.RoundNumber,
		Subject:     subject,
		Timestamp:   e.Timestamp,
	}
}

// FromStoredEvent is the inverse of ToStoredEvent
func FromStoredEvent(se *store.StoredEvent) (*Event, error) {
	ev := &Event{
		ID:          se.ID,
		Type:        EventType(se.Type),
		RoundNumber: se.RoundNumber,
		Timestamp:   se.Timestamp,
	}

	switch ev.Type {
	case EventDrawRequested:
		if len(se.Subject) != common.HashLength {
			return nil, fmt.Errorf("%w: bad request id in event %d", store.ErrCorruptedRaffleDB, se.Seq)
		}
		ev.RequestID = common.BytesToHash(se.Subject)
	case EventEntryRecorded, EventWinnerPicked:
		if len(se.Subject) != common.AddressLength {
			return nil, fmt.Errorf("%w: bad address in event %d", store.ErrCorruptedRaffleDB, se.Seq)
		}
		ev.Participant = common.BytesToAddress(se.Subject)
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", store.ErrCorruptedRaffleDB, se.Type)
	}

	return ev, nil
}

// Sink receives every emitted event
type Sink interface {
	HandleEvent(ctx context.Context, ev *Event) error
}

// StoreSink appends events to the kvdb event log
type StoreSink struct {
	es *store.EventStore
}

func NewStoreSink(es *store.EventStore) *StoreSink {
	return &StoreSink{es: es}
}

func (s *StoreSink) HandleEvent(_ context.Context, ev *Event) error {
	return s.es.AddEvent(ev.ToStoredEvent())
}
