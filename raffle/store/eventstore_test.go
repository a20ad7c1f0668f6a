package store_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/raffle/store"
	"github.com/raffle-labs/raffle/testutil"
)

func TestEventStore(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(9)

	es, err := store.NewEventStore(newTestDB(t))
	require.NoError(t, err)

	var added []*store.StoredEvent
	for i := 0; i < 5; i++ {
		ev := &store.StoredEvent{
			ID:          uuid.New(),
			Type:        "EntryRecorded",
			RoundNumber: 0,
			Subject:     testutil.GenRandomAddress(r).Bytes(),
			Timestamp:   time.Unix(1700000000+int64(i), 0),
		}
		require.NoError(t, es.AddEvent(ev))
		require.Equal(t, uint64(i+1), ev.Seq)
		added = append(added, ev)
	}

	events, err := es.ListEvents(0, 10)
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, ev := range events {
		require.Equal(t, added[i].ID, ev.ID)
		require.Equal(t, added[i].Subject, ev.Subject)
		require.Equal(t, added[i].Timestamp.Unix(), ev.Timestamp.Unix())
	}

	events, err = es.ListEvents(4, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint64(4), events[0].Seq)

	events, err = es.ListEvents(1, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
}
