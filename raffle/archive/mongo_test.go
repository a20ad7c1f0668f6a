package archive_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/raffle-labs/raffle/raffle/archive"
	"github.com/raffle-labs/raffle/raffle/events"
	"github.com/raffle-labs/raffle/testutil"
)

func TestEventDocument(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(1)
	ts := time.Unix(1700000000, 0)

	player := testutil.GenRandomAddress(r)
	entry := archive.NewEventDocument(events.NewEntryRecorded(3, player, ts))
	require.Equal(t, string(events.EventEntryRecorded), entry.Type)
	require.Equal(t, uint64(3), entry.RoundNumber)
	require.Equal(t, player.Hex(), entry.Participant)
	require.Empty(t, entry.RequestID)

	requestID := testutil.GenRandomHash(r)
	draw := archive.NewEventDocument(events.NewDrawRequested(3, requestID, ts))
	require.Equal(t, requestID.Hex(), draw.RequestID)
	require.Empty(t, draw.Participant)

	// empty optional fields are left out of the stored document
	bz, err := bson.Marshal(draw)
	require.NoError(t, err)
	var raw bson.M
	require.NoError(t, bson.Unmarshal(bz, &raw))
	require.NotContains(t, raw, "participant")
	require.Equal(t, draw.ID, raw["_id"])

	var decoded archive.EventDocument
	require.NoError(t, bson.Unmarshal(bz, &decoded))
	require.True(t, ts.Equal(decoded.Timestamp))
}
