package store_test

import (
	"math/big"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/stretchr/testify/require"

	"github.com/raffle-labs/raffle/lib/kvstore"
	"github.com/raffle-labs/raffle/raffle/store"
	"github.com/raffle-labs/raffle/testutil"
	"github.com/raffle-labs/raffle/types"
)

func newTestDB(t *testing.T) kvdb.Backend {
	t.Helper()

	cfg := kvstore.DefaultDBConfigWithPath(t.TempDir(), kvstore.DefaultDBFileName)
	db, err := cfg.GetDBBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

func TestInitRoundIsIdempotent(t *testing.T) {
	t.Parallel()

	rs, err := store.NewRoundStore(newTestDB(t))
	require.NoError(t, err)

	_, err = rs.GetRound()
	require.ErrorIs(t, err, store.ErrRoundNotFound)

	start := time.Unix(1700000000, 0)
	round, err := rs.InitRound(start)
	require.NoError(t, err)
	require.Equal(t, types.RaffleStateOpen, round.State)
	require.Equal(t, start.Unix(), round.LastTimestamp.Unix())
	require.Nil(t, round.RecentWinner)
	require.Nil(t, round.OutstandingRequest)

	again, err := rs.InitRound(start.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, start.Unix(), again.LastTimestamp.Unix())
}

// FuzzRoundLifecycle drives a round through entries, a draw request and
// its completion
func FuzzRoundLifecycle(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		t.Parallel()
		r := testutil.NewRand(seed)

		rs, err := store.NewRoundStore(newTestDB(t))
		require.NoError(t, err)
		_, err = rs.InitRound(time.Unix(1700000000, 0))
		require.NoError(t, err)

		players := testutil.GenRandomAddresses(r, r.Intn(10)+1)
		for i, p := range players {
			round, err := rs.AddParticipant(p)
			require.NoError(t, err)
			require.Equal(t, uint64(i+1), round.NumParticipants)
		}

		stored, err := rs.GetParticipants()
		require.NoError(t, err)
		require.Equal(t, players, stored)

		idx := uint64(r.Intn(len(players)))
		p, err := rs.GetParticipant(idx)
		require.NoError(t, err)
		require.Equal(t, players[idx], p)

		_, err = rs.GetParticipant(uint64(len(players)))
		require.ErrorIs(t, err, store.ErrParticipantNotFound)

		reqID := testutil.GenRandomHash(r)
		round, err := rs.SetCalculating(reqID)
		require.NoError(t, err)
		require.Equal(t, types.RaffleStateCalculating, round.State)
		require.Equal(t, reqID, *round.OutstandingRequest)

		// no entries and no second request while calculating
		_, err = rs.AddParticipant(players[0])
		require.ErrorIs(t, err, store.ErrUnexpectedRoundState)
		_, err = rs.SetCalculating(reqID)
		require.ErrorIs(t, err, store.ErrUnexpectedRoundState)

		// a draw for another request is refused
		_, err = rs.CompleteDraw(&store.DrawRecord{
			RequestID:  testutil.GenRandomHash(r),
			Prize:      sdkmath.ZeroInt(),
			RandomWord: big.NewInt(1),
			Timestamp:  time.Unix(1700000100, 0),
		})
		require.ErrorIs(t, err, store.ErrRequestMismatch)

		draw := &store.DrawRecord{
			Winner:          players[idx],
			Prize:           testutil.GenRandomWei(r, 1e18),
			RequestID:       reqID,
			RandomWord:      big.NewInt(int64(idx)),
			WinnerIndex:     idx,
			NumParticipants: uint64(len(players)),
			Timestamp:       time.Unix(1700000100, 0),
		}
		round, err = rs.CompleteDraw(draw)
		require.NoError(t, err)
		require.Equal(t, types.RaffleStateOpen, round.State)
		require.Equal(t, uint64(0), round.NumParticipants)
		require.Equal(t, uint64(1), round.RoundNumber)
		require.Equal(t, players[idx], *round.RecentWinner)
		require.Nil(t, round.OutstandingRequest)
		require.Equal(t, int64(1700000100), round.LastTimestamp.Unix())

		stored, err = rs.GetParticipants()
		require.NoError(t, err)
		require.Empty(t, stored)

		got, err := rs.GetDraw(1)
		require.NoError(t, err)
		require.Equal(t, draw.Winner, got.Winner)
		require.True(t, draw.Prize.Equal(got.Prize))
		require.Equal(t, draw.RequestID, got.RequestID)
		require.Equal(t, 0, draw.RandomWord.Cmp(got.RandomWord))

		// the next round appends from index zero again
		round, err = rs.AddParticipant(players[0])
		require.NoError(t, err)
		require.Equal(t, uint64(1), round.NumParticipants)
		p, err = rs.GetParticipant(0)
		require.NoError(t, err)
		require.Equal(t, players[0], p)
	})
}

func TestListDrawsMostRecentFirst(t *testing.T) {
	t.Parallel()
	r := testutil.NewRand(1)

	rs, err := store.NewRoundStore(newTestDB(t))
	require.NoError(t, err)
	_, err = rs.InitRound(time.Unix(1700000000, 0))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = rs.AddParticipant(testutil.GenRandomAddress(r))
		require.NoError(t, err)
		reqID := testutil.GenRandomHash(r)
		_, err = rs.SetCalculating(reqID)
		require.NoError(t, err)
		_, err = rs.CompleteDraw(&store.DrawRecord{
			Prize:      testutil.Ether(1),
			RequestID:  reqID,
			RandomWord: big.NewInt(5),
			Timestamp:  time.Unix(1700000000+int64(i), 0),
		})
		require.NoError(t, err)
	}

	draws, err := rs.ListDraws(2)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	require.Equal(t, uint64(3), draws[0].RoundNumber)
	require.Equal(t, uint64(2), draws[1].RoundNumber)

	_, err = rs.GetDraw(4)
	require.ErrorIs(t, err, store.ErrDrawNotFound)
}
