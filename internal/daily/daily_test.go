package daily_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/battleship/assets"
	"github.com/robalobadob/battleship/internal/daily"
	"github.com/robalobadob/battleship/internal/game"
	"github.com/robalobadob/battleship/internal/store"
)

func TestShips_DeterministicAndValid(t *testing.T) {
	day := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	first := daily.Ships(day, "salt", game.TotalShipCount)
	require.Len(t, first, game.TotalShipCount)
	assert.Equal(t, first, daily.Ships(day.Add(-time.Hour), "salt", game.TotalShipCount))

	_, err := game.NewGameState(first, game.DefaultRules())
	assert.NoError(t, err)

	for n := 1; n <= game.BoardCells; n++ {
		ships := daily.Ships(day, "salt", n)
		_, err := game.NewGameState(ships, game.Rules{ShipCount: n, MissesAllowed: 1})
		assert.NoError(t, err, "ship count %d", n)
	}
	assert.Nil(t, daily.Ships(day, "salt", 0))
}

func TestShips_VaryByDate(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := map[[2]int]bool{}
	for i := 0; i < 30; i++ {
		s := daily.Ships(day.AddDate(0, 0, i), "salt", 2)
		seen[[2]int{s[0], s[1]}] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestStore_ResultsAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(store.MemoryDSN)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, store.Migrate(db, assets.Migrations()))

	s := daily.NewStore(db)
	date := "2026-10-19"

	played, err := s.AlreadyPlayed(ctx, "u1", date)
	require.NoError(t, err)
	assert.False(t, played)

	require.NoError(t, s.InsertResult(ctx, daily.Result{UserID: "u1", Date: date, Attempts: 4, Misses: 2, Won: true, ElapsedMs: 900}))
	require.NoError(t, s.InsertResult(ctx, daily.Result{UserID: "u2", Date: date, Attempts: 2, Won: true, ElapsedMs: 5000}))
	require.NoError(t, s.InsertResult(ctx, daily.Result{UserID: "u3", Date: date, Attempts: 3, Misses: 3, Won: false, ElapsedMs: 100}))
	// Second result for the same day is ignored.
	require.NoError(t, s.InsertResult(ctx, daily.Result{UserID: "u1", Date: date, Attempts: 2, Won: true, ElapsedMs: 1}))

	played, err = s.AlreadyPlayed(ctx, "u1", date)
	require.NoError(t, err)
	assert.True(t, played)

	top, err := s.Leaderboard(ctx, date, 0)
	require.NoError(t, err)
	assert.Equal(t, []daily.LBRow{
		{UserID: "u2", Attempts: 2, ElapsedMs: 5000},
		{UserID: "u1", Attempts: 4, ElapsedMs: 900},
	}, top)
}
