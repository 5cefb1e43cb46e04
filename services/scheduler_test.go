package services

import (
	"context"
	"strconv"
	"testing"

	"session-stats-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staleCodSession is a committed session whose winner rows were never
// supplied: three matches of COD scores, winners derivable from the stats.
func staleCodSession() models.Session {
	match := func(id, benScore, dylanScore int) models.Match {
		return models.Match{
			ID: id,
			PlayerSessions: []models.PlayerSession{
				{PlayerID: 1, PlayerStats: []models.PlayerStat{
					{StatName: "COD_SCORE", Value: strconv.Itoa(benScore)},
				}},
				{PlayerID: 2, PlayerStats: []models.PlayerStat{
					{StatName: "COD_SCORE", Value: strconv.Itoa(dylanScore)},
				}},
			},
		}
	}
	return models.Session{
		ID:           1,
		GameID:       models.GameCallOfDuty,
		SessionName:  "Friday Night",
		WinnersStale: true,
		Sets: []models.GameSet{
			{ID: 10, Matches: []models.Match{
				match(100, 100, 80), // Ben
				match(101, 60, 90),  // Dylan
				match(102, 70, 50),  // Ben
			}},
		},
	}
}

func TestRecomputeStaleWinners(t *testing.T) {
	store := newFakeStore()
	store.staleSessions = []models.Session{staleCodSession()}
	store.players = []models.Player{
		{ID: 1, PlayerName: "Ben"},
		{ID: 2, PlayerName: "Dylan"},
	}
	svc := newTestService(store, adminAuth())

	svc.RecomputeStaleWinners(context.Background())

	// match winners derived from top COD_SCORE per match
	require.Len(t, store.committed.matchWinnerRows, 3)
	assert.Equal(t, []models.MatchWinner{
		{MatchID: 100, PlayerID: 1, PlayerName: "Ben"},
	}, store.committed.matchWinnerRows[100])
	assert.Equal(t, []models.MatchWinner{
		{MatchID: 101, PlayerID: 2, PlayerName: "Dylan"},
	}, store.committed.matchWinnerRows[101])
	assert.Equal(t, []models.MatchWinner{
		{MatchID: 102, PlayerID: 1, PlayerName: "Ben"},
	}, store.committed.matchWinnerRows[102])

	// set winner is whoever took the most matches: Ben, 2-1
	require.Len(t, store.committed.setWinnerRows[10], 1)
	assert.Equal(t, models.SetWinner{SetID: 10, PlayerID: 1, PlayerName: "Ben"},
		store.committed.setWinnerRows[10][0])

	assert.Equal(t, []int{1}, store.committed.staleCleared)
}

func TestRecomputeStaleWinnersTiedSetKeepsBoth(t *testing.T) {
	sess := staleCodSession()
	sess.Sets[0].Matches = sess.Sets[0].Matches[:2] // Ben 1, Dylan 1

	store := newFakeStore()
	store.staleSessions = []models.Session{sess}
	store.players = []models.Player{
		{ID: 1, PlayerName: "Ben"},
		{ID: 2, PlayerName: "Dylan"},
	}
	svc := newTestService(store, adminAuth())

	svc.RecomputeStaleWinners(context.Background())

	require.Len(t, store.committed.setWinnerRows[10], 2)
	assert.Equal(t, 1, store.committed.setWinnerRows[10][0].PlayerID)
	assert.Equal(t, 2, store.committed.setWinnerRows[10][1].PlayerID)
}

// A failure mid-recompute aborts the whole transaction: no winner rows land
// and the session stays flagged for the next sweep.
func TestRecomputeStaleWinnersAbortsAtomically(t *testing.T) {
	store := newFakeStore()
	store.staleSessions = []models.Session{staleCodSession()}
	store.players = []models.Player{{ID: 1, PlayerName: "Ben"}, {ID: 2, PlayerName: "Dylan"}}
	store.txFailOn = "ClearWinnersStale"
	svc := newTestService(store, adminAuth())

	svc.RecomputeStaleWinners(context.Background())

	assert.Empty(t, store.committed.matchWinnerRows)
	assert.Empty(t, store.committed.setWinnerRows)
	assert.Empty(t, store.committed.staleCleared)
}
