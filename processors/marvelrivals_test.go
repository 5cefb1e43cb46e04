package processors

import (
	"testing"

	"session-stats-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mrPlayer(id int, name, team, kills string) ProcessedPlayer {
	return ProcessedPlayer{
		PlayerID: id,
		Name:     name,
		Stats: []StatLine{
			{StatName: "MR_TEAM", StatValue: team},
			{StatName: "MR_KILLS", StatValue: kills},
		},
	}
}

func TestMRProcessPlayersReadsBothSides(t *testing.T) {
	p := MarvelRivalsProcessor{}
	roster := []models.Player{{ID: 1, PlayerName: "Ben"}, {ID: 2, PlayerName: "Dylan"}}

	fields := RawFieldMap{
		"ally_player1": "Ben",
		"ally_kills1":  "22", "ally_deaths1": "4", "ally_assists1": "9",
		"ally_last_kills1": "5", "ally_last_dmg1": "4100",
		"enemy_player1": "Dylan",
		"enemy_kills1":  "17", "enemy_deaths1": "8", "enemy_assists1": "3",
		"enemy_last_kills1": "2", "enemy_last_dmg1": "2800",
	}

	players, reqCheck := p.ProcessPlayers(fields, roster)
	require.Len(t, players, 2)
	assert.False(t, reqCheck)
	assert.Equal(t, mrTeamAlly, statValue(players[0], "MR_TEAM"))
	assert.Equal(t, mrTeamEnemy, statValue(players[1], "MR_TEAM"))
}

func TestMRCalculateWinnersByKillTotals(t *testing.T) {
	p := MarvelRivalsProcessor{}

	players := []ProcessedPlayer{
		mrPlayer(2, "Dylan", mrTeamEnemy, "10"),
		mrPlayer(1, "Ben", mrTeamAlly, "12"),
		mrPlayer(3, "Leland", mrTeamAlly, "8"),
		mrPlayer(4, "Mark", mrTeamEnemy, "9"),
	}

	winners := p.CalculateWinners(players)
	require.Len(t, winners, 2)
	assert.Equal(t, 1, winners[0].PlayerID)
	assert.Equal(t, 3, winners[1].PlayerID)
}

func TestMRLevelKillTotalsGoToReview(t *testing.T) {
	p := MarvelRivalsProcessor{}

	players := []ProcessedPlayer{
		mrPlayer(1, "Ben", mrTeamAlly, "10"),
		mrPlayer(2, "Dylan", mrTeamEnemy, "10"),
	}

	winners := p.CalculateWinners(players)
	assert.Empty(t, winners)

	res := p.ValidateResults(players, winners)
	assert.Equal(t, ResultCheckRequest, res.Status)
}
