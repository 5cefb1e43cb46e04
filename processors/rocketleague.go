// processors/rocketleague.go
package processors

import (
	"fmt"
	"strings"

	"session-stats-service/models"
)

// RocketLeagueProcessor reads the post-game scoreboard. Rows are keyed by
// team color and slot: blue_player1..3 / orange_player1..3, each with
// <side>_score<i>, <side>_goals<i>, <side>_assists<i>, <side>_saves<i>,
// <side>_shots<i>.
type RocketLeagueProcessor struct{}

const rlTeamSize = 3

// RL_TEAM values
const (
	rlTeamBlue   = "0"
	rlTeamOrange = "1"
)

var rlStatFields = []struct {
	field string
	stat  string
}{
	{"score", "RL_SCORE"},
	{"goals", "RL_GOALS"},
	{"assists", "RL_ASSISTS"},
	{"saves", "RL_SAVES"},
	{"shots", "RL_SHOTS"},
}

func (RocketLeagueProcessor) ProcessPlayers(fields RawFieldMap, roster []models.Player) ([]ProcessedPlayer, bool) {
	var out []ProcessedPlayer
	reqCheck := false
	for _, side := range []struct {
		prefix string
		team   string
	}{{"blue", rlTeamBlue}, {"orange", rlTeamOrange}} {
		for i := 1; i <= rlTeamSize; i++ {
			rawName := strings.TrimSpace(fields[fmt.Sprintf("%s_player%d", side.prefix, i)])
			if rawName == "" {
				continue
			}
			p := ProcessedPlayer{Name: rawName}
			if m := matchRosterPlayer(rawName, roster); m != nil {
				p.PlayerID = m.ID
				p.Name = m.PlayerName
			} else {
				reqCheck = true
			}
			p.Stats = append(p.Stats, StatLine{StatName: "RL_TEAM", StatValue: side.team})
			for _, sf := range rlStatFields {
				raw, ok := fields[fmt.Sprintf("%s_%s%d", side.prefix, sf.field, i)]
				if !ok {
					reqCheck = true
				}
				p.Stats = append(p.Stats, StatLine{StatName: sf.stat, StatValue: raw})
			}
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		reqCheck = true
	}
	return out, reqCheck
}

func (RocketLeagueProcessor) ValidateStats(raw string, def models.GameStat) (string, bool) {
	return coerceByType(raw, def)
}

// CalculateWinners sums goals per team; the higher-scoring team's players all
// win. Rocket League has no draws, so equal totals produce no winner — the
// reviewer settles it.
func (RocketLeagueProcessor) CalculateWinners(players []ProcessedPlayer) []WinnerEntry {
	goals := map[string]int{}
	for _, p := range players {
		team := statValue(p, "RL_TEAM")
		if g, ok := statInt(p, "RL_GOALS"); ok {
			goals[team] += g
		}
	}
	var winningTeam string
	switch {
	case goals[rlTeamBlue] > goals[rlTeamOrange]:
		winningTeam = rlTeamBlue
	case goals[rlTeamOrange] > goals[rlTeamBlue]:
		winningTeam = rlTeamOrange
	default:
		return nil
	}
	var winners []WinnerEntry
	for _, p := range players {
		if statValue(p, "RL_TEAM") == winningTeam {
			winners = append(winners, WinnerEntry{PlayerID: p.PlayerID, PlayerName: p.Name})
		}
	}
	return sortWinners(winners)
}

func (RocketLeagueProcessor) ValidateResults(players []ProcessedPlayer, winners []WinnerEntry) Result {
	res := validateResultsCommon(players, winners)
	if res.Status == ResultSuccess && len(winners) == 0 {
		res.Status = ResultCheckRequest
		res.Message = "Goal totals are level — confirm the winning team"
	}
	return res
}

// statValue reads a named stat off a processed player as raw text.
func statValue(p ProcessedPlayer, name string) string {
	for _, s := range p.Stats {
		if s.StatName == name {
			return s.StatValue
		}
	}
	return ""
}
