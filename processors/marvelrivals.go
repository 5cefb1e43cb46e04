package processors

import (
	"fmt"
	"strings"

	"session-stats-service/models"
)

// MarvelRivalsProcessor reads the hero-shooter scoreboard: two sides of up to
// six rows, keyed ally_player1..6 / enemy_player1..6 with per-row
// <side>_kills<i>, <side>_deaths<i>, <side>_assists<i>, <side>_last_kills<i>,
// <side>_last_dmg<i>. Award toggles (MR_TRIPLE_KILL etc.) are entered by hand
// in the review step, not recognized.
type MarvelRivalsProcessor struct{}

const mrTeamSize = 6

// MR_TEAM values
const (
	mrTeamAlly  = "0"
	mrTeamEnemy = "1"
)

var mrStatFields = []struct {
	field string
	stat  string
}{
	{"kills", "MR_KILLS"},
	{"deaths", "MR_DEATHS"},
	{"assists", "MR_ASSISTS"},
	{"last_kills", "MR_LAST_KILLS"},
	{"last_dmg", "MR_LAST_DMG"},
}

func (MarvelRivalsProcessor) ProcessPlayers(fields RawFieldMap, roster []models.Player) ([]ProcessedPlayer, bool) {
	var out []ProcessedPlayer
	reqCheck := false
	for _, side := range []struct {
		prefix string
		team   string
	}{{"ally", mrTeamAlly}, {"enemy", mrTeamEnemy}} {
		for i := 1; i <= mrTeamSize; i++ {
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
			p.Stats = append(p.Stats, StatLine{StatName: "MR_TEAM", StatValue: side.team})
			for _, sf := range mrStatFields {
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

func (MarvelRivalsProcessor) ValidateStats(raw string, def models.GameStat) (string, bool) {
	return coerceByType(raw, def)
}

// CalculateWinners compares combined kill counts per side — the round tally is
// not on the scoreboard crop, so the kill totals stand in for it. Level totals
// produce no winner and go to review.
func (MarvelRivalsProcessor) CalculateWinners(players []ProcessedPlayer) []WinnerEntry {
	kills := map[string]int{}
	for _, p := range players {
		team := statValue(p, "MR_TEAM")
		if k, ok := statInt(p, "MR_KILLS"); ok {
			kills[team] += k
		}
	}
	var winningTeam string
	switch {
	case kills[mrTeamAlly] > kills[mrTeamEnemy]:
		winningTeam = mrTeamAlly
	case kills[mrTeamEnemy] > kills[mrTeamAlly]:
		winningTeam = mrTeamEnemy
	default:
		return nil
	}
	var winners []WinnerEntry
	for _, p := range players {
		if statValue(p, "MR_TEAM") == winningTeam {
			winners = append(winners, WinnerEntry{PlayerID: p.PlayerID, PlayerName: p.Name})
		}
	}
	return sortWinners(winners)
}

func (MarvelRivalsProcessor) ValidateResults(players []ProcessedPlayer, winners []WinnerEntry) Result {
	res := validateResultsCommon(players, winners)
	if res.Status == ResultSuccess && len(winners) == 0 {
		res.Status = ResultCheckRequest
		res.Message = "Kill totals are level — confirm the winning side"
	}
	return res
}
