package processors

import (
	"fmt"
	"strings"

	"session-stats-service/models"
)

// CoDGunGameProcessor reads the free-for-all results screen: player1..player8
// with score1..score8, kills1..kills8, deaths1..deaths8 and an optional
// position1..position8 column.
type CoDGunGameProcessor struct{}

const codMaxPlayers = 8

func (CoDGunGameProcessor) ProcessPlayers(fields RawFieldMap, roster []models.Player) ([]ProcessedPlayer, bool) {
	var out []ProcessedPlayer
	reqCheck := false
	for i := 1; i <= codMaxPlayers; i++ {
		rawName := strings.TrimSpace(fields[fmt.Sprintf("player%d", i)])
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
		score, ok := fields[fmt.Sprintf("score%d", i)]
		if !ok || strings.TrimSpace(score) == "" {
			reqCheck = true
		}
		p.Stats = append(p.Stats, StatLine{StatName: "COD_SCORE", StatValue: score})
		if kills, ok := fields[fmt.Sprintf("kills%d", i)]; ok {
			p.Stats = append(p.Stats, StatLine{StatName: "COD_KILLS", StatValue: kills})
		}
		if deaths, ok := fields[fmt.Sprintf("deaths%d", i)]; ok {
			p.Stats = append(p.Stats, StatLine{StatName: "COD_DEATHS", StatValue: deaths})
		}
		if pos, ok := fields[fmt.Sprintf("position%d", i)]; ok {
			p.Stats = append(p.Stats, StatLine{StatName: "COD_POSITION", StatValue: pos})
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		reqCheck = true
	}
	return out, reqCheck
}

func (CoDGunGameProcessor) ValidateStats(raw string, def models.GameStat) (string, bool) {
	return coerceByType(raw, def)
}

// CalculateWinners takes the highest score. Gun game allows shared wins, so
// every player tied at the top scores a win.
func (CoDGunGameProcessor) CalculateWinners(players []ProcessedPlayer) []WinnerEntry {
	best := -1
	var winners []WinnerEntry
	for _, p := range players {
		score, ok := statInt(p, "COD_SCORE")
		if !ok {
			continue
		}
		switch {
		case score > best:
			best = score
			winners = []WinnerEntry{{PlayerID: p.PlayerID, PlayerName: p.Name}}
		case score == best:
			winners = append(winners, WinnerEntry{PlayerID: p.PlayerID, PlayerName: p.Name})
		}
	}
	return sortWinners(winners)
}

func (CoDGunGameProcessor) ValidateResults(players []ProcessedPlayer, winners []WinnerEntry) Result {
	return validateResultsCommon(players, winners)
}
