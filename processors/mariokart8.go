// processors/mariokart8.go
package processors

import (
	"fmt"
	"strconv"
	"strings"

	"session-stats-service/models"
)

// MarioKart8Processor reads the end-of-race scoreboard. The recognition model
// labels rows positionally: player1..player6 with matching place1..place6 and
// points1..points6.
type MarioKart8Processor struct{}

const mk8MaxPlayers = 6

func (MarioKart8Processor) ProcessPlayers(fields RawFieldMap, roster []models.Player) ([]ProcessedPlayer, bool) {
	var out []ProcessedPlayer
	reqCheck := false
	for i := 1; i <= mk8MaxPlayers; i++ {
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
		place, ok := fields[fmt.Sprintf("place%d", i)]
		if !ok || strings.TrimSpace(place) == "" {
			reqCheck = true
		}
		p.Stats = append(p.Stats, StatLine{StatName: "MK8_PLACE", StatValue: place})
		if pts, ok := fields[fmt.Sprintf("points%d", i)]; ok {
			p.Stats = append(p.Stats, StatLine{StatName: "MK8_POINTS", StatValue: pts})
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		reqCheck = true
	}
	return out, reqCheck
}

func (MarioKart8Processor) ValidateStats(raw string, def models.GameStat) (string, bool) {
	return coerceByType(raw, def)
}

// CalculateWinners picks the lowest finishing place. A tied lowest place only
// happens on misread digits — all tied leaders are kept so the reviewer sees
// both candidates.
func (MarioKart8Processor) CalculateWinners(players []ProcessedPlayer) []WinnerEntry {
	best := int(^uint(0) >> 1)
	var winners []WinnerEntry
	for _, p := range players {
		place, ok := statInt(p, "MK8_PLACE")
		if !ok || place <= 0 {
			continue
		}
		switch {
		case place < best:
			best = place
			winners = []WinnerEntry{{PlayerID: p.PlayerID, PlayerName: p.Name}}
		case place == best:
			winners = append(winners, WinnerEntry{PlayerID: p.PlayerID, PlayerName: p.Name})
		}
	}
	return sortWinners(winners)
}

func (MarioKart8Processor) ValidateResults(players []ProcessedPlayer, winners []WinnerEntry) Result {
	res := validateResultsCommon(players, winners)
	if res.Status == ResultSuccess && len(winners) > 1 {
		// kart racing has exactly one first place
		res.Status = ResultCheckRequest
		res.Message = "Multiple first places recognized — confirm the finishing order"
	}
	return res
}

// statInt reads a named stat off a processed player as an integer.
func statInt(p ProcessedPlayer, name string) (int, bool) {
	for _, s := range p.Stats {
		if s.StatName == name {
			v, err := strconv.Atoi(s.StatValue)
			if err != nil {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}
