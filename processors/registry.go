package processors

import (
	"fmt"

	"session-stats-service/models"
)

// registry is the closed, static mapping from supported game ids to their
// processors. No per-call state — shared across concurrent requests.
var registry = map[int]GameProcessor{
	models.GameMarioKart8:   MarioKart8Processor{},
	models.GameRocketLeague: RocketLeagueProcessor{},
	models.GameCallOfDuty:   CoDGunGameProcessor{},
	models.GameMarvelRivals: MarvelRivalsProcessor{},
}

// ForGame resolves the processor for a game id.
func ForGame(gameID int) (GameProcessor, error) {
	p, ok := registry[gameID]
	if !ok {
		return nil, fmt.Errorf("Invalid game id: %d", gameID)
	}
	return p, nil
}
