// models/seed.go
package models

import (
	"errors"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seedGames is the closed set of supported titles and their stat tables.
// Ids are fixed — the processor registry is keyed by them.
var seedGames = []Game{
	{ID: GameMarioKart8, GameName: "Mario Kart 8", GameStats: []GameStat{
		{StatName: "MK8_PLACE", Type: StatTypeNumeric},
		{StatName: "MK8_POINTS", Type: StatTypeNumeric},
	}},
	{ID: GameRocketLeague, GameName: "Rocket League", GameStats: []GameStat{
		{StatName: "RL_TEAM", Type: StatTypeNumeric},
		{StatName: "RL_SCORE", Type: StatTypeNumeric},
		{StatName: "RL_GOALS", Type: StatTypeNumeric},
		{StatName: "RL_ASSISTS", Type: StatTypeNumeric},
		{StatName: "RL_SAVES", Type: StatTypeNumeric},
		{StatName: "RL_SHOTS", Type: StatTypeNumeric},
	}},
	{ID: GameCallOfDuty, GameName: "Call of Duty", GameStats: []GameStat{
		{StatName: "COD_SCORE", Type: StatTypeNumeric},
		{StatName: "COD_KILLS", Type: StatTypeNumeric},
		{StatName: "COD_DEATHS", Type: StatTypeNumeric},
		{StatName: "COD_POSITION", Type: StatTypeNumeric},
	}},
	{ID: GameMarvelRivals, GameName: "Marvel Rivals", GameStats: []GameStat{
		{StatName: "MR_TEAM", Type: StatTypeNumeric},
		{StatName: "MR_KILLS", Type: StatTypeNumeric},
		{StatName: "MR_DEATHS", Type: StatTypeNumeric},
		{StatName: "MR_ASSISTS", Type: StatTypeNumeric},
		{StatName: "MR_LAST_KILLS", Type: StatTypeNumeric},
		{StatName: "MR_LAST_DMG", Type: StatTypeNumeric},
		{StatName: "MR_TRIPLE_KILL", Type: StatTypeBoolean},
		{StatName: "MR_QUADRA_KILL", Type: StatTypeBoolean},
		{StatName: "MR_PENTA_KILL", Type: StatTypeBoolean},
		{StatName: "MR_HEXA_KILL", Type: StatTypeBoolean},
		{StatName: "MR_MOST_KILLS", Type: StatTypeBoolean},
		{StatName: "MR_HIGHEST_DMG", Type: StatTypeBoolean},
		{StatName: "MR_HIGHEST_DMG_BLOCKED", Type: StatTypeBoolean},
		{StatName: "MR_MOST_HEALING", Type: StatTypeBoolean},
		{StatName: "MR_MOST_ASSISTS", Type: StatTypeBoolean},
		{StatName: "MR_MVP", Type: StatTypeBoolean},
		{StatName: "MR_SVP", Type: StatTypeBoolean},
	}},
}

// SeedReferenceData inserts the supported games and their stat definitions.
// Idempotent — existing rows are left untouched.
func SeedReferenceData(db *gorm.DB) error {
	for _, g := range seedGames {
		game := Game{ID: g.ID, GameName: g.GameName}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&game).Error; err != nil {
			return err
		}
		for _, s := range g.GameStats {
			stat := GameStat{GameID: g.ID, StatName: s.StatName, Type: s.Type}
			var existing GameStat
			err := db.Where("game_id = ? AND stat_name = ?", g.ID, s.StatName).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := db.Create(&stat).Error; err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
		}
	}
	log.Printf("✅ [SEED] Reference data ready (%d games)", len(seedGames))
	return nil
}
