package models

import (
	"time"
)

// Supported game ids — immutable reference data, seeded at boot.
const (
	GameMarioKart8   = 1
	GameRocketLeague = 2
	GameCallOfDuty   = 3
	GameMarvelRivals = 4
)

type Game struct {
	ID       int    `json:"gameId" gorm:"primaryKey;autoIncrement"`
	GameName string `json:"gameName" gorm:"uniqueIndex;not null"`

	// 📊 Stat definitions drive dynamic form generation and stat validation
	GameStats []GameStat `json:"gameStats,omitempty" gorm:"foreignKey:GameID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	StatTypeNumeric = "numeric"
	StatTypeBoolean = "boolean"
)

// GameStat is a game-scoped statistic definition (e.g., "MK8_PLACE").
// Every PlayerStat row must reference a GameStat belonging to the session's game.
type GameStat struct {
	ID       int    `json:"statId" gorm:"primaryKey;autoIncrement"`
	GameID   int    `json:"gameId" gorm:"index;not null"`
	StatName string `json:"statName" gorm:"not null"`

	// numeric | boolean — controls coercion in the game processors
	Type string `json:"type" gorm:"type:varchar(16);default:'numeric'"`
}
