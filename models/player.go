package models

import (
	"time"

	"gorm.io/gorm"
)

// Player is a long-lived reference entity, created independently of sessions
// (mirrored from the roster service by workers/player_sync_worker.go).
type Player struct {
	ID         int    `json:"playerId" gorm:"primaryKey;autoIncrement"`
	PlayerName string `json:"playerName" gorm:"uniqueIndex;not null"`
	ExternalID string `json:"external_id,omitempty" gorm:"uniqueIndex"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
