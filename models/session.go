// models/session.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Session is one recorded play session tied to a source video. Its whole
// subgraph (sets → matches → player sessions → player stats) is created in a
// single transaction by the ingestion service — partial graphs are never
// visible to readers.
type Session struct {
	ID          int       `json:"sessionId" gorm:"primaryKey;autoIncrement"`
	GameID      int       `json:"gameId" gorm:"index;not null"`
	SessionName string    `json:"sessionName" gorm:"not null"`
	SessionURL  string    `json:"sessionUrl"`
	URLSlug     string    `json:"urlSlug" gorm:"index"`
	Thumbnail   string    `json:"thumbnail"`
	Date        time.Time `json:"date"`

	// External video identifier — unique across all sessions. Insertion fails,
	// never overwrites, on collision (unique constraint is the authoritative
	// guard; the service pre-check only gives the friendly error).
	VideoID string `json:"videoId" gorm:"uniqueIndex;not null"`

	MvpPlayerID *int `json:"mvpPlayerId,omitempty" gorm:"index"`

	// Set when a stat write bypasses winner recomputation; the scheduler picks
	// these up and rebuilds the derived winner rows.
	WinnersStale bool `json:"winners_stale" gorm:"default:false;index"`

	DayWinners []SessionDayWinner `json:"dayWinners,omitempty" gorm:"foreignKey:SessionID"`
	Sets       []GameSet          `json:"sets,omitempty" gorm:"foreignKey:SessionID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// GameSet is an ordered grouping of matches within a session (e.g., a "best of").
type GameSet struct {
	ID        int `json:"setId" gorm:"primaryKey;autoIncrement"`
	SessionID int `json:"sessionId" gorm:"index;not null"`
	SetOrder  int `json:"setOrder" gorm:"default:0"`

	SetWinners []SetWinner `json:"setWinners,omitempty" gorm:"foreignKey:SetID"`
	Matches    []Match     `json:"matches,omitempty" gorm:"foreignKey:SetID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Match is one round of play within a set. Match winners must be a subset of
// the players present in the match's player sessions.
type Match struct {
	ID         int `json:"matchId" gorm:"primaryKey;autoIncrement"`
	SetID      int `json:"setId" gorm:"index;not null"`
	MatchOrder int `json:"matchOrder" gorm:"default:0"`

	MatchWinners   []MatchWinner   `json:"matchWinners,omitempty" gorm:"foreignKey:MatchID"`
	PlayerSessions []PlayerSession `json:"playerSessions,omitempty" gorm:"foreignKey:MatchID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerSession is one player's participation record within a match.
type PlayerSession struct {
	ID      int `json:"playerSessionId" gorm:"primaryKey;autoIncrement"`
	MatchID int `json:"matchId" gorm:"index;not null"`
	PlayerID int `json:"playerId" gorm:"index;not null"`

	// Optional display override (e.g., an in-game gamertag for this session)
	PlayerSessionName string `json:"playerSessionName,omitempty"`

	PlayerStats []PlayerStat `json:"playerStats,omitempty" gorm:"foreignKey:PlayerSessionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerStat is one validated (statId, statName, statValue) triple for a player
// within a match. Value is stored as text but must satisfy the stat's expected
// shape (numeric, boolean-as-0/1) per the game's processor rules.
type PlayerStat struct {
	ID              int    `json:"playerStatId" gorm:"primaryKey;autoIncrement"`
	PlayerSessionID int    `json:"playerSessionId" gorm:"index;not null"`
	GameStatID      int    `json:"statId" gorm:"index;not null"`
	StatName        string `json:"stat" gorm:"not null"`
	Value           string `json:"statValue" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

// Winner rows are a maintained read-cache derived from PlayerStat data —
// recomputable, persisted for fast reads. (playerId, playerName) pairs.

type SessionDayWinner struct {
	ID         int    `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID  int    `json:"sessionId" gorm:"index;not null"`
	PlayerID   int    `json:"playerId" gorm:"not null"`
	PlayerName string `json:"playerName"`
}

type SetWinner struct {
	ID         int    `json:"id" gorm:"primaryKey;autoIncrement"`
	SetID      int    `json:"setId" gorm:"index;not null"`
	PlayerID   int    `json:"playerId" gorm:"not null"`
	PlayerName string `json:"playerName"`
}

type MatchWinner struct {
	ID         int    `json:"id" gorm:"primaryKey;autoIncrement"`
	MatchID    int    `json:"matchId" gorm:"index;not null"`
	PlayerID   int    `json:"playerId" gorm:"not null"`
	PlayerName string `json:"playerName"`
}
