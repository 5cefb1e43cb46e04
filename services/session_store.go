// services/session_store.go
package services

import (
	"context"
	"errors"

	"session-stats-service/models"

	"gorm.io/gorm"
)

// SessionStore is the persistence boundary for session ingestion. The GORM
// implementation below is the real one; tests use an in-memory fake so the
// all-or-nothing scenarios can be driven without a database.
type SessionStore interface {
	FindGameByName(ctx context.Context, name string) (*models.Game, error)
	FindGameStats(ctx context.Context, gameID int) ([]models.GameStat, error)
	SessionExistsByVideoID(ctx context.Context, videoID string) (bool, error)
	// FindStaleSessions loads every winners_stale session with its full
	// set/match/stat graph for the recompute job.
	FindStaleSessions(ctx context.Context) ([]models.Session, error)
	FindAllPlayers(ctx context.Context) ([]models.Player, error)

	// InTransaction runs fn inside one transaction. Any error from fn aborts
	// the whole transaction — nothing from the call becomes visible.
	InTransaction(ctx context.Context, fn func(tx SessionTx) error) error
}

// SessionTx is the write surface available inside an ingestion transaction.
// Creation order is enforced by the caller: children need their parent's
// generated id.
type SessionTx interface {
	CreateSession(s *models.Session) error
	CreateGameSet(set *models.GameSet) error
	CreateMatch(m *models.Match) error
	CreatePlayerSession(ps *models.PlayerSession) error
	// CreatePlayerStats bulk-inserts one player session's stat rows.
	CreatePlayerStats(stats []models.PlayerStat) error
	// AttachSetWinners is the update pass once all of a set's matches exist.
	AttachSetWinners(setID int, winners []models.SetWinner) error
	CreateDayWinners(winners []models.SessionDayWinner) error

	// Replace* swap the derived winner rows wholesale during a recompute.
	ReplaceMatchWinners(matchID int, winners []models.MatchWinner) error
	ReplaceSetWinners(setID int, winners []models.SetWinner) error
	ClearWinnersStale(sessionID int) error
}

// --- GORM implementation ---

type GormSessionStore struct {
	DB *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{DB: db}
}

func (s *GormSessionStore) FindGameByName(ctx context.Context, name string) (*models.Game, error) {
	var game models.Game
	err := s.DB.WithContext(ctx).Where("game_name = ?", name).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *GormSessionStore) FindGameStats(ctx context.Context, gameID int) ([]models.GameStat, error) {
	var stats []models.GameStat
	err := s.DB.WithContext(ctx).Where("game_id = ?", gameID).Find(&stats).Error
	return stats, err
}

func (s *GormSessionStore) SessionExistsByVideoID(ctx context.Context, videoID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("video_id = ?", videoID).Count(&count).Error
	return count > 0, err
}

func (s *GormSessionStore) FindStaleSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := s.DB.WithContext(ctx).
		Where("winners_stale = ?", true).
		Preload("Sets.Matches.PlayerSessions.PlayerStats").
		Find(&sessions).Error
	return sessions, err
}

func (s *GormSessionStore) FindAllPlayers(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	err := s.DB.WithContext(ctx).Find(&players).Error
	return players, err
}

func (s *GormSessionStore) InTransaction(ctx context.Context, fn func(tx SessionTx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSessionTx{tx: tx})
	})
}

type gormSessionTx struct {
	tx *gorm.DB
}

func (t *gormSessionTx) CreateSession(s *models.Session) error {
	return t.tx.Create(s).Error
}

func (t *gormSessionTx) CreateGameSet(set *models.GameSet) error {
	return t.tx.Create(set).Error
}

func (t *gormSessionTx) CreateMatch(m *models.Match) error {
	return t.tx.Create(m).Error
}

func (t *gormSessionTx) CreatePlayerSession(ps *models.PlayerSession) error {
	return t.tx.Create(ps).Error
}

func (t *gormSessionTx) CreatePlayerStats(stats []models.PlayerStat) error {
	if len(stats) == 0 {
		return nil
	}
	return t.tx.CreateInBatches(stats, 100).Error
}

func (t *gormSessionTx) AttachSetWinners(setID int, winners []models.SetWinner) error {
	if len(winners) == 0 {
		return nil
	}
	for i := range winners {
		winners[i].SetID = setID
	}
	return t.tx.Create(&winners).Error
}

func (t *gormSessionTx) CreateDayWinners(winners []models.SessionDayWinner) error {
	if len(winners) == 0 {
		return nil
	}
	return t.tx.Create(&winners).Error
}

func (t *gormSessionTx) ReplaceMatchWinners(matchID int, winners []models.MatchWinner) error {
	if err := t.tx.Where("match_id = ?", matchID).Delete(&models.MatchWinner{}).Error; err != nil {
		return err
	}
	if len(winners) == 0 {
		return nil
	}
	return t.tx.Create(&winners).Error
}

func (t *gormSessionTx) ReplaceSetWinners(setID int, winners []models.SetWinner) error {
	if err := t.tx.Where("set_id = ?", setID).Delete(&models.SetWinner{}).Error; err != nil {
		return err
	}
	if len(winners) == 0 {
		return nil
	}
	return t.tx.Create(&winners).Error
}

func (t *gormSessionTx) ClearWinnersStale(sessionID int) error {
	return t.tx.Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("winners_stale", false).Error
}
