package services

import (
	"log"

	"session-stats-service/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GameService serves the reference data the admin form is generated from:
// supported games, their stat definitions, and the player roster.
type GameService struct {
	DB *gorm.DB
}

func NewGameService(db *gorm.DB) *GameService {
	return &GameService{DB: db}
}

func (s *GameService) GetAllGames(c *fiber.Ctx) error {
	var games []models.Game
	if err := s.DB.WithContext(c.UserContext()).Order("id").Find(&games).Error; err != nil {
		log.Printf("❌ [GAMES] Listing query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load games"})
	}
	return c.JSON(games)
}

// GetGameStats returns the stat definitions for one game — the admin UI builds
// its per-player stat inputs from these.
func (s *GameService) GetGameStats(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}

	var stats []models.GameStat
	if err := s.DB.WithContext(c.UserContext()).Where("game_id = ?", id).Order("id").Find(&stats).Error; err != nil {
		log.Printf("❌ [GAMES] Stat query failed for game %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load game stats"})
	}
	if len(stats) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
	}
	return c.JSON(stats)
}

func (s *GameService) GetAllPlayers(c *fiber.Ctx) error {
	var players []models.Player
	if err := s.DB.WithContext(c.UserContext()).Order("id").Find(&players).Error; err != nil {
		log.Printf("❌ [PLAYERS] Listing query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load players"})
	}
	return c.JSON(players)
}
