// services/vision_service.go
package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"session-stats-service/models"
	"session-stats-service/processors"
	"session-stats-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VisionService runs the screenshot-to-stats pipeline: resolve the game's
// processor, extract fields, map them to players, validate every stat, compute
// winners, and render the final verdict. Persistence happens later, after the
// operator reviews the result.
type VisionService struct {
	DB        *gorm.DB
	Store     SessionStore
	Extractor FieldExtractor
	Analytics *AnalyticsClient
}

func NewVisionService(db *gorm.DB, extractor FieldExtractor, analytics *AnalyticsClient) *VisionService {
	return &VisionService{
		DB:        db,
		Store:     NewGormSessionStore(db),
		Extractor: extractor,
		Analytics: analytics,
	}
}

// AnalyzeScreenshot never returns an error — every failure mode collapses into
// a Failed result with the underlying message, and low-confidence output comes
// back as CheckRequest with the data attached.
func (s *VisionService) AnalyzeScreenshot(ctx context.Context, imageB64 string, roster []models.Player, gameID int) processors.Result {
	processor, err := processors.ForGame(gameID)
	if err != nil {
		return processors.Result{Status: processors.ResultFailed, Message: err.Error()}
	}

	fields, err := s.Extractor.Extract(ctx, imageB64, gameID)
	if err != nil {
		log.Printf("❌ [VISION] Extraction failed for game %d: %v", gameID, err)
		s.captureVision(EventVisionError, gameID, map[string]interface{}{"error": err.Error()})
		return processors.Result{Status: processors.ResultFailed, Message: err.Error()}
	}

	players, reqCheckFlag := processor.ProcessPlayers(fields, roster)

	// Run every raw value through the processor's coercion, keyed by the
	// game's stat definitions. Review flags OR upward: stat → player → result.
	defs, err := s.Store.FindGameStats(ctx, gameID)
	if err != nil {
		log.Printf("❌ [VISION] Stat definitions unavailable for game %d: %v", gameID, err)
		return processors.Result{Status: processors.ResultFailed, Message: "Stat definitions are unavailable"}
	}
	defByName := make(map[string]models.GameStat, len(defs))
	for _, d := range defs {
		defByName[d.StatName] = d
	}
	for pi := range players {
		for si := range players[pi].Stats {
			line := &players[pi].Stats[si]
			value, reqCheck := processor.ValidateStats(line.StatValue, defByName[line.StatName])
			line.StatValue = value
			line.ReqCheck = reqCheck
		}
	}

	winners := processor.CalculateWinners(players)
	result := processor.ValidateResults(players, winners)

	if reqCheckFlag && result.Status == processors.ResultSuccess {
		result.Status = processors.ResultCheckRequest
		result.Message = "Some players could not be matched — confirm before saving"
	}

	s.archiveScreenshot(imageB64, gameID)
	s.captureVision(EventVisionAction, gameID, map[string]interface{}{
		"status":  result.Status,
		"players": len(players),
	})
	return result
}

// archiveScreenshot stores the analyzed image in R2 for audit. Best effort —
// an archive failure never fails the analysis.
func (s *VisionService) archiveScreenshot(imageB64 string, gameID int) {
	raw, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		log.Printf("⚠️ [VISION] Screenshot not archivable (bad base64): %v", err)
		return
	}
	go func() {
		key := fmt.Sprintf("screenshots/game%d/%s.png", gameID, uuid.NewString())
		if _, err := utils.UploadBytesToR2(raw, key, "image/png"); err != nil {
			log.Printf("⚠️ [VISION] Screenshot archive failed: %v", err)
		}
	}()
}

func (s *VisionService) captureVision(event string, gameID int, props map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		props["gameId"] = gameID
		s.Analytics.Capture(ctx, event, "vision", props)
	}()
}

// --- HTTP surface ---

type analyzeRequest struct {
	Image   string          `json:"image"` // base64
	GameID  int             `json:"gameId"`
	Players []models.Player `json:"players,omitempty"`
}

// AnalyzeScreenshotHandler accepts a base64 screenshot plus the game id and
// answers with the processor verdict. When the caller doesn't send a roster,
// the full player table is used for name matching.
func (s *VisionService) AnalyzeScreenshotHandler(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid analyze payload"})
	}
	if req.Image == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image is required"})
	}

	roster := req.Players
	if len(roster) == 0 {
		if err := s.DB.WithContext(c.UserContext()).Find(&roster).Error; err != nil {
			log.Printf("❌ [VISION] Roster load failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load players"})
		}
	}

	result := s.AnalyzeScreenshot(c.UserContext(), req.Image, roster, req.GameID)
	return c.JSON(result)
}
