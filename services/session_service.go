// services/session_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"session-stats-service/models"
	"session-stats-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error codes surfaced across the ingestion boundary. Internal detail never
// leaks past these — it goes to the server log instead.
const (
	ErrNotAuthenticated = "Not authenticated."
	ErrNotAuthorized    = "Not authorized."
	ErrGameNotFound     = "Game not found."
	ErrVideoExists      = "Video already exists."
	ErrUnknown          = "Unknown error occurred. Please try again."
)

// --- ingestion payload (fully-typed session data, manual or reviewed vision output) ---

type WinnerInput struct {
	PlayerID   int    `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type PlayerStatInput struct {
	StatID    string `json:"statId"`
	Stat      string `json:"stat"`
	StatValue string `json:"statValue"`
}

type PlayerSessionInput struct {
	PlayerID          int               `json:"playerId"`
	PlayerSessionName string            `json:"playerSessionName,omitempty"`
	PlayerStats       []PlayerStatInput `json:"playerStats"`
}

type MatchInput struct {
	MatchWinners   []WinnerInput        `json:"matchWinners"`
	PlayerSessions []PlayerSessionInput `json:"playerSessions"`
}

type SetInput struct {
	SetID      int           `json:"setId,omitempty"`
	SetWinners []WinnerInput `json:"setWinners"`
	Matches    []MatchInput  `json:"matches"`
}

type SessionInput struct {
	Game        string        `json:"game"`
	SessionName string        `json:"sessionName"`
	SessionURL  string        `json:"sessionUrl"`
	Thumbnail   string        `json:"thumbnail"`
	Date        time.Time     `json:"date"`
	VideoID     string        `json:"videoId"`
	Players     []WinnerInput `json:"players"`
	Sets        []SetInput    `json:"sets"`
	DayWinners  []WinnerInput `json:"dayWinners,omitempty"`
	MvpPlayerID *int          `json:"mvpPlayerId,omitempty"`
}

type SessionService struct {
	DB        *gorm.DB
	Store     SessionStore
	Auth      AuthGate
	Cache     *SessionCache
	Analytics *AnalyticsClient
}

func NewSessionService(db *gorm.DB, auth AuthGate, cache *SessionCache, analytics *AnalyticsClient) *SessionService {
	return &SessionService{
		DB:        db,
		Store:     NewGormSessionStore(db),
		Auth:      auth,
		Cache:     cache,
		Analytics: analytics,
	}
}

// InsertSession persists a full session graph. Returns "" on success or one of
// the error codes above — it never panics across this boundary.
//
// Entity creation is strictly ordered Session → GameSet → Match →
// PlayerSession → PlayerStat inside one transaction; set and day winners are
// attached by an update pass once the children exist. Any failure aborts the
// whole transaction.
func (s *SessionService) InsertSession(ctx context.Context, token string, input SessionInput) (code string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [INGEST] Panic during session insert (video %s): %v", input.VideoID, r)
			code = ErrUnknown
		}
	}()

	// 1. Authorize before any work
	authSession, err := s.Auth.GetSession(ctx, token)
	if err != nil {
		log.Printf("❌ [INGEST] Auth lookup failed: %v", err)
		return ErrUnknown
	}
	if authSession == nil {
		return ErrNotAuthenticated
	}
	if authSession.User.Role != RoleAdmin {
		log.Printf("🚫 [INGEST] %s (role %q) attempted session insert", authSession.User.Email, authSession.User.Role)
		return ErrNotAuthorized
	}

	// 2. Resolve the game
	game, err := s.Store.FindGameByName(ctx, input.Game)
	if err != nil {
		log.Printf("❌ [INGEST] Game lookup failed: %v", err)
		return ErrUnknown
	}
	if game == nil {
		return ErrGameNotFound
	}

	// 3. Validate stat references and winner subsets before touching tables
	if msg := s.validateInput(ctx, game.ID, input); msg != "" {
		return msg
	}

	// 4. Video uniqueness pre-check (friendly error; the unique constraint is
	// the authoritative guard under concurrent writers)
	exists, err := s.Store.SessionExistsByVideoID(ctx, input.VideoID)
	if err != nil {
		log.Printf("❌ [INGEST] Video pre-check failed: %v", err)
		return ErrUnknown
	}
	if exists {
		return ErrVideoExists
	}

	// 5. One atomic transaction for the whole graph
	err = s.Store.InTransaction(ctx, func(tx SessionTx) error {
		return s.insertGraph(tx, game.ID, input)
	})
	if err != nil {
		if isVideoUniqueViolation(err) {
			// two concurrent inserts raced the pre-check
			return ErrVideoExists
		}
		log.Printf("❌ [INGEST] Transaction failed (video %s): %v", input.VideoID, err)
		return ErrUnknown
	}

	log.Printf("✅ [INGEST] Session %q saved (%d sets, video %s) by %s",
		input.SessionName, len(input.Sets), input.VideoID, authSession.User.Email)

	// 6. Best-effort side effects — never affect the outcome
	s.afterCommit(authSession.User.Email, input)

	return ""
}

// validateInput enforces the referential business rules the schema alone
// cannot: stat ids must belong to the session's game, match winners must be
// players present in the match, and every player session must reference a
// player from the payload's declared roster.
func (s *SessionService) validateInput(ctx context.Context, gameID int, input SessionInput) string {
	stats, err := s.Store.FindGameStats(ctx, gameID)
	if err != nil {
		log.Printf("❌ [INGEST] Stat lookup failed: %v", err)
		return ErrUnknown
	}
	statByID := make(map[int]models.GameStat, len(stats))
	for _, st := range stats {
		statByID[st.ID] = st
	}
	roster := make(map[int]bool, len(input.Players))
	for _, p := range input.Players {
		roster[p.PlayerID] = true
	}

	for _, set := range input.Sets {
		for _, match := range set.Matches {
			inMatch := make(map[int]bool, len(match.PlayerSessions))
			for _, ps := range match.PlayerSessions {
				if len(roster) > 0 && !roster[ps.PlayerID] {
					return fmt.Sprintf("Player %d is not in the session.", ps.PlayerID)
				}
				inMatch[ps.PlayerID] = true
				for _, stat := range ps.PlayerStats {
					id, err := strconv.Atoi(stat.StatID)
					if err != nil {
						return fmt.Sprintf("Invalid stat id: %s", stat.StatID)
					}
					if _, ok := statByID[id]; !ok {
						return fmt.Sprintf("Stat %s does not belong to this game.", stat.Stat)
					}
				}
			}
			for _, w := range match.MatchWinners {
				if !inMatch[w.PlayerID] {
					return fmt.Sprintf("Match winner %s is not in the match.", w.PlayerName)
				}
			}
		}
	}
	return ""
}

// insertGraph runs inside the transaction and creates the graph top-down.
func (s *SessionService) insertGraph(tx SessionTx, gameID int, input SessionInput) error {
	session := &models.Session{
		GameID:      gameID,
		SessionName: input.SessionName,
		SessionURL:  input.SessionURL,
		URLSlug:     slug.Make(input.SessionName),
		Thumbnail:   input.Thumbnail,
		Date:        input.Date,
		VideoID:     input.VideoID,
		MvpPlayerID: input.MvpPlayerID,
		// payloads without winner data get theirs derived by the scheduler
		WinnersStale: missingWinners(input),
	}
	if err := tx.CreateSession(session); err != nil {
		return err
	}

	for setOrder, setInput := range input.Sets {
		set := &models.GameSet{SessionID: session.ID, SetOrder: setOrder + 1}
		if err := tx.CreateGameSet(set); err != nil {
			return err
		}

		for matchOrder, matchInput := range setInput.Matches {
			match := &models.Match{SetID: set.ID, MatchOrder: matchOrder + 1}
			for _, w := range matchInput.MatchWinners {
				match.MatchWinners = append(match.MatchWinners, models.MatchWinner{
					PlayerID: w.PlayerID, PlayerName: w.PlayerName,
				})
			}
			if err := tx.CreateMatch(match); err != nil {
				return err
			}

			for _, psInput := range matchInput.PlayerSessions {
				ps := &models.PlayerSession{
					MatchID:           match.ID,
					PlayerID:          psInput.PlayerID,
					PlayerSessionName: psInput.PlayerSessionName,
				}
				if err := tx.CreatePlayerSession(ps); err != nil {
					return err
				}

				playerStats := make([]models.PlayerStat, 0, len(psInput.PlayerStats))
				for _, stat := range psInput.PlayerStats {
					statID, _ := strconv.Atoi(stat.StatID) // validated above
					playerStats = append(playerStats, models.PlayerStat{
						PlayerSessionID: ps.ID,
						GameStatID:      statID,
						StatName:        stat.Stat,
						Value:           stat.StatValue,
					})
				}
				if err := tx.CreatePlayerStats(playerStats); err != nil {
					return err
				}
			}
		}

		// set winners attach once all of the set's matches are in
		setWinners := make([]models.SetWinner, 0, len(setInput.SetWinners))
		for _, w := range setInput.SetWinners {
			setWinners = append(setWinners, models.SetWinner{
				PlayerID: w.PlayerID, PlayerName: w.PlayerName,
			})
		}
		if err := tx.AttachSetWinners(set.ID, setWinners); err != nil {
			return err
		}
	}

	dayWinners := make([]models.SessionDayWinner, 0, len(input.DayWinners))
	for _, w := range input.DayWinners {
		dayWinners = append(dayWinners, models.SessionDayWinner{
			SessionID: session.ID, PlayerID: w.PlayerID, PlayerName: w.PlayerName,
		})
	}
	return tx.CreateDayWinners(dayWinners)
}

// missingWinners reports whether any match in the payload carries stat rows
// but no winner list.
func missingWinners(input SessionInput) bool {
	for _, set := range input.Sets {
		for _, match := range set.Matches {
			if len(match.MatchWinners) == 0 && len(match.PlayerSessions) > 0 {
				return true
			}
		}
	}
	return false
}

// afterCommit fires cache invalidation and analytics off the request path.
func (s *SessionService) afterCommit(adminEmail string, input SessionInput) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if s.Cache != nil {
			s.Cache.Invalidate(ctx)
		}
		s.Analytics.Capture(ctx, EventAdminAction, adminEmail, map[string]interface{}{
			"action":  "insert_session",
			"game":    input.Game,
			"videoId": input.VideoID,
			"sets":    len(input.Sets),
		})
		s.Analytics.Capture(ctx, EventFormSuccess, adminEmail, map[string]interface{}{
			"game":    input.Game,
			"videoId": input.VideoID,
		})
	}()
}

// isVideoUniqueViolation detects a duplicate-key error (SQLSTATE 23505) on the
// sessions video_id index. Other unique constraints keep their generic error;
// video_id is the only one the caller gets a friendly code for.
func isVideoUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" &&
		strings.Contains(pgErr.ConstraintName, "video_id")
}

// --- HTTP surface ---

// CreateSession is the admin ingestion endpoint. Always answers with an
// {error} envelope; error is null on success.
func (s *SessionService) CreateSession(c *fiber.Ctx) error {
	var input SessionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid session payload"})
	}

	token := bearerToken(c)
	code := s.InsertSession(c.UserContext(), token, input)
	if code != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.Analytics.Capture(ctx, EventFormError, input.VideoID, map[string]interface{}{"error": code})
		}()
	}
	switch code {
	case "":
		return c.JSON(fiber.Map{"error": nil})
	case ErrNotAuthenticated:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": code})
	case ErrNotAuthorized:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": code})
	case ErrUnknown:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": code})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": code})
	}
}

// UploadThumbnail receives a session thumbnail as a multipart file, stores it
// in R2 and answers with the public URL; the admin form puts that URL into the
// session payload's thumbnail field.
func (s *SessionService) UploadThumbnail(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("thumbnail")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "thumbnail file is required"})
	}

	ext := filepath.Ext(fileHeader.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := fmt.Sprintf("thumbnails/%s%s", uuid.NewString(), ext)

	url, err := utils.UploadFileToR2(fileHeader, key)
	if err != nil {
		log.Printf("❌ [INGEST] Thumbnail upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store thumbnail"})
	}
	return c.JSON(fiber.Map{"url": url})
}

// GetSessions lists sessions for the overview page, cache-assisted.
func (s *SessionService) GetSessions(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if s.Cache != nil {
		if raw := s.Cache.GetListing(ctx); raw != nil {
			c.Set("Content-Type", "application/json")
			return c.Send(raw)
		}
	}

	var sessions []models.Session
	if err := s.DB.WithContext(ctx).
		Preload("DayWinners").
		Order("date DESC").
		Limit(100).
		Find(&sessions).Error; err != nil {
		log.Printf("❌ [SESSIONS] Listing query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load sessions"})
	}

	if s.Cache != nil {
		if payload, err := json.Marshal(sessions); err == nil {
			s.Cache.SetListing(ctx, payload)
		}
	}
	return c.JSON(sessions)
}

// GetSessionByID returns one fully enriched session graph.
func (s *SessionService) GetSessionByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid session id"})
	}

	var session models.Session
	err = s.DB.WithContext(c.UserContext()).
		Preload("DayWinners").
		Preload("Sets.SetWinners").
		Preload("Sets.Matches.MatchWinners").
		Preload("Sets.Matches.PlayerSessions.PlayerStats").
		First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	if err != nil {
		log.Printf("❌ [SESSIONS] Session %d query failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load session"})
	}
	return c.JSON(session)
}

// bearerToken pulls the caller's session token off the request.
func bearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	return c.Cookies("session_token")
}
