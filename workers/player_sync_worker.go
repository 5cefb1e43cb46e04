// workers/player_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"session-stats-service/models"
	"session-stats-service/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RosterPlayer matches the JSON response from the roster service.
type RosterPlayer struct {
	ExternalID string    `json:"external_id"`
	PlayerName string    `json:"player_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetPlayerChangesResponse is the top-level structure of the roster service response.
type GetPlayerChangesResponse struct {
	Players []RosterPlayer `json:"players"`
}

// PlayerSyncWorker mirrors the Player reference table from the roster
// service. Players are created independently of sessions — the ingestion path
// never creates them.
type PlayerSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/roster/players"
	serviceToken string
	httpClient   *http.Client
}

func NewPlayerSyncWorker(db *gorm.DB, rosterBaseURL, endpointPath, serviceToken string) *PlayerSyncWorker {
	return &PlayerSyncWorker{
		db:           db,
		interval:     5 * time.Minute,
		baseURL:      rosterBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *PlayerSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Player Sync Worker (roster service → players)…")
	go w.run(ctx)
}

func (w *PlayerSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial roster sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ Roster sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Player Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt from the local players table.
func (w *PlayerSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM players WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches roster changes and upserts the local Player table.
func (w *PlayerSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid roster service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to roster service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Roster service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return fmt.Errorf("roster service non-200 response: %d", resp.StatusCode)
	}

	var response GetPlayerChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode roster service response: %w", err)
	}

	if len(response.Players) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d player(s) from roster service…", len(response.Players))

	var upsertCount, errorCount int
	for _, remote := range response.Players {
		local := models.Player{
			ExternalID: remote.ExternalID,
			PlayerName: remote.PlayerName,
			CreatedAt:  remote.CreatedAt,
			UpdatedAt:  remote.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"player_name", "updated_at"}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert player (external_id=%q, name=%q): %v",
				remote.ExternalID, remote.PlayerName, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d players (%d upserted, %d errors)", len(response.Players), upsertCount, errorCount)
	return nil
}
