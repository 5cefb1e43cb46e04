package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Analytics event names emitted by the ingestion and vision paths.
const (
	EventAdminAction  = "admin_action"
	EventFormSuccess  = "form_success"
	EventFormError    = "form_error"
	EventVisionAction = "vision_action"
	EventVisionError  = "vision_error"
)

// AnalyticsClient sends capture events to the analytics collector. Every call
// is best-effort: failures are logged and swallowed — analytics must never
// change a request's outcome.
type AnalyticsClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAnalyticsClient(baseURL, apiKey string) *AnalyticsClient {
	return &AnalyticsClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Capture posts one event. Safe to call on a nil client (analytics disabled).
func (c *AnalyticsClient) Capture(ctx context.Context, event, distinctID string, properties map[string]interface{}) {
	if c == nil || c.BaseURL == "" {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"api_key":     c.APIKey,
		"event":       event,
		"distinct_id": distinctID,
		"properties":  properties,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("⚠️ [ANALYTICS] Failed to marshal %s event: %v", event, err)
		return
	}

	url := fmt.Sprintf("%s/capture", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		log.Printf("⚠️ [ANALYTICS] Failed to build %s request: %v", event, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		log.Printf("⚠️ [ANALYTICS] Failed to send %s event: %v", event, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("⚠️ [ANALYTICS] Collector returned %d for %s event", resp.StatusCode, event)
	}
}
