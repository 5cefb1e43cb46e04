// services/vision_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"session-stats-service/models"
	"session-stats-service/processors"
)

// FieldExtractor is the boundary to the external document-recognition
// service: image in, recognized field map out. Kept as an interface so the
// vision pipeline can be exercised without the remote service.
type FieldExtractor interface {
	Extract(ctx context.Context, imageB64 string, gameID int) (processors.RawFieldMap, error)
}

// Typed empty-result failures — surfaced verbatim in the analysis message.
var (
	ErrNoAnalyzeResult = errors.New("Analyze result or documents are undefined")
	ErrNoPlayerFields  = errors.New("Vision Analysis Player Results are undefined")
)

// visionModels maps each game to the recognition model trained on its
// scoreboard layout.
var visionModels = map[int]string{
	models.GameMarioKart8:   "mk8-scoreboard",
	models.GameRocketLeague: "rl-scoreboard",
	models.GameCallOfDuty:   "cod-gungame-scoreboard",
	models.GameMarvelRivals: "mr-scoreboard",
}

// VisionClient talks to the document-intelligence REST service: submit the
// image, then poll the returned operation until it completes. No business
// logic lives here.
type VisionClient struct {
	BaseURL      string
	APIKey       string
	Client       *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func NewVisionClient(baseURL, apiKey string) *VisionClient {
	return &VisionClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		PollInterval: 2 * time.Second,
		PollTimeout:  90 * time.Second,
	}
}

type analyzeOperation struct {
	Status        string `json:"status"`
	Error         *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	AnalyzeResult *struct {
		Documents []struct {
			Fields map[string]struct {
				Content string `json:"content"`
			} `json:"fields"`
		} `json:"documents"`
	} `json:"analyzeResult,omitempty"`
}

// Extract submits the base64 image against the game's model and polls until
// the recognition job finishes. The poll honors a bounded timeout rather than
// hang on a stuck operation.
func (c *VisionClient) Extract(ctx context.Context, imageB64 string, gameID int) (processors.RawFieldMap, error) {
	model, ok := visionModels[gameID]
	if !ok {
		return nil, fmt.Errorf("Invalid game id: %d", gameID)
	}

	opURL, err := c.submit(ctx, model, imageB64)
	if err != nil {
		return nil, err
	}

	op, err := c.pollUntilDone(ctx, opURL)
	if err != nil {
		return nil, err
	}

	if op.AnalyzeResult == nil || len(op.AnalyzeResult.Documents) == 0 {
		return nil, ErrNoAnalyzeResult
	}
	fields := op.AnalyzeResult.Documents[0].Fields
	if len(fields) == 0 {
		return nil, ErrNoPlayerFields
	}

	out := make(processors.RawFieldMap, len(fields))
	for name, f := range fields {
		out[name] = f.Content
	}
	return out, nil
}

func (c *VisionClient) submit(ctx context.Context, model, imageB64 string) (string, error) {
	url := fmt.Sprintf("%s/documentModels/%s:analyze?api-version=2024-11-30", c.BaseURL, model)

	body, _ := json.Marshal(map[string]string{"base64Source": imageB64})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		log.Printf("❌ [VISION] Analyze submit returned %d: %s", resp.StatusCode, string(raw))
		return "", fmt.Errorf("vision analyze submit failed: %d", resp.StatusCode)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", errors.New("vision service returned no Operation-Location")
	}
	return opURL, nil
}

func (c *VisionClient) pollUntilDone(ctx context.Context, opURL string) (*analyzeOperation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		op, err := c.getOperation(ctx, opURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("vision analysis timed out after %s", c.PollTimeout)
			}
			return nil, err
		}
		switch op.Status {
		case "succeeded":
			return op, nil
		case "failed", "canceled":
			msg := "vision analysis " + op.Status
			if op.Error != nil && op.Error.Message != "" {
				msg = op.Error.Message
			}
			return nil, errors.New(msg)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("vision analysis timed out after %s", c.PollTimeout)
		case <-ticker.C:
		}
	}
}

func (c *VisionClient) getOperation(ctx context.Context, opURL string) (*analyzeOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ [VISION] Operation poll returned %d: %s", resp.StatusCode, string(raw))
		return nil, fmt.Errorf("vision operation poll failed: %d", resp.StatusCode)
	}

	var op analyzeOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, err
	}
	return &op, nil
}
