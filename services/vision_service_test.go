package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"session-stats-service/models"
	"session-stats-service/processors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	fields processors.RawFieldMap
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, imageB64 string, gameID int) (processors.RawFieldMap, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fields, nil
}

func codVisionStore() *fakeStore {
	store := newFakeStore()
	store.stats[models.GameCallOfDuty] = []models.GameStat{
		{ID: 1, GameID: models.GameCallOfDuty, StatName: "COD_SCORE", Type: models.StatTypeNumeric},
		{ID: 2, GameID: models.GameCallOfDuty, StatName: "COD_KILLS", Type: models.StatTypeNumeric},
		{ID: 3, GameID: models.GameCallOfDuty, StatName: "COD_DEATHS", Type: models.StatTypeNumeric},
	}
	return store
}

func newVisionService(store *fakeStore, extractor FieldExtractor) *VisionService {
	return &VisionService{Store: store, Extractor: extractor}
}

var testImage = base64.StdEncoding.EncodeToString([]byte("screenshot"))

var testRoster = []models.Player{
	{ID: 1, PlayerName: "Ben"},
	{ID: 2, PlayerName: "Dylan"},
}

func TestAnalyzeScreenshotInvalidGameID(t *testing.T) {
	svc := newVisionService(codVisionStore(), &fakeExtractor{})

	res := svc.AnalyzeScreenshot(context.Background(), testImage, testRoster, 999)
	assert.Equal(t, processors.ResultFailed, res.Status)
	assert.Equal(t, "Invalid game id: 999", res.Message)
}

func TestAnalyzeScreenshotPollerError(t *testing.T) {
	svc := newVisionService(codVisionStore(), &fakeExtractor{err: errors.New("Poller Error")})

	res := svc.AnalyzeScreenshot(context.Background(), testImage, testRoster, models.GameCallOfDuty)
	assert.Equal(t, processors.ResultFailed, res.Status)
	assert.Equal(t, "Poller Error", res.Message)
}

func TestAnalyzeScreenshotEmptyResults(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no analyze result", ErrNoAnalyzeResult},
		{"no player fields", ErrNoPlayerFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newVisionService(codVisionStore(), &fakeExtractor{err: tt.err})
			res := svc.AnalyzeScreenshot(context.Background(), testImage, testRoster, models.GameCallOfDuty)
			assert.Equal(t, processors.ResultFailed, res.Status)
			assert.Equal(t, tt.err.Error(), res.Message)
		})
	}
}

func TestAnalyzeScreenshotSuccess(t *testing.T) {
	extractor := &fakeExtractor{fields: processors.RawFieldMap{
		"player1": "Ben", "score1": "100", "kills1": "18", "deaths1": "7",
		"player2": "Dylan", "score2": "85", "kills2": "15", "deaths2": "11",
	}}
	svc := newVisionService(codVisionStore(), extractor)

	res := svc.AnalyzeScreenshot(context.Background(), testImage, testRoster, models.GameCallOfDuty)
	require.Equal(t, processors.ResultSuccess, res.Status)
	require.NotNil(t, res.Data)
	require.Len(t, res.Data.Players, 2)
	require.Len(t, res.Data.Winner, 1)
	assert.Equal(t, 1, res.Data.Winner[0].PlayerID)
}

// A misread score must not fail the pipeline — it coerces to a default and the
// whole result asks for review.
func TestAnalyzeScreenshotUnreadableStatGoesToReview(t *testing.T) {
	extractor := &fakeExtractor{fields: processors.RawFieldMap{
		"player1": "Ben", "score1": "???",
		"player2": "Dylan", "score2": "85",
	}}
	svc := newVisionService(codVisionStore(), extractor)

	res := svc.AnalyzeScreenshot(context.Background(), testImage, testRoster, models.GameCallOfDuty)
	require.Equal(t, processors.ResultCheckRequest, res.Status)
	require.NotNil(t, res.Data)

	ben := res.Data.Players[0]
	assert.Equal(t, "0", ben.Stats[0].StatValue)
	assert.True(t, ben.Stats[0].ReqCheck)
}

func TestAnalyzeScreenshotUnknownPlayerGoesToReview(t *testing.T) {
	extractor := &fakeExtractor{fields: processors.RawFieldMap{
		"player1": "Stranger", "score1": "50",
		"player2": "Ben", "score2": "40",
	}}
	svc := newVisionService(codVisionStore(), extractor)

	res := svc.AnalyzeScreenshot(context.Background(), testImage, testRoster, models.GameCallOfDuty)
	assert.Equal(t, processors.ResultCheckRequest, res.Status)
}
