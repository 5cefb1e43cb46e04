package services

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"session-stats-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeAuth struct {
	session *AuthSession
	err     error
}

func (f *fakeAuth) GetSession(ctx context.Context, token string) (*AuthSession, error) {
	return f.session, f.err
}

type committedGraph struct {
	sessions       []models.Session
	sets           []models.GameSet
	matches        []models.Match
	playerSessions []models.PlayerSession
	playerStats    []models.PlayerStat
	setWinners     []models.SetWinner
	dayWinners     []models.SessionDayWinner

	matchWinnerRows map[int][]models.MatchWinner
	setWinnerRows   map[int][]models.SetWinner
	staleCleared    []int
}

// fakeStore implements SessionStore in memory. InTransaction stages writes
// and only commits them when fn succeeds, so the all-or-nothing scenarios can
// be asserted directly.
type fakeStore struct {
	games         map[string]*models.Game
	stats         map[int][]models.GameStat
	videoSeen     map[string]bool
	staleSessions []models.Session
	players       []models.Player
	findErr       error
	findPanics    bool

	txFailOn  string // method name that should fail inside the transaction
	txFailErr error

	calls     []string
	committed committedGraph
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games: map[string]*models.Game{
			"Call of Duty": {ID: models.GameCallOfDuty, GameName: "Call of Duty"},
		},
		stats: map[int][]models.GameStat{
			models.GameCallOfDuty: {
				{ID: 1, GameID: models.GameCallOfDuty, StatName: "COD_SCORE", Type: models.StatTypeNumeric},
			},
		},
		videoSeen: map[string]bool{},
	}
}

func (f *fakeStore) FindGameByName(ctx context.Context, name string) (*models.Game, error) {
	f.calls = append(f.calls, "FindGameByName")
	if f.findPanics {
		panic("connection lost")
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.games[name], nil
}

func (f *fakeStore) FindGameStats(ctx context.Context, gameID int) ([]models.GameStat, error) {
	f.calls = append(f.calls, "FindGameStats")
	return f.stats[gameID], nil
}

func (f *fakeStore) SessionExistsByVideoID(ctx context.Context, videoID string) (bool, error) {
	f.calls = append(f.calls, "SessionExistsByVideoID")
	return f.videoSeen[videoID], nil
}

func (f *fakeStore) FindStaleSessions(ctx context.Context) ([]models.Session, error) {
	f.calls = append(f.calls, "FindStaleSessions")
	return f.staleSessions, nil
}

func (f *fakeStore) FindAllPlayers(ctx context.Context) ([]models.Player, error) {
	f.calls = append(f.calls, "FindAllPlayers")
	return f.players, nil
}

func (f *fakeStore) InTransaction(ctx context.Context, fn func(tx SessionTx) error) error {
	f.calls = append(f.calls, "InTransaction")
	staging := &fakeTx{store: f}
	if err := fn(staging); err != nil {
		return err // staged writes are discarded
	}
	f.committed = staging.graph
	return nil
}

type fakeTx struct {
	store *fakeStore
	graph committedGraph
}

func (t *fakeTx) fail(method string) error {
	if t.store.txFailOn == method {
		if t.store.txFailErr != nil {
			return t.store.txFailErr
		}
		return errors.New(method + " blew up")
	}
	return nil
}

func (t *fakeTx) CreateSession(s *models.Session) error {
	if err := t.fail("CreateSession"); err != nil {
		return err
	}
	s.ID = len(t.graph.sessions) + 1
	t.graph.sessions = append(t.graph.sessions, *s)
	return nil
}

func (t *fakeTx) CreateGameSet(set *models.GameSet) error {
	if err := t.fail("CreateGameSet"); err != nil {
		return err
	}
	set.ID = len(t.graph.sets) + 1
	t.graph.sets = append(t.graph.sets, *set)
	return nil
}

func (t *fakeTx) CreateMatch(m *models.Match) error {
	if err := t.fail("CreateMatch"); err != nil {
		return err
	}
	m.ID = len(t.graph.matches) + 1
	t.graph.matches = append(t.graph.matches, *m)
	return nil
}

func (t *fakeTx) CreatePlayerSession(ps *models.PlayerSession) error {
	if err := t.fail("CreatePlayerSession"); err != nil {
		return err
	}
	ps.ID = len(t.graph.playerSessions) + 1
	t.graph.playerSessions = append(t.graph.playerSessions, *ps)
	return nil
}

func (t *fakeTx) CreatePlayerStats(stats []models.PlayerStat) error {
	if err := t.fail("CreatePlayerStats"); err != nil {
		return err
	}
	t.graph.playerStats = append(t.graph.playerStats, stats...)
	return nil
}

func (t *fakeTx) AttachSetWinners(setID int, winners []models.SetWinner) error {
	if err := t.fail("AttachSetWinners"); err != nil {
		return err
	}
	t.graph.setWinners = append(t.graph.setWinners, winners...)
	return nil
}

func (t *fakeTx) CreateDayWinners(winners []models.SessionDayWinner) error {
	if err := t.fail("CreateDayWinners"); err != nil {
		return err
	}
	t.graph.dayWinners = append(t.graph.dayWinners, winners...)
	return nil
}

func (t *fakeTx) ReplaceMatchWinners(matchID int, winners []models.MatchWinner) error {
	if err := t.fail("ReplaceMatchWinners"); err != nil {
		return err
	}
	if t.graph.matchWinnerRows == nil {
		t.graph.matchWinnerRows = map[int][]models.MatchWinner{}
	}
	t.graph.matchWinnerRows[matchID] = winners
	return nil
}

func (t *fakeTx) ReplaceSetWinners(setID int, winners []models.SetWinner) error {
	if err := t.fail("ReplaceSetWinners"); err != nil {
		return err
	}
	if t.graph.setWinnerRows == nil {
		t.graph.setWinnerRows = map[int][]models.SetWinner{}
	}
	t.graph.setWinnerRows[setID] = winners
	return nil
}

func (t *fakeTx) ClearWinnersStale(sessionID int) error {
	if err := t.fail("ClearWinnersStale"); err != nil {
		return err
	}
	t.graph.staleCleared = append(t.graph.staleCleared, sessionID)
	return nil
}

// --- helpers ---

func adminAuth() *fakeAuth {
	return &fakeAuth{session: &AuthSession{User: AuthUser{Role: "admin", Email: "test@test.com"}}}
}

func newTestService(store *fakeStore, auth AuthGate) *SessionService {
	return &SessionService{Store: store, Auth: auth}
}

// codSessionInput mirrors the admin form payload: one set, one match, one
// player with a single COD_SCORE stat.
func codSessionInput() SessionInput {
	return SessionInput{
		Game:        "Call of Duty",
		SessionName: "Session Name",
		SessionURL:  "http://example.com",
		Thumbnail:   "http://example.com/thumbnail.jpg",
		Date:        time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
		VideoID:     "video123",
		Players:     []WinnerInput{{PlayerID: 1, PlayerName: "Ben"}},
		Sets: []SetInput{
			{
				SetWinners: []WinnerInput{{PlayerID: 1, PlayerName: "Ben"}},
				Matches: []MatchInput{
					{
						MatchWinners: []WinnerInput{{PlayerID: 1, PlayerName: "Ben"}},
						PlayerSessions: []PlayerSessionInput{
							{
								PlayerID: 1,
								PlayerStats: []PlayerStatInput{
									{StatID: "1", Stat: "COD_SCORE", StatValue: "100"},
								},
							},
						},
					},
				},
			},
		},
	}
}

// --- tests ---

func TestInsertSessionSuccess(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, adminAuth())

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	require.Empty(t, code)

	require.Len(t, store.committed.sessions, 1)
	require.Len(t, store.committed.sets, 1)
	require.Len(t, store.committed.matches, 1)
	require.Len(t, store.committed.playerSessions, 1)
	require.Len(t, store.committed.playerStats, 1)

	session := store.committed.sessions[0]
	assert.Equal(t, models.GameCallOfDuty, session.GameID)
	assert.Equal(t, "video123", session.VideoID)
	assert.Equal(t, "session-name", session.URLSlug)

	stat := store.committed.playerStats[0]
	assert.Equal(t, 1, stat.GameStatID)
	assert.Equal(t, "COD_SCORE", stat.StatName)
	assert.Equal(t, "100", stat.Value)
	assert.Equal(t, store.committed.playerSessions[0].ID, stat.PlayerSessionID)

	// winner attachment
	assert.Len(t, store.committed.matches[0].MatchWinners, 1)
	assert.Len(t, store.committed.setWinners, 1)
	assert.Equal(t, store.committed.sets[0].ID, store.committed.setWinners[0].SetID)
}

func TestInsertSessionNotAuthenticated(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeAuth{session: nil})

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, ErrNotAuthenticated, code)
	// no persistence call ever happens for unauthorized callers
	assert.Empty(t, store.calls)
}

func TestInsertSessionNotAuthorized(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeAuth{
		session: &AuthSession{User: AuthUser{Role: "viewer", Email: "viewer@test.com"}},
	})

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, ErrNotAuthorized, code)
	assert.Empty(t, store.calls)
}

func TestInsertSessionGameNotFound(t *testing.T) {
	store := newFakeStore()
	delete(store.games, "Call of Duty")
	svc := newTestService(store, adminAuth())

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, "Game not found.", code)
	assert.Empty(t, store.committed.sessions)
}

func TestInsertSessionVideoAlreadyExists(t *testing.T) {
	store := newFakeStore()
	store.videoSeen["video123"] = true
	svc := newTestService(store, adminAuth())

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, "Video already exists.", code)
	assert.Empty(t, store.committed.sessions)
}

func TestInsertSessionUnknownErrorOnLookup(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("connection refused")
	svc := newTestService(store, adminAuth())

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, "Unknown error occurred. Please try again.", code)
}

func TestInsertSessionRecoversFromPanic(t *testing.T) {
	store := newFakeStore()
	store.findPanics = true
	svc := newTestService(store, adminAuth())

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, ErrUnknown, code)
}

// If the stat bulk-insert fails, nothing from the call may be persisted —
// not the session, not the set, not the match, not the player session.
func TestInsertSessionAllOrNothing(t *testing.T) {
	store := newFakeStore()
	store.txFailOn = "CreatePlayerStats"
	svc := newTestService(store, adminAuth())

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, ErrUnknown, code)

	assert.Empty(t, store.committed.sessions)
	assert.Empty(t, store.committed.sets)
	assert.Empty(t, store.committed.matches)
	assert.Empty(t, store.committed.playerSessions)
	assert.Empty(t, store.committed.playerStats)
}

// Two concurrent inserts can race past the pre-check; the database unique
// constraint then fires at commit and must map to the same friendly code.
func TestInsertSessionUniqueViolationMapsToVideoExists(t *testing.T) {
	store := newFakeStore()
	store.txFailOn = "CreateSession"
	store.txFailErr = &pgconn.PgError{Code: "23505", ConstraintName: "idx_sessions_video_id"}
	svc := newTestService(store, adminAuth())

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, "Video already exists.", code)
	assert.Empty(t, store.committed.sessions)
}

// A duplicate key on some other table inside the transaction is not a video
// collision and must keep the generic error.
func TestInsertSessionOtherUniqueViolationStaysUnknown(t *testing.T) {
	store := newFakeStore()
	store.txFailOn = "CreateSession"
	store.txFailErr = &pgconn.PgError{Code: "23505", ConstraintName: "idx_players_player_name"}
	svc := newTestService(store, adminAuth())

	code := svc.InsertSession(context.Background(), "token", codSessionInput())
	assert.Equal(t, ErrUnknown, code)
}

func TestInsertSessionRejectsForeignStatIds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, adminAuth())

	input := codSessionInput()
	input.Sets[0].Matches[0].PlayerSessions[0].PlayerStats[0].StatID = "42"
	code := svc.InsertSession(context.Background(), "token", input)
	assert.Equal(t, "Stat COD_SCORE does not belong to this game.", code)
	assert.Empty(t, store.committed.sessions)

	input = codSessionInput()
	input.Sets[0].Matches[0].PlayerSessions[0].PlayerStats[0].StatID = "abc"
	code = svc.InsertSession(context.Background(), "token", input)
	assert.Equal(t, "Invalid stat id: abc", code)
}

// The payload's players list is the session roster; a player session
// referencing someone outside it must be rejected before any write.
func TestInsertSessionRejectsPlayerOutsideRoster(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, adminAuth())

	input := codSessionInput()
	input.Sets[0].Matches[0].PlayerSessions[0].PlayerID = 7
	input.Sets[0].Matches[0].MatchWinners = nil
	code := svc.InsertSession(context.Background(), "token", input)
	assert.Equal(t, "Player 7 is not in the session.", code)
	assert.Empty(t, store.committed.sessions)
}

func TestInsertSessionRejectsWinnerOutsideMatch(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, adminAuth())

	input := codSessionInput()
	input.Sets[0].Matches[0].MatchWinners = []WinnerInput{{PlayerID: 9, PlayerName: "Ghost"}}
	code := svc.InsertSession(context.Background(), "token", input)
	assert.Equal(t, "Match winner Ghost is not in the match.", code)
	assert.Empty(t, store.committed.sessions)
}

// A payload without match winners commits fine but is flagged so the
// recompute job derives the winner rows from the stats later.
func TestInsertSessionWithoutWinnersMarksStale(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, adminAuth())

	input := codSessionInput()
	input.Sets[0].Matches[0].MatchWinners = nil
	code := svc.InsertSession(context.Background(), "token", input)
	require.Empty(t, code)

	require.Len(t, store.committed.sessions, 1)
	assert.True(t, store.committed.sessions[0].WinnersStale)

	code = svc.InsertSession(context.Background(), "token2", codSessionInput())
	require.Empty(t, code)
	assert.False(t, store.committed.sessions[0].WinnersStale)
}

func TestUploadThumbnail(t *testing.T) {
	svc := newTestService(newFakeStore(), adminAuth())
	app := fiber.New()
	app.Post("/thumbnail", svc.UploadThumbnail)

	t.Run("missing file is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/thumbnail", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("storage failure surfaces as server error", func(t *testing.T) {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		fw, err := w.CreateFormFile("thumbnail", "session.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("png-bytes"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(fiber.MethodPost, "/thumbnail", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, err := app.Test(req)
		require.NoError(t, err)
		// object storage is not configured in tests
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}

func TestInsertSessionAttachesDayWinners(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, adminAuth())

	input := codSessionInput()
	input.DayWinners = []WinnerInput{{PlayerID: 1, PlayerName: "Ben"}}
	code := svc.InsertSession(context.Background(), "token", input)
	require.Empty(t, code)
	require.Len(t, store.committed.dayWinners, 1)
	assert.Equal(t, store.committed.sessions[0].ID, store.committed.dayWinners[0].SessionID)
}
