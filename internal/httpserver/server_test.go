package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/battleship/assets"
	"github.com/robalobadob/battleship/internal/config"
	"github.com/robalobadob/battleship/internal/conversation"
	"github.com/robalobadob/battleship/internal/daily"
	"github.com/robalobadob/battleship/internal/game"
	"github.com/robalobadob/battleship/internal/store"
)

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open(store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db, assets.Migrations()))

	cfg := config.DefaultConfig()
	cfg.DBPath = store.MemoryDSN
	srv := New(cfg, store.NewMemoryStore(), store.NewSQLLog(db), db)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, ts: ts}
}

// newClient returns a client with its own cookie jar, i.e. a distinct player.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func cell(n int) *int { return &n }

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	var out map[string]bool
	assert.Equal(t, http.StatusOK, e.do(t, newClient(t), http.MethodGet, "/health", nil, &out))
	assert.True(t, out["ok"])
}

func TestPlace_Validation(t *testing.T) {
	e := newTestEnv(t)
	c := newClient(t)
	var errRes map[string]string

	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/game/place", placeReq{Ships: []int{2}}, &errRes))
	assert.Equal(t, "ships_left_to_place", errRes["error"])

	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/game/place", placeReq{Ships: []int{2, 9}}, &errRes))
	assert.Equal(t, "invalid_cell", errRes["error"])

	// Toggling the same cell twice removes it again.
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/game/place", placeReq{Ships: []int{2, 2}}, &errRes))

	// Extra ships are refused rather than dropped.
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/game/place", placeReq{Ships: []int{2, 5, 7}}, &errRes))
	assert.Equal(t, "too_many_ships", errRes["error"])
}

func TestGameFlow_Win(t *testing.T) {
	e := newTestEnv(t)
	placer, attacker := newClient(t), newClient(t)

	var placed placeRes
	require.Equal(t, http.StatusOK, e.do(t, placer, http.MethodPost, "/game/place", placeReq{Ships: []int{2, 5}}, &placed))
	assert.Equal(t, game.DefaultBaseURL+"?Ship_Location=2&Ship_Location=5&Is_Complete=0", placed.URL)
	assert.Equal(t, ". . .\n. . .\n. . .", placed.Snapshot)
	assert.Contains(t, placed.Caption, "placed their ships! Can you find them?")

	var opened openRes
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodPost, "/game/open", openReq{MessageID: placed.MessageID}, &opened))
	assert.Equal(t, placed.SessionID, opened.SessionID)
	assert.Equal(t, 2, opened.Ships)
	assert.Equal(t, 3, opened.Lives)

	// Only the attacker that opened the board may play it.
	assert.Equal(t, http.StatusForbidden,
		e.do(t, placer, http.MethodPost, "/game/attempt", attemptReq{GameID: opened.GameID, Cell: cell(0)}, nil))

	steps := []struct {
		cell   int
		result game.Result
		state  string
	}{
		{0, game.ResultMiss, "playing"},
		{1, game.ResultMiss, "playing"},
		{2, game.ResultHit, "playing"},
		{5, game.ResultHit, "won"},
	}
	var last attemptRes
	for _, st := range steps {
		var res attemptRes
		require.Equal(t, http.StatusOK,
			e.do(t, attacker, http.MethodPost, "/game/attempt", attemptReq{GameID: opened.GameID, Cell: cell(st.cell)}, &res))
		assert.Equal(t, st.result, res.Result, "cell %d", st.cell)
		assert.Equal(t, st.state, res.State, "cell %d", st.cell)
		last = res
	}
	assert.Equal(t, 2, last.Hits)
	assert.Equal(t, 1, last.Lives)
	require.NotEmpty(t, last.MessageID)

	var errRes map[string]string
	assert.Equal(t, http.StatusConflict,
		e.do(t, attacker, http.MethodPost, "/game/attempt", attemptReq{GameID: opened.GameID, Cell: cell(7)}, &errRes))
	assert.Equal(t, "game_complete", errRes["error"])

	var thread []conversation.Message
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodGet, "/sessions/"+placed.SessionID+"/messages", nil, &thread))
	require.Len(t, thread, 2)
	assert.Equal(t, placed.MessageID, thread[0].ID)
	assert.Equal(t, last.MessageID, thread[1].ID)
	assert.Contains(t, thread[1].Caption, "destroyed all the ships!")
	assert.Equal(t, game.DefaultBaseURL+"?Ship_Location=2&Ship_Location=5&Is_Complete=1", thread[1].URL)

	// The completed board cannot be opened again.
	assert.Equal(t, http.StatusConflict,
		e.do(t, attacker, http.MethodPost, "/game/open", openReq{MessageID: last.MessageID}, &errRes))
	assert.Equal(t, "game_complete", errRes["error"])
}

func TestGameFlow_Loss(t *testing.T) {
	e := newTestEnv(t)
	placer, attacker := newClient(t), newClient(t)

	var placed placeRes
	require.Equal(t, http.StatusOK, e.do(t, placer, http.MethodPost, "/game/place", placeReq{Ships: []int{5, 2}}, &placed))
	var opened openRes
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodPost, "/game/open", openReq{MessageID: placed.MessageID}, &opened))

	var res attemptRes
	for _, c := range []int{0, 0, 1} {
		require.Equal(t, http.StatusOK,
			e.do(t, attacker, http.MethodPost, "/game/attempt", attemptReq{GameID: opened.GameID, Cell: cell(c)}, &res))
		assert.Equal(t, "playing", res.State)
	}
	assert.Equal(t, 1, res.Lives, "repeated miss is not counted twice")

	require.Equal(t, http.StatusOK,
		e.do(t, attacker, http.MethodPost, "/game/attempt", attemptReq{GameID: opened.GameID, Cell: cell(3)}, &res))
	assert.Equal(t, "lost", res.State)
	assert.Equal(t, 0, res.Lives)

	var thread []conversation.Message
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodGet, "/sessions/"+placed.SessionID+"/messages", nil, &thread))
	require.Len(t, thread, 2)
	assert.Contains(t, thread[1].Caption, "lost!")
}

func TestAttempt_Errors(t *testing.T) {
	e := newTestEnv(t)
	c := newClient(t)

	assert.Equal(t, http.StatusNotFound,
		e.do(t, c, http.MethodPost, "/game/attempt", attemptReq{GameID: "nope", Cell: cell(0)}, nil))
	assert.Equal(t, http.StatusBadRequest,
		e.do(t, c, http.MethodPost, "/game/attempt", map[string]string{"gameId": "nope"}, nil))

	var placed placeRes
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/game/place", placeReq{Ships: []int{0, 8}}, &placed))
	var opened openRes
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/game/open", openReq{MessageID: placed.MessageID}, &opened))
	assert.Equal(t, http.StatusBadRequest,
		e.do(t, c, http.MethodPost, "/game/attempt", attemptReq{GameID: opened.GameID, Cell: cell(9)}, nil))
}

func TestOpen_Errors(t *testing.T) {
	e := newTestEnv(t)
	c := newClient(t)

	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodPost, "/game/open", openReq{MessageID: "missing"}, nil))

	// A message whose URL does not decode surfaces as malformed, never as an empty board.
	bad := conversation.Message{ID: "bad", SessionID: "s", URL: "?Ship_Location=oops&Is_Complete=0", CreatedAt: time.Now()}
	require.NoError(t, store.NewSQLLog(e.srv.db).Insert(context.Background(), bad))

	var errRes map[string]string
	assert.Equal(t, http.StatusUnprocessableEntity, e.do(t, c, http.MethodPost, "/game/open", openReq{MessageID: "bad"}, &errRes))
	assert.Equal(t, "malformed_state", errRes["error"])
}

func TestAuth_StatsAfterGame(t *testing.T) {
	e := newTestEnv(t)
	placer, attacker := newClient(t), newClient(t)

	var signup map[string]any
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodPost, "/auth/signup",
		map[string]string{"username": "captain", "password": "hunter2hunter2"}, &signup))
	assert.Equal(t, "captain", signup["username"])

	assert.Equal(t, http.StatusConflict, e.do(t, newClient(t), http.MethodPost, "/auth/signup",
		map[string]string{"username": "CAPTAIN", "password": "hunter2hunter2"}, nil))
	assert.Equal(t, http.StatusUnauthorized, e.do(t, newClient(t), http.MethodPost, "/auth/login",
		map[string]string{"username": "captain", "password": "wrong-password"}, nil))

	var placed placeRes
	require.Equal(t, http.StatusOK, e.do(t, placer, http.MethodPost, "/game/place", placeReq{Ships: []int{3, 4}}, &placed))
	var opened openRes
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodPost, "/game/open", openReq{MessageID: placed.MessageID}, &opened))
	var res attemptRes
	for _, c := range []int{3, 4} {
		require.Equal(t, http.StatusOK,
			e.do(t, attacker, http.MethodPost, "/game/attempt", attemptReq{GameID: opened.GameID, Cell: cell(c)}, &res))
	}
	require.Equal(t, "won", res.State)

	var thread []conversation.Message
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodGet, "/sessions/"+placed.SessionID+"/messages", nil, &thread))
	require.Len(t, thread, 2)
	assert.Equal(t, "$captain destroyed all the ships!", thread[1].Caption)

	var stats map[string]any
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodGet, "/stats/me", nil, &stats))
	assert.EqualValues(t, 1, stats["gamesPlayed"])
	assert.EqualValues(t, 1, stats["wins"])
	assert.EqualValues(t, 1, stats["streak"])

	var mine []map[string]any
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodGet, "/games/mine", nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "won", mine[0]["status"])
	assert.EqualValues(t, 2, mine[0]["attempts"])

	assert.Equal(t, http.StatusUnauthorized, e.do(t, placer, http.MethodGet, "/stats/me", nil, nil))
}

func TestDaily(t *testing.T) {
	e := newTestEnv(t)
	c := newClient(t)

	var started newRes
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/daily/new", nil, &started))
	require.NotEmpty(t, started.GameID)
	assert.False(t, started.Played)
	assert.Equal(t, 2, started.Ships)

	// Reusing the session returns the same game.
	var again newRes
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/daily/new", nil, &again))
	assert.Equal(t, started.GameID, again.GameID)

	ships := daily.Ships(time.Now().UTC(), e.srv.cfg.Daily.Salt, e.srv.cfg.Rules.ShipCount)
	var res dailyAttemptRes
	for _, s := range ships {
		require.Equal(t, http.StatusOK,
			e.do(t, c, http.MethodPost, "/daily/attempt", dailyAttemptReq{GameID: started.GameID, Cell: cell(s)}, &res))
		assert.Equal(t, game.ResultHit, res.Result)
	}
	assert.Equal(t, "won", res.State)
	assert.Equal(t, 2, res.Attempts)

	require.Equal(t, http.StatusOK,
		e.do(t, c, http.MethodPost, "/daily/attempt", dailyAttemptReq{GameID: started.GameID, Cell: cell(ships[0])}, &res))
	assert.Equal(t, "locked", res.State)

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/daily/new", nil, &again))
	assert.True(t, again.Played)

	var lb lbRes
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/daily/leaderboard", nil, &lb))
	require.Len(t, lb.Top, 1)
	assert.Equal(t, 2, lb.Top[0].Attempts)

	assert.Equal(t, http.StatusConflict,
		e.do(t, newClient(t), http.MethodPost, "/daily/attempt", dailyAttemptReq{GameID: started.GameID, Cell: cell(0)}, nil))
}

func TestAttempt_ConcurrentOnOneGame(t *testing.T) {
	e := newTestEnv(t)
	placer, attacker := newClient(t), newClient(t)

	var placed placeRes
	require.Equal(t, http.StatusOK, e.do(t, placer, http.MethodPost, "/game/place", placeReq{Ships: []int{2, 5}}, &placed))
	var opened openRes
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodPost, "/game/open", openReq{MessageID: placed.MessageID}, &opened))

	const n = 16
	var (
		wg       sync.WaitGroup
		statuses [n]int
		results  [n]attemptRes
		errs     [n]error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(attemptReq{GameID: opened.GameID, Cell: cell(i % game.BoardCells)})
			res, err := attacker.Post(e.ts.URL+"/game/attempt", "application/json", bytes.NewReader(body))
			if err != nil {
				errs[i] = err
				return
			}
			defer res.Body.Close()
			statuses[i] = res.StatusCode
			if res.StatusCode == http.StatusOK {
				errs[i] = json.NewDecoder(res.Body).Decode(&results[i])
			}
		}(i)
	}
	wg.Wait()

	finished := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Contains(t, []int{http.StatusOK, http.StatusConflict}, statuses[i])
		if results[i].MessageID != "" {
			finished++
		}
	}
	assert.Equal(t, 1, finished, "exactly one attempt posts the result")

	g, err := e.srv.store.Get(context.Background(), opened.GameID)
	require.NoError(t, err)
	g.Lock()
	defer g.Unlock()
	assert.True(t, g.State.IsComplete)
	seen := map[int]bool{}
	for _, c := range g.State.AttemptedCells {
		assert.False(t, seen[c], "cell %d recorded twice", c)
		seen[c] = true
	}

	var thread []conversation.Message
	require.Equal(t, http.StatusOK, e.do(t, attacker, http.MethodGet, "/sessions/"+placed.SessionID+"/messages", nil, &thread))
	assert.Len(t, thread, 2)
}

func dailySessions(e *testEnv) int {
	e.srv.daily.mu.Lock()
	defer e.srv.daily.mu.Unlock()
	return len(e.srv.daily.sessions)
}

func TestDaily_SessionsAreReleased(t *testing.T) {
	e := newTestEnv(t)
	day := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	e.srv.daily.mu.Lock()
	e.srv.daily.now = func() time.Time { return day }
	e.srv.daily.mu.Unlock()

	// A finished board frees its session.
	winner := newClient(t)
	var started newRes
	require.Equal(t, http.StatusOK, e.do(t, winner, http.MethodPost, "/daily/new", nil, &started))
	assert.Equal(t, 1, dailySessions(e))
	var res dailyAttemptRes
	for _, s := range daily.Ships(day, e.srv.cfg.Daily.Salt, e.srv.cfg.Rules.ShipCount) {
		require.Equal(t, http.StatusOK,
			e.do(t, winner, http.MethodPost, "/daily/attempt", dailyAttemptReq{GameID: started.GameID, Cell: cell(s)}, &res))
	}
	require.Equal(t, "won", res.State)
	assert.Equal(t, 0, dailySessions(e))

	// An abandoned board is dropped once the day is over.
	quitter := newClient(t)
	require.Equal(t, http.StatusOK, e.do(t, quitter, http.MethodPost, "/daily/new", nil, &started))
	assert.Equal(t, 1, dailySessions(e))

	e.srv.daily.mu.Lock()
	e.srv.daily.now = func() time.Time { return day.AddDate(0, 0, 1) }
	e.srv.daily.mu.Unlock()
	require.Equal(t, http.StatusOK, e.do(t, newClient(t), http.MethodPost, "/daily/new", nil, &started))
	assert.Equal(t, 1, dailySessions(e))
}
