// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start the daily board (creates or reuses session)
//   - POST /daily/attempt     → attempt a cell on today's board
//   - GET  /daily/leaderboard → fetch top 20 winners for today (or a given date)
//
// Each participant can play once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play; the finished result goes to the
// DB and the session is dropped.
// Ship placement is deterministic per date + salt.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/battleship/internal/daily"
	"github.com/robalobadob/battleship/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	now      func() time.Time
	sessions map[string]*dailySession // active sessions keyed by participant|date
	mu       sync.Mutex               // guards now, sessions and the games they hold
}

// dailySession holds transient in-memory state for an in-progress daily board.
type dailySession struct {
	Game  *game.Game
	Date  string
	Start time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.Daily.Salt,
		now:      time.Now,
		sessions: make(map[string]*dailySession),
	}
	s.daily = dd
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/attempt", dd.handleAttempt)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// board returns today's date key and ship placement.
func (d *dailyServer) board() (string, []int) {
	d.mu.Lock()
	now := d.now().UTC()
	d.mu.Unlock()
	return daily.DateKey(now), daily.Ships(now, d.salt, d.srv.cfg.Rules.ShipCount)
}

// -----------------------------------------------------------------------------
// /daily/new

type newRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
	Ships  int    `json:"ships"`
	Lives  int    `json:"lives"`
}

// handleNew creates or reuses a daily session for the current date.
// - If the participant already has a DB row for today → Played=true.
// - Otherwise create/reuse an in-memory session and return its GameID.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	me := d.srv.participantOf(w, r)
	date, ships := d.board()

	if played, err := d.store.AlreadyPlayed(r.Context(), me.ID, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(newRes{Date: date, Played: true})
		return
	}

	key := me.ID + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked(date)
	sess, ok := d.sessions[key]
	if !ok {
		st, err := game.NewGameState(ships, d.srv.cfg.Rules)
		if err != nil {
			log.Error().Err(err).Str("date", date).Msg("daily board")
			http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
			return
		}
		g := game.New(st, d.srv.cfg.Rules)
		g.Player = me.ID
		sess = &dailySession{Game: g, Date: date, Start: d.now()}
		d.sessions[key] = sess
	}
	_ = json.NewEncoder(w).Encode(newRes{
		GameID: sess.Game.ID,
		Date:   date,
		Ships:  sess.Game.Ships(),
		Lives:  sess.Game.LivesRemaining(),
	})
}

// -----------------------------------------------------------------------------
// /daily/attempt

type dailyAttemptReq struct {
	GameID string `json:"gameId"`
	Cell   *int   `json:"cell"`
}

type dailyAttemptRes struct {
	Result   game.Result `json:"result,omitempty"`
	State    string      `json:"state"` // playing | won | lost | locked
	Hits     int         `json:"hits"`
	Lives    int         `json:"lives"`
	Attempts int         `json:"attempts"`
}

// handleAttempt applies an attempt to today's board and persists the result
// once the board is finished.
func (d *dailyServer) handleAttempt(w http.ResponseWriter, r *http.Request) {
	me := d.srv.participantOf(w, r)

	var p dailyAttemptReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Cell == nil || p.GameID == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	date, _ := d.board()
	key := me.ID + "|" + date

	d.mu.Lock()
	defer d.mu.Unlock()
	sess, ok := d.sessions[key]
	if !ok || sess.Game.ID != p.GameID {
		// A finished board's session is gone; its stored result locks the day.
		if played, err := d.store.AlreadyPlayed(r.Context(), me.ID, date); err == nil && played {
			_ = json.NewEncoder(w).Encode(dailyAttemptRes{State: "locked"})
			return
		}
		http.Error(w, `{"error":"no_session"}`, http.StatusConflict)
		return
	}
	g := sess.Game
	res, state, err := g.Attempt(*p.Cell)
	out := dailyAttemptRes{
		Result:   res,
		State:    state,
		Hits:     g.Hits(),
		Lives:    g.LivesRemaining(),
		Attempts: len(g.State.AttemptedCells),
	}

	switch {
	case errors.Is(err, game.ErrAlreadyComplete):
		out.Result, out.State = "", "locked"
		_ = json.NewEncoder(w).Encode(out)
		return
	case errors.Is(err, game.ErrInvalidCellIndex):
		http.Error(w, `{"error":"invalid_cell"}`, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	if g.State.IsComplete {
		result := daily.Result{
			UserID:    me.ID,
			Date:      date,
			Attempts:  out.Attempts,
			Misses:    out.Attempts - out.Hits,
			Won:       state == "won",
			ElapsedMs: int(d.now().Sub(sess.Start).Milliseconds()),
		}
		// The session stays on failure so the finished board still locks the day.
		if err := d.store.InsertResult(r.Context(), result); err != nil {
			log.Warn().Err(err).Str("user", me.ID).Msg("insert daily result")
		} else {
			delete(d.sessions, key)
		}
	}
	_ = json.NewEncoder(w).Encode(out)
}

// pruneLocked drops sessions left over from earlier days. d.mu must be held.
func (d *dailyServer) pruneLocked(today string) {
	for k, sess := range d.sessions {
		if sess.Date != today {
			delete(d.sessions, k)
		}
	}
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _ = d.board()
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
