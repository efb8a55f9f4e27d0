// internal/httpserver/routes_game.go
//
// HTTP routes for the two-player message game.
//   - POST /game/place            → place ships, open a session, post the board
//   - POST /game/open             → receive a posted board and start attacking it
//   - POST /game/attempt          → attempt one cell; posts the result when the game ends
//   - GET  /sessions/{id}/messages → the session's message thread
//
// The encoded board URL is the only thing that passes between the players.
// Attempted cells stay in the in-memory game store on the attacker's side.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/battleship/internal/conversation"
	"github.com/robalobadob/battleship/internal/game"
	"github.com/robalobadob/battleship/internal/store"
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/place", s.handlePlace)
	r.Post("/game/open", s.handleOpen)
	r.Post("/game/attempt", s.handleAttempt)
	r.Get("/sessions/{id}/messages", s.handleThread)
}

// -----------------------------------------------------------------------------
// /game/place

type placeReq struct {
	Ships []int `json:"ships"`
}
type placeRes struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
	URL       string `json:"url"`
	Caption   string `json:"caption"`
	Snapshot  string `json:"snapshot"`
}

// handlePlace positions the ships, then posts the blinded board as the first
// message of a new session.
func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	if len(req.Ships) > s.cfg.Rules.ShipCount {
		http.Error(w, `{"error":"too_many_ships"}`, http.StatusBadRequest)
		return
	}

	p := game.NewPlacement(s.cfg.Rules)
	for _, c := range req.Ships {
		if err := p.Toggle(c); err != nil {
			http.Error(w, `{"error":"invalid_cell"}`, http.StatusBadRequest)
			return
		}
	}
	st, err := p.Finish()
	if err != nil {
		http.Error(w, `{"error":"ships_left_to_place"}`, http.StatusBadRequest)
		return
	}

	me := s.participantOf(w, r)
	caption := conversation.PlacedCaption(me.Name)
	msg, err := s.conv.Post(r.Context(), s.conv.NewSession(), me.ID, caption, st, p.Board().Render())
	if err != nil {
		log.Error().Err(err).Msg("post placed board")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	if me.UserID != "" {
		if err := s.users.BoardPlaced(r.Context(), me.UserID); err != nil {
			log.Warn().Err(err).Str("user", me.UserID).Msg("bump boards placed")
		}
	}
	log.Info().Str("sessionId", msg.SessionID).Str("messageId", msg.ID).Msg("board placed")

	_ = json.NewEncoder(w).Encode(placeRes{
		SessionID: msg.SessionID,
		MessageID: msg.ID,
		URL:       msg.URL,
		Caption:   msg.Caption,
		Snapshot:  msg.Snapshot,
	})
}

// -----------------------------------------------------------------------------
// /game/open

type openReq struct {
	MessageID string `json:"messageId"`
}
type openRes struct {
	GameID    string `json:"gameId"`
	SessionID string `json:"sessionId"`
	Ships     int    `json:"ships"`
	Lives     int    `json:"lives"`
}

// handleOpen decodes a posted board and starts an attack on it. Ship
// locations are never returned.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	msg, st, err := s.conv.Receive(r.Context(), req.MessageID)
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	case errors.Is(err, game.ErrMalformedState):
		log.Warn().Err(err).Str("messageId", req.MessageID).Msg("decode board")
		http.Error(w, `{"error":"malformed_state"}`, http.StatusUnprocessableEntity)
		return
	case err != nil:
		log.Error().Err(err).Msg("receive board")
		http.Error(w, `{"error":"load_failed"}`, http.StatusInternalServerError)
		return
	}
	if st.IsComplete {
		http.Error(w, `{"error":"game_complete","message":"The game's already finished!"}`, http.StatusConflict)
		return
	}

	me := s.participantOf(w, r)
	g := game.New(st, s.cfg.Rules)
	g.SessionID, g.MessageID, g.Player = msg.SessionID, msg.ID, me.ID
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	// History row (best effort).
	rec := store.GameRecord{ID: g.ID, SessionID: g.SessionID, MessageID: g.MessageID, Status: g.Outcome()}
	if me.UserID != "" {
		rec.UserID = me.UserID
	} else {
		rec.AnonymousID = me.ID
	}
	if err := s.games.Start(r.Context(), rec, time.Now()); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}

	_ = json.NewEncoder(w).Encode(openRes{
		GameID:    g.ID,
		SessionID: g.SessionID,
		Ships:     g.Ships(),
		Lives:     g.LivesRemaining(),
	})
}

// -----------------------------------------------------------------------------
// /game/attempt

type attemptReq struct {
	GameID string `json:"gameId"`
	Cell   *int   `json:"cell"`
}
type attemptRes struct {
	Result    game.Result `json:"result"`
	State     string      `json:"state"` // "playing" | "won" | "lost"
	Hits      int         `json:"hits"`
	Lives     int         `json:"lives"`
	Snapshot  string      `json:"snapshot"`
	MessageID string      `json:"messageId,omitempty"` // result message, once the game ends
}

// handleAttempt applies one attempt. When the game ends, the completed board
// is posted back into the session with a caption for the outcome.
func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cell == nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	g, err := s.store.Get(r.Context(), req.GameID)
	if errors.Is(err, store.ErrGameNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, `{"error":"load_failed"}`, http.StatusInternalServerError)
		return
	}
	me := s.participantOf(w, r)
	if g.Player != me.ID {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	// Held until the response is built: only one attempt sees the finish.
	g.Lock()
	defer g.Unlock()

	res, state, err := g.Attempt(*req.Cell)
	switch {
	case errors.Is(err, game.ErrAlreadyComplete):
		http.Error(w, `{"error":"game_complete","state":"`+state+`"}`, http.StatusConflict)
		return
	case errors.Is(err, game.ErrInvalidCellIndex):
		http.Error(w, `{"error":"invalid_cell"}`, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	out := attemptRes{
		Result:   res,
		State:    state,
		Hits:     g.Hits(),
		Lives:    g.LivesRemaining(),
		Snapshot: g.Snapshot(),
	}

	if g.State.IsComplete {
		won := state == "won"
		msg, err := s.conv.Post(r.Context(), g.SessionID, me.ID, conversation.ResultCaption(me.Name, won), g.State, out.Snapshot)
		if err != nil {
			log.Error().Err(err).Str("gameId", g.ID).Msg("post result")
			http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
			return
		}
		out.MessageID = msg.ID
		log.Info().Str("gameId", g.ID).Str("state", state).Msg("game finished")
	}

	s.recordAttempt(r.Context(), g, me, state)
	_ = json.NewEncoder(w).Encode(out)
}

// recordAttempt updates the history row and, on a finish, the user's totals
// (best effort).
func (s *Server) recordAttempt(ctx context.Context, g *game.Game, me participant, state string) {
	if err := s.games.Progress(ctx, g.ID, me.UserID, state, len(g.State.AttemptedCells), time.Now()); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("record attempt")
	}
}

// -----------------------------------------------------------------------------
// /sessions/{id}/messages

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.conv.Thread(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	if len(msgs) == 0 {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(msgs)
}
