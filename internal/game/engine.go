// internal/game/engine.go
//
// Turn evaluation for a Battleship board.
// Responsibilities:
//   - Classify an attempt as hit or miss against the ship locations.
//   - Append attempts once (re-attempting a cell is a no-op).
//   - Track state transitions: attacking → won/lost.
//
// Notes:
//   - Win is checked before loss, so an attempt that satisfies both wins.
//   - Game wraps a received GameState with the identifiers the server uses to
//     correlate it; randomID() is a compact hex identifier for that purpose.
package game

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Evaluator applies the configured Rules to a GameState.
type Evaluator struct {
	rules Rules
}

func NewEvaluator(r Rules) *Evaluator {
	return &Evaluator{rules: r}
}

// Rules returns the rules the evaluator was built with.
func (e *Evaluator) Rules() Rules { return e.rules }

// Attempt classifies cell against s and records it.
//
// Validation rules:
//   - s must not be complete (ErrAlreadyComplete, no mutation).
//   - cell must be on the board (ErrInvalidCellIndex, no mutation).
//
// A cell already attempted is not appended again; its classification is
// reported as before. After recording, the completion check runs: win first,
// then loss.
func (e *Evaluator) Attempt(s *GameState, cell int) (Result, error) {
	if s.IsComplete {
		return "", ErrAlreadyComplete
	}
	if !validCell(cell) {
		return "", ErrInvalidCellIndex
	}
	if !s.Attempted(cell) {
		s.AttemptedCells = append(s.AttemptedCells, cell)
	}

	res := ResultMiss
	if s.HasShip(cell) {
		res = ResultHit
	}

	if e.IsWin(*s) || e.IsLoss(*s) {
		s.IsComplete = true
	}
	return res, nil
}

// IsWin is true iff every ship location has been attempted.
func (e *Evaluator) IsWin(s GameState) bool {
	if len(s.ShipLocations) == 0 {
		return false
	}
	for _, c := range s.ShipLocations {
		if !s.Attempted(c) {
			return false
		}
	}
	return true
}

// IsLoss is true iff the number of misses has reached the allowance.
func (e *Evaluator) IsLoss(s GameState) bool {
	return e.Misses(s) >= e.rules.MissesAllowed
}

// Hits counts attempted cells that hold a ship.
func (e *Evaluator) Hits(s GameState) int {
	n := 0
	for _, c := range s.AttemptedCells {
		if s.HasShip(c) {
			n++
		}
	}
	return n
}

// Misses counts attempted cells that do not hold a ship.
func (e *Evaluator) Misses(s GameState) int {
	return len(s.AttemptedCells) - e.Hits(s)
}

// LivesRemaining is the number of misses the attacker can still afford.
func (e *Evaluator) LivesRemaining(s GameState) int {
	if n := e.rules.MissesAllowed - e.Misses(s); n > 0 {
		return n
	}
	return 0
}

// Stage reports where s sits in its life cycle. A complete state that
// satisfies neither condition locally was finished elsewhere (StageEnded).
func (e *Evaluator) Stage(s GameState) Stage {
	switch {
	case !s.IsComplete:
		return StageAttacking
	case e.IsWin(s):
		return StageWon
	case e.IsLoss(s):
		return StageLost
	default:
		return StageEnded
	}
}

// Game is one attacker's local copy of a received board. The attempted cells
// only exist here; they do not travel with the encoded state.
//
// A Game is shared by every request that names it. Callers that read or
// mutate State across several calls hold Lock for the whole sequence.
type Game struct {
	mu sync.Mutex


	ID        string    // Unique game identifier (random hex string).
	SessionID string    // Conversation the board was received in.
	MessageID string    // Message the board was decoded from.
	Player    string    // Attacking participant.
	State     GameState // Board being attacked.

	eval *Evaluator
}

// New constructs a Game for the attacker from a received state.
func New(st GameState, r Rules) *Game {
	if st.AttemptedCells == nil {
		st.AttemptedCells = []int{}
	}
	return &Game{
		ID:    randomID(),
		State: st,
		eval:  NewEvaluator(r),
	}
}

// Attempt applies one attempt and returns the result with the new outcome
// string ("playing"/"won"/"lost").
func (g *Game) Attempt(cell int) (Result, string, error) {
	res, err := g.eval.Attempt(&g.State, cell)
	if err != nil {
		return "", g.Outcome(), err
	}
	return res, g.Outcome(), nil
}

// Outcome reports a coarse string representation of the current state.
func (g *Game) Outcome() string {
	switch g.eval.Stage(g.State) {
	case StageWon:
		return "won"
	case StageLost:
		return "lost"
	case StageEnded:
		return "ended"
	default:
		return "playing"
	}
}

// Lock serializes access to the game's state.
func (g *Game) Lock()   { g.mu.Lock() }
func (g *Game) Unlock() { g.mu.Unlock() }

func (g *Game) Hits() int           { return g.eval.Hits(g.State) }
func (g *Game) LivesRemaining() int { return g.eval.LivesRemaining(g.State) }
func (g *Game) Ships() int          { return len(g.State.ShipLocations) }

// Snapshot renders the attacker's view: attempted cells marked, ships hidden.
func (g *Game) Snapshot() string {
	var b Board
	for _, c := range g.State.AttemptedCells {
		_ = b.Toggle(c)
	}
	return b.Render()
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
