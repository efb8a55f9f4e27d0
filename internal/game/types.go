// internal/game/types.go
//
// Core type definitions for the Battleship game engine.
// Defines:
//   - Rules: board size, ship count, and how many misses end a game.
//   - Result: classification of a single attempt (hit/miss).
//   - Stage: where a board sits in its placing → attacking → won/lost life.
//   - GameState: the value that travels between players.
//   - Sentinel errors surfaced to callers.

package game

import (
	"errors"
	"fmt"
)

const (
	// BoardCells is the number of cells on the 3x3 grid.
	BoardCells = 9
	// TotalShipCount is the number of ships a player places.
	TotalShipCount = 2
	// IncorrectAttemptsAllowed is the number of misses that loses the game.
	IncorrectAttemptsAllowed = 3
)

var (
	ErrInvalidCellIndex    = errors.New("invalid cell index")
	ErrAlreadyComplete     = errors.New("game already complete")
	ErrMalformedState      = errors.New("malformed game state")
	ErrInvalidPlacement    = errors.New("invalid ship placement")
	ErrPlacementIncomplete = errors.New("ships left to place")
)

// Rules configures a game. The zero value is not usable; start from DefaultRules.
type Rules struct {
	ShipCount     int `yaml:"ship_count"`
	MissesAllowed int `yaml:"misses_allowed"`
}

// DefaultRules returns the classic 2 ships / 3 misses rules.
func DefaultRules() Rules {
	return Rules{ShipCount: TotalShipCount, MissesAllowed: IncorrectAttemptsAllowed}
}

// Validate reports whether r can be played on a BoardCells grid.
func (r Rules) Validate() error {
	if r.ShipCount < 1 || r.ShipCount > BoardCells {
		return fmt.Errorf("ship count %d outside [1,%d]", r.ShipCount, BoardCells)
	}
	if r.MissesAllowed < 1 || r.MissesAllowed > BoardCells-r.ShipCount {
		return fmt.Errorf("misses allowed %d outside [1,%d]", r.MissesAllowed, BoardCells-r.ShipCount)
	}
	return nil
}

// Result is the evaluation of one attempt.
type Result string

const (
	ResultHit  Result = "hit"
	ResultMiss Result = "miss"
)

// Stage is the life-cycle position of a board. StagePlacing belongs to the
// placing side (Placement.Stage); the evaluator reports the rest.
type Stage int

const (
	StagePlacing Stage = iota
	StageAttacking
	StageWon
	StageLost
	// StageEnded is a terminal state whose outcome is unknown locally, e.g. a
	// completed board received over the wire without its attempts.
	StageEnded
)

func (s Stage) String() string {
	switch s {
	case StagePlacing:
		return "placing"
	case StageAttacking:
		return "attacking"
	case StageWon:
		return "won"
	case StageLost:
		return "lost"
	case StageEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further attempts are accepted in s.
func (s Stage) Terminal() bool {
	return s == StageWon || s == StageLost || s == StageEnded
}

// GameState is the board handed from the placing player to the attacker.
// ShipLocations never change after creation; AttemptedCells is append-only
// until IsComplete is set, after which the state is frozen.
type GameState struct {
	ShipLocations  []int `json:"shipLocations"`
	AttemptedCells []int `json:"attemptedCells"`
	IsComplete     bool  `json:"isComplete"`
}

// NewGameState validates a placement against r and returns a fresh state.
func NewGameState(ships []int, r Rules) (GameState, error) {
	if len(ships) != r.ShipCount {
		return GameState{}, fmt.Errorf("%w: want %d ships, have %d", ErrInvalidPlacement, r.ShipCount, len(ships))
	}
	seen := make(map[int]bool, len(ships))
	for _, c := range ships {
		if !validCell(c) {
			return GameState{}, fmt.Errorf("%w: cell %d out of range", ErrInvalidPlacement, c)
		}
		if seen[c] {
			return GameState{}, fmt.Errorf("%w: duplicated cell %d", ErrInvalidPlacement, c)
		}
		seen[c] = true
	}
	return GameState{
		ShipLocations:  append([]int(nil), ships...),
		AttemptedCells: []int{},
	}, nil
}

// HasShip reports whether cell holds a ship.
func (s GameState) HasShip(cell int) bool {
	return contains(s.ShipLocations, cell)
}

// Attempted reports whether cell was already tried.
func (s GameState) Attempted(cell int) bool {
	return contains(s.AttemptedCells, cell)
}

func validCell(c int) bool { return c >= 0 && c < BoardCells }

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
