// internal/game/board.go
//
// Selection state of the 3x3 grid for whichever side currently holds it.
//   - Board: toggles cells, clears them, lists and renders the selection.
//   - Placement: a Board that enforces the ship count while the placing
//     player positions ships, and produces the GameState to send.

package game

import "strings"

// Board tracks which of the BoardCells cells are selected.
type Board struct {
	cells [BoardCells]bool
}

// Toggle flips the selection of cell. An out-of-range index leaves the board
// untouched and returns ErrInvalidCellIndex; callers are free to ignore it.
func (b *Board) Toggle(cell int) error {
	if !validCell(cell) {
		return ErrInvalidCellIndex
	}
	b.cells[cell] = !b.cells[cell]
	return nil
}

// Selected reports whether cell is currently selected.
func (b *Board) Selected(cell int) bool {
	return validCell(cell) && b.cells[cell]
}

// Reset clears every selection.
func (b *Board) Reset() {
	b.cells = [BoardCells]bool{}
}

// SelectedCells returns the selected indices in ascending order.
func (b *Board) SelectedCells() []int {
	out := make([]int, 0, BoardCells)
	for i, on := range b.cells {
		if on {
			out = append(out, i)
		}
	}
	return out
}

// Render draws the board as three rows of "x" (selected) and "." cells.
func (b *Board) Render() string {
	var sb strings.Builder
	for i, on := range b.cells {
		if on {
			sb.WriteByte('x')
		} else {
			sb.WriteByte('.')
		}
		switch {
		case i%3 == 2 && i != BoardCells-1:
			sb.WriteByte('\n')
		case i%3 != 2:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// Placement is the placing player's board.
type Placement struct {
	board Board
	rules Rules
	done  bool
}

func NewPlacement(r Rules) *Placement {
	return &Placement{rules: r}
}

// Toggle selects or deselects cell. Selecting is ignored once every ship is
// positioned; deselecting is always allowed.
func (p *Placement) Toggle(cell int) error {
	if !validCell(cell) {
		return ErrInvalidCellIndex
	}
	if p.done {
		return ErrAlreadyComplete
	}
	if !p.board.Selected(cell) && p.ShipsLeft() == 0 {
		return nil
	}
	return p.board.Toggle(cell)
}

// ShipsLeft is the number of ships still to position.
func (p *Placement) ShipsLeft() int {
	return p.rules.ShipCount - len(p.board.SelectedCells())
}

// Ready reports whether exactly the configured number of ships is placed.
func (p *Placement) Ready() bool { return p.ShipsLeft() == 0 }

// Stage is StagePlacing until Finish hands the board over.
func (p *Placement) Stage() Stage {
	if p.done {
		return StageAttacking
	}
	return StagePlacing
}

// Board exposes the underlying board for rendering.
func (p *Placement) Board() *Board { return &p.board }

// Finish builds the GameState from the selection and blanks the board so a
// snapshot taken afterwards does not give the ship positions away.
func (p *Placement) Finish() (GameState, error) {
	if p.done {
		return GameState{}, ErrAlreadyComplete
	}
	if !p.Ready() {
		return GameState{}, ErrPlacementIncomplete
	}
	st, err := NewGameState(p.board.SelectedCells(), p.rules)
	if err != nil {
		return GameState{}, err
	}
	p.board.Reset()
	p.done = true
	return st, nil
}
