package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_Toggle(t *testing.T) {
	var b Board
	require.NoError(t, b.Toggle(4))
	require.NoError(t, b.Toggle(0))
	assert.Equal(t, []int{0, 4}, b.SelectedCells())

	require.NoError(t, b.Toggle(4))
	assert.Equal(t, []int{0}, b.SelectedCells())
}

func TestBoard_ToggleOutOfRangeIsNoop(t *testing.T) {
	var b Board
	require.NoError(t, b.Toggle(8))
	for _, c := range []int{-1, 9, 42} {
		assert.ErrorIs(t, b.Toggle(c), ErrInvalidCellIndex)
	}
	assert.Equal(t, []int{8}, b.SelectedCells())
	assert.False(t, b.Selected(9))
}

func TestBoard_ResetAndRender(t *testing.T) {
	var b Board
	for _, c := range []int{0, 4, 8} {
		require.NoError(t, b.Toggle(c))
	}
	assert.Equal(t, "x . .\n. x .\n. . x", b.Render())

	b.Reset()
	assert.Empty(t, b.SelectedCells())
	assert.Equal(t, ". . .\n. . .\n. . .", b.Render())
}

func TestPlacement_LimitsShips(t *testing.T) {
	p := NewPlacement(DefaultRules())
	assert.Equal(t, 2, p.ShipsLeft())
	assert.False(t, p.Ready())

	require.NoError(t, p.Toggle(2))
	require.NoError(t, p.Toggle(5))
	assert.True(t, p.Ready())

	// A third ship is ignored.
	require.NoError(t, p.Toggle(7))
	assert.Equal(t, []int{2, 5}, p.Board().SelectedCells())

	// Moving a ship: deselect then select elsewhere.
	require.NoError(t, p.Toggle(5))
	assert.Equal(t, 1, p.ShipsLeft())
	require.NoError(t, p.Toggle(7))
	assert.Equal(t, []int{2, 7}, p.Board().SelectedCells())

	assert.ErrorIs(t, p.Toggle(9), ErrInvalidCellIndex)
}

func TestPlacement_Finish(t *testing.T) {
	p := NewPlacement(DefaultRules())
	require.NoError(t, p.Toggle(5))

	_, err := p.Finish()
	assert.ErrorIs(t, err, ErrPlacementIncomplete)

	require.NoError(t, p.Toggle(2))
	st, err := p.Finish()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, st.ShipLocations)
	assert.False(t, st.IsComplete)

	// The board is blank afterwards so a snapshot reveals nothing.
	assert.Empty(t, p.Board().SelectedCells())
}

func TestPlacement_Stage(t *testing.T) {
	p := NewPlacement(DefaultRules())
	assert.Equal(t, StagePlacing, p.Stage())
	require.NoError(t, p.Toggle(1))
	require.NoError(t, p.Toggle(3))
	assert.Equal(t, StagePlacing, p.Stage())

	_, err := p.Finish()
	require.NoError(t, err)
	assert.Equal(t, StageAttacking, p.Stage())

	// The handed-over board is frozen.
	assert.ErrorIs(t, p.Toggle(4), ErrAlreadyComplete)
	_, err = p.Finish()
	assert.ErrorIs(t, err, ErrAlreadyComplete)
}
