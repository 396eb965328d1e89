package gtp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/internal/board"
)

func TestFormatPointSkipsI(t *testing.T) {
	// Column 8 is J, not I, per the board lettering convention.
	require.Equal(t, "A19", FormatPoint(board.Point{X: 0, Y: 0}, 19))
	require.Equal(t, "H1", FormatPoint(board.Point{X: 7, Y: 18}, 19))
	require.Equal(t, "J1", FormatPoint(board.Point{X: 8, Y: 18}, 19))
	require.Equal(t, "T19", FormatPoint(board.Point{X: 18, Y: 0}, 19))
	require.Equal(t, "E5", FormatPoint(board.Point{X: 4, Y: 4}, 9))
}

func TestParseVertex(t *testing.T) {
	v, err := ParseVertex("J1", 19)
	require.NoError(t, err)
	require.Equal(t, board.Point{X: 8, Y: 18}, v.Point)

	v, err = ParseVertex("e5", 9)
	require.NoError(t, err)
	require.Equal(t, board.Point{X: 4, Y: 4}, v.Point)

	v, err = ParseVertex("PASS", 9)
	require.NoError(t, err)
	require.True(t, v.Pass)

	v, err = ParseVertex("resign", 9)
	require.NoError(t, err)
	require.True(t, v.Resign)

	_, err = ParseVertex("I5", 19)
	require.Error(t, err, "I is not a valid column letter")
	_, err = ParseVertex("Z3", 9)
	require.Error(t, err)
	_, err = ParseVertex("A0", 9)
	require.Error(t, err)
}

func TestParseVertexRoundTrip(t *testing.T) {
	for _, p := range []board.Point{{X: 0, Y: 0}, {X: 8, Y: 8}, {X: 4, Y: 2}, {X: 7, Y: 0}, {X: 8, Y: 3}} {
		v, err := ParseVertex(FormatPoint(p, 9), 9)
		require.NoError(t, err)
		require.Equal(t, p, v.Point)
	}
}

func TestClassifyOwnershipThresholds(t *testing.T) {
	b := board.MustNew(3)
	placed, err := b.Place(board.Point{X: 0, Y: 0}, board.Black, nil)
	require.NoError(t, err)
	placed, err = placed.Board.Place(board.Point{X: 2, Y: 2}, board.White, nil)
	require.NoError(t, err)
	b = placed.Board

	a := Analysis{Ownership: []float64{
		-0.95, 0.95, 0.89, // dead black stone, black territory, below cutoff
		-0.91, 0.0, 0.2,
		0.5, -0.3, 0.92, // white stone owned by black: dead
	}}
	classifyOwnership(&a, b)

	require.Equal(t, []board.Point{{X: 1, Y: 0}}, a.TerritoryBlack)
	require.Equal(t, []board.Point{{X: 0, Y: 1}}, a.TerritoryWhite)
	require.ElementsMatch(t, []board.Point{{X: 0, Y: 0}, {X: 2, Y: 2}}, a.DeadStones)
}

func TestNeutralAnalysis(t *testing.T) {
	n := Neutral()
	require.Equal(t, 0.5, n.WinrateBlack)
	require.Zero(t, n.ScoreLead)
	require.Empty(t, n.DeadStones)
	require.Empty(t, n.Candidates)
}
