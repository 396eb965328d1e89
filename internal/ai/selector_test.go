package ai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/internal/board"
)

func place(t *testing.T, b board.Board, p board.Point, c board.Color) board.Board {
	t.Helper()
	res, err := b.Place(p, c, nil)
	require.NoError(t, err)
	return res.Board
}

func TestPickReturnsLegalMove(t *testing.T) {
	s := NewSelector(DefaultConfig())
	b := board.MustNew(9)
	b = place(t, b, board.Point{X: 4, Y: 4}, board.White)

	for i := 0; i < 50; i++ {
		p, ok := s.Pick(b, board.Black, nil, 5)
		require.True(t, ok)
		require.True(t, b.IsLegal(p, board.Black, nil), "picked %v", p)
	}
}

func TestPickNoLegalMove(t *testing.T) {
	s := NewSelector(DefaultConfig())
	// 1x1 board: the only point is suicide.
	b := board.MustNew(1)
	_, ok := s.Pick(b, board.Black, nil, 5)
	require.False(t, ok)
}

func TestCaptureStrategyFindsKill(t *testing.T) {
	b := board.MustNew(9)
	b = place(t, b, board.Point{X: 4, Y: 4}, board.White)
	b = place(t, b, board.Point{X: 3, Y: 4}, board.Black)
	b = place(t, b, board.Point{X: 5, Y: 4}, board.Black)
	b = place(t, b, board.Point{X: 4, Y: 3}, board.Black)

	ctx := &Context{Board: b, Color: board.Black}
	score := captureStrategy{}.Score(board.Point{X: 4, Y: 5}, ctx)
	require.Equal(t, captureStoneValue, score)
	require.Zero(t, captureStrategy{}.Score(board.Point{X: 0, Y: 0}, ctx))
}

func TestSelfAtariStrategyPenalizes(t *testing.T) {
	b := board.MustNew(9)
	// (0,1) and (1,0) white: black (0,0) would be self-atari... it is
	// suicide there, so set up a one-liberty crawl instead.
	b = place(t, b, board.Point{X: 1, Y: 0}, board.White)
	b = place(t, b, board.Point{X: 0, Y: 1}, board.White)
	b = place(t, b, board.Point{X: 1, Y: 1}, board.White)
	b = place(t, b, board.Point{X: 0, Y: 3}, board.White)

	ctx := &Context{Board: b, Color: board.Black}
	// Black at (0,2) has exactly one liberty left: self-atari.
	require.Equal(t, selfAtariPenalty, selfAtariStrategy{}.Score(board.Point{X: 0, Y: 2}, ctx))
	require.Zero(t, selfAtariStrategy{}.Score(board.Point{X: 5, Y: 5}, ctx))
}

func TestTerritoryAndLowLine(t *testing.T) {
	b := board.MustNew(19)
	ctx := &Context{Board: b, Color: board.Black}

	require.Equal(t, thirdLineValue, territoryLineStrategy{}.Score(board.Point{X: 2, Y: 10}, ctx))
	require.Equal(t, fourthLineValue, territoryLineStrategy{}.Score(board.Point{X: 3, Y: 10}, ctx))
	require.Zero(t, territoryLineStrategy{}.Score(board.Point{X: 9, Y: 9}, ctx))

	require.Equal(t, lowLinePenalty, lowLineStrategy{}.Score(board.Point{X: 0, Y: 5}, ctx))
	require.Equal(t, lowLinePenalty, lowLineStrategy{}.Score(board.Point{X: 18, Y: 17}, ctx))
	require.Zero(t, lowLineStrategy{}.Score(board.Point{X: 2, Y: 2}, ctx))
}

func TestLevelResolution(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 1, cfg.level(0).Level)
	require.Equal(t, 5, cfg.level(5).Level)
	require.Equal(t, 9, cfg.level(40).Level)
}

func TestConnectStrategy(t *testing.T) {
	b := board.MustNew(9)
	b = place(t, b, board.Point{X: 3, Y: 4}, board.Black)
	b = place(t, b, board.Point{X: 5, Y: 4}, board.Black)

	ctx := &Context{Board: b, Color: board.Black}
	require.Equal(t, connectGroupValue, connectStrategy{}.Score(board.Point{X: 4, Y: 4}, ctx))
	require.Zero(t, connectStrategy{}.Score(board.Point{X: 0, Y: 0}, ctx))
}
