package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/internal/board"
)

func TestModeStateEnvelopeRoundTrip(t *testing.T) {
	s := &Session{
		ID:       "g1",
		Mode:     ModeMissile,
		Settings: Settings{BoardSize: 9, Komi: 6.5, MissileCount: 2},
		Board:    board.MustNew(9),
		Status:   StatusPlaying,
		Current:  board.Black,
		State:    &MissileState{MissilesBlack: 2, MissilesWhite: 1, UsedThisTurn: true},
	}

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var back Session
	require.NoError(t, json.Unmarshal(raw, &back))

	st, ok := back.State.(*MissileState)
	require.True(t, ok, "state should decode into the mode's variant")
	require.Equal(t, 2, st.MissilesBlack)
	require.Equal(t, 1, st.MissilesWhite)
	require.True(t, st.UsedThisTurn)
	require.Equal(t, ModeMissile, back.Mode)
	require.Equal(t, 9, back.Board.Size)
}

func TestModeStateEnvelopeNilState(t *testing.T) {
	s := &Session{ID: "g2", Mode: ModeStandard, Board: board.MustNew(19)}
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var back Session
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Nil(t, back.State)
}

func TestColorResolution(t *testing.T) {
	p1 := &Player{ID: "u1", Name: "A"}
	p2 := &Player{ID: "u2", Name: "B"}
	s := &Session{P1: p1, P2: p2, Black: p2, White: p1}

	require.Equal(t, board.Black, s.ColorOf("u2"))
	require.Equal(t, board.White, s.ColorOf("u1"))
	require.Equal(t, board.Empty, s.ColorOf("nobody"))
	require.Equal(t, 1, s.Seat("u1"))
	require.Equal(t, 0, s.Seat("nobody"))
}

func TestConsecutivePasses(t *testing.T) {
	s := &Session{History: []Move{
		{Color: board.Black, Point: board.Point{X: 2, Y: 2}},
		{Color: board.White, Pass: true},
		{Color: board.Black, Pass: true},
	}}
	require.Equal(t, 2, s.ConsecutivePasses())
}
