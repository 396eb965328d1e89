package modes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/internal/ai"
	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/scoring"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

func testEnv() *Env {
	return NewEnv(nil, ai.NewSelector(ai.DefaultConfig()), scoring.NewService(nil))
}

func newTestSession(mode game.Mode, size int, aiOpponent bool) *game.Session {
	return &game.Session{
		ID:   "g1",
		Mode: mode,
		P1:   &game.Player{ID: "u1", Name: "one"},
		P2:   &game.Player{ID: "u2", Name: "two", IsAI: aiOpponent},
		Settings: game.Settings{
			BoardSize: size,
			Komi:      6.5,
			Time:      game.TimeControl{MainMs: 300_000, ByoyomiMs: 30_000, ByoyomiPeriods: 3},
		},
		Board:  board.MustNew(size),
		Status: game.StatusPending,
	}
}

func place(t *testing.T, h Handler, sess *game.Session, env *Env, userID string, x, y int, nowMs int64) *gamedto.ActionReply {
	t.Helper()
	reply, err := h.Handle(context.Background(), sess, env, userID,
		gamedto.Action{Type: gamedto.ActPlace, Point: &gamedto.Point{X: x, Y: y}}, nowMs)
	require.NoError(t, err)
	return reply
}

func TestStandardNigiriFlow(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeStandard, 9, false)
	h, err := For(game.ModeStandard)
	require.NoError(t, err)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	require.Equal(t, game.StatusNigiri, sess.Status)
	require.NotNil(t, sess.Timer)

	guess := "even"
	if sess.Setup.NigiriCount%2 == 1 {
		guess = "odd"
	}
	_, err = h.Handle(context.Background(), sess, env, "u2",
		gamedto.Action{Type: gamedto.ActNigiriGuess, Guess: guess}, 2000)
	require.NoError(t, err)

	require.Equal(t, game.StatusPlaying, sess.Status)
	require.Equal(t, "u2", sess.Black.ID, "correct guess takes black")
	require.Equal(t, board.Black, sess.Current)
	require.True(t, sess.Clocks.Running)
}

func TestStandardRejectsOutOfTurn(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeStandard, 9, true)
	h, _ := For(game.ModeStandard)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	require.Equal(t, "u1", sess.Black.ID, "human takes black against an AI")

	before := sess.Board.Clone()
	_, err := h.Handle(context.Background(), sess, env, "u2",
		gamedto.Action{Type: gamedto.ActPlace, Point: &gamedto.Point{X: 4, Y: 4}}, 2000)
	require.True(t, gamedto.IsReject(err))
	require.True(t, sess.Board.Equals(before), "rejection must not mutate the board")
	require.Empty(t, sess.History)
}

func TestStandardTwoPassesEndGame(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeStandard, 9, true)
	h, _ := For(game.ModeStandard)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))

	_, err := h.Handle(context.Background(), sess, env, "u1", gamedto.Action{Type: gamedto.ActPass}, 2000)
	require.NoError(t, err)
	require.Equal(t, board.White, sess.Current)

	_, err = h.Handle(context.Background(), sess, env, "u2", gamedto.Action{Type: gamedto.ActPass}, 3000)
	require.NoError(t, err)
	require.Equal(t, game.StatusEnded, sess.Status)
	require.NotNil(t, sess.Result)
	require.Equal(t, game.EndByScore, sess.Result.Method)
}

func TestFinalPassChargesTheMoverClock(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeStandard, 9, true)
	sess.Settings.Time = game.TimeControl{MainMs: 60_000, FischerMs: 5_000}
	h, _ := For(game.ModeStandard)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))

	// Black passes after 1s, White after a further 30s. The second pass
	// settles the game; White's 30s must come off White's clock, not
	// Black's, and the increment goes to the mover.
	_, err := h.Handle(context.Background(), sess, env, "u1", gamedto.Action{Type: gamedto.ActPass}, 2000)
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), sess, env, "u2", gamedto.Action{Type: gamedto.ActPass}, 32_000)
	require.NoError(t, err)

	require.Equal(t, game.StatusEnded, sess.Status)
	require.Equal(t, int64(64_000), sess.Clocks.Black.RemainingMs)
	require.Equal(t, int64(35_000), sess.Clocks.White.RemainingMs)
	require.Equal(t, 2.0, sess.Result.Black.TimeBonus)
	require.Equal(t, 1.0, sess.Result.White.TimeBonus)
}

func TestCaptureBidRevealAndGoal(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeCapture, 9, true)
	h, _ := For(game.ModeCapture)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))

	// The AI already sealed its default bid; the human's higher bid
	// becomes the target.
	require.Equal(t, game.StatusCaptureBid, sess.Status)
	bid := 7.0
	_, err := h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActCaptureBid, Bid: &bid}, 2000)
	require.NoError(t, err)
	require.Equal(t, game.StatusBidReveal, sess.Status)

	st := sess.State.(*game.CaptureState)
	require.Equal(t, 7, st.Target)

	h.OnTimerExpired(context.Background(), sess, env, 2000+bidRevealMs)
	require.Equal(t, game.StatusPlaying, sess.Status)
}

func TestCaptureGoalEndsGame(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeCapture, 9, true)
	h, _ := For(game.ModeCapture)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	bid := 1.0
	_, err := h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActCaptureBid, Bid: &bid}, 2000)
	require.NoError(t, err)
	h.OnTimerExpired(context.Background(), sess, env, 2000+bidRevealMs)
	st := sess.State.(*game.CaptureState)
	require.Equal(t, fallbackCaptureBid(sess), st.Target, "AI default bid outbids 1")

	// Force a one-capture target and surround a white stone.
	st.Target = 1
	sess.Board = sess.Board.
		With(board.Point{X: 4, Y: 4}, board.White).
		With(board.Point{X: 3, Y: 4}, board.Black).
		With(board.Point{X: 5, Y: 4}, board.Black).
		With(board.Point{X: 4, Y: 3}, board.Black)
	reply := place(t, h, sess, env, "u1", 4, 5, 3000)

	require.Len(t, reply.Captured, 1)
	require.Equal(t, game.StatusEnded, sess.Status)
	require.Equal(t, board.Black, sess.Result.Winner)
	require.Equal(t, game.EndByGoal, sess.Result.Method)
}

func TestMissileRedirect(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeMissile, 9, true)
	h, _ := For(game.ModeMissile)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	require.Equal(t, game.StatusPlaying, sess.Status)

	// Black stone to launch, and a white stone at (8,1) whose last
	// liberty is the landing square (8,2).
	sess.Board = sess.Board.
		With(board.Point{X: 2, Y: 2}, board.Black).
		With(board.Point{X: 8, Y: 1}, board.White).
		With(board.Point{X: 7, Y: 1}, board.Black).
		With(board.Point{X: 8, Y: 0}, board.Black)

	_, err := h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActMissileSelect, Point: &gamedto.Point{X: 2, Y: 2}}, 2000)
	require.NoError(t, err)
	require.Equal(t, game.StatusMissileSelecting, sess.Status)

	reply, err := h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActMissileLaunch, Direction: "right"}, 3000)
	require.NoError(t, err)

	require.Equal(t, board.Empty, sess.Board.At(board.Point{X: 2, Y: 2}))
	require.Equal(t, board.Black, sess.Board.At(board.Point{X: 8, Y: 2}), "stone slides to the far edge")
	require.Equal(t, board.Empty, sess.Board.At(board.Point{X: 8, Y: 1}), "landing captures the white stone")
	require.Equal(t, []gamedto.Point{{X: 8, Y: 1}}, reply.Captured)
	require.Equal(t, 1, sess.Captures.Black.Total)

	st := sess.State.(*game.MissileState)
	require.Equal(t, 1, st.MissilesBlack)
	require.True(t, st.UsedThisTurn)
	require.Equal(t, game.StatusMissileAnimating, sess.Status)

	h.OnTimerExpired(context.Background(), sess, env, 3000+missileAnimateMs)
	require.Equal(t, game.StatusPlaying, sess.Status)
	require.Equal(t, board.Black, sess.Current, "missile use keeps the turn")

	_, err = h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActMissileSelect, Point: &gamedto.Point{X: 8, Y: 2}}, 4000)
	require.True(t, gamedto.IsReject(err), "second missile in one turn is blocked")
}

func TestMissileSelectTimeoutCancels(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeMissile, 9, true)
	h, _ := For(game.ModeMissile)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	sess.Board = sess.Board.With(board.Point{X: 2, Y: 2}, board.Black)

	_, err := h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActMissileSelect, Point: &gamedto.Point{X: 2, Y: 2}}, 2000)
	require.NoError(t, err)

	h.OnTimerExpired(context.Background(), sess, env, 2000+transitionalDeadlineMs)
	require.Equal(t, game.StatusPlaying, sess.Status)
	st := sess.State.(*game.MissileState)
	require.Equal(t, 2, st.MissilesBlack, "timeout costs no missile")
	require.False(t, st.UsedThisTurn)
	require.Equal(t, board.Black, sess.Current)
}

func TestOmokWinLine(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeOmok, 15, true)
	h, _ := For(game.ModeOmok)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	require.Equal(t, game.StatusPlaying, sess.Status)

	whiteY := 10
	for i := 0; i < 4; i++ {
		place(t, h, sess, env, "u1", 3+i, 3, 2000)
		place(t, h, sess, env, "u2", 3+i, whiteY, 2100)
	}
	reply := place(t, h, sess, env, "u1", 7, 3, 3000)

	require.Equal(t, "five in a row", reply.Message)
	require.Equal(t, game.StatusEnded, sess.Status)
	require.Equal(t, board.Black, sess.Result.Winner)
	require.Equal(t, game.EndByLine, sess.Result.Method)

	st := sess.State.(*game.OmokState)
	want := []board.Point{{X: 3, Y: 3}, {X: 4, Y: 3}, {X: 5, Y: 3}, {X: 6, Y: 3}, {X: 7, Y: 3}}
	require.Equal(t, want, st.WinningLine)
}

func TestOmokOverlineForbiddenForBlack(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeOmok, 15, true)
	sess.Settings.OverlineForbidden = true
	h, _ := For(game.ModeOmok)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))

	// Six in a row must not win for Black when overline is forbidden.
	for _, x := range []int{3, 4, 5, 7, 8} {
		sess.Board = sess.Board.With(board.Point{X: x, Y: 3}, board.Black)
	}
	place(t, h, sess, env, "u1", 6, 3, 2000)
	require.Equal(t, game.StatusPlaying, sess.Status)
}

func TestTtamokFlankCapture(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeTtamok, 15, true)
	h, _ := For(game.ModeTtamok)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))

	// Black at (2,2), white pair at (3,2)(4,2); black closing at (5,2)
	// brackets and removes the pair.
	sess.Board = sess.Board.
		With(board.Point{X: 2, Y: 2}, board.Black).
		With(board.Point{X: 3, Y: 2}, board.White).
		With(board.Point{X: 4, Y: 2}, board.White)
	reply := place(t, h, sess, env, "u1", 5, 2, 2000)

	require.ElementsMatch(t, []gamedto.Point{{X: 3, Y: 2}, {X: 4, Y: 2}}, reply.Captured)
	require.Equal(t, board.Empty, sess.Board.At(board.Point{X: 3, Y: 2}))
	require.Equal(t, board.Empty, sess.Board.At(board.Point{X: 4, Y: 2}))
	require.Equal(t, 2, sess.Captures.Black.Total)
}

func TestHiddenScanAndCollision(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeHidden, 9, true)
	h, _ := For(game.ModeHidden)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))

	// AI hidden stones are pre-scattered; the human places theirs.
	st := sess.State.(*game.HiddenState)
	require.Equal(t, 0, st.PlaceLeftW)
	require.Equal(t, game.StatusHiddenPlacing, sess.Status)

	placedHuman := 0
	for _, p := range sess.Board.EmptyPoints() {
		if placedHuman == hiddenStoneCount(sess) {
			break
		}
		_, err := h.Handle(context.Background(), sess, env, "u1",
			gamedto.Action{Type: gamedto.ActPlaceHidden, Point: &gamedto.Point{X: p.X, Y: p.Y}}, 2000)
		require.NoError(t, err)
		placedHuman++
	}
	require.Equal(t, game.StatusPlaying, sess.Status)

	// Playing onto an invisible white stone reveals it and keeps the
	// turn; the stone stays where it was.
	target := st.HiddenWhite[0]
	reveal, err := h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActPlace, Point: &gamedto.Point{X: target.X, Y: target.Y}}, 3000)
	require.NoError(t, err)
	require.Contains(t, reveal.Revealed, gamedto.Point{X: target.X, Y: target.Y})
	require.Contains(t, st.Revealed, target)
	require.Equal(t, board.White, sess.Board.At(target))
	require.Equal(t, board.Black, sess.Current)

	// A scan centered on the other hidden stone finds it.
	other := st.HiddenWhite[1]
	reply, err := h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActScan, Point: &gamedto.Point{X: other.X, Y: other.Y}}, 4000)
	require.NoError(t, err)
	require.Contains(t, reply.Revealed, gamedto.Point{X: other.X, Y: other.Y})
	require.Equal(t, scanCount(sess)-1, st.ScansLeftB)
}

func TestBaseKomiAuctionSwapsColors(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeBase, 9, true)
	h, _ := For(game.ModeBase)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	require.Equal(t, "u1", sess.Black.ID)

	// AI bases are scattered at init; the human places theirs.
	require.Equal(t, game.StatusBasePlacing, sess.Status)
	placedHuman := 0
	for _, p := range sess.Board.EmptyPoints() {
		if placedHuman == baseStoneCount(sess) {
			break
		}
		_, err := h.Handle(context.Background(), sess, env, "u1",
			gamedto.Action{Type: gamedto.ActPlaceBase, Point: &gamedto.Point{X: p.X, Y: p.Y}}, 2000)
		require.NoError(t, err)
		placedHuman++
	}
	require.Equal(t, game.StatusKomiBidding, sess.Status)

	// The AI bids table komi both rounds; the human underbids, so the AI
	// takes Black and its bid becomes the komi.
	st := sess.State.(*game.BaseState)
	for round := 0; round < 2; round++ {
		require.Equal(t, round, st.BidRound)
		bid := 1.5
		_, err := h.Handle(context.Background(), sess, env, "u1",
			gamedto.Action{Type: gamedto.ActKomiBid, Bid: &bid}, 3000)
		require.NoError(t, err)
	}
	require.Equal(t, game.StatusBidReveal, sess.Status)
	require.Equal(t, "u2", sess.Black.ID, "higher final bid takes black")
	require.Equal(t, 6.5, sess.Settings.Komi)

	h.OnTimerExpired(context.Background(), sess, env, 3000+bidRevealMs)
	require.Equal(t, game.StatusPlaying, sess.Status)
}

func TestSingleIntroAndBoosters(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeSingle, 9, true)
	sess.P2.Name = "cpu"
	h, _ := For(game.ModeSingle)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))

	require.Equal(t, game.StatusIntro, sess.Status)
	require.Equal(t, singleSetupStones, sess.Board.StoneCount(board.White))

	_, err := h.Handle(context.Background(), sess, env, "u1",
		gamedto.Action{Type: gamedto.ActPlace, Point: &gamedto.Point{X: 4, Y: 4}}, 2000)
	require.True(t, gamedto.IsReject(err), "no moves before confirming the intro")

	_, err = h.Handle(context.Background(), sess, env, "u1", gamedto.Action{Type: gamedto.ActAddStones}, 2000)
	require.NoError(t, err)
	require.Equal(t, addStonesGrant, sess.Board.StoneCount(board.Black))

	_, err = h.Handle(context.Background(), sess, env, "u1", gamedto.Action{Type: gamedto.ActAddStones}, 2100)
	require.True(t, gamedto.IsReject(err), "add stones is single use")

	_, err = h.Handle(context.Background(), sess, env, "u1", gamedto.Action{Type: gamedto.ActConfirmIntro}, 3000)
	require.NoError(t, err)
	require.Equal(t, game.StatusPlaying, sess.Status)
	require.True(t, sess.Clocks.Running)

	// First move played: boosters lock.
	p := sess.Board.LegalMoves(board.Black, nil)[0]
	place(t, h, sess, env, "u1", p.X, p.Y, 4000)
	_, err = h.Handle(context.Background(), sess, env, "u1", gamedto.Action{Type: gamedto.ActRefresh}, 5000)
	require.True(t, gamedto.IsReject(err))
}

func TestDiceRoundsAndSettlement(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeDice, 9, true)
	h, _ := For(game.ModeDice)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	require.Equal(t, game.StatusPlaying, sess.Status)

	st := sess.State.(*game.DiceState)
	for round := diceRounds; round > 0; round-- {
		require.Equal(t, round, st.RoundsLeft)
		reply, err := h.Handle(context.Background(), sess, env, "u1", gamedto.Action{Type: gamedto.ActRollDice}, 2000)
		require.NoError(t, err)
		require.Len(t, reply.Dice, 2)
		for _, d := range reply.Dice {
			require.GreaterOrEqual(t, d, 1)
			require.LessOrEqual(t, d, 6)
		}
		_, err = h.Handle(context.Background(), sess, env, "u1", gamedto.Action{Type: gamedto.ActRollDice}, 2100)
		if st.RolledB {
			require.True(t, gamedto.IsReject(err), "one roll per round")
		}
		_, err = h.Handle(context.Background(), sess, env, "u2", gamedto.Action{Type: gamedto.ActRollDice}, 2200)
		if sess.Ended() {
			break
		}
		require.NoError(t, err)
	}

	// Ties regrant a round; everything else settles by total.
	if sess.Ended() {
		require.NotNil(t, sess.Result)
		require.Equal(t, game.EndByGoal, sess.Result.Method)
	} else {
		require.Equal(t, 1, st.RoundsLeft)
	}
}

func TestAlkkagiKnockout(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeAlkkagi, 9, true)
	h, _ := For(game.ModeAlkkagi)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))

	require.Equal(t, alkkagiStoneCount, sess.Board.StoneCount(board.Black))
	require.Equal(t, alkkagiStoneCount, sess.Board.StoneCount(board.White))

	// Find a black stone with a white stone straight up its column.
	var origin board.Point
	found := false
	for _, b := range sess.Board.Stones(board.Black) {
		for _, w := range sess.Board.Stones(board.White) {
			if w.X == b.X {
				origin, found = b, true
			}
		}
	}
	require.True(t, found)

	power := 1.0
	reply, err := h.Handle(context.Background(), sess, env, "u1", gamedto.Action{
		Type:      gamedto.ActFlick,
		Point:     &gamedto.Point{X: origin.X, Y: origin.Y},
		Direction: "up",
		Power:     &power,
	}, 2000)
	require.NoError(t, err)
	require.Len(t, reply.Captured, 1)
	require.Equal(t, alkkagiStoneCount-1, sess.Board.StoneCount(board.White))
	require.Equal(t, board.White, sess.Current)
}

func TestCurlingEndScoring(t *testing.T) {
	env := testEnv()
	sess := newTestSession(game.ModeCurling, 9, true)
	h, _ := For(game.ModeCurling)
	require.NoError(t, h.Init(context.Background(), sess, env, 1000))
	require.Equal(t, board.Black, sess.Current)

	power := 1.0 // no drift
	throwAt := func(userID string, x, y int) {
		t.Helper()
		_, err := h.Handle(context.Background(), sess, env, userID, gamedto.Action{
			Type:  gamedto.ActThrow,
			Point: &gamedto.Point{X: x, Y: y},
			Power: &power,
		}, 2000)
		require.NoError(t, err)
	}

	// Black hogs the button, white stays wide: black takes the end.
	for i := 0; i < curlingThrows; i++ {
		throwAt("u1", 4, 3+i)
		throwAt("u2", 0, i)
	}

	st := sess.State.(*game.CurlingState)
	require.Equal(t, 1, st.ScoreBlack)
	require.Equal(t, 0, st.ScoreWhite)
	require.Equal(t, 2, st.End)
	require.Equal(t, 0, sess.Board.StoneCount(board.Black), "sheet cleared between ends")
}

func TestForUnknownMode(t *testing.T) {
	_, err := For(game.Mode("chess"))
	require.True(t, gamedto.IsReject(err))
}
