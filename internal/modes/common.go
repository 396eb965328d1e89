package modes

import (
	"context"

	"go.uber.org/zap"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/gtp"
	"github.com/hanq-games/baduk-server/internal/obslog"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// requireSeated resolves the acting user to their color, rejecting
// spectators and pre-assignment actions.
func requireSeated(sess *game.Session, userID string) (board.Color, error) {
	c := sess.ColorOf(userID)
	if c == board.Empty {
		return board.Empty, gamedto.Rejectf("you are not a player in this game")
	}
	return c, nil
}

// requireTurn additionally rejects out-of-turn actions.
func requireTurn(sess *game.Session, userID string) (board.Color, error) {
	c, err := requireSeated(sess, userID)
	if err != nil {
		return board.Empty, err
	}
	if sess.Current != c {
		return board.Empty, gamedto.Rejectf("not your turn")
	}
	return c, nil
}

func requireStatus(sess *game.Session, want game.Status) error {
	if sess.Status != want {
		return gamedto.Rejectf("action not available while %s", sess.Status)
	}
	return nil
}

func actionPoint(act gamedto.Action) (board.Point, error) {
	if act.Point == nil {
		return board.Point{}, gamedto.Rejectf("missing point")
	}
	return board.Point{X: act.Point.X, Y: act.Point.Y}, nil
}

func dtoPoints(pts []board.Point) []gamedto.Point {
	out := make([]gamedto.Point, len(pts))
	for i, p := range pts {
		out[i] = gamedto.Point{X: p.X, Y: p.Y}
	}
	return out
}

func containsPoint(pts []board.Point, p board.Point) bool {
	for _, q := range pts {
		if q == p {
			return true
		}
	}
	return false
}

func removePoint(pts []board.Point, p board.Point) []board.Point {
	out := pts[:0]
	for _, q := range pts {
		if q != p {
			out = append(out, q)
		}
	}
	return out
}

// startPlaying moves a fully negotiated session into live play: Black
// moves first, clocks armed from a single now sample.
func startPlaying(sess *game.Session, nowMs int64) {
	sess.Status = game.StatusPlaying
	sess.Timer = nil
	sess.Current = board.Black
	sess.InitClocks()
	sess.StartClock(nowMs)
}

// endGame freezes and settles the session. All goal, resign, timeout and
// scoring endings funnel through here.
func endGame(ctx context.Context, sess *game.Session, env *Env, nowMs int64, method game.EndMethod, winner board.Color) {
	// Settle the final mover's elapsed time while Current still names
	// them; Of(Empty) would resolve to Black.
	sess.StopClock(nowMs)
	sess.Current = board.Empty
	sess.PendingAI = nil
	env.Scoring.Settle(ctx, sess, nowMs, method, winner)
}

// endNoContest abandons the session without settlement.
func endNoContest(sess *game.Session, nowMs int64) {
	sess.StopClock(nowMs)
	sess.Current = board.Empty
	sess.Status = game.StatusNoContest
	sess.Timer = nil
	sess.PendingAI = nil
}

// placeStone applies one live placement under full capture rules, keeps
// the capture sub-counts and the engine in sync, and appends to history.
// It does not switch the turn; callers decide that (missile continuation
// keeps the mover).
func placeStone(ctx context.Context, sess *game.Session, env *Env, c board.Color, p board.Point, hidden bool) (*gamedto.ActionReply, error) {
	placed, err := sess.Board.Place(p, c, sess.Ko)
	if err != nil {
		return nil, rejectPlacement(err)
	}

	recordCaptures(sess, c, placed.Captured)
	sess.Board = placed.Board
	sess.Ko = placed.Ko
	history := sess.History
	sess.History = append(sess.History, game.Move{Color: c, Point: p, Hidden: hidden})

	notifyEngine(ctx, sess, env, history, gtp.Move{Color: c, Point: p})

	return &gamedto.ActionReply{Captured: dtoPoints(placed.Captured)}, nil
}

func rejectPlacement(err error) error {
	switch err {
	case board.ErrOccupied:
		return gamedto.Rejectf("point is occupied")
	case board.ErrSuicide:
		return gamedto.Rejectf("suicide is not allowed")
	case board.ErrKo:
		return gamedto.Rejectf("ko: immediate recapture is forbidden")
	case board.ErrOffBoard:
		return gamedto.Rejectf("point is off the board")
	}
	return err
}

// recordCaptures bumps the mover's counts, classifying each captured
// stone against the mode's base and hidden lists.
func recordCaptures(sess *game.Session, mover board.Color, captured []board.Point) {
	if len(captured) == 0 {
		return
	}
	caps := sess.Captures.Of(mover)
	caps.Total += len(captured)

	victim := mover.Opponent()
	switch st := sess.State.(type) {
	case *game.BaseState:
		bases := &st.BasesBlack
		if victim == board.White {
			bases = &st.BasesWhite
		}
		for _, p := range captured {
			if containsPoint(*bases, p) {
				caps.Base++
				*bases = removePoint(*bases, p)
			}
		}
	case *game.HiddenState:
		hiddenStones := &st.HiddenBlack
		if victim == board.White {
			hiddenStones = &st.HiddenWhite
		}
		for _, p := range captured {
			if containsPoint(*hiddenStones, p) {
				caps.Hidden++
				*hiddenStones = removePoint(*hiddenStones, p)
				st.Revealed = removePoint(st.Revealed, p)
			}
		}
	}
}

// notifyEngine keeps a live engine instance in step with the session.
// Best effort; a failed or absent engine never fails the move.
func notifyEngine(ctx context.Context, sess *game.Session, env *Env, priorHistory []game.Move, mv gtp.Move) {
	if env.Engines == nil {
		return
	}
	inst := env.Engines.Get(sess.ID)
	if inst == nil {
		return
	}
	if sess.HiddenHistory() {
		// Board-state games are resynced wholesale before each genmove.
		return
	}
	prior := make([]gtp.Move, 0, len(priorHistory))
	for _, m := range priorHistory {
		if m.Resign {
			continue
		}
		prior = append(prior, gtp.Move{Color: m.Color, Point: m.Point, Pass: m.Pass})
	}
	if err := inst.PlayMove(ctx, prior, mv); err != nil {
		obslog.L().Warn("engine rejected move, continuing degraded",
			zap.String("game_id", sess.ID), zap.Error(err))
	}
}

// handlePass records a pass and ends by scoring on the second consecutive
// one.
func handlePass(ctx context.Context, sess *game.Session, env *Env, c board.Color, nowMs int64) (*gamedto.ActionReply, error) {
	sess.History = append(sess.History, game.Move{Color: c, Pass: true})
	sess.Ko = nil
	if sess.ConsecutivePasses() >= 2 {
		endGame(ctx, sess, env, nowMs, game.EndByScore, board.Empty)
		return &gamedto.ActionReply{Message: "both players passed"}, nil
	}
	notifyEngine(ctx, sess, env, sess.History[:len(sess.History)-1], gtp.Move{Color: c, Pass: true})
	sess.SwitchTurn(nowMs)
	return &gamedto.ActionReply{Message: "pass"}, nil
}

// handleResign ends the game immediately in the opponent's favor.
func handleResign(ctx context.Context, sess *game.Session, env *Env, c board.Color, nowMs int64) (*gamedto.ActionReply, error) {
	sess.History = append(sess.History, game.Move{Color: c, Resign: true})
	endGame(ctx, sess, env, nowMs, game.EndByResign, c.Opponent())
	return &gamedto.ActionReply{Message: "resigned"}, nil
}

// handlePauseResume serves pausable games; others reject both actions.
func handlePauseResume(sess *game.Session, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if !sess.Pausable() {
		return nil, gamedto.Rejectf("this game cannot be paused")
	}
	switch act.Type {
	case gamedto.ActPause:
		if err := requireStatus(sess, game.StatusPlaying); err != nil {
			return nil, err
		}
		sess.PauseClock(nowMs)
		sess.Status = game.StatusPaused
		return &gamedto.ActionReply{Message: "paused"}, nil
	case gamedto.ActResume:
		if err := requireStatus(sess, game.StatusPaused); err != nil {
			return nil, err
		}
		sess.Status = game.StatusPlaying
		sess.ResumeClock(nowMs)
		return &gamedto.ActionReply{Message: "resumed"}, nil
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

// armTimer sets the single transitional-phase deadline.
func armTimer(sess *game.Session, status game.Status, nowMs, afterMs int64) {
	sess.Status = status
	sess.Timer = &game.PendingTimer{For: status, DeadlineMs: nowMs + afterMs}
}

// scatterStones places n stones of color c on uniformly random empty
// points, appending them to SetupStones. Used by base, hidden, single and
// tower setup.
func scatterStones(sess *game.Session, env *Env, c board.Color, n int) []board.Point {
	placed := make([]board.Point, 0, n)
	for len(placed) < n {
		empty := sess.Board.EmptyPoints()
		if len(empty) == 0 {
			break
		}
		p := empty[env.Intn(len(empty))]
		sess.Board = sess.Board.With(p, c)
		sess.SetupStones = append(sess.SetupStones, game.Move{Color: c, Point: p})
		placed = append(placed, p)
	}
	return placed
}

// engineInstance lazily creates the session's engine subprocess for
// AI-backed strategic games. Nil when the engine binary is unavailable.
func engineInstance(ctx context.Context, sess *game.Session, env *Env) *gtp.Instance {
	if env.Engines == nil || !env.Engines.Available() || !sess.Mode.Strategic() {
		return nil
	}
	inst, err := env.Engines.Ensure(ctx, sess.ID, sess.Settings.AILevel, sess.Settings.BoardSize, sess.Settings.Komi)
	if err != nil {
		obslog.L().Warn("engine unavailable for game",
			zap.String("game_id", sess.ID), zap.Error(err))
		return nil
	}
	return inst
}

// strategicAIMove produces the AI's next move for board-rules modes:
// engine genmove when a subprocess is available, heuristic selector
// otherwise, pass as the last resort.
func strategicAIMove(ctx context.Context, sess *game.Session, env *Env, allowPass bool) (gamedto.Action, error) {
	c := sess.Current

	if inst := engineInstance(ctx, sess, env); inst != nil {
		if sess.HiddenHistory() {
			if err := inst.Resync(ctx, sess.BoardStateMoves()); err != nil {
				obslog.L().Warn("engine resync from board state failed",
					zap.String("game_id", sess.ID), zap.Error(err))
			}
		}
		v, err := inst.GenMove(ctx, c, allowPass)
		if err == nil {
			if v.Pass {
				return gamedto.Action{Type: gamedto.ActPass}, nil
			}
			return gamedto.Action{Type: gamedto.ActPlace, Point: &gamedto.Point{X: v.Point.X, Y: v.Point.Y}}, nil
		}
		obslog.L().Warn("engine genmove failed, falling back to heuristics",
			zap.String("game_id", sess.ID), zap.Error(err))
	}

	if p, ok := env.AI.Pick(sess.Board, c, sess.Ko, sess.Settings.AILevel); ok {
		return gamedto.Action{Type: gamedto.ActPlace, Point: &gamedto.Point{X: p.X, Y: p.Y}}, nil
	}
	if allowPass {
		return gamedto.Action{Type: gamedto.ActPass}, nil
	}
	return gamedto.Action{}, gamedto.Rejectf("no move available")
}
