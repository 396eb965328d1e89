package modes

import (
	"context"
	"fmt"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

const defaultBaseStones = 3

// baseHandler plays the base-stone variant: each side scatters bonus
// "base" stones before play, then a two-round sealed komi auction decides
// who takes Black and how much White is compensated. Capturing a base
// stone scores a fixed bonus at settlement.
type baseHandler struct{}

func baseStoneCount(sess *game.Session) int {
	if sess.Settings.BaseStones > 0 {
		return sess.Settings.BaseStones
	}
	return defaultBaseStones
}

func (baseHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	st := &game.BaseState{}
	sess.State = st

	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
		beginBasePlacing(sess, env, nowMs)
		return nil
	}
	beginNigiri(sess, env, nowMs)
	return nil
}

func beginBasePlacing(sess *game.Session, env *Env, nowMs int64) {
	armTimer(sess, game.StatusBasePlacing, nowMs, transitionalDeadlineMs)
	aiFillBases(sess, env)
	maybeFinishBasePlacing(sess, env, nowMs)
}

// aiFillBases scatters an AI seat's bases immediately.
func aiFillBases(sess *game.Session, env *Env) {
	st := sess.State.(*game.BaseState)
	n := baseStoneCount(sess)
	for _, c := range []board.Color{board.Black, board.White} {
		pl := sess.PlayerFor(c)
		if pl == nil || !pl.IsAI {
			continue
		}
		bases := &st.BasesBlack
		if c == board.White {
			bases = &st.BasesWhite
		}
		if missing := n - len(*bases); missing > 0 {
			*bases = append(*bases, scatterStones(sess, env, c, missing)...)
		}
	}
}

func maybeFinishBasePlacing(sess *game.Session, env *Env, nowMs int64) {
	st := sess.State.(*game.BaseState)
	n := baseStoneCount(sess)
	if len(st.BasesBlack) < n || len(st.BasesWhite) < n {
		return
	}
	armTimer(sess, game.StatusKomiBidding, nowMs, transitionalDeadlineMs)
	aiFillKomiBid(sess, env)
	maybeAdvanceKomiBid(sess, env, nowMs)
}

// aiFillKomiBid submits the table komi on behalf of AI seats for the
// current round.
func aiFillKomiBid(sess *game.Session, env *Env) {
	st := sess.State.(*game.BaseState)
	r := st.BidRound
	for _, c := range []board.Color{board.Black, board.White} {
		pl := sess.PlayerFor(c)
		if pl == nil || !pl.IsAI {
			continue
		}
		if c == board.Black && !st.BidDoneB[r] {
			st.KomiBidB[r], st.BidDoneB[r] = sess.Settings.Komi, true
		}
		if c == board.White && !st.BidDoneW[r] {
			st.KomiBidW[r], st.BidDoneW[r] = sess.Settings.Komi, true
		}
	}
}

// maybeAdvanceKomiBid moves from round one to round two, and from round
// two to the reveal.
func maybeAdvanceKomiBid(sess *game.Session, env *Env, nowMs int64) {
	st := sess.State.(*game.BaseState)
	r := st.BidRound
	if !st.BidDoneB[r] || !st.BidDoneW[r] {
		return
	}
	if r == 0 {
		st.BidRound = 1
		sess.Timer = &game.PendingTimer{For: game.StatusKomiBidding, DeadlineMs: nowMs + transitionalDeadlineMs}
		aiFillKomiBid(sess, env)
		maybeAdvanceKomiBid(sess, env, nowMs)
		return
	}
	revealKomiBids(sess, nowMs)
}

// revealKomiBids settles the auction: the higher final bid takes Black
// and concedes that komi to White. A tie keeps the negotiated colors.
func revealKomiBids(sess *game.Session, nowMs int64) {
	st := sess.State.(*game.BaseState)
	bidB, bidW := st.KomiBidB[1], st.KomiBidW[1]
	switch {
	case bidB > bidW:
		sess.Settings.Komi = bidB
	case bidW > bidB:
		sess.Settings.Komi = bidW
		sess.Black, sess.White = sess.White, sess.Black
		st.BasesBlack, st.BasesWhite = st.BasesWhite, st.BasesBlack
		swapBaseStoneColors(sess, st)
	default:
		sess.Settings.Komi = bidB
	}
	armTimer(sess, game.StatusBidReveal, nowMs, bidRevealMs)
}

// swapBaseStoneColors repaints the already-placed bases after a color
// swap so each player keeps the stones they chose.
func swapBaseStoneColors(sess *game.Session, st *game.BaseState) {
	for _, p := range st.BasesBlack {
		sess.Board = sess.Board.With(p, board.Black)
	}
	for _, p := range st.BasesWhite {
		sess.Board = sess.Board.With(p, board.White)
	}
	for i := range sess.SetupStones {
		sess.SetupStones[i].Color = sess.SetupStones[i].Color.Opponent()
	}
}

func (h *baseHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	switch sess.Status {
	case game.StatusNigiri:
		if act.Type != gamedto.ActNigiriGuess {
			return nil, gamedto.Rejectf("action not available while %s", sess.Status)
		}
		done, reply, err := handleNigiriGuess(sess, userID, act)
		if err != nil {
			return nil, err
		}
		if done {
			beginBasePlacing(sess, env, nowMs)
		}
		return reply, nil

	case game.StatusBasePlacing:
		return h.handlePlaceBase(sess, env, userID, act, nowMs)

	case game.StatusKomiBidding:
		return h.handleKomiBid(sess, env, userID, act, nowMs)

	case game.StatusBidReveal:
		return nil, gamedto.Rejectf("bid reveal in progress")

	case game.StatusPlaying, game.StatusPaused:
		return h.handleLive(ctx, sess, env, userID, act, nowMs)
	}
	return nil, gamedto.Rejectf("game is not accepting actions")
}

func (baseHandler) handlePlaceBase(sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if act.Type != gamedto.ActPlaceBase {
		return nil, gamedto.Rejectf("action not available while %s", sess.Status)
	}
	c, err := requireSeated(sess, userID)
	if err != nil {
		return nil, err
	}
	p, err := actionPoint(act)
	if err != nil {
		return nil, err
	}
	if !sess.Board.InBounds(p) {
		return nil, gamedto.Rejectf("point is off the board")
	}
	if sess.Board.At(p) != board.Empty {
		return nil, gamedto.Rejectf("point is occupied")
	}

	st := sess.State.(*game.BaseState)
	bases := &st.BasesBlack
	if c == board.White {
		bases = &st.BasesWhite
	}
	n := baseStoneCount(sess)
	if len(*bases) >= n {
		return nil, gamedto.Rejectf("all %d base stones placed", n)
	}

	sess.Board = sess.Board.With(p, c)
	sess.SetupStones = append(sess.SetupStones, game.Move{Color: c, Point: p})
	*bases = append(*bases, p)

	left := n - len(*bases)
	maybeFinishBasePlacing(sess, env, nowMs)
	return &gamedto.ActionReply{Message: fmt.Sprintf("%d base stones remaining", left)}, nil
}

func (baseHandler) handleKomiBid(sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if act.Type != gamedto.ActKomiBid {
		return nil, gamedto.Rejectf("action not available while %s", sess.Status)
	}
	c, err := requireSeated(sess, userID)
	if err != nil {
		return nil, err
	}
	if act.Bid == nil || *act.Bid < 0 {
		return nil, gamedto.Rejectf("komi bid must be non-negative")
	}

	st := sess.State.(*game.BaseState)
	r := st.BidRound
	if c == board.Black {
		if st.BidDoneB[r] {
			return nil, gamedto.Rejectf("bid already submitted for this round")
		}
		st.KomiBidB[r], st.BidDoneB[r] = *act.Bid, true
	} else {
		if st.BidDoneW[r] {
			return nil, gamedto.Rejectf("bid already submitted for this round")
		}
		st.KomiBidW[r], st.BidDoneW[r] = *act.Bid, true
	}

	maybeAdvanceKomiBid(sess, env, nowMs)
	return &gamedto.ActionReply{Message: fmt.Sprintf("round %d bid sealed", r+1)}, nil
}

func (h *baseHandler) handleLive(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	switch act.Type {
	case gamedto.ActPause, gamedto.ActResume:
		return handlePauseResume(sess, act, nowMs)
	case gamedto.ActResign:
		c, err := requireSeated(sess, userID)
		if err != nil {
			return nil, err
		}
		return handleResign(ctx, sess, env, c, nowMs)
	}

	if err := requireStatus(sess, game.StatusPlaying); err != nil {
		return nil, err
	}
	c, err := requireTurn(sess, userID)
	if err != nil {
		return nil, err
	}

	switch act.Type {
	case gamedto.ActPlace:
		p, err := actionPoint(act)
		if err != nil {
			return nil, err
		}
		reply, err := placeStone(ctx, sess, env, c, p, false)
		if err != nil {
			return nil, err
		}
		sess.SwitchTurn(nowMs)
		return reply, nil
	case gamedto.ActPass:
		return handlePass(ctx, sess, env, c, nowMs)
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

func (baseHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	switch sess.Status {
	case game.StatusNigiri:
		negotiationTimeout(sess, env)
		beginBasePlacing(sess, env, nowMs)
	case game.StatusBasePlacing:
		st := sess.State.(*game.BaseState)
		n := baseStoneCount(sess)
		if missing := n - len(st.BasesBlack); missing > 0 {
			st.BasesBlack = append(st.BasesBlack, scatterStones(sess, env, board.Black, missing)...)
		}
		if missing := n - len(st.BasesWhite); missing > 0 {
			st.BasesWhite = append(st.BasesWhite, scatterStones(sess, env, board.White, missing)...)
		}
		maybeFinishBasePlacing(sess, env, nowMs)
	case game.StatusKomiBidding:
		st := sess.State.(*game.BaseState)
		r := st.BidRound
		if !st.BidDoneB[r] {
			st.KomiBidB[r], st.BidDoneB[r] = sess.Settings.Komi, true
		}
		if !st.BidDoneW[r] {
			st.KomiBidW[r], st.BidDoneW[r] = sess.Settings.Komi, true
		}
		maybeAdvanceKomiBid(sess, env, nowMs)
	case game.StatusBidReveal:
		startPlaying(sess, nowMs)
	}
}

func (baseHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	return strategicAIMove(ctx, sess, env, sess.ConsecutivePasses() >= 1)
}
