package modes

import (
	"context"
	"fmt"
	"math"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// Mini-game tuning.
const (
	diceRounds        = 5
	curlingEnds       = 3
	curlingThrows     = 3 // per side per end
	alkkagiStoneCount = 5
)

// --- dice ---

// diceHandler plays the dice mini-game: both sides roll two dice per
// round, sums accumulate, highest total after the last round wins. A
// round deadline auto-rolls for the slow side.
type diceHandler struct{}

func (diceHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	sess.State = &game.DiceState{RoundsLeft: diceRounds}
	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
		beginDiceRound(sess, nowMs)
		return nil
	}
	beginTurnPreference(sess, nowMs)
	return nil
}

func beginDiceRound(sess *game.Session, nowMs int64) {
	sess.Current = board.Black
	armTimer(sess, game.StatusPlaying, nowMs, transitionalDeadlineMs)
}

func (h *diceHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if sess.Status == game.StatusTurnPreference {
		done, reply, err := handleTurnPreference(sess, env, userID, act, nowMs)
		if err != nil {
			return nil, err
		}
		if done {
			beginDiceRound(sess, nowMs)
		}
		return reply, nil
	}
	if err := requireStatus(sess, game.StatusPlaying); err != nil {
		return nil, err
	}
	c, err := requireSeated(sess, userID)
	if err != nil {
		return nil, err
	}

	switch act.Type {
	case gamedto.ActResign:
		return handleResign(ctx, sess, env, c, nowMs)
	case gamedto.ActRollDice:
		return h.roll(ctx, sess, env, c, nowMs)
	}
	return nil, gamedto.Rejectf("unsupported action %q", act.Type)
}

func (diceHandler) roll(ctx context.Context, sess *game.Session, env *Env, c board.Color, nowMs int64) (*gamedto.ActionReply, error) {
	st := sess.State.(*game.DiceState)
	rolled := &st.RolledB
	last, score := &st.LastBlack, &st.ScoreBlack
	if c == board.White {
		rolled, last, score = &st.RolledW, &st.LastWhite, &st.ScoreWhite
	}
	if *rolled {
		return nil, gamedto.Rejectf("already rolled this round")
	}

	dice := []int{1 + env.Intn(6), 1 + env.Intn(6)}
	*last = dice
	*score += dice[0] + dice[1]
	*rolled = true

	reply := &gamedto.ActionReply{Dice: dice}
	finishDiceRound(ctx, sess, env, nowMs)
	return reply, nil
}

// finishDiceRound closes the round once both sides rolled and settles the
// match after the last one. A tied final score grants one extra round.
func finishDiceRound(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	st := sess.State.(*game.DiceState)
	if !st.RolledB || !st.RolledW {
		return
	}
	st.RoundsLeft--
	st.RolledB, st.RolledW = false, false
	if st.RoundsLeft > 0 {
		beginDiceRound(sess, nowMs)
		return
	}
	switch {
	case st.ScoreBlack > st.ScoreWhite:
		endGame(ctx, sess, env, nowMs, game.EndByGoal, board.Black)
	case st.ScoreWhite > st.ScoreBlack:
		endGame(ctx, sess, env, nowMs, game.EndByGoal, board.White)
	default:
		st.RoundsLeft = 1
		beginDiceRound(sess, nowMs)
	}
}

func (diceHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	switch sess.Status {
	case game.StatusTurnPreference:
		negotiationTimeout(sess, env)
		beginDiceRound(sess, nowMs)
	case game.StatusPlaying:
		st := sess.State.(*game.DiceState)
		for _, c := range []board.Color{board.Black, board.White} {
			rolled := st.RolledB
			if c == board.White {
				rolled = st.RolledW
			}
			if !rolled {
				h := diceHandler{}
				h.roll(ctx, sess, env, c, nowMs) //nolint:errcheck
			}
		}
	}
}

func (diceHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	return gamedto.Action{Type: gamedto.ActRollDice}, nil
}

// --- curling ---

// curlingHandler plays stone curling: alternating aimed throws toward
// the board center, low power meaning more drift. The side with the
// closest stone takes the end; most ends wins.
type curlingHandler struct{}

func (curlingHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	sess.State = &game.CurlingState{
		ThrowsLeftB: curlingThrows, ThrowsLeftW: curlingThrows, End: 1,
	}
	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
		beginCurlingTurn(sess, board.Black, nowMs)
		return nil
	}
	beginTurnPreference(sess, nowMs)
	return nil
}

func beginCurlingTurn(sess *game.Session, c board.Color, nowMs int64) {
	sess.Current = c
	armTimer(sess, game.StatusPlaying, nowMs, transitionalDeadlineMs)
}

func (h *curlingHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if sess.Status == game.StatusTurnPreference {
		done, reply, err := handleTurnPreference(sess, env, userID, act, nowMs)
		if err != nil {
			return nil, err
		}
		if done {
			beginCurlingTurn(sess, board.Black, nowMs)
		}
		return reply, nil
	}
	if err := requireStatus(sess, game.StatusPlaying); err != nil {
		return nil, err
	}

	if act.Type == gamedto.ActResign {
		c, err := requireSeated(sess, userID)
		if err != nil {
			return nil, err
		}
		return handleResign(ctx, sess, env, c, nowMs)
	}
	c, err := requireTurn(sess, userID)
	if err != nil {
		return nil, err
	}
	if act.Type != gamedto.ActThrow {
		return nil, gamedto.Rejectf("unsupported action %q", act.Type)
	}
	return h.throwStone(ctx, sess, env, c, act, nowMs)
}

func (curlingHandler) throwStone(ctx context.Context, sess *game.Session, env *Env, c board.Color, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	aim, err := actionPoint(act)
	if err != nil {
		return nil, err
	}
	if !sess.Board.InBounds(aim) {
		return nil, gamedto.Rejectf("aim is off the board")
	}
	power := 0.5
	if act.Power != nil {
		power = *act.Power
	}
	if power <= 0 || power > 1 {
		return nil, gamedto.Rejectf("power must be in (0, 1]")
	}

	st := sess.State.(*game.CurlingState)
	throws := &st.ThrowsLeftB
	if c == board.White {
		throws = &st.ThrowsLeftW
	}
	if *throws <= 0 {
		return nil, gamedto.Rejectf("no throws remaining this end")
	}
	*throws--

	landing := driftLanding(sess.Board, env, aim, power)
	if sess.Board.At(landing) != board.Empty {
		// Takeout: the occupant is knocked off and the thrown stone takes
		// its spot.
		sess.Board = sess.Board.Without(landing)
	}
	sess.Board = sess.Board.With(landing, c)

	reply := &gamedto.ActionReply{
		Message: fmt.Sprintf("stone came to rest at %s", landing),
		Path:    []gamedto.Point{{X: landing.X, Y: landing.Y}},
	}
	advanceCurling(ctx, sess, env, c, nowMs)
	return reply, nil
}

// driftLanding perturbs the aim by up to two cells depending on throw
// power, clamped to the board.
func driftLanding(b board.Board, env *Env, aim board.Point, power float64) board.Point {
	spread := 0
	switch {
	case power < 0.5:
		spread = 2
	case power < 0.9:
		spread = 1
	}
	p := aim
	if spread > 0 {
		p.X += env.Intn(2*spread+1) - spread
		p.Y += env.Intn(2*spread+1) - spread
	}
	p.X = clamp(p.X, 0, b.Size-1)
	p.Y = clamp(p.Y, 0, b.Size-1)
	return p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func advanceCurling(ctx context.Context, sess *game.Session, env *Env, thrower board.Color, nowMs int64) {
	st := sess.State.(*game.CurlingState)
	if st.ThrowsLeftB == 0 && st.ThrowsLeftW == 0 {
		scoreCurlingEnd(ctx, sess, env, nowMs)
		return
	}
	next := thrower.Opponent()
	nextThrows := st.ThrowsLeftB
	if next == board.White {
		nextThrows = st.ThrowsLeftW
	}
	if nextThrows == 0 {
		next = thrower
	}
	beginCurlingTurn(sess, next, nowMs)
}

// scoreCurlingEnd awards the end to the side with the stone closest to
// the house center, clears the sheet and starts the next end or settles
// the match. One extra end breaks a final tie; a second tie abandons the
// game.
func scoreCurlingEnd(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	st := sess.State.(*game.CurlingState)
	center := float64(sess.Board.Size-1) / 2

	best := math.Inf(1)
	winner := board.Empty
	for _, c := range []board.Color{board.Black, board.White} {
		for _, p := range sess.Board.Stones(c) {
			d := math.Hypot(float64(p.X)-center, float64(p.Y)-center)
			switch {
			case d < best:
				best, winner = d, c
			case d == best && winner != c:
				winner = board.Empty // shared distance scores nobody
			}
		}
	}
	switch winner {
	case board.Black:
		st.ScoreBlack++
	case board.White:
		st.ScoreWhite++
	}

	sess.Board = board.MustNew(sess.Board.Size)
	if st.End < curlingEnds {
		st.End++
		st.ThrowsLeftB, st.ThrowsLeftW = curlingThrows, curlingThrows
		beginCurlingTurn(sess, board.Black, nowMs)
		return
	}

	switch {
	case st.ScoreBlack > st.ScoreWhite:
		endGame(ctx, sess, env, nowMs, game.EndByGoal, board.Black)
	case st.ScoreWhite > st.ScoreBlack:
		endGame(ctx, sess, env, nowMs, game.EndByGoal, board.White)
	case st.End == curlingEnds:
		st.End++
		st.ThrowsLeftB, st.ThrowsLeftW = curlingThrows, curlingThrows
		beginCurlingTurn(sess, board.Black, nowMs)
	default:
		endNoContest(sess, nowMs)
	}
}

func (h *curlingHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	switch sess.Status {
	case game.StatusTurnPreference:
		negotiationTimeout(sess, env)
		beginCurlingTurn(sess, board.Black, nowMs)
	case game.StatusPlaying:
		// Auto-throw at the center for the stalled player.
		center := (sess.Board.Size - 1) / 2
		power := 0.75
		act := gamedto.Action{
			Type:  gamedto.ActThrow,
			Point: &gamedto.Point{X: center, Y: center},
			Power: &power,
		}
		h.throwStone(ctx, sess, env, sess.Current, act, nowMs) //nolint:errcheck
	}
}

func (curlingHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	center := (sess.Board.Size - 1) / 2
	power := 0.95
	return gamedto.Action{
		Type:  gamedto.ActThrow,
		Point: &gamedto.Point{X: center, Y: center},
		Power: &power,
	}, nil
}

// --- alkkagi ---

// alkkagiHandler plays the flicking game: each side starts with a row of
// stones and alternates flicks; a flicked stone knocks the first stone in
// its path off the board, or flies off itself on an overpowered shot.
// Last side with stones standing wins.
type alkkagiHandler struct{}

func (alkkagiHandler) Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error {
	sess.State = &game.AlkkagiState{}
	seedAlkkagiRows(sess)
	if sess.P1.IsAI || sess.P2.IsAI {
		assignDirect(sess)
	} else {
		beginTurnPreference(sess, nowMs)
		return nil
	}
	startPlaying(sess, nowMs)
	return nil
}

// seedAlkkagiRows lines each side's stones up on their second rank.
func seedAlkkagiRows(sess *game.Session) {
	size := sess.Board.Size
	step := size / alkkagiStoneCount
	if step < 1 {
		step = 1
	}
	for i := 0; i < alkkagiStoneCount; i++ {
		x := clamp(step/2+i*step, 0, size-1)
		sess.Board = sess.Board.
			With(board.Point{X: x, Y: size - 2}, board.Black).
			With(board.Point{X: x, Y: 1}, board.White)
	}
}

func (h *alkkagiHandler) Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	if sess.Status == game.StatusTurnPreference {
		done, reply, err := handleTurnPreference(sess, env, userID, act, nowMs)
		if err != nil {
			return nil, err
		}
		if done {
			startPlaying(sess, nowMs)
		}
		return reply, nil
	}
	if err := requireStatus(sess, game.StatusPlaying); err != nil {
		return nil, err
	}

	if act.Type == gamedto.ActResign {
		c, err := requireSeated(sess, userID)
		if err != nil {
			return nil, err
		}
		return handleResign(ctx, sess, env, c, nowMs)
	}
	c, err := requireTurn(sess, userID)
	if err != nil {
		return nil, err
	}
	if act.Type != gamedto.ActFlick {
		return nil, gamedto.Rejectf("unsupported action %q", act.Type)
	}
	return h.flick(ctx, sess, env, c, act, nowMs)
}

func (alkkagiHandler) flick(ctx context.Context, sess *game.Session, env *Env, c board.Color, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error) {
	origin, err := actionPoint(act)
	if err != nil {
		return nil, err
	}
	if sess.Board.At(origin) != c {
		return nil, gamedto.Rejectf("flick one of your own stones")
	}
	dir, ok := missileDirections[act.Direction]
	if !ok {
		return nil, gamedto.Rejectf("direction must be up, down, left or right")
	}
	power := 0.5
	if act.Power != nil {
		power = *act.Power
	}
	if power <= 0 || power > 1 {
		return nil, gamedto.Rejectf("power must be in (0, 1]")
	}

	st := sess.State.(*game.AlkkagiState)
	if c == board.Black {
		st.FlicksBlack++
	} else {
		st.FlicksWhite++
	}

	distance := int(math.Round(power * float64(sess.Board.Size)))
	if distance < 1 {
		distance = 1
	}

	sess.Board = sess.Board.Without(origin)
	path := []gamedto.Point{}
	cur := origin
	var knocked *board.Point
	offBoard := false
	for step := 0; step < distance; step++ {
		next := board.Point{X: cur.X + dir.X, Y: cur.Y + dir.Y}
		if !sess.Board.InBounds(next) {
			offBoard = true
			break
		}
		if sess.Board.At(next) != board.Empty {
			knocked = &next
			break
		}
		cur = next
		path = append(path, gamedto.Point{X: cur.X, Y: cur.Y})
	}

	reply := &gamedto.ActionReply{Path: path}
	switch {
	case offBoard:
		// Overshot: the flicked stone leaves the board too.
		reply.Message = "stone flew off the board"
	case knocked != nil:
		sess.Board = sess.Board.Without(*knocked).With(cur, c)
		reply.Captured = []gamedto.Point{{X: knocked.X, Y: knocked.Y}}
		reply.Message = "hit"
	default:
		sess.Board = sess.Board.With(cur, c)
	}

	if winner, over := alkkagiWinner(sess); over {
		endGame(ctx, sess, env, nowMs, game.EndByGoal, winner)
		return reply, nil
	}
	sess.SwitchTurn(nowMs)
	return reply, nil
}

// alkkagiWinner reports a finished board: either side out of stones.
func alkkagiWinner(sess *game.Session) (board.Color, bool) {
	black := sess.Board.StoneCount(board.Black)
	white := sess.Board.StoneCount(board.White)
	switch {
	case black == 0 && white == 0:
		return board.Empty, true
	case black == 0:
		return board.White, true
	case white == 0:
		return board.Black, true
	}
	return board.Empty, false
}

func (alkkagiHandler) OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64) {
	if sess.Status == game.StatusTurnPreference {
		negotiationTimeout(sess, env)
		startPlaying(sess, nowMs)
	}
}

// AIAction flicks the own stone nearest an enemy stone straight at it.
func (alkkagiHandler) AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error) {
	c := sess.Current
	own := sess.Board.Stones(c)
	enemy := sess.Board.Stones(c.Opponent())
	if len(own) == 0 || len(enemy) == 0 {
		return gamedto.Action{}, gamedto.Rejectf("no stones to flick")
	}

	bestDist := math.Inf(1)
	var from, target board.Point
	for _, o := range own {
		for _, e := range enemy {
			d := math.Hypot(float64(o.X-e.X), float64(o.Y-e.Y))
			if d < bestDist {
				bestDist, from, target = d, o, e
			}
		}
	}

	dir := "up"
	dx, dy := target.X-from.X, target.Y-from.Y
	switch {
	case abs(dx) >= abs(dy) && dx > 0:
		dir = "right"
	case abs(dx) >= abs(dy):
		dir = "left"
	case dy > 0:
		dir = "down"
	}
	power := clampFloat(bestDist/float64(sess.Board.Size)+0.1, 0.2, 1)
	return gamedto.Action{
		Type:      gamedto.ActFlick,
		Point:     &gamedto.Point{X: from.X, Y: from.Y},
		Direction: dir,
		Power:     &power,
	}, nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
