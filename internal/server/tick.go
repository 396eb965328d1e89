package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/modes"
	"github.com/hanq-games/baduk-server/internal/obslog"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// Ticker posts a tick to every live actor once per interval. Ticks never
// wait on a session: a busy actor just picks the work up next cycle.
type Ticker struct {
	mgr      *Manager
	interval time.Duration
}

func NewTicker(mgr *Manager, intervalMs int) *Ticker {
	if intervalMs <= 0 {
		intervalMs = 250
	}
	return &Ticker{mgr: mgr, interval: time.Duration(intervalMs) * time.Millisecond}
}

func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mgr.TickAll(ctx)
		}
	}
}

// TickAll fans one tick out to every registered actor.
func (m *Manager) TickAll(ctx context.Context) {
	m.mu.Lock()
	actors := make([]*actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.mu.Unlock()

	nowMs := time.Now().UnixMilli()
	for _, a := range actors {
		a := a
		a.post(func(sess *game.Session) {
			m.tick(ctx, a, sess, nowMs)
		})
	}
}

// tick advances one session: retire finished games, fire the
// transitional timer, resolve clock and disconnection expiry, and drive
// the AI turn loop. Runs on the actor goroutine.
func (m *Manager) tick(ctx context.Context, a *actor, sess *game.Session, nowMs int64) {
	if sess.Ended() {
		m.dropActor(sess.ID)
		return
	}

	handler, err := modes.For(sess.Mode)
	if err != nil {
		obslog.L().Error("session with unroutable mode",
			zap.String("game_id", sess.ID), zap.String("mode", string(sess.Mode)))
		m.dropActor(sess.ID)
		return
	}

	mutated := false

	if sess.Timer != nil && sess.Timer.For == sess.Status && nowMs >= sess.Timer.DeadlineMs {
		sess.Timer = nil
		handler.OnTimerExpired(ctx, sess, m.env, nowMs)
		mutated = true
	}

	if !sess.Ended() && sess.ClockExpired(nowMs) {
		if timeout := sess.OnClockExpired(nowMs); timeout {
			loser := sess.Current
			m.env.Scoring.Settle(ctx, sess, nowMs, game.EndByTimeout, loser.Opponent())
		}
		mutated = true
	}

	if !sess.Ended() && sess.DisconnectExpired(nowMs) {
		gone := sess.Disconnect.Color
		m.env.Scoring.Settle(ctx, sess, nowMs, game.EndByDisconnect, gone.Opponent())
		mutated = true
	}

	if !sess.Ended() {
		if m.applyPendingAI(ctx, sess, handler, nowMs) {
			mutated = true
		}
		m.pumpAI(ctx, a, sess, handler)
	}

	if mutated {
		m.afterMutation(ctx, sess)
	}
}

// aiToAct returns the AI player that owes the session an action right
// now.
func aiToAct(sess *game.Session) *game.Player {
	if sess.Status != game.StatusPlaying {
		return nil
	}
	if st, ok := sess.State.(*game.DiceState); ok {
		// Dice rounds are simultaneous; an AI seat rolls as soon as it
		// has not.
		for _, c := range []board.Color{board.Black, board.White} {
			pl := sess.PlayerFor(c)
			rolled := st.RolledB
			if c == board.White {
				rolled = st.RolledW
			}
			if pl != nil && pl.IsAI && !rolled {
				return pl
			}
		}
		return nil
	}
	if pl := sess.PlayerFor(sess.Current); pl != nil && pl.IsAI {
		return pl
	}
	return nil
}

// pumpAI starts move generation off the actor goroutine when the AI owes
// a move. The result is buffered with an artificial thinking delay and
// applied on a later tick, so a slow engine call only ever stalls its own
// game.
func (m *Manager) pumpAI(ctx context.Context, a *actor, sess *game.Session, handler modes.Handler) {
	if a.aiInFlight || sess.PendingAI != nil {
		return
	}
	pl := aiToAct(sess)
	if pl == nil {
		return
	}

	clone, err := cloneSession(sess)
	if err != nil {
		obslog.L().Error("session clone for AI failed",
			zap.String("game_id", sess.ID), zap.Error(err))
		return
	}
	a.aiInFlight = true
	userID := pl.ID
	delayMs := m.env.ThinkDelayMs()

	go func() {
		act, genErr := handler.AIAction(ctx, clone, m.env)
		a.post(func(sess *game.Session) {
			a.aiInFlight = false
			if sess.Ended() {
				return
			}
			if genErr != nil {
				obslog.L().Warn("AI generation failed, passing",
					zap.String("game_id", sess.ID), zap.Error(genErr))
				act = gamedto.Action{Type: gamedto.ActPass}
			}
			sess.PendingAI = &game.PendingAIMove{
				UserID:    userID,
				Action:    act,
				ReadyAtMs: time.Now().UnixMilli() + delayMs,
			}
			m.afterMutation(ctx, sess)
		})
	}()
}

// applyPendingAI plays a matured buffered AI action through the regular
// handler path. A rejected AI move means the generator and the rules
// disagree; the AI forfeits rather than stall the game.
func (m *Manager) applyPendingAI(ctx context.Context, sess *game.Session, handler modes.Handler, nowMs int64) bool {
	pending := sess.PendingAI
	if pending == nil || nowMs < pending.ReadyAtMs {
		return false
	}
	sess.PendingAI = nil

	_, err := handler.Handle(ctx, sess, m.env, pending.UserID, pending.Action, nowMs)
	if err == nil {
		return true
	}
	if !gamedto.IsReject(err) {
		obslog.L().Error("AI action failed",
			zap.String("game_id", sess.ID), zap.Error(err))
		return true
	}

	obslog.L().Error("AI produced an illegal action, forfeiting",
		zap.String("game_id", sess.ID),
		zap.String("action", string(pending.Action.Type)),
		zap.Error(err))
	c := sess.ColorOf(pending.UserID)
	m.env.Scoring.Settle(ctx, sess, nowMs, game.EndByResign, c.Opponent())
	return true
}
