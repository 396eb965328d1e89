// Package modes contains the per-game-family initializers and action
// handlers: partial state machines layered on the shared turn/clock
// engine of the game package.
package modes

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hanq-games/baduk-server/internal/ai"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/gtp"
	"github.com/hanq-games/baduk-server/internal/scoring"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// Timing constants shared by the handlers. Product-tuned.
const (
	// Deadline for every transitional status (bids, placements, item
	// selection); exceeding it auto-resolves.
	transitionalDeadlineMs = 30_000
	// Fixed missile flight animation window.
	missileAnimateMs = 1_500
	// Sealed-bid reveal display window before play starts.
	bidRevealMs = 5_000
	// Artificial AI thinking delay bounds.
	aiThinkMinMs = 1_000
	aiThinkMaxMs = 2_500
)

// Env bundles the collaborators handlers need. One Env serves all
// sessions; it owns no per-session state.
type Env struct {
	Engines *gtp.Pool
	AI      *ai.Selector
	Scoring *scoring.Service

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewEnv(engines *gtp.Pool, selector *ai.Selector, scorer *scoring.Service) *Env {
	return &Env{
		Engines: engines,
		AI:      selector,
		Scoring: scorer,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *Env) Intn(n int) int {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rand.Intn(n)
}

func (e *Env) Float64() float64 {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rand.Float64()
}

// ThinkDelayMs draws the artificial AI reply delay.
func (e *Env) ThinkDelayMs() int64 {
	return aiThinkMinMs + int64(e.Intn(aiThinkMaxMs-aiThinkMinMs+1))
}

// Handler is one game family's state machine.
type Handler interface {
	// Init prepares a freshly created session from its negotiated
	// settings: color assignment, starting board content, clocks,
	// initial status.
	Init(ctx context.Context, sess *game.Session, env *Env, nowMs int64) error

	// Handle processes one dispatcher-routed action for userID.
	// Rejections are *gamedto.RejectError and leave the session
	// untouched.
	Handle(ctx context.Context, sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (*gamedto.ActionReply, error)

	// OnTimerExpired auto-resolves a lapsed transitional-phase deadline.
	OnTimerExpired(ctx context.Context, sess *game.Session, env *Env, nowMs int64)

	// AIAction produces the action an AI-controlled player takes when it
	// is their move. May call into the engine and therefore block; the
	// server runs it off the tick loop.
	AIAction(ctx context.Context, sess *game.Session, env *Env) (gamedto.Action, error)
}

// For resolves the handler owning a mode.
func For(mode game.Mode) (Handler, error) {
	switch mode {
	case game.ModeStandard:
		return &standardHandler{}, nil
	case game.ModeCapture:
		return &captureHandler{}, nil
	case game.ModeBase:
		return &baseHandler{}, nil
	case game.ModeHidden:
		return &hiddenHandler{}, nil
	case game.ModeMissile:
		return &missileHandler{}, nil
	case game.ModeOmok, game.ModeTtamok:
		return &omokHandler{}, nil
	case game.ModeDice:
		return &diceHandler{}, nil
	case game.ModeCurling:
		return &curlingHandler{}, nil
	case game.ModeAlkkagi:
		return &alkkagiHandler{}, nil
	case game.ModeSingle, game.ModeTower:
		return &singleHandler{}, nil
	}
	return nil, gamedto.Rejectf("unknown game mode %q", mode)
}
