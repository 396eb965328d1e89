package server

import (
	"encoding/json"

	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// actor owns one live session. Every mutation runs on its single
// goroutine, so ticks and inbound actions for the same game never race;
// other sessions' actors keep moving while one blocks on engine I/O.
type actor struct {
	id    string
	inbox chan func(*game.Session)
	quit  chan struct{}

	// aiInFlight guards against stacking generation goroutines; only the
	// actor goroutine touches it.
	aiInFlight bool
}

func newActor(sess *game.Session) *actor {
	a := &actor{
		id:    sess.ID,
		inbox: make(chan func(*game.Session), 32),
		quit:  make(chan struct{}),
	}
	go a.run(sess)
	return a
}

func (a *actor) run(sess *game.Session) {
	for {
		select {
		case fn := <-a.inbox:
			fn(sess)
		case <-a.quit:
			// Drain callers that queued before the stop so none of them
			// waits forever.
			for {
				select {
				case fn := <-a.inbox:
					fn(sess)
				default:
					return
				}
			}
		}
	}
}

// errRetired surfaces a call that raced the actor's retirement; the next
// request revives the session from the store.
var errRetired = gamedto.Rejectf("game is closing, retry")

// call runs fn on the actor goroutine and waits for it. A non-nil return
// means the actor stopped without running fn.
func (a *actor) call(fn func(*game.Session)) error {
	done := make(chan struct{})
	select {
	case a.inbox <- func(sess *game.Session) {
		fn(sess)
		close(done)
	}:
	case <-a.quit:
		return errRetired
	}
	select {
	case <-done:
		return nil
	case <-a.quit:
		// The drain in run may still pick the closure up.
		select {
		case <-done:
			return nil
		default:
			return errRetired
		}
	}
}

// post runs fn on the actor goroutine without waiting. Used by the tick
// loop and AI completions so neither ever blocks on a busy session.
func (a *actor) post(fn func(*game.Session)) {
	select {
	case a.inbox <- fn:
	case <-a.quit:
	default:
		// Inbox full: the session is saturated, drop the tick; the next
		// one covers it.
	}
}

func (a *actor) stop() {
	select {
	case <-a.quit:
	default:
		close(a.quit)
	}
}

// cloneSession deep-copies a session through its JSON form, giving AI
// generation a stable view while the actor keeps mutating the original.
func cloneSession(sess *game.Session) (*game.Session, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	var out game.Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
