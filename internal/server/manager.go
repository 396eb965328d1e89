// Package server drives the live sessions: one actor per game, a
// periodic tick for clocks and AI turns, and the client-facing HTTP/WS
// surface.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/domain"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/modes"
	"github.com/hanq-games/baduk-server/internal/notify"
	"github.com/hanq-games/baduk-server/internal/obslog"
	"github.com/hanq-games/baduk-server/internal/store"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// Manager creates sessions, routes actions to their actors and persists
// after every mutation.
type Manager struct {
	env      *modes.Env
	sessions store.SessionStore
	users    store.UserStore
	archive  *store.Archive
	notifier *notify.Notifier

	maxGames int

	mu     sync.Mutex
	actors map[string]*actor
}

type Options struct {
	Env      *modes.Env
	Sessions store.SessionStore
	Users    store.UserStore
	Archive  *store.Archive  // optional
	Notifier *notify.Notifier // optional
	MaxGames int
}

func NewManager(opts Options) *Manager {
	if opts.MaxGames <= 0 {
		opts.MaxGames = 200
	}
	return &Manager{
		env:      opts.Env,
		sessions: opts.Sessions,
		users:    opts.Users,
		archive:  opts.Archive,
		notifier: opts.Notifier,
		maxGames: opts.MaxGames,
		actors:   make(map[string]*actor),
	}
}

// CreateRequest carries the negotiated match parameters.
type CreateRequest struct {
	Mode     game.Mode     `json:"mode"`
	P1       game.Player   `json:"p1"`
	P2       game.Player   `json:"p2"`
	Settings game.Settings `json:"settings"`
}

// CreateGame builds, initializes and registers a new session.
func (m *Manager) CreateGame(ctx context.Context, req CreateRequest) (*gamedto.Snapshot, error) {
	handler, err := modes.For(req.Mode)
	if err != nil {
		return nil, err
	}
	if req.Settings.BoardSize < 1 {
		return nil, gamedto.Rejectf("board size must be at least 1")
	}

	m.mu.Lock()
	if len(m.actors) >= m.maxGames {
		m.mu.Unlock()
		return nil, gamedto.Rejectf("server is full, try again later")
	}
	m.mu.Unlock()

	p1, p2 := req.P1, req.P2
	sess := &game.Session{
		ID:        uuid.NewString(),
		Mode:      req.Mode,
		CreatedAt: time.Now(),
		P1:        &p1,
		P2:        &p2,
		Settings:  req.Settings,
		Board:     board.MustNew(req.Settings.BoardSize),
		Status:    game.StatusPending,
	}

	nowMs := time.Now().UnixMilli()
	if err := handler.Init(ctx, sess, m.env, nowMs); err != nil {
		return nil, err
	}
	if err := m.sessions.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.actors[sess.ID] = newActor(sess)
	m.mu.Unlock()

	obslog.L().Info("game created",
		zap.String("game_id", sess.ID),
		zap.String("mode", string(req.Mode)),
		zap.String("p1", p1.ID),
		zap.String("p2", p2.ID),
	)
	return BuildSnapshot(sess, ""), nil
}

// ResumeActive revives an actor for every session in the store's active
// index, so clocks, disconnect forfeits and AI turns of persisted games
// keep running after a process restart instead of waiting for a client
// request. Called once at startup, before the ticker.
func (m *Manager) ResumeActive(ctx context.Context) {
	ids, err := m.sessions.ActiveIDs(ctx)
	if err != nil {
		obslog.L().Error("active session listing failed", zap.Error(err))
		return
	}
	resumed := 0
	for _, id := range ids {
		if _, err := m.actorFor(ctx, id); err != nil {
			obslog.L().Warn("active session revive failed",
				zap.String("game_id", id), zap.Error(err))
			continue
		}
		resumed++
	}
	if resumed > 0 {
		obslog.L().Info("resumed active sessions", zap.Int("count", resumed))
	}
}

// GamesOf lists the active game ids a player is seated in.
func (m *Manager) GamesOf(ctx context.Context, userID string) ([]string, error) {
	return m.sessions.SessionsByUser(ctx, userID)
}

// actorFor returns the running actor, reviving it from the store after a
// restart.
func (m *Manager) actorFor(ctx context.Context, id string) (*actor, error) {
	m.mu.Lock()
	if a, ok := m.actors[id]; ok {
		m.mu.Unlock()
		return a, nil
	}
	m.mu.Unlock()

	sess, err := m.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actors[id]; ok {
		return a, nil
	}
	a := newActor(sess)
	m.actors[id] = a
	return a, nil
}

func (m *Manager) dropActor(id string) {
	m.mu.Lock()
	if a, ok := m.actors[id]; ok {
		a.stop()
		delete(m.actors, id)
	}
	m.mu.Unlock()
}

// Dispatch routes one client action through the session's actor.
func (m *Manager) Dispatch(ctx context.Context, gameID, userID string, act gamedto.Action) (*gamedto.ActionReply, error) {
	a, err := m.actorFor(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var reply *gamedto.ActionReply
	if cerr := a.call(func(sess *game.Session) {
		handler, herr := modes.For(sess.Mode)
		if herr != nil {
			err = herr
			return
		}
		nowMs := time.Now().UnixMilli()
		reply, err = handler.Handle(ctx, sess, m.env, userID, act, nowMs)
		if err != nil {
			return
		}
		m.afterMutation(ctx, sess)
	}); cerr != nil {
		return nil, cerr
	}
	return reply, err
}

// Snapshot renders the session for one viewer.
func (m *Manager) Snapshot(ctx context.Context, gameID, viewerID string) (*gamedto.Snapshot, error) {
	a, err := m.actorFor(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var snap *gamedto.Snapshot
	if cerr := a.call(func(sess *game.Session) {
		snap = BuildSnapshot(sess, viewerID)
	}); cerr != nil {
		return nil, cerr
	}
	return snap, nil
}

// MarkDisconnected starts the grace window; repeated drops forfeit on
// the spot.
func (m *Manager) MarkDisconnected(ctx context.Context, gameID, userID string) error {
	a, err := m.actorFor(ctx, gameID)
	if err != nil {
		return err
	}
	return a.call(func(sess *game.Session) {
		c := sess.ColorOf(userID)
		if c == board.Empty || sess.Ended() {
			return
		}
		nowMs := time.Now().UnixMilli()
		if forfeit := sess.MarkDisconnected(c, nowMs); forfeit {
			m.env.Scoring.Settle(ctx, sess, nowMs, game.EndByDisconnect, c.Opponent())
		}
		m.afterMutation(ctx, sess)
	})
}

func (m *Manager) MarkReconnected(ctx context.Context, gameID, userID string) error {
	a, err := m.actorFor(ctx, gameID)
	if err != nil {
		return err
	}
	return a.call(func(sess *game.Session) {
		c := sess.ColorOf(userID)
		if c == board.Empty {
			return
		}
		sess.MarkReconnected(c)
		m.afterMutation(ctx, sess)
	})
}

// afterMutation persists the session and, once it ends, archives,
// notifies and updates profiles. Runs on the actor goroutine.
func (m *Manager) afterMutation(ctx context.Context, sess *game.Session) {
	if err := m.sessions.SaveSession(ctx, sess); err != nil {
		obslog.L().Error("session save failed",
			zap.String("game_id", sess.ID), zap.Error(err))
	}
	if !sess.Ended() {
		return
	}

	m.settleProfiles(ctx, sess)
	if m.archive != nil {
		if rec := store.RecordFrom(sess); rec != nil {
			if err := m.archive.SaveRecord(ctx, rec); err != nil {
				obslog.L().Error("archive write failed",
					zap.String("game_id", sess.ID), zap.Error(err))
			}
		}
	}
	if m.notifier != nil {
		m.notifier.GameEnded(sess)
	}
}

// settleProfiles applies win/loss bookkeeping to both human players.
func (m *Manager) settleProfiles(ctx context.Context, sess *game.Session) {
	if m.users == nil || sess.Result == nil {
		return
	}
	for _, c := range []board.Color{board.Black, board.White} {
		pl := sess.PlayerFor(c)
		if pl == nil || pl.IsAI {
			continue
		}
		u, err := m.users.GetUser(ctx, pl.ID)
		if err == store.ErrNotFound {
			u = &domain.User{ID: pl.ID, Name: pl.Name, Rating: pl.Rating, CreatedAt: time.Now()}
		} else if err != nil {
			obslog.L().Warn("profile load failed", zap.String("user", pl.ID), zap.Error(err))
			continue
		}
		u.GamesPlayed++
		switch sess.Result.Winner {
		case c:
			u.Wins++
			bumpStreak(u, "win")
		case board.Empty:
			u.Draws++
		default:
			u.Losses++
			bumpStreak(u, "loss")
		}
		u.LastMode = string(sess.Mode)
		u.LastPlayedAt = time.Now()
		if err := m.users.UpdateUser(ctx, u); err != nil {
			obslog.L().Warn("profile update failed", zap.String("user", pl.ID), zap.Error(err))
		}
	}
}

func bumpStreak(u *domain.User, kind string) {
	if u.StreakType == kind {
		u.Streak++
		return
	}
	u.StreakType, u.Streak = kind, 1
}

// Shutdown stops every actor after a final persist.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	actors := make([]*actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.actors = make(map[string]*actor)
	m.mu.Unlock()

	for _, a := range actors {
		_ = a.call(func(sess *game.Session) {
			if err := m.sessions.SaveSession(ctx, sess); err != nil {
				obslog.L().Error("shutdown save failed",
					zap.String("game_id", sess.ID), zap.Error(err))
			}
		})
		a.stop()
	}
}
