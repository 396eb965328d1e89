package gtp

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/obslog"
)

type PoolConfig struct {
	BinaryPath string
	ExtraArgs  []string
}

// Pool owns at most one engine instance per game id. Instances are created
// lazily on first need and torn down when the game ends.
type Pool struct {
	cfg PoolConfig

	mu        sync.Mutex
	instances map[string]*Instance

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewPool(cfg PoolConfig) *Pool {
	return &Pool{
		cfg:       cfg,
		instances: make(map[string]*Instance),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Available reports whether the engine binary is present at all. A false
// return means engine-backed AI and analysis run degraded, not that games
// cannot be played.
func (p *Pool) Available() bool {
	if p.cfg.BinaryPath == "" {
		return false
	}
	_, err := os.Stat(p.cfg.BinaryPath)
	return err == nil
}

// Create spawns and configures the instance for gameID. Returns an error
// when the binary is missing or the process cannot start; the caller must
// tolerate a nil instance and continue without engine backing.
func (p *Pool) Create(ctx context.Context, gameID string, level, boardSize int, komi float64) (*Instance, error) {
	if !p.Available() {
		obslog.L().Warn("engine binary missing, game continues degraded",
			zap.String("game_id", gameID),
			zap.String("path", p.cfg.BinaryPath),
		)
		return nil, fmt.Errorf("engine binary not found at %q", p.cfg.BinaryPath)
	}

	inst := &Instance{
		pool:      p,
		gameID:    gameID,
		level:     level,
		boardSize: boardSize,
		komi:      komi,
	}
	if err := inst.start(ctx); err != nil {
		obslog.L().Error("engine start failed",
			zap.String("game_id", gameID),
			zap.Error(err),
		)
		return nil, err
	}

	p.mu.Lock()
	if old := p.instances[gameID]; old != nil {
		_ = old.close()
	}
	p.instances[gameID] = inst
	p.mu.Unlock()

	obslog.L().Info("engine instance created",
		zap.String("game_id", gameID),
		zap.Int("level", level),
		zap.Int("board_size", boardSize),
	)
	return inst, nil
}

// Get returns the live instance for gameID, nil if none exists.
func (p *Pool) Get(gameID string) *Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instances[gameID]
}

// Ensure returns the existing instance or creates one.
func (p *Pool) Ensure(ctx context.Context, gameID string, level, boardSize int, komi float64) (*Instance, error) {
	if inst := p.Get(gameID); inst != nil {
		return inst, nil
	}
	return p.Create(ctx, gameID, level, boardSize, komi)
}

// Destroy tears down the instance for gameID, if any.
func (p *Pool) Destroy(gameID string) {
	p.mu.Lock()
	inst := p.instances[gameID]
	delete(p.instances, gameID)
	p.mu.Unlock()

	if inst != nil {
		_ = inst.close()
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	insts := make([]*Instance, 0, len(p.instances))
	for _, inst := range p.instances {
		insts = append(insts, inst)
	}
	p.instances = make(map[string]*Instance)
	p.mu.Unlock()

	for _, inst := range insts {
		_ = inst.close()
	}
	return nil
}

func (p *Pool) intn(n int) int {
	p.randMu.Lock()
	defer p.randMu.Unlock()
	return p.rand.Intn(n)
}

// Instance is the engine subprocess exclusively owned by one game.
type Instance struct {
	pool      *Pool
	gameID    string
	level     int
	boardSize int
	komi      float64

	mu      sync.Mutex
	session *Session
}

func (i *Instance) start(ctx context.Context) error {
	sess, err := NewSession(ctx, i.pool.cfg.BinaryPath, i.pool.cfg.ExtraArgs...)
	if err != nil {
		return err
	}
	if err := setup(ctx, sess, i.level, i.boardSize, i.komi); err != nil {
		_ = sess.Close()
		return err
	}
	i.mu.Lock()
	i.session = sess
	i.mu.Unlock()
	return nil
}

func setup(ctx context.Context, sess *Session, level, boardSize int, komi float64) error {
	if _, err := sess.Command(ctx, "boardsize %d", boardSize); err != nil {
		return fmt.Errorf("set boardsize: %w", err)
	}
	if _, err := sess.Command(ctx, "komi %.1f", komi); err != nil {
		return fmt.Errorf("set komi: %w", err)
	}
	// Not every engine build understands strength levels.
	if _, err := sess.Command(ctx, "level %d", level); err != nil {
		obslog.L().Debug("engine ignored level command", zap.Error(err))
	}
	if _, err := sess.Command(ctx, "clear_board"); err != nil {
		return fmt.Errorf("clear board: %w", err)
	}
	return nil
}

func (i *Instance) close() error {
	i.mu.Lock()
	sess := i.session
	i.session = nil
	i.mu.Unlock()
	if sess != nil {
		return sess.Close()
	}
	return nil
}

func (i *Instance) current() *Session {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.session
}

// PlayMove informs the engine of a played move. history is the full move
// list before mv. On failure the position is resynced from scratch; if the
// resync also fails the subprocess is recreated and resynced again. A
// wedged engine must self-heal without losing the match.
func (i *Instance) PlayMove(ctx context.Context, history []Move, mv Move) error {
	sess := i.current()
	if sess != nil {
		if err := i.sendMove(ctx, sess, mv); err == nil {
			return nil
		} else {
			obslog.L().Warn("engine play failed, resyncing",
				zap.String("game_id", i.gameID),
				zap.Error(err),
			)
		}
	}

	full := make([]Move, 0, len(history)+1)
	full = append(full, history...)
	full = append(full, mv)

	if sess != nil {
		if err := i.resync(ctx, sess, full); err == nil {
			return nil
		} else {
			obslog.L().Warn("engine resync failed, recreating",
				zap.String("game_id", i.gameID),
				zap.Error(err),
			)
		}
	}
	return i.recreate(ctx, full)
}

// Resync replays the whole move history from an empty board.
func (i *Instance) Resync(ctx context.Context, history []Move) error {
	sess := i.current()
	if sess == nil {
		return i.recreate(ctx, history)
	}
	if err := i.resync(ctx, sess, history); err != nil {
		return i.recreate(ctx, history)
	}
	return nil
}

func (i *Instance) sendMove(ctx context.Context, sess *Session, mv Move) error {
	vertex := vertexPass
	if !mv.Pass {
		vertex = FormatPoint(mv.Point, i.boardSize)
	}
	_, err := sess.Command(ctx, "play %s %s", FormatColor(mv.Color), vertex)
	return err
}

func (i *Instance) resync(ctx context.Context, sess *Session, history []Move) error {
	if _, err := sess.Command(ctx, "clear_board"); err != nil {
		return err
	}
	for _, mv := range history {
		if err := i.sendMove(ctx, sess, mv); err != nil {
			return err
		}
	}
	return nil
}

func (i *Instance) recreate(ctx context.Context, history []Move) error {
	i.mu.Lock()
	old := i.session
	i.session = nil
	i.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	if err := i.start(ctx); err != nil {
		obslog.L().Error("engine recreate failed, game continues degraded",
			zap.String("game_id", i.gameID),
			zap.Error(err),
		)
		return err
	}
	sess := i.current()
	if err := i.resync(ctx, sess, history); err != nil {
		obslog.L().Error("engine resync after recreate failed",
			zap.String("game_id", i.gameID),
			zap.Error(err),
		)
		return err
	}
	obslog.L().Info("engine instance recreated",
		zap.String("game_id", i.gameID),
		zap.Int("history_len", len(history)),
	)
	return nil
}

// GenMove asks the engine to choose a move for c. Resignation suggestions
// are always overridden; pass is overridden when allowPass is false. In
// both cases a uniformly random legal alternative is chosen from the
// engine's own legal-move list, falling back to pass only when the list is
// empty.
func (i *Instance) GenMove(ctx context.Context, c board.Color, allowPass bool) (Vertex, error) {
	sess := i.current()
	if sess == nil {
		return Vertex{}, fmt.Errorf("engine instance for game %s is down", i.gameID)
	}

	reply, err := sess.Command(ctx, "genmove %s", FormatColor(c))
	if err != nil {
		return Vertex{}, err
	}
	v, err := ParseVertex(reply, i.boardSize)
	if err != nil {
		return Vertex{}, err
	}

	if !v.Resign && (!v.Pass || allowPass) {
		return v, nil
	}

	alt, ok := i.randomLegalMove(ctx, sess, c)
	if !ok {
		return Vertex{Pass: true}, nil
	}
	// Replace the engine's own notion of its last move so later plays
	// stay aligned; a failure here is healed by the next resync.
	if _, err := sess.Command(ctx, "undo"); err == nil {
		_, _ = sess.Command(ctx, "play %s %s", FormatColor(c), FormatPoint(alt.Point, i.boardSize))
	}
	return alt, nil
}

func (i *Instance) randomLegalMove(ctx context.Context, sess *Session, c board.Color) (Vertex, bool) {
	reply, err := sess.Command(ctx, "all_legal %s", FormatColor(c))
	if err != nil {
		return Vertex{}, false
	}
	var moves []Vertex
	for _, tok := range strings.Fields(reply) {
		v, perr := ParseVertex(tok, i.boardSize)
		if perr != nil || v.Pass || v.Resign {
			continue
		}
		moves = append(moves, v)
	}
	if len(moves) == 0 {
		return Vertex{}, false
	}
	return moves[i.pool.intn(len(moves))], true
}
