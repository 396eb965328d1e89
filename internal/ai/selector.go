package ai

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/hanq-games/baduk-server/internal/board"
)

// topChoiceCount keeps AI play non-deterministic: the final move is drawn
// uniformly from this many best-scoring candidates.
const topChoiceCount = 3

type scored struct {
	point board.Point
	score float64
}

// Selector is the heuristic move picker shared by all engine-less
// strategic games. Safe for concurrent use.
type Selector struct {
	cfg        Config
	strategies []Strategy

	mu   sync.Mutex
	rand *rand.Rand
}

func NewSelector(cfg Config) *Selector {
	if len(cfg.Levels) == 0 {
		cfg = DefaultConfig()
	}
	return &Selector{
		cfg:        cfg,
		strategies: AllStrategies(),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Pick chooses a move for c at the given difficulty level. ok is false
// when no legal move exists (the caller should pass).
func (s *Selector) Pick(b board.Board, c board.Color, ko *board.Point, level int) (p board.Point, ok bool) {
	moves := b.LegalMoves(c, ko)
	if len(moves) == 0 {
		return board.Point{}, false
	}

	active := s.rollActive(level)
	ctx := &Context{Board: b, Color: c, Ko: ko}

	candidates := make([]scored, 0, len(moves))
	for _, mv := range moves {
		total := 0.0
		for _, st := range active {
			total += st.Score(mv, ctx)
		}
		candidates = append(candidates, scored{point: mv, score: total})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	top := topChoiceCount
	if len(candidates) < top {
		top = len(candidates)
	}
	return candidates[s.intn(top)].point, true
}

// rollActive samples, once per decision, which strategies participate.
func (s *Selector) rollActive(level int) []Strategy {
	act := s.cfg.level(level).Activation
	var out []Strategy
	for _, st := range s.strategies {
		if s.float64() < act[st.Name()] {
			out = append(out, st)
		}
	}
	return out
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

func (s *Selector) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}
