package gtp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/obslog"
)

// Ownership-probability cutoffs for classifying the raw ownership grid.
// Product-tuned; scoring screens and tests are calibrated against them.
const (
	territoryOwnershipThreshold = 0.90
	deadStoneOwnershipThreshold = 0.90
)

const defaultMaxVisits = 50

// Candidate is one engine-suggested continuation.
type Candidate struct {
	Move    string  `json:"move"`
	Winrate float64 `json:"winrate"`
	Visits  int     `json:"visits"`
}

// Analysis is a scoring/ownership snapshot. Ownership is row-major from
// the top-left, positive values favoring black.
type Analysis struct {
	WinrateBlack   float64       `json:"winrate_black"`
	ScoreLead      float64       `json:"score_lead"`
	Ownership      []float64     `json:"ownership,omitempty"`
	TerritoryBlack []board.Point `json:"territory_black,omitempty"`
	TerritoryWhite []board.Point `json:"territory_white,omitempty"`
	DeadStones     []board.Point `json:"dead_stones,omitempty"`
	Candidates     []Candidate   `json:"candidates,omitempty"`
}

// Neutral is the graceful-degradation result used whenever the engine is
// unavailable: even winrate, zero lead, no classification.
func Neutral() Analysis {
	return Analysis{WinrateBlack: 0.5}
}

// AnalyzeRequest describes a position to score. When InitialStones is set
// the position is replayed as raw board state instead of a move sequence;
// hidden/missile/base modes and single-player stages have history the
// engine must not see as alternating play.
type AnalyzeRequest struct {
	GameID        string
	BoardSize     int
	Komi          float64
	Board         board.Board
	Moves         []Move
	InitialStones []Move
	MaxVisits     int
}

// rawAnalysis is the engine's reply payload for the analyze command.
type rawAnalysis struct {
	WinrateBlack float64     `json:"winrate"`
	ScoreLead    float64     `json:"scoreLead"`
	Ownership    []float64   `json:"ownership"`
	MoveInfos    []Candidate `json:"moveInfos"`
}

// Analyze scores a finished or live position. It never fails the caller:
// on any engine problem it logs and returns the neutral result.
func (p *Pool) Analyze(ctx context.Context, req AnalyzeRequest) Analysis {
	inst := p.Get(req.GameID)
	temporary := false
	if inst == nil {
		created, err := p.Create(ctx, "analyze-"+req.GameID, 1, req.BoardSize, req.Komi)
		if err != nil {
			return Neutral()
		}
		inst = created
		temporary = true
		defer p.Destroy(inst.gameID)
	}

	res, err := inst.analyze(ctx, req)
	if err != nil {
		obslog.L().Warn("analysis failed, returning neutral result",
			zap.String("game_id", req.GameID),
			zap.Bool("temporary_instance", temporary),
			zap.Error(err),
		)
		return Neutral()
	}
	return res
}

func (i *Instance) analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	sess := i.current()
	if sess == nil {
		return Analysis{}, fmt.Errorf("engine instance for game %s is down", i.gameID)
	}

	// Rebuild the exact position first.
	replay := req.Moves
	asBoardState := len(req.InitialStones) > 0
	if asBoardState {
		replay = req.InitialStones
	}
	if err := i.resync(ctx, sess, replay); err != nil {
		return Analysis{}, err
	}

	visits := req.MaxVisits
	if visits <= 0 {
		visits = defaultMaxVisits
	}
	reply, err := sess.Command(ctx, "analyze %d", visits)
	if err != nil {
		return Analysis{}, err
	}

	var raw rawAnalysis
	if jerr := json.Unmarshal([]byte(reply), &raw); jerr != nil {
		return Analysis{}, fmt.Errorf("decode analysis payload: %w", jerr)
	}

	res := Analysis{
		WinrateBlack: raw.WinrateBlack,
		ScoreLead:    raw.ScoreLead,
		Ownership:    raw.Ownership,
		Candidates:   raw.MoveInfos,
	}
	classifyOwnership(&res, req.Board)
	return res, nil
}

// classifyOwnership converts the raw ownership grid into per-point
// territory and dead-stone calls using the fixed probability cutoffs.
func classifyOwnership(a *Analysis, b board.Board) {
	if len(a.Ownership) != b.Size*b.Size {
		return
	}
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			p := board.Point{X: x, Y: y}
			o := a.Ownership[y*b.Size+x]
			stone := b.At(p)

			if stone == board.Empty {
				if math.Abs(o) < territoryOwnershipThreshold {
					continue
				}
				if o > 0 {
					a.TerritoryBlack = append(a.TerritoryBlack, p)
				} else {
					a.TerritoryWhite = append(a.TerritoryWhite, p)
				}
				continue
			}

			opposed := (stone == board.Black && o < 0) || (stone == board.White && o > 0)
			if opposed && math.Abs(o) >= deadStoneOwnershipThreshold {
				a.DeadStones = append(a.DeadStones, p)
			}
		}
	}
}
