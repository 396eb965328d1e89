// Package ai picks moves for strategic modes when no engine subprocess
// backs the game. Independent scoring strategies each contribute a delta
// per candidate point; a per-difficulty activation table decides which
// strategies participate in a given decision.
package ai

import (
	"github.com/hanq-games/baduk-server/internal/board"
)

// Context is the board situation a strategy scores against.
type Context struct {
	Board board.Board
	Color board.Color
	Ko    *board.Point
}

// Strategy scores one candidate placement. Deltas are additive across
// active strategies.
type Strategy interface {
	Name() string
	Score(p board.Point, ctx *Context) float64
}

// Strategy weights. Product-tuned together with the activation table.
const (
	captureStoneValue   = 40.0
	defendAtariValue    = 25.0
	attackLibertyValue  = 18.0
	connectGroupValue   = 12.0
	thirdLineValue      = 8.0
	fourthLineValue     = 5.0
	selfAtariPenalty    = -60.0
	lowLinePenalty      = -10.0
	settledPokePenalty  = -12.0
	settledLibertyCount = 4
)

func AllStrategies() []Strategy {
	return []Strategy{
		captureStrategy{},
		defendStrategy{},
		attackStrategy{},
		connectStrategy{},
		territoryLineStrategy{},
		selfAtariStrategy{},
		lowLineStrategy{},
		settledPokeStrategy{},
	}
}

// captureStrategy rewards moves that remove opponent groups.
type captureStrategy struct{}

func (captureStrategy) Name() string { return "capture" }

func (captureStrategy) Score(p board.Point, ctx *Context) float64 {
	res, err := ctx.Board.Place(p, ctx.Color, ctx.Ko)
	if err != nil {
		return 0
	}
	return captureStoneValue * float64(len(res.Captured))
}

// defendStrategy rewards saving the weakest own group from atari.
type defendStrategy struct{}

func (defendStrategy) Name() string { return "defend" }

func (defendStrategy) Score(p board.Point, ctx *Context) float64 {
	weak := weakestGroup(ctx.Board, ctx.Color)
	if weak == nil || weak.Liberties > 1 {
		return 0
	}
	res, err := ctx.Board.Place(p, ctx.Color, ctx.Ko)
	if err != nil {
		return 0
	}
	after := res.Board.FindGroup(weak.Stones[0])
	if after.Liberties > weak.Liberties {
		return defendAtariValue * float64(len(weak.Stones))
	}
	return 0
}

// attackStrategy rewards tightening the weakest opponent group.
type attackStrategy struct{}

func (attackStrategy) Name() string { return "attack" }

func (attackStrategy) Score(p board.Point, ctx *Context) float64 {
	weak := weakestGroup(ctx.Board, ctx.Color.Opponent())
	if weak == nil || weak.Liberties > 3 {
		return 0
	}
	for _, lp := range weak.LibertyPoints {
		if lp == p {
			return attackLibertyValue / float64(weak.Liberties)
		}
	}
	return 0
}

// connectStrategy rewards joining two or more own chains.
type connectStrategy struct{}

func (connectStrategy) Name() string { return "connect" }

func (connectStrategy) Score(p board.Point, ctx *Context) float64 {
	seen := map[string]bool{}
	groups := 0
	for _, n := range ctx.Board.Neighbors(p) {
		if ctx.Board.At(n) != ctx.Color {
			continue
		}
		g := ctx.Board.FindGroup(n)
		key := g.Stones[0].String()
		if !seen[key] {
			seen[key] = true
			groups++
		}
	}
	if groups >= 2 {
		return connectGroupValue * float64(groups-1)
	}
	return 0
}

// territoryLineStrategy rewards third- and fourth-line development.
type territoryLineStrategy struct{}

func (territoryLineStrategy) Name() string { return "territory_line" }

func (territoryLineStrategy) Score(p board.Point, ctx *Context) float64 {
	switch edgeDistance(p, ctx.Board.Size) {
	case 2:
		return thirdLineValue
	case 3:
		return fourthLineValue
	}
	return 0
}

// selfAtariStrategy punishes moves leaving the own group on one liberty.
type selfAtariStrategy struct{}

func (selfAtariStrategy) Name() string { return "self_atari" }

func (selfAtariStrategy) Score(p board.Point, ctx *Context) float64 {
	res, err := ctx.Board.Place(p, ctx.Color, ctx.Ko)
	if err != nil {
		return 0
	}
	if len(res.Captured) > 0 {
		return 0
	}
	if res.Board.FindGroup(p).Liberties == 1 {
		return selfAtariPenalty
	}
	return 0
}

// lowLineStrategy punishes first/second-line moves.
type lowLineStrategy struct{}

func (lowLineStrategy) Name() string { return "low_line" }

func (lowLineStrategy) Score(p board.Point, ctx *Context) float64 {
	if edgeDistance(p, ctx.Board.Size) <= 1 {
		return lowLinePenalty
	}
	return 0
}

// settledPokeStrategy punishes contact moves against already-safe
// opponent groups.
type settledPokeStrategy struct{}

func (settledPokeStrategy) Name() string { return "settled_poke" }

func (settledPokeStrategy) Score(p board.Point, ctx *Context) float64 {
	for _, n := range ctx.Board.Neighbors(p) {
		if ctx.Board.At(n) != ctx.Color.Opponent() {
			continue
		}
		if ctx.Board.FindGroup(n).Liberties >= settledLibertyCount {
			return settledPokePenalty
		}
	}
	return 0
}

func weakestGroup(b board.Board, c board.Color) *board.Group {
	var weak *board.Group
	for _, g := range b.Groups(c) {
		g := g
		if weak == nil || g.Liberties < weak.Liberties {
			weak = &g
		}
	}
	return weak
}

func edgeDistance(p board.Point, size int) int {
	d := p.X
	if p.Y < d {
		d = p.Y
	}
	if size-1-p.X < d {
		d = size - 1 - p.X
	}
	if size-1-p.Y < d {
		d = size - 1 - p.Y
	}
	return d
}
