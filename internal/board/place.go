package board

import "errors"

var (
	ErrOffBoard = errors.New("point outside board")
	ErrOccupied = errors.New("point occupied")
	ErrSuicide  = errors.New("suicide")
	ErrKo       = errors.New("ko violation")
)

// Placement is the result of a legal stone placement.
type Placement struct {
	Board    Board
	Captured []Point
	// Ko is the one forbidden recapture point for the next ply, nil when
	// the move did not trigger a ko shape.
	Ko *Point
}

// Place validates and applies a stone at p for c against an immutable
// input board. ko is the currently forbidden point, nil if none.
//
// Resolution order: opponent groups left without liberties are removed
// first, then the mover's own group is checked for suicide.
func (b Board) Place(p Point, c Color, ko *Point) (Placement, error) {
	if c != Black && c != White {
		return Placement{}, errors.New("invalid color")
	}
	if !b.InBounds(p) {
		return Placement{}, ErrOffBoard
	}
	if b.At(p) != Empty {
		return Placement{}, ErrOccupied
	}
	if ko != nil && *ko == p {
		return Placement{}, ErrKo
	}

	next := b.Clone()
	next.set(p, c)

	var captured []Point
	for _, n := range next.Neighbors(p) {
		if next.At(n) != c.Opponent() {
			continue
		}
		g := next.FindGroup(n)
		if g.Liberties > 0 {
			continue
		}
		for _, s := range g.Stones {
			next.set(s, Empty)
			captured = append(captured, s)
		}
	}

	own := next.FindGroup(p)
	if own.Liberties == 0 {
		return Placement{}, ErrSuicide
	}

	res := Placement{Board: next, Captured: captured}
	// Single-stone capture by a lone stone that itself ends on one
	// liberty is the ko shape: forbid the immediate recapture.
	if len(captured) == 1 && len(own.Stones) == 1 && own.Liberties == 1 {
		k := captured[0]
		res.Ko = &k
	}
	return res, nil
}

// IsLegal reports whether placing c at p would be accepted, without
// materializing the resulting board for the caller.
func (b Board) IsLegal(p Point, c Color, ko *Point) bool {
	_, err := b.Place(p, c, ko)
	return err == nil
}

// LegalMoves lists every legal placement for c under the current ko.
func (b Board) LegalMoves(c Color, ko *Point) []Point {
	var out []Point
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			p := Point{x, y}
			if b.At(p) == Empty && b.IsLegal(p, c, ko) {
				out = append(out, p)
			}
		}
	}
	return out
}
