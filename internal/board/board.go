// Package board implements the pure placement/capture rules for a square
// goban of arbitrary size: group flood-fill, liberty counting, capture
// resolution and single-stone ko detection. Nothing here depends on game
// modes, clocks or the engine process.
package board

import (
	"errors"
	"fmt"
	"strings"
)

// Color is the content of one intersection.
type Color int8

const (
	Empty Color = iota
	Black
	White
)

func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

// Point is a zero-based intersection, X = column, Y = row.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Board is a square grid. The zero value is unusable; construct with New.
type Board struct {
	Size  int     `json:"size"`
	Cells []Color `json:"cells"`
}

var ErrBadSize = errors.New("board size must be >= 1")

func New(size int) (Board, error) {
	if size < 1 {
		return Board{}, ErrBadSize
	}
	return Board{Size: size, Cells: make([]Color, size*size)}, nil
}

// MustNew is New for sizes known valid at the call site.
func MustNew(size int) Board {
	b, err := New(size)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Board) InBounds(p Point) bool {
	return p.X >= 0 && p.X < b.Size && p.Y >= 0 && p.Y < b.Size
}

func (b Board) At(p Point) Color {
	return b.Cells[p.Y*b.Size+p.X]
}

func (b Board) set(p Point, c Color) {
	b.Cells[p.Y*b.Size+p.X] = c
}

func (b Board) Clone() Board {
	cells := make([]Color, len(b.Cells))
	copy(cells, b.Cells)
	return Board{Size: b.Size, Cells: cells}
}

// With returns a copy of the board with p set to c, without applying any
// capture rules. Setup stones and the liberty-free mini-games use it.
func (b Board) With(p Point, c Color) Board {
	next := b.Clone()
	next.set(p, c)
	return next
}

// Without returns a copy of the board with p cleared.
func (b Board) Without(p Point) Board {
	return b.With(p, Empty)
}

// Neighbors returns the 4-connected in-bounds neighbors of p.
func (b Board) Neighbors(p Point) []Point {
	out := make([]Point, 0, 4)
	for _, q := range [4]Point{{p.X - 1, p.Y}, {p.X + 1, p.Y}, {p.X, p.Y - 1}, {p.X, p.Y + 1}} {
		if b.InBounds(q) {
			out = append(out, q)
		}
	}
	return out
}

// Stones returns every point currently holding a stone of c.
func (b Board) Stones(c Color) []Point {
	var out []Point
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			p := Point{x, y}
			if b.At(p) == c {
				out = append(out, p)
			}
		}
	}
	return out
}

// EmptyPoints returns every unoccupied intersection.
func (b Board) EmptyPoints() []Point {
	return b.Stones(Empty)
}

func (b Board) StoneCount(c Color) int {
	n := 0
	for _, cell := range b.Cells {
		if cell == c {
			n++
		}
	}
	return n
}

func (b Board) Equals(o Board) bool {
	if b.Size != o.Size {
		return false
	}
	for i := range b.Cells {
		if b.Cells[i] != o.Cells[i] {
			return false
		}
	}
	return true
}

func (b Board) String() string {
	var sb strings.Builder
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			switch b.At(Point{x, y}) {
			case Black:
				sb.WriteByte('X')
			case White:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
