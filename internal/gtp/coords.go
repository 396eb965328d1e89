// Package gtp owns the line-oriented external engine protocol: one command
// per line on stdin, one reply line per command on stdout, prefixed "=" on
// success or "?" on failure. Each live game owns at most one engine
// subprocess; the pool self-heals a wedged process by resync and recreate.
package gtp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hanq-games/baduk-server/internal/board"
)

// Column letters by board convention, skipping I.
const columnLetters = "ABCDEFGHJKLMNOPQRSTUVWXYZ"

const (
	vertexPass   = "pass"
	vertexResign = "resign"
)

// Move is one history entry the engine is told about.
type Move struct {
	Color board.Color
	Point board.Point
	Pass  bool
}

// Vertex is an engine-reported board location or sentinel.
type Vertex struct {
	Point  board.Point
	Pass   bool
	Resign bool
}

func (v Vertex) String() string {
	switch {
	case v.Pass:
		return vertexPass
	case v.Resign:
		return vertexResign
	default:
		return fmt.Sprintf("%v", v.Point)
	}
}

// FormatPoint renders a zero-based point as letter+row, rows counted from
// the bottom of the board.
func FormatPoint(p board.Point, size int) string {
	return fmt.Sprintf("%c%d", columnLetters[p.X], size-p.Y)
}

func FormatColor(c board.Color) string {
	if c == board.White {
		return "white"
	}
	return "black"
}

// ParseVertex decodes an engine vertex reply ("D4", "pass", "resign").
func ParseVertex(s string, size int) (Vertex, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case vertexPass:
		return Vertex{Pass: true}, nil
	case vertexResign:
		return Vertex{Resign: true}, nil
	}
	if len(s) < 2 {
		return Vertex{}, fmt.Errorf("malformed vertex %q", s)
	}

	col := strings.IndexByte(columnLetters, strings.ToUpper(s)[0])
	if col < 0 || col >= size {
		return Vertex{}, fmt.Errorf("vertex %q column out of range", s)
	}
	row, err := strconv.Atoi(s[1:])
	if err != nil || row < 1 || row > size {
		return Vertex{}, fmt.Errorf("vertex %q row out of range", s)
	}
	return Vertex{Point: board.Point{X: col, Y: size - row}}, nil
}
