package board

// Group is one 4-connected chain of same-colored stones.
type Group struct {
	Color         Color
	Stones        []Point
	Liberties     int
	LibertyPoints []Point
}

// FindGroup flood-fills the chain containing p. Calling it on an empty
// point returns a zero group.
func (b Board) FindGroup(p Point) Group {
	c := b.At(p)
	if c == Empty {
		return Group{}
	}

	seen := make(map[Point]bool)
	libs := make(map[Point]bool)
	stack := []Point{p}
	g := Group{Color: c}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		g.Stones = append(g.Stones, cur)

		for _, n := range b.Neighbors(cur) {
			switch b.At(n) {
			case Empty:
				libs[n] = true
			case c:
				if !seen[n] {
					stack = append(stack, n)
				}
			}
		}
	}

	g.Liberties = len(libs)
	g.LibertyPoints = make([]Point, 0, len(libs))
	for lp := range libs {
		g.LibertyPoints = append(g.LibertyPoints, lp)
	}
	return g
}

// Groups returns every distinct chain of the given color.
func (b Board) Groups(c Color) []Group {
	seen := make(map[Point]bool)
	var out []Group
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			p := Point{x, y}
			if b.At(p) != c || seen[p] {
				continue
			}
			g := b.FindGroup(p)
			for _, s := range g.Stones {
				seen[s] = true
			}
			out = append(out, g)
		}
	}
	return out
}
