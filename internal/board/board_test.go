package board

import (
	"errors"
	"testing"
)

func mustPlace(t *testing.T, b Board, p Point, c Color, ko *Point) Placement {
	t.Helper()
	res, err := b.Place(p, c, ko)
	if err != nil {
		t.Fatalf("Place(%v, %v): %v", p, c, err)
	}
	return res
}

func TestPlaceRejectsOccupiedAndOffBoard(t *testing.T) {
	b := MustNew(9)
	res := mustPlace(t, b, Point{4, 4}, Black, nil)

	if _, err := res.Board.Place(Point{4, 4}, White, nil); !errors.Is(err, ErrOccupied) {
		t.Fatalf("expected ErrOccupied, got %v", err)
	}
	if _, err := b.Place(Point{9, 0}, Black, nil); !errors.Is(err, ErrOffBoard) {
		t.Fatalf("expected ErrOffBoard, got %v", err)
	}
}

func TestBasicCaptureScenario(t *testing.T) {
	// Lone white stone at (4,4) surrounded on all four orthogonal
	// neighbors falls with black's fourth surrounding stone.
	b := MustNew(9)
	b = mustPlace(t, b, Point{4, 4}, White, nil).Board
	b = mustPlace(t, b, Point{3, 4}, Black, nil).Board
	b = mustPlace(t, b, Point{5, 4}, Black, nil).Board
	b = mustPlace(t, b, Point{4, 3}, Black, nil).Board

	res := mustPlace(t, b, Point{4, 5}, Black, nil)
	if len(res.Captured) != 1 || res.Captured[0] != (Point{4, 4}) {
		t.Fatalf("expected capture of (4,4), got %v", res.Captured)
	}
	if res.Board.At(Point{4, 4}) != Empty {
		t.Fatalf("captured point not cleared")
	}
	if res.Ko != nil {
		t.Fatalf("four-stone surround is not a ko shape, got ko at %v", *res.Ko)
	}
}

func TestCaptureRemovesWholeGroup(t *testing.T) {
	b := MustNew(5)
	// Two-stone white chain at (1,0),(2,0) on the edge.
	b = mustPlace(t, b, Point{1, 0}, White, nil).Board
	b = mustPlace(t, b, Point{2, 0}, White, nil).Board
	b = mustPlace(t, b, Point{0, 0}, Black, nil).Board
	b = mustPlace(t, b, Point{1, 1}, Black, nil).Board
	b = mustPlace(t, b, Point{2, 1}, Black, nil).Board

	res := mustPlace(t, b, Point{3, 0}, Black, nil)
	if len(res.Captured) != 2 {
		t.Fatalf("expected 2 captured stones, got %v", res.Captured)
	}
	for _, p := range []Point{{1, 0}, {2, 0}} {
		if res.Board.At(p) != Empty {
			t.Fatalf("stone at %v survived capture", p)
		}
	}
}

func TestSuicideRejected(t *testing.T) {
	b := MustNew(5)
	for _, p := range []Point{{0, 1}, {1, 0}} {
		b = mustPlace(t, b, p, White, nil).Board
	}
	if _, err := b.Place(Point{0, 0}, Black, nil); !errors.Is(err, ErrSuicide) {
		t.Fatalf("expected ErrSuicide, got %v", err)
	}
}

func TestCaptureBeforeSuicideCheck(t *testing.T) {
	// Placing into the last liberty of an opponent group is legal when
	// the capture frees liberties for the placed stone.
	b := MustNew(5)
	b = mustPlace(t, b, Point{0, 1}, White, nil).Board
	b = mustPlace(t, b, Point{1, 0}, White, nil).Board
	b = mustPlace(t, b, Point{0, 2}, Black, nil).Board
	b = mustPlace(t, b, Point{1, 1}, Black, nil).Board
	b = mustPlace(t, b, Point{2, 0}, Black, nil).Board

	// (0,1) and (1,0) are separate chains, each in atari, sharing (0,0)
	// as their last liberty. Playing it captures both and is not suicide.
	res := mustPlace(t, b, Point{0, 0}, Black, nil)
	if len(res.Captured) != 2 {
		t.Fatalf("expected both atari chains captured, got %v", res.Captured)
	}
}

func TestKoRoundTrip(t *testing.T) {
	b := MustNew(9)
	// Classic ko shape around (4,4)/(5,4).
	for _, m := range []struct {
		p Point
		c Color
	}{
		{Point{3, 4}, Black}, {Point{4, 3}, Black}, {Point{4, 5}, Black},
		{Point{5, 3}, White}, {Point{5, 5}, White}, {Point{6, 4}, White},
		{Point{4, 4}, White},
	} {
		b = mustPlace(t, b, m.p, m.c, nil).Board
	}

	// Black captures the single white stone at (4,4).
	res := mustPlace(t, b, Point{5, 4}, Black, nil)
	if len(res.Captured) != 1 || res.Captured[0] != (Point{4, 4}) {
		t.Fatalf("expected single-stone ko capture, got %v", res.Captured)
	}
	if res.Ko == nil || *res.Ko != (Point{4, 4}) {
		t.Fatalf("expected ko at (4,4), got %v", res.Ko)
	}

	// Immediate recapture at the ko point is rejected.
	if _, err := res.Board.Place(Point{4, 4}, White, res.Ko); !errors.Is(err, ErrKo) {
		t.Fatalf("expected ErrKo, got %v", err)
	}

	// After an intervening move elsewhere the ko is cleared and the
	// recapture becomes legal again.
	after := mustPlace(t, res.Board, Point{0, 0}, White, res.Ko).Board
	if _, err := after.Place(Point{4, 4}, White, nil); err != nil {
		t.Fatalf("recapture after ko cleared should be legal: %v", err)
	}
}

func TestGroupLiberties(t *testing.T) {
	b := MustNew(9)
	b = mustPlace(t, b, Point{2, 2}, Black, nil).Board
	b = mustPlace(t, b, Point{3, 2}, Black, nil).Board

	g := b.FindGroup(Point{2, 2})
	if len(g.Stones) != 2 {
		t.Fatalf("expected chain of 2, got %d", len(g.Stones))
	}
	if g.Liberties != 6 {
		t.Fatalf("expected 6 liberties, got %d", g.Liberties)
	}

	corner := mustPlace(t, b, Point{0, 0}, White, nil).Board.FindGroup(Point{0, 0})
	if corner.Liberties != 2 {
		t.Fatalf("corner stone should have 2 liberties, got %d", corner.Liberties)
	}
}

func TestLegalMovesExcludesKoAndSuicide(t *testing.T) {
	b := MustNew(3)
	b = mustPlace(t, b, Point{0, 1}, White, nil).Board
	b = mustPlace(t, b, Point{1, 0}, White, nil).Board

	moves := b.LegalMoves(Black, nil)
	for _, m := range moves {
		if m == (Point{0, 0}) {
			t.Fatalf("suicide point listed as legal")
		}
	}

	ko := Point{2, 2}
	moves = b.LegalMoves(Black, &ko)
	for _, m := range moves {
		if m == ko {
			t.Fatalf("ko point listed as legal")
		}
	}
}
