// Package render rasterizes board positions into PNG, for result
// announcements and chat-bot bridges that cannot draw a board
// themselves. It draws from the client snapshot, so whatever a viewer
// may not see on the grid stays out of the image too.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

const (
	cellSize = 32
	margin   = 40
)

var (
	woodColor      = color.RGBA{219, 176, 102, 255}
	lineColor      = color.RGBA{60, 42, 20, 255}
	blackStone     = color.RGBA{24, 24, 28, 255}
	whiteStone     = color.RGBA{245, 245, 240, 255}
	whiteStoneRim  = color.RGBA{140, 140, 135, 255}
	lastMoveMarker = color.NRGBA{R: 220, G: 60, B: 50, A: 220}
	coordColor     = color.NRGBA{R: 60, G: 42, B: 20, A: 255}
)

// Goban rasterizes snapshots of one fixed board size class; it carries no
// state and is safe for concurrent use.
type Goban struct{}

func NewGoban() *Goban { return &Goban{} }

func (g *Goban) RenderPNG(snap *gamedto.Snapshot) ([]byte, error) {
	size := snap.BoardSize
	if size < 1 {
		return nil, fmt.Errorf("bad board size %d", size)
	}
	if len(snap.Cells) != size*size {
		return nil, fmt.Errorf("cell grid is %d, want %d", len(snap.Cells), size*size)
	}

	side := (size-1)*cellSize + margin*2
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(woodColor), image.Point{}, imagedraw.Src)

	drawGrid(img, size)
	drawStarPoints(img, size)
	drawCoordinates(img, size)
	drawStones(img, snap, size)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func intersection(x, y int) image.Point {
	return image.Point{X: margin + x*cellSize, Y: margin + y*cellSize}
}

func drawGrid(img *image.RGBA, size int) {
	first := intersection(0, 0)
	last := intersection(size-1, size-1)
	for i := 0; i < size; i++ {
		h := intersection(0, i)
		imagedraw.Draw(img, image.Rect(first.X, h.Y, last.X+1, h.Y+1),
			image.NewUniform(lineColor), image.Point{}, imagedraw.Src)
		v := intersection(i, 0)
		imagedraw.Draw(img, image.Rect(v.X, first.Y, v.X+1, last.Y+1),
			image.NewUniform(lineColor), image.Point{}, imagedraw.Src)
	}
}

// starPoints returns the hoshi for the usual sizes; small odd boards get
// a single center point, anything else none.
func starPoints(size int) []image.Point {
	switch size {
	case 19:
		return gridStars(3, 9, 15)
	case 13:
		return gridStars(3, 6, 9)
	case 9:
		return []image.Point{{2, 2}, {6, 2}, {4, 4}, {2, 6}, {6, 6}}
	}
	if size >= 5 && size%2 == 1 {
		c := size / 2
		return []image.Point{{c, c}}
	}
	return nil
}

func gridStars(coords ...int) []image.Point {
	pts := make([]image.Point, 0, len(coords)*len(coords))
	for _, y := range coords {
		for _, x := range coords {
			pts = append(pts, image.Point{X: x, Y: y})
		}
	}
	return pts
}

func drawStarPoints(img *image.RGBA, size int) {
	for _, p := range starPoints(size) {
		drawDisc(img, intersection(p.X, p.Y), 3, lineColor)
	}
}

func drawStones(img *image.RGBA, snap *gamedto.Snapshot, size int) {
	radius := cellSize/2 - 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := snap.Cells[y*size+x]
			if c == 0 {
				continue
			}
			center := intersection(x, y)
			if c == 1 {
				drawDisc(img, center, radius, blackStone)
			} else {
				drawDisc(img, center, radius, whiteStoneRim)
				drawDisc(img, center, radius-1, whiteStone)
			}
		}
	}
	if snap.LastMove != nil {
		drawDisc(img, intersection(snap.LastMove.X, snap.LastMove.Y), radius/3, lastMoveMarker)
	}
}

func drawCoordinates(img *image.RGBA, size int) {
	drawer := &font.Drawer{
		Dst:  img,
		Face: basicfont.Face7x13,
		Src:  image.NewUniform(coordColor),
	}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()

	for i := 0; i < size; i++ {
		label := columnLabel(i)
		p := intersection(i, size-1)
		drawCentered(drawer, label, p.X, p.Y+cellSize/2+ascent)

		row := fmt.Sprintf("%d", size-i)
		p = intersection(0, i)
		drawCentered(drawer, row, margin/2, p.Y+ascent/2)
	}
}

// columnLabel follows the go convention of skipping the letter I.
func columnLabel(i int) string {
	c := byte('A' + i)
	if c >= 'I' {
		c++
	}
	return string(c)
}

func drawCentered(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	if srcA >= 1 {
		img.Set(x, y, clr)
		return
	}
	srcR := float64(sr) / 65535.0
	srcG := float64(sg) / 65535.0
	srcB := float64(sb) / 65535.0

	dst := img.RGBAAt(x, y)
	dstR := float64(dst.R) / 255.0
	dstG := float64(dst.G) / 255.0
	dstB := float64(dst.B) / 255.0

	img.SetRGBA(x, y, color.RGBA{
		R: clamp8((srcR*srcA + dstR*(1-srcA)) * 255.0),
		G: clamp8((srcG*srcA + dstG*(1-srcA)) * 255.0),
		B: clamp8((srcB*srcA + dstB*(1-srcA)) * 255.0),
		A: 255,
	})
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
