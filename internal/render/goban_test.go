package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

func TestRenderPNG(t *testing.T) {
	cells := make([]int8, 9*9)
	cells[4*9+4] = 1
	cells[3*9+3] = 2

	snap := &gamedto.Snapshot{
		BoardSize: 9,
		Cells:     cells,
		LastMove:  &gamedto.Point{X: 4, Y: 4},
	}

	data, err := NewGoban().RenderPNG(snap)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	side := (9-1)*cellSize + margin*2
	require.Equal(t, side, img.Bounds().Dx())
	require.Equal(t, side, img.Bounds().Dy())

	// The stone body is near-black off-center; the exact center carries
	// the red last-move marker. The empty corner stays wood.
	center := intersection(4, 4)
	r, g, b, _ := img.At(center.X+8, center.Y).RGBA()
	require.Less(t, r+g+b, uint32(3*0x4000))

	r, g, b, _ = img.At(center.X, center.Y).RGBA()
	require.Greater(t, r, g+b, "last-move marker is red-dominant")

	r, g, b, _ = img.At(2, 2).RGBA()
	require.Greater(t, r+g+b, uint32(3*0x8000))
}

func TestRenderPNGRejectsBadGrid(t *testing.T) {
	_, err := NewGoban().RenderPNG(&gamedto.Snapshot{BoardSize: 9, Cells: make([]int8, 5)})
	require.Error(t, err)

	_, err = NewGoban().RenderPNG(&gamedto.Snapshot{BoardSize: 0})
	require.Error(t, err)
}
