package gtp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/internal/board"
)

// fakeEngineScript answers the line protocol well enough to exercise the
// client: every command gets one marked reply.
const fakeEngineScript = `
while read cmd rest; do
  case "$cmd" in
    genmove) echo "= D4" ;;
    all_legal) echo "= C3 E5 F2" ;;
    analyze) echo '= {"winrate":0.62,"scoreLead":3.5,"ownership":[],"moveInfos":[{"move":"D4","winrate":0.62,"visits":10}]}' ;;
    *) echo "= " ;;
  esac
done
`

func newFakePool(t *testing.T) *Pool {
	t.Helper()
	return NewPool(PoolConfig{
		BinaryPath: "/bin/sh",
		ExtraArgs:  []string{"-c", fakeEngineScript},
	})
}

func TestCreateMissingBinary(t *testing.T) {
	p := NewPool(PoolConfig{BinaryPath: "/no/such/engine"})
	require.False(t, p.Available())

	inst, err := p.Create(context.Background(), "g1", 3, 9, 6.5)
	require.Error(t, err)
	require.Nil(t, inst)
}

func TestPlayAndGenMove(t *testing.T) {
	p := newFakePool(t)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inst, err := p.Create(ctx, "g1", 3, 9, 6.5)
	require.NoError(t, err)
	require.Same(t, inst, p.Get("g1"))

	mv := Move{Color: board.Black, Point: board.Point{X: 2, Y: 2}}
	require.NoError(t, inst.PlayMove(ctx, nil, mv))

	v, err := inst.GenMove(ctx, board.White, true)
	require.NoError(t, err)
	require.False(t, v.Pass)
	require.Equal(t, board.Point{X: 3, Y: 5}, v.Point) // D4 on 9x9
}

func TestPlayMoveRecoversAfterProcessDeath(t *testing.T) {
	p := newFakePool(t)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	inst, err := p.Create(ctx, "g1", 3, 9, 6.5)
	require.NoError(t, err)

	history := []Move{
		{Color: board.Black, Point: board.Point{X: 2, Y: 2}},
		{Color: board.White, Point: board.Point{X: 6, Y: 6}},
	}
	require.NoError(t, inst.PlayMove(ctx, history[:1], history[1]))

	// Kill the subprocess under the client; the next PlayMove must heal
	// either by resync or by a full recreate+resync.
	_ = inst.current().Close()

	mv := Move{Color: board.Black, Point: board.Point{X: 4, Y: 4}}
	require.NoError(t, inst.PlayMove(ctx, history, mv))

	// And the instance stays usable for generation afterwards.
	v, err := inst.GenMove(ctx, board.White, true)
	require.NoError(t, err)
	require.Equal(t, board.Point{X: 3, Y: 5}, v.Point)
}

func TestAnalyzeNeutralOnFailure(t *testing.T) {
	p := NewPool(PoolConfig{BinaryPath: "/no/such/engine"})
	got := p.Analyze(context.Background(), AnalyzeRequest{
		GameID:    "g1",
		BoardSize: 9,
		Komi:      6.5,
		Board:     board.MustNew(9),
	})
	require.Equal(t, Neutral(), got)
}

func TestAnalyzeParsesPayload(t *testing.T) {
	p := newFakePool(t)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := p.Analyze(ctx, AnalyzeRequest{
		GameID:    "g2",
		BoardSize: 9,
		Komi:      6.5,
		Board:     board.MustNew(9),
		Moves: []Move{
			{Color: board.Black, Point: board.Point{X: 2, Y: 2}},
		},
	})
	require.InDelta(t, 0.62, got.WinrateBlack, 1e-9)
	require.InDelta(t, 3.5, got.ScoreLead, 1e-9)
	require.Len(t, got.Candidates, 1)
	require.Equal(t, "D4", got.Candidates[0].Move)
}

func TestDestroyDropsInstance(t *testing.T) {
	p := newFakePool(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "g1", 3, 9, 6.5)
	require.NoError(t, err)
	p.Destroy("g1")
	require.Nil(t, p.Get("g1"))
}
