package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/gtp"
)

func newEndedSession() *game.Session {
	s := &game.Session{
		ID:       "g1",
		Mode:     game.ModeStandard,
		Settings: game.Settings{BoardSize: 9, Komi: 6.5, Time: game.TimeControl{MainMs: 60_000}},
		Board:    board.MustNew(9),
		Status:   game.StatusPlaying,
		Current:  board.Black,
	}
	s.InitClocks()
	return s
}

// unavailablePool has no engine binary: analysis degrades to neutral.
func unavailablePool() *gtp.Pool {
	return gtp.NewPool(gtp.PoolConfig{BinaryPath: "/no/such/engine"})
}

func TestSettleIdempotent(t *testing.T) {
	svc := NewService(unavailablePool())
	sess := newEndedSession()
	sess.Captures.Black.Total = 3

	first := svc.Settle(context.Background(), sess, 1_000, game.EndByScore, board.Empty)
	second := svc.Settle(context.Background(), sess, 99_000, game.EndByScore, board.Empty)

	require.Same(t, first, second, "re-settling must return the stored breakdown")
	require.Equal(t, game.StatusEnded, sess.Status)
	require.Equal(t, int64(1_000), first.EndedAtMs)
}

func TestSettleNeutralAnalysisOnEngineFailure(t *testing.T) {
	svc := NewService(unavailablePool())
	sess := newEndedSession()

	res := svc.Settle(context.Background(), sess, 0, game.EndByScore, board.Empty)
	require.Equal(t, 0.5, res.WinrateBlack)
	require.Zero(t, res.ScoreLead)
	// With no territory, komi alone decides.
	require.Equal(t, board.White, res.Winner)
	require.Equal(t, 6.5, res.White.Komi)
}

func TestSettleForcedWinner(t *testing.T) {
	svc := NewService(unavailablePool())
	sess := newEndedSession()

	res := svc.Settle(context.Background(), sess, 0, game.EndByResign, board.Black)
	require.Equal(t, board.Black, res.Winner)
	require.Equal(t, game.EndByResign, res.Method)
}

func TestBonusArithmetic(t *testing.T) {
	svc := NewService(unavailablePool())
	sess := newEndedSession()
	sess.Mode = game.ModeBase
	sess.Captures.Black = game.CaptureCount{Total: 7, Base: 2, Hidden: 1}

	res := svc.Settle(context.Background(), sess, 0, game.EndByScore, board.Empty)
	require.Equal(t, 7, res.Black.Captures)
	require.Equal(t, 20.0, res.Black.BaseBonus)
	require.Equal(t, 5.0, res.Black.HiddenBonus)
	require.Equal(t, 7+20.0+5.0, res.Black.Total)
}

func TestSpeedTimeBonus(t *testing.T) {
	svc := NewService(unavailablePool())
	sess := newEndedSession()
	sess.Settings.Time = game.TimeControl{MainMs: 120_000, FischerMs: 5_000}
	sess.InitClocks()

	res := svc.Settle(context.Background(), sess, 0, game.EndByScore, board.Empty)
	// 120s remaining at one point per 30s.
	require.Equal(t, 4.0, res.Black.TimeBonus)
}
