// Package scoring freezes finished games and produces the final
// settlement breakdown: engine territory analysis, mode bonuses, komi,
// and the winner.
package scoring

import (
	"context"

	"go.uber.org/zap"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/gtp"
	"github.com/hanq-games/baduk-server/internal/obslog"
)

// Bonus constants. Product-tuned; the settlement screen and reward
// triggers are calibrated against them.
const (
	baseStoneBonusPoints   = 10.0
	hiddenStoneBonusPoints = 5.0
	// One bonus point per this much main time left, speed (fischer)
	// games only.
	timeBonusUnitMs = 30_000

	analysisMaxVisits = 100
)

type Service struct {
	engines *gtp.Pool
}

func NewService(engines *gtp.Pool) *Service {
	return &Service{engines: engines}
}

// Settle finalizes the session and returns its score breakdown. Invoking
// it again on an already-ended game returns the stored breakdown
// unchanged. forcedWinner overrides the score comparison for resign,
// timeout, disconnect and goal endings; pass board.Empty to decide by
// score.
func (s *Service) Settle(ctx context.Context, sess *game.Session, nowMs int64, method game.EndMethod, forcedWinner board.Color) *game.Result {
	if sess.Result != nil {
		return sess.Result
	}

	sess.StopClock(nowMs)
	sess.Status = game.StatusEnded
	sess.Timer = nil

	analysis := gtp.Neutral()
	if s.engines != nil && sess.Mode.Strategic() {
		analysis = s.engines.Analyze(ctx, sess.AnalyzeRequest(analysisMaxVisits))
	}
	sess.Analysis = &analysis

	res := &game.Result{
		Method:       method,
		WinrateBlack: analysis.WinrateBlack,
		ScoreLead:    analysis.ScoreLead,
		EndedAtMs:    nowMs,
	}
	res.Black = s.sideScore(sess, board.Black, &analysis)
	res.White = s.sideScore(sess, board.White, &analysis)

	if forcedWinner != board.Empty {
		res.Winner = forcedWinner
	} else {
		switch {
		case res.Black.Total > res.White.Total:
			res.Winner = board.Black
		case res.White.Total > res.Black.Total:
			res.Winner = board.White
		default:
			res.Winner = board.Empty
		}
	}

	sess.Result = res
	if s.engines != nil {
		s.engines.Destroy(sess.ID)
	}

	obslog.L().Info("game settled",
		zap.String("game_id", sess.ID),
		zap.String("mode", string(sess.Mode)),
		zap.String("method", string(method)),
		zap.String("winner", res.Winner.String()),
		zap.Float64("score_black", res.Black.Total),
		zap.Float64("score_white", res.White.Total),
	)
	return res
}

func (s *Service) sideScore(sess *game.Session, c board.Color, analysis *gtp.Analysis) game.SideScore {
	caps := sess.Captures.Of(c)
	sc := game.SideScore{
		Captures:    caps.Total,
		BaseBonus:   baseStoneBonusPoints * float64(caps.Base),
		HiddenBonus: hiddenStoneBonusPoints * float64(caps.Hidden),
	}

	territory := analysis.TerritoryBlack
	deadEnemy := countDead(analysis.DeadStones, sess.Board, c.Opponent())
	if c == board.White {
		territory = analysis.TerritoryWhite
	}
	sc.Territory = float64(len(territory) + deadEnemy)

	if sess.Settings.Time.Fischer() {
		sc.TimeBonus = float64(sess.Clocks.Of(c).RemainingMs / timeBonusUnitMs)
	}
	if c == board.White {
		sc.Komi = sess.Settings.Komi
	}

	sc.Total = sc.Territory + float64(sc.Captures) + sc.BaseBonus +
		sc.HiddenBonus + sc.TimeBonus + sc.ItemBonus + sc.Komi
	return sc
}

// countDead counts the analysis' dead stones of the given color: they
// score for their captor like live captures.
func countDead(dead []board.Point, b board.Board, c board.Color) int {
	n := 0
	for _, p := range dead {
		if b.At(p) == c {
			n++
		}
	}
	return n
}
