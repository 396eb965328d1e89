package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/hanq-games/baduk-server/internal/domain"
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/internal/gtp"
)

// Archive writes finished games to Postgres for history and leaderboard
// queries. Live play never reads it.
type Archive struct {
	db *sql.DB
}

func NewArchive(databaseURL string) (*Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveRecord upserts one finished game.
func (a *Archive) SaveRecord(ctx context.Context, rec *domain.GameRecord) error {
	if a == nil || a.db == nil || rec == nil {
		return nil
	}

	q := `INSERT INTO games (
	    game_id, mode, black_id, black_name, white_id, white_name,
	    board_size, komi, result, result_method,
	    score_black, score_white, move_count, moves,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
	  ) ON CONFLICT (game_id) DO UPDATE SET
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    score_black=EXCLUDED.score_black,
	    score_white=EXCLUDED.score_white,
	    move_count=EXCLUDED.move_count,
	    moves=EXCLUDED.moves,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := a.db.ExecContext(ctx, q,
		rec.GameID, rec.Mode,
		rec.BlackID, rec.BlackName, rec.WhiteID, rec.WhiteName,
		rec.BoardSize, rec.Komi, rec.Result, rec.ResultMethod,
		rec.ScoreBlack, rec.ScoreWhite, rec.MoveCount,
		strings.Join(rec.Moves, " "),
		rec.StartedAt, rec.EndedAt, rec.Duration.Milliseconds(),
	)
	return err
}

// RecordFrom flattens a settled session into its archive row.
func RecordFrom(sess *game.Session) *domain.GameRecord {
	if sess == nil || sess.Result == nil {
		return nil
	}
	rec := &domain.GameRecord{
		GameID:       sess.ID,
		Mode:         string(sess.Mode),
		BoardSize:    sess.Settings.BoardSize,
		Komi:         sess.Settings.Komi,
		Result:       sess.Result.Winner.String(),
		ResultMethod: string(sess.Result.Method),
		ScoreBlack:   sess.Result.Black.Total,
		ScoreWhite:   sess.Result.White.Total,
		MoveCount:    len(sess.History),
		StartedAt:    sess.CreatedAt,
		EndedAt:      time.UnixMilli(sess.Result.EndedAtMs),
	}
	if rec.Duration = rec.EndedAt.Sub(rec.StartedAt); rec.Duration < 0 {
		rec.Duration = 0
	}
	if sess.Black != nil {
		rec.BlackID, rec.BlackName = sess.Black.ID, sess.Black.Name
	}
	if sess.White != nil {
		rec.WhiteID, rec.WhiteName = sess.White.ID, sess.White.Name
	}
	for _, mv := range sess.History {
		switch {
		case mv.Pass:
			rec.Moves = append(rec.Moves, "pass")
		case mv.Resign:
			rec.Moves = append(rec.Moves, "resign")
		default:
			rec.Moves = append(rec.Moves, gtp.FormatPoint(mv.Point, sess.Settings.BoardSize))
		}
	}
	return rec
}
