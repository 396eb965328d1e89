package domain

import "time"

// User is the persistent player profile the session layer reads and the
// settlement updates.
type User struct {
	ID           string
	Name         string
	Rating       int
	Coins        int
	Guild        string
	GamesPlayed  int
	Wins         int
	Losses       int
	Draws        int
	Streak       int
	StreakType   string
	LastMode     string
	LastPlayedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GameRecord is the archived row for one finished game.
type GameRecord struct {
	GameID       string
	Mode         string
	BlackID      string
	BlackName    string
	WhiteID      string
	WhiteName    string
	BoardSize    int
	Komi         float64
	Result       string
	ResultMethod string
	ScoreBlack   float64
	ScoreWhite   float64
	MoveCount    int
	Moves        []string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}
