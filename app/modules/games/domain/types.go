// Package gamedomain defines the game shapes used across the report
// pipeline: the flattened per-game row and the player-centric row that
// ends up in reports, exports, and analysis.
package gamedomain

import "time"

// Colors and results from the player's perspective.
const (
	ColorWhite = "white"
	ColorBlack = "black"

	ResultWin  = "win"
	ResultLoss = "loss"
	ResultDraw = "draw"
)

// PlayerFeatures holds the per-color fields extracted from a raw game.
// Pointers distinguish absent data from zero values.
type PlayerFeatures struct {
	Name       string
	Rating     *int
	RatingDiff *int
	Inaccuracy *int
	Mistake    *int
	Blunder    *int
	ACPL       *int
	Accuracy   *float64
}

// FlatGame is one game with all nested platform fields pulled up to a
// single level. Clock values are centiseconds as delivered by Lichess.
type FlatGame struct {
	ID         string
	Rated      bool
	Variant    string
	Speed      string
	Perf       string
	CreatedAt  int64 // unix ms
	LastMoveAt int64 // unix ms
	Status     string
	Winner     string // "white", "black", or "" for a draw
	Moves      string // SAN, space separated
	Clocks     []int
	Source     string
	Tournament string

	White PlayerFeatures
	Black PlayerFeatures

	ClockInitial   *int
	ClockIncrement *int
	ClockTotalTime *int

	DivisionMiddle *int
	DivisionEnd    *int

	OpeningECO  string
	OpeningName string
	OpeningPly  *int

	WhiteFinalClock *float64
	BlackFinalClock *float64
	WhiteAvgTime    *float64
	BlackAvgTime    *float64

	// Engine evaluation of the position at the end of the opening
	// phase, in pawns from White's point of view. Nil when the engine
	// stage is disabled, the game was too short, or the position is a
	// forced mate (OpeningEvalText carries the mate label).
	OpeningEval       *float64
	OpeningEvalText   string
	OpeningEvalSource string
}

// PlayerGame is one game seen from the report subject's perspective.
type PlayerGame struct {
	MatchID      string
	PlayerColor  string
	PlayerName   string
	OpponentName string
	Result       string
	Status       string

	PlayerRating     *int
	OpponentRating   *int
	RatingDifference *int

	Variant          string
	Speed            string
	Perf             string
	ClockTimeControl *int
	ClockIncrement   *int
	TimeControl      string
	Source           string
	Tournament       string

	DivisionMiddle    *int
	DivisionEnd       *int
	OpeningEval       *float64
	OpeningEvalText   string
	OpeningEvalSource string

	CreatedAt        time.Time
	LastMoveAt       time.Time
	CreatedAtLabel   string
	TimeSpentPlaying float64 // seconds

	OpeningECO        string
	OpeningName       string
	NormalizedOpening string
	OpeningPly        *int

	PlayerRatingDiff     *int
	PlayerFinalClock     *float64
	PlayerAvgTimePerMove *float64
	PlayerInaccuracy     *int
	PlayerMistake        *int
	PlayerBlunder        *int
	PlayerAccuracy       *float64

	OpponentRatingDiff     *int
	OpponentFinalClock     *float64
	OpponentAvgTimePerMove *float64
	OpponentInaccuracy     *int
	OpponentMistake        *int
	OpponentBlunder        *int
	OpponentAccuracy       *float64

	HalfMoves int
	FullMoves int
	Moves     string
	Clocks    []int
}
