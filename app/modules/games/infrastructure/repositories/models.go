package gamedb

import (
	"time"

	"github.com/uptrace/bun"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

// Game is one processed player-perspective game row.
type Game struct {
	bun.BaseModel `bun:"table:games_processed,alias:g"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	ReportID int64  `bun:"report_id,notnull" json:"report_id"`
	MatchID  string `bun:"match_id,notnull" json:"match_id"`

	PlayerColor  string `bun:"player_color,notnull" json:"player_color"`
	PlayerName   string `bun:"player_name,notnull" json:"player_name"`
	OpponentName string `bun:"opponent_name" json:"opponent_name"`
	Result       string `bun:"result,notnull" json:"result"`
	Status       string `bun:"status" json:"status"`

	PlayerRating     *int `bun:"player_rating" json:"player_rating,omitempty"`
	OpponentRating   *int `bun:"opponent_rating" json:"opponent_rating,omitempty"`
	RatingDifference *int `bun:"rating_difference" json:"rating_difference,omitempty"`

	Variant          string `bun:"variant" json:"variant"`
	Speed            string `bun:"speed" json:"speed"`
	Perf             string `bun:"perf" json:"perf"`
	ClockTimeControl *int   `bun:"clock_time_control" json:"clock_time_control,omitempty"`
	ClockIncrement   *int   `bun:"clock_increment" json:"clock_increment,omitempty"`
	TimeControl      string `bun:"time_control_with_increment" json:"time_control_with_increment"`
	Source           string `bun:"source" json:"source"`
	Tournament       string `bun:"tournament" json:"tournament"`

	DivisionMiddle    *int     `bun:"division_middle" json:"division_middle,omitempty"`
	DivisionEnd       *int     `bun:"division_end" json:"division_end,omitempty"`
	OpeningEval       *float64 `bun:"opening_eval" json:"opening_eval,omitempty"`
	OpeningEvalText   string   `bun:"opening_eval_text" json:"opening_eval_text"`
	OpeningEvalSource string   `bun:"opening_eval_source" json:"opening_eval_source"`

	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`
	LastMoveAt       time.Time `bun:"last_move_at" json:"last_move_at"`
	TimeSpentPlaying float64   `bun:"time_spent_playing" json:"time_spent_playing"`

	OpeningECO        string `bun:"opening_eco" json:"opening_eco"`
	OpeningName       string `bun:"opening_name" json:"opening_name"`
	NormalizedOpening string `bun:"normalized_opening_name" json:"normalized_opening_name"`
	OpeningPly        *int   `bun:"opening_ply" json:"opening_ply,omitempty"`

	PlayerRatingDiff     *int     `bun:"player_rating_diff" json:"player_rating_diff,omitempty"`
	PlayerFinalClock     *float64 `bun:"player_final_clock" json:"player_final_clock,omitempty"`
	PlayerAvgTimePerMove *float64 `bun:"player_avg_time_per_move" json:"player_avg_time_per_move,omitempty"`
	PlayerInaccuracy     *int     `bun:"player_inaccuracy" json:"player_inaccuracy,omitempty"`
	PlayerMistake        *int     `bun:"player_mistake" json:"player_mistake,omitempty"`
	PlayerBlunder        *int     `bun:"player_blunder" json:"player_blunder,omitempty"`
	PlayerAccuracy       *float64 `bun:"player_accuracy" json:"player_accuracy,omitempty"`

	OpponentRatingDiff     *int     `bun:"opponent_rating_diff" json:"opponent_rating_diff,omitempty"`
	OpponentFinalClock     *float64 `bun:"opponent_final_clock" json:"opponent_final_clock,omitempty"`
	OpponentAvgTimePerMove *float64 `bun:"opponent_avg_time_per_move" json:"opponent_avg_time_per_move,omitempty"`
	OpponentInaccuracy     *int     `bun:"opponent_inaccuracy" json:"opponent_inaccuracy,omitempty"`
	OpponentMistake        *int     `bun:"opponent_mistake" json:"opponent_mistake,omitempty"`
	OpponentBlunder        *int     `bun:"opponent_blunder" json:"opponent_blunder,omitempty"`
	OpponentAccuracy       *float64 `bun:"opponent_accuracy" json:"opponent_accuracy,omitempty"`

	HalfMoves int    `bun:"half_moves" json:"half_moves"`
	FullMoves int    `bun:"full_moves" json:"full_moves"`
	Moves     string `bun:"moves" json:"moves"`
	Clocks    []int  `bun:"clocks,type:jsonb" json:"clocks"`
}

// FromDomain converts a processed row for persistence.
func FromDomain(reportID int64, g gamedomain.PlayerGame) *Game {
	return &Game{
		ReportID:               reportID,
		MatchID:                g.MatchID,
		PlayerColor:            g.PlayerColor,
		PlayerName:             g.PlayerName,
		OpponentName:           g.OpponentName,
		Result:                 g.Result,
		Status:                 g.Status,
		PlayerRating:           g.PlayerRating,
		OpponentRating:         g.OpponentRating,
		RatingDifference:       g.RatingDifference,
		Variant:                g.Variant,
		Speed:                  g.Speed,
		Perf:                   g.Perf,
		ClockTimeControl:       g.ClockTimeControl,
		ClockIncrement:         g.ClockIncrement,
		TimeControl:            g.TimeControl,
		Source:                 g.Source,
		Tournament:             g.Tournament,
		DivisionMiddle:         g.DivisionMiddle,
		DivisionEnd:            g.DivisionEnd,
		OpeningEval:            g.OpeningEval,
		OpeningEvalText:        g.OpeningEvalText,
		OpeningEvalSource:      g.OpeningEvalSource,
		CreatedAt:              g.CreatedAt,
		LastMoveAt:             g.LastMoveAt,
		TimeSpentPlaying:       g.TimeSpentPlaying,
		OpeningECO:             g.OpeningECO,
		OpeningName:            g.OpeningName,
		NormalizedOpening:      g.NormalizedOpening,
		OpeningPly:             g.OpeningPly,
		PlayerRatingDiff:       g.PlayerRatingDiff,
		PlayerFinalClock:       g.PlayerFinalClock,
		PlayerAvgTimePerMove:   g.PlayerAvgTimePerMove,
		PlayerInaccuracy:       g.PlayerInaccuracy,
		PlayerMistake:          g.PlayerMistake,
		PlayerBlunder:          g.PlayerBlunder,
		PlayerAccuracy:         g.PlayerAccuracy,
		OpponentRatingDiff:     g.OpponentRatingDiff,
		OpponentFinalClock:     g.OpponentFinalClock,
		OpponentAvgTimePerMove: g.OpponentAvgTimePerMove,
		OpponentInaccuracy:     g.OpponentInaccuracy,
		OpponentMistake:        g.OpponentMistake,
		OpponentBlunder:        g.OpponentBlunder,
		OpponentAccuracy:       g.OpponentAccuracy,
		HalfMoves:              g.HalfMoves,
		FullMoves:              g.FullMoves,
		Moves:                  g.Moves,
		Clocks:                 g.Clocks,
	}
}

// ToDomain converts a stored row back to the processing shape.
func (g *Game) ToDomain() gamedomain.PlayerGame {
	return gamedomain.PlayerGame{
		MatchID:                g.MatchID,
		PlayerColor:            g.PlayerColor,
		PlayerName:             g.PlayerName,
		OpponentName:           g.OpponentName,
		Result:                 g.Result,
		Status:                 g.Status,
		PlayerRating:           g.PlayerRating,
		OpponentRating:         g.OpponentRating,
		RatingDifference:       g.RatingDifference,
		Variant:                g.Variant,
		Speed:                  g.Speed,
		Perf:                   g.Perf,
		ClockTimeControl:       g.ClockTimeControl,
		ClockIncrement:         g.ClockIncrement,
		TimeControl:            g.TimeControl,
		Source:                 g.Source,
		Tournament:             g.Tournament,
		DivisionMiddle:         g.DivisionMiddle,
		DivisionEnd:            g.DivisionEnd,
		OpeningEval:            g.OpeningEval,
		OpeningEvalText:        g.OpeningEvalText,
		OpeningEvalSource:      g.OpeningEvalSource,
		CreatedAt:              g.CreatedAt,
		LastMoveAt:             g.LastMoveAt,
		CreatedAtLabel:         g.CreatedAt.Format("02/01/06 15:04"),
		TimeSpentPlaying:       g.TimeSpentPlaying,
		OpeningECO:             g.OpeningECO,
		OpeningName:            g.OpeningName,
		NormalizedOpening:      g.NormalizedOpening,
		OpeningPly:             g.OpeningPly,
		PlayerRatingDiff:       g.PlayerRatingDiff,
		PlayerFinalClock:       g.PlayerFinalClock,
		PlayerAvgTimePerMove:   g.PlayerAvgTimePerMove,
		PlayerInaccuracy:       g.PlayerInaccuracy,
		PlayerMistake:          g.PlayerMistake,
		PlayerBlunder:          g.PlayerBlunder,
		PlayerAccuracy:         g.PlayerAccuracy,
		OpponentRatingDiff:     g.OpponentRatingDiff,
		OpponentFinalClock:     g.OpponentFinalClock,
		OpponentAvgTimePerMove: g.OpponentAvgTimePerMove,
		OpponentInaccuracy:     g.OpponentInaccuracy,
		OpponentMistake:        g.OpponentMistake,
		OpponentBlunder:        g.OpponentBlunder,
		OpponentAccuracy:       g.OpponentAccuracy,
		HalfMoves:              g.HalfMoves,
		FullMoves:              g.FullMoves,
		Moves:                  g.Moves,
		Clocks:                 g.Clocks,
	}
}
