package analysisservice

import (
	"testing"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

func intPtr(v int) *int         { return &v }
func floatPtr(v float64) *float64 { return &v }

func row(color, result, opening, opponent string) gamedomain.PlayerGame {
	return gamedomain.PlayerGame{
		PlayerColor:       color,
		Result:            result,
		NormalizedOpening: opening,
		OpponentName:      opponent,
	}
}

func TestFilterByColor(t *testing.T) {
	rows := []gamedomain.PlayerGame{
		row("white", "win", "Ruy Lopez", "a"),
		row("black", "loss", "Caro-Kann Defense", "b"),
	}

	white, err := FilterByColor(rows, "white")
	if err != nil {
		t.Fatal(err)
	}
	if len(white) != 1 || white[0].PlayerColor != "white" {
		t.Errorf("white filter = %+v", white)
	}

	all, err := FilterByColor(rows, "")
	if err != nil || len(all) != 2 {
		t.Errorf("empty filter = %d rows, err %v", len(all), err)
	}

	if _, err := FilterByColor(rows, "green"); err == nil {
		t.Error("expected error for invalid color")
	}
}

func TestBasicAnalysis(t *testing.T) {
	rows := []gamedomain.PlayerGame{
		{PlayerColor: "white", Result: "win", NormalizedOpening: "Ruy Lopez", OpponentName: "a",
			PlayerRating: intPtr(1500), PlayerRatingDiff: intPtr(8), PlayerAccuracy: floatPtr(90)},
		{PlayerColor: "white", Result: "win", NormalizedOpening: "Ruy Lopez", OpponentName: "a",
			PlayerRating: intPtr(1510), PlayerRatingDiff: intPtr(7), PlayerAccuracy: floatPtr(80)},
		{PlayerColor: "black", Result: "loss", NormalizedOpening: "Caro-Kann Defense", OpponentName: "b",
			PlayerRating: intPtr(1490), PlayerRatingDiff: intPtr(-6), PlayerAccuracy: floatPtr(70.5)},
		{PlayerColor: "black", Result: "draw", NormalizedOpening: "Caro-Kann Defense", OpponentName: "c",
			PlayerRating: intPtr(1495)},
	}

	s, err := BasicAnalysis(rows, "")
	if err != nil {
		t.Fatal(err)
	}

	if s.RatingDiff != 9 {
		t.Errorf("rating diff = %d, want 9", s.RatingDiff)
	}
	if s.Results != (ResultCounts{Wins: 2, Losses: 1, Draws: 1}) {
		t.Errorf("results = %+v", s.Results)
	}
	if s.RatingRange != (RatingRange{Min: 1490, Max: 1510}) {
		t.Errorf("rating range = %+v", s.RatingRange)
	}
	// both openings tie at 2, name breaks the tie
	if len(s.OpeningCounts) != 2 || s.OpeningCounts[0] != (NameCount{Name: "Caro-Kann Defense", Count: 2}) {
		t.Errorf("opening counts = %+v", s.OpeningCounts)
	}
	if len(s.OpeningWins) != 1 || s.OpeningWins[0].Name != "Ruy Lopez" || s.OpeningWins[0].Count != 2 {
		t.Errorf("opening wins = %+v", s.OpeningWins)
	}
	if len(s.CommonOpponents) == 0 || s.CommonOpponents[0].Name != "a" {
		t.Errorf("common opponents = %+v", s.CommonOpponents)
	}
	if s.Accuracy.Overall == nil || *s.Accuracy.Overall != 80.17 {
		t.Errorf("overall accuracy = %v, want 80.17", s.Accuracy.Overall)
	}
	if s.Accuracy.Wins == nil || *s.Accuracy.Wins != 85 {
		t.Errorf("win accuracy = %v, want 85", s.Accuracy.Wins)
	}
	if s.Accuracy.Draws != nil {
		t.Errorf("draw accuracy = %v, want nil", s.Accuracy.Draws)
	}
}

func TestPrepareWinrateData(t *testing.T) {
	rows := []gamedomain.PlayerGame{
		row("white", "win", "", ""),
		row("white", "loss", "", ""),
		row("white", "win", "", ""),
		row("black", "draw", "", ""),
	}

	data := PrepareWinrateData(rows)

	if got := data["white"]; got != (Percentages{Win: 66.67, Draw: 0, Loss: 33.33}) {
		t.Errorf("white = %+v", got)
	}
	if got := data["black"]; got != (Percentages{Win: 0, Draw: 100, Loss: 0}) {
		t.Errorf("black = %+v", got)
	}
	if got := data["overall"]; got != (Percentages{Win: 50, Draw: 25, Loss: 25}) {
		t.Errorf("overall = %+v", got)
	}
}

func TestAdjustedEval(t *testing.T) {
	white := gamedomain.PlayerGame{PlayerColor: "white", OpeningEval: floatPtr(0.4)}
	black := gamedomain.PlayerGame{PlayerColor: "black", OpeningEval: floatPtr(0.4)}
	none := gamedomain.PlayerGame{PlayerColor: "white"}

	if got := AdjustedEval(white); got == nil || *got != 0.4 {
		t.Errorf("white = %v, want 0.4", got)
	}
	if got := AdjustedEval(black); got == nil || *got != -0.4 {
		t.Errorf("black = %v, want -0.4", got)
	}
	if AdjustedEval(none) != nil {
		t.Error("expected nil for missing eval")
	}
}

func TestOpeningStats(t *testing.T) {
	mk := func(opening string, eval float64) gamedomain.PlayerGame {
		return gamedomain.PlayerGame{
			PlayerColor:       "white",
			NormalizedOpening: opening,
			OpeningEval:       floatPtr(eval),
		}
	}
	rows := []gamedomain.PlayerGame{
		mk("Ruy Lopez", 0.2), mk("Ruy Lopez", 0.4), mk("Ruy Lopez", 0.6),
		mk("Italian Game", 0.1), mk("Italian Game", 0.3),
		{PlayerColor: "white", NormalizedOpening: "Ruy Lopez"}, // no eval, not counted
	}

	stats, err := OpeningStats(rows, "")
	if err != nil {
		t.Fatal(err)
	}
	// Italian Game has only 2 evaluated games and is dropped
	if len(stats) != 1 {
		t.Fatalf("stats = %+v, want 1 entry", stats)
	}
	got := stats[0]
	if got.Name != "Ruy Lopez" || got.Count != 3 {
		t.Errorf("stat = %+v", got)
	}
	if got.AvgEval < 0.399 || got.AvgEval > 0.401 {
		t.Errorf("avg eval = %v, want 0.4", got.AvgEval)
	}
	if got.Label != "Ruy Lopez (3)" {
		t.Errorf("label = %q", got.Label)
	}
}

func TestCalculateConversionStats(t *testing.T) {
	mk := func(color, result string, eval float64) gamedomain.PlayerGame {
		return gamedomain.PlayerGame{PlayerColor: color, Result: result, OpeningEval: floatPtr(eval)}
	}
	rows := []gamedomain.PlayerGame{
		mk("white", "win", 0.6),   // ahead, converted
		mk("white", "loss", 0.8),  // ahead, thrown away
		mk("black", "win", -0.7),  // adjusted +0.7: ahead, converted
		mk("white", "draw", -0.9), // behind, saved
		mk("white", "loss", -0.6), // behind, lost
		mk("white", "win", 0.1),   // neutral, ignored
	}

	stats := CalculateConversionStats(rows)
	if stats.PctWonWhenAhead == nil || *stats.PctWonWhenAhead != 66.67 {
		t.Errorf("ahead = %v, want 66.67", stats.PctWonWhenAhead)
	}
	if stats.PctWonOrDrawnWhenBehind == nil || *stats.PctWonOrDrawnWhenBehind != 50 {
		t.Errorf("behind = %v, want 50", stats.PctWonOrDrawnWhenBehind)
	}
}

func TestCalculateConversionStatsEmpty(t *testing.T) {
	stats := CalculateConversionStats([]gamedomain.PlayerGame{row("white", "win", "", "")})
	if stats.PctWonWhenAhead != nil || stats.PctWonOrDrawnWhenBehind != nil {
		t.Errorf("stats = %+v, want nils", stats)
	}
}

func TestAverageAdjustedEval(t *testing.T) {
	rows := []gamedomain.PlayerGame{
		{PlayerColor: "white", OpeningEval: floatPtr(0.5)},
		{PlayerColor: "black", OpeningEval: floatPtr(-0.3)}, // adjusted +0.3
		{PlayerColor: "white"},
	}

	avg, ok := AverageAdjustedEval(rows, "")
	if !ok {
		t.Fatal("expected ok")
	}
	if avg < 0.399 || avg > 0.401 {
		t.Errorf("avg = %v, want 0.4", avg)
	}

	if _, ok := AverageAdjustedEval([]gamedomain.PlayerGame{{PlayerColor: "white"}}, ""); ok {
		t.Error("expected not ok with no evals")
	}
}

func TestColorLabel(t *testing.T) {
	if ColorLabel("") != "Overall" || ColorLabel("white") != "White" || ColorLabel("black") != "Black" {
		t.Error("unexpected color labels")
	}
}
