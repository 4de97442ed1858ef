// Package analysisservice computes the aggregate statistics, textual
// insights, and chart images served with a report.
package analysisservice

import (
	"fmt"
	"math"
	"sort"
	"strings"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

// TopN is how many openings and opponents the summary keeps.
const TopN = 5

// NameCount is a name with its occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ResultCounts holds absolute result counts.
type ResultCounts struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Percentages holds win/draw/loss shares in percent, rounded to two
// decimals.
type Percentages struct {
	Win  float64 `json:"win"`
	Draw float64 `json:"draw"`
	Loss float64 `json:"loss"`
}

// AccuracyStats holds mean player accuracy overall and per result.
// Nil means no game in the bucket carried an accuracy value.
type AccuracyStats struct {
	Overall *float64 `json:"overall"`
	Wins    *float64 `json:"wins"`
	Losses  *float64 `json:"losses"`
	Draws   *float64 `json:"draws"`
}

// RatingRange is the span of the player's rating across the games.
type RatingRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Summary is the basic per-report analysis block.
type Summary struct {
	RatingDiff      int           `json:"rating_diff"`
	OpeningCounts   []NameCount   `json:"opening_counts"`
	OpeningWins     []NameCount   `json:"opening_wins"`
	OpeningLosses   []NameCount   `json:"opening_losses"`
	OpeningDraws    []NameCount   `json:"opening_draws"`
	RatingRange     RatingRange   `json:"rating_range"`
	Results         ResultCounts  `json:"results"`
	CommonOpponents []NameCount   `json:"common_opponents"`
	Accuracy        AccuracyStats `json:"accuracy"`
}

// WinrateData keys percentages by "white", "black", and "overall".
type WinrateData map[string]Percentages

// FilterByColor returns the rows where the player held the given color.
// An empty color returns the input unchanged.
func FilterByColor(rows []gamedomain.PlayerGame, color string) ([]gamedomain.PlayerGame, error) {
	switch color {
	case "":
		return rows, nil
	case gamedomain.ColorWhite, gamedomain.ColorBlack:
	default:
		return nil, fmt.Errorf("invalid color: %q", color)
	}
	var out []gamedomain.PlayerGame
	for _, r := range rows {
		if r.PlayerColor == color {
			out = append(out, r)
		}
	}
	return out, nil
}

// BasicAnalysis summarizes the games, optionally restricted to one
// player color.
func BasicAnalysis(rows []gamedomain.PlayerGame, color string) (*Summary, error) {
	filtered, err := FilterByColor(rows, color)
	if err != nil {
		return nil, err
	}

	wins, losses, draws := countResults(filtered)
	return &Summary{
		RatingDiff:      ratingDiffSum(filtered),
		OpeningCounts:   topOpenings(filtered, TopN),
		OpeningWins:     topOpenings(byResult(filtered, gamedomain.ResultWin), TopN),
		OpeningLosses:   topOpenings(byResult(filtered, gamedomain.ResultLoss), TopN),
		OpeningDraws:    topOpenings(byResult(filtered, gamedomain.ResultDraw), TopN),
		RatingRange:     ratingRange(filtered),
		Results:         ResultCounts{Wins: wins, Losses: losses, Draws: draws},
		CommonOpponents: topOpponents(filtered, TopN),
		Accuracy:        accuracyStats(filtered),
	}, nil
}

// PrepareWinrateData computes win/draw/loss percentages for white,
// black, and both colors combined.
func PrepareWinrateData(rows []gamedomain.PlayerGame) WinrateData {
	white, _ := FilterByColor(rows, gamedomain.ColorWhite)
	black, _ := FilterByColor(rows, gamedomain.ColorBlack)
	return WinrateData{
		"white":   resultPercentages(white),
		"black":   resultPercentages(black),
		"overall": resultPercentages(rows),
	}
}

func resultPercentages(rows []gamedomain.PlayerGame) Percentages {
	if len(rows) == 0 {
		return Percentages{}
	}
	wins, losses, draws := countResults(rows)
	total := float64(len(rows))
	return Percentages{
		Win:  round2(float64(wins) / total * 100),
		Draw: round2(float64(draws) / total * 100),
		Loss: round2(float64(losses) / total * 100),
	}
}

func countResults(rows []gamedomain.PlayerGame) (wins, losses, draws int) {
	for _, r := range rows {
		switch r.Result {
		case gamedomain.ResultWin:
			wins++
		case gamedomain.ResultLoss:
			losses++
		case gamedomain.ResultDraw:
			draws++
		}
	}
	return wins, losses, draws
}

func byResult(rows []gamedomain.PlayerGame, result string) []gamedomain.PlayerGame {
	var out []gamedomain.PlayerGame
	for _, r := range rows {
		if r.Result == result {
			out = append(out, r)
		}
	}
	return out
}

func ratingDiffSum(rows []gamedomain.PlayerGame) int {
	sum := 0
	for _, r := range rows {
		if r.PlayerRatingDiff != nil {
			sum += *r.PlayerRatingDiff
		}
	}
	return sum
}

func ratingRange(rows []gamedomain.PlayerGame) RatingRange {
	rr := RatingRange{}
	first := true
	for _, r := range rows {
		if r.PlayerRating == nil {
			continue
		}
		if first || *r.PlayerRating < rr.Min {
			rr.Min = *r.PlayerRating
		}
		if first || *r.PlayerRating > rr.Max {
			rr.Max = *r.PlayerRating
		}
		first = false
	}
	return rr
}

func topOpenings(rows []gamedomain.PlayerGame, n int) []NameCount {
	return topCounts(rows, n, func(r gamedomain.PlayerGame) string { return r.NormalizedOpening })
}

func topOpponents(rows []gamedomain.PlayerGame, n int) []NameCount {
	return topCounts(rows, n, func(r gamedomain.PlayerGame) string { return r.OpponentName })
}

func topCounts(rows []gamedomain.PlayerGame, n int, key func(gamedomain.PlayerGame) string) []NameCount {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[key(r)]++
	}
	out := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func accuracyStats(rows []gamedomain.PlayerGame) AccuracyStats {
	return AccuracyStats{
		Overall: meanAccuracy(rows),
		Wins:    meanAccuracy(byResult(rows, gamedomain.ResultWin)),
		Losses:  meanAccuracy(byResult(rows, gamedomain.ResultLoss)),
		Draws:   meanAccuracy(byResult(rows, gamedomain.ResultDraw)),
	}
}

func meanAccuracy(rows []gamedomain.PlayerGame) *float64 {
	sum, n := 0.0, 0
	for _, r := range rows {
		if r.PlayerAccuracy != nil {
			sum += *r.PlayerAccuracy
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := round2(sum / float64(n))
	return &mean
}

// OpeningStat is one opening's adjusted-eval aggregate.
type OpeningStat struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	AvgEval float64 `json:"avg_eval"`
	Label   string  `json:"label"`
}

// AdjustedEval flips the opening eval for games played as Black, so a
// positive value always means the player came out ahead. Nil when the
// game carries no numeric eval.
func AdjustedEval(r gamedomain.PlayerGame) *float64 {
	if r.OpeningEval == nil {
		return nil
	}
	v := *r.OpeningEval
	if r.PlayerColor == gamedomain.ColorBlack {
		v = -v
	}
	return &v
}

// OpeningStats groups games by normalized opening name and averages the
// adjusted eval, keeping openings seen more than twice, most played
// first.
func OpeningStats(rows []gamedomain.PlayerGame, color string) ([]OpeningStat, error) {
	filtered, err := FilterByColor(rows, color)
	if err != nil {
		return nil, err
	}

	type agg struct {
		count int
		sum   float64
	}
	groups := make(map[string]*agg)
	for _, r := range filtered {
		ev := AdjustedEval(r)
		if ev == nil {
			continue
		}
		a := groups[r.NormalizedOpening]
		if a == nil {
			a = &agg{}
			groups[r.NormalizedOpening] = a
		}
		a.count++
		a.sum += *ev
	}

	var stats []OpeningStat
	for name, a := range groups {
		if a.count <= 2 {
			continue
		}
		stats = append(stats, OpeningStat{
			Name:    name,
			Count:   a.count,
			AvgEval: a.sum / float64(a.count),
			Label:   fmt.Sprintf("%s (%d)", name, a.count),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

// AverageAdjustedEval returns the mean adjusted eval for a color
// ("white", "black", or "" for all games). ok is false when no game
// carries an eval.
func AverageAdjustedEval(rows []gamedomain.PlayerGame, color string) (float64, bool) {
	filtered, err := FilterByColor(rows, color)
	if err != nil {
		return 0, false
	}
	sum, n := 0.0, 0
	for _, r := range filtered {
		if ev := AdjustedEval(r); ev != nil {
			sum += *ev
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Conversion thresholds: a player counts as ahead after the opening at
// +0.5 pawns and behind at -0.5.
const (
	AheadThreshold  = 0.5
	BehindThreshold = -0.5
)

// ConversionStats measures how often advantages become wins and
// disadvantages are held. Nil when no game qualifies.
type ConversionStats struct {
	PctWonWhenAhead         *float64 `json:"pct_won_when_ahead"`
	PctWonOrDrawnWhenBehind *float64 `json:"pct_won_or_drawn_when_behind"`
}

// CalculateConversionStats derives the conversion percentages from the
// adjusted opening evals.
func CalculateConversionStats(rows []gamedomain.PlayerGame) ConversionStats {
	var aheadTotal, aheadWon, behindTotal, behindSaved int
	for _, r := range rows {
		ev := AdjustedEval(r)
		if ev == nil {
			continue
		}
		switch {
		case *ev >= AheadThreshold:
			aheadTotal++
			if r.Result == gamedomain.ResultWin {
				aheadWon++
			}
		case *ev <= BehindThreshold:
			behindTotal++
			if r.Result != gamedomain.ResultLoss {
				behindSaved++
			}
		}
	}

	stats := ConversionStats{}
	if aheadTotal > 0 {
		v := round2(float64(aheadWon) / float64(aheadTotal) * 100)
		stats.PctWonWhenAhead = &v
	}
	if behindTotal > 0 {
		v := round2(float64(behindSaved) / float64(behindTotal) * 100)
		stats.PctWonOrDrawnWhenBehind = &v
	}
	return stats
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// ColorLabel maps an internal color filter to its display name.
func ColorLabel(color string) string {
	if color == "" {
		return "Overall"
	}
	return strings.ToUpper(color[:1]) + color[1:]
}
