package analysisservice

import (
	"bytes"
	"testing"
	"time"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func assertPNG(t *testing.T, data []byte, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Fatalf("output is not a PNG (%d bytes)", len(data))
	}
}

func TestWinrateChart(t *testing.T) {
	data := WinrateData{
		"white":   {Win: 55, Draw: 10, Loss: 35},
		"black":   {Win: 45, Draw: 12, Loss: 43},
		"overall": {Win: 50, Draw: 11, Loss: 39},
	}
	png, err := WinrateChart(data)
	assertPNG(t, png, err)
}

func TestWinrateChartNoData(t *testing.T) {
	// falls back to the placeholder image
	png, err := WinrateChart(WinrateData{})
	assertPNG(t, png, err)
}

func TestStatusChart(t *testing.T) {
	rows := []gamedomain.PlayerGame{
		{Status: "mate"}, {Status: "mate"}, {Status: "resign"},
		{Status: "outoftime"}, {Status: "draw"},
	}
	png, err := StatusChart(rows)
	assertPNG(t, png, err)
}

func TestStatusChartEmpty(t *testing.T) {
	png, err := StatusChart(nil)
	assertPNG(t, png, err)
}

func TestOpeningStatsChart(t *testing.T) {
	mk := func(opening string, eval float64) gamedomain.PlayerGame {
		return gamedomain.PlayerGame{
			PlayerColor:       "white",
			NormalizedOpening: opening,
			OpeningEval:       floatPtr(eval),
		}
	}
	rows := []gamedomain.PlayerGame{
		mk("Ruy Lopez", 0.4), mk("Ruy Lopez", 0.2), mk("Ruy Lopez", 0.6),
		mk("Caro-Kann Defense", -0.3), mk("Caro-Kann Defense", -0.1), mk("Caro-Kann Defense", -0.2),
	}
	png, err := OpeningStatsChart(rows, "")
	assertPNG(t, png, err)
}

func TestOpeningStatsChartNoData(t *testing.T) {
	// falls back to the placeholder image
	png, err := OpeningStatsChart(nil, "")
	assertPNG(t, png, err)
}

func TestRatingHistoryChart(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []gamedomain.PlayerGame{
		{CreatedAt: base.AddDate(0, 0, 2), PlayerRating: intPtr(1520)},
		{CreatedAt: base.AddDate(0, 0, 1), PlayerRating: intPtr(1510)},
		{CreatedAt: base, PlayerRating: intPtr(1500)},
	}
	png, err := RatingHistoryChart(rows)
	assertPNG(t, png, err)
}

func TestRatingHistoryChartTooFewPoints(t *testing.T) {
	rows := []gamedomain.PlayerGame{{CreatedAt: time.Now(), PlayerRating: intPtr(1500)}}
	png, err := RatingHistoryChart(rows)
	assertPNG(t, png, err)
}
