package analysisservice

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

var (
	colorWin   = drawing.ColorFromHex("92b76f")
	colorDraw  = drawing.ColorFromHex("d59c4d")
	colorLoss  = drawing.ColorFromHex("db6f72")
	colorBlue  = drawing.ColorFromHex("3288d1")
	colorGray  = drawing.ColorFromHex("6c757d")
	colorWhite = drawing.ColorFromHex("ffffff")
)

var statusColors = map[string]drawing.Color{
	"resign":    colorWin,
	"mate":      colorLoss,
	"draw":      colorDraw,
	"outoftime": colorBlue,
	"other":     colorGray,
}

// WinrateChart renders stacked win/draw/loss percentage bars for white,
// black, and both colors combined.
func WinrateChart(data WinrateData) ([]byte, error) {
	if len(data) == 0 {
		return renderNoDataPlaceholder("No games to chart")
	}

	bars := make([]chart.StackedBar, 0, 3)
	for _, key := range []string{"white", "black", "overall"} {
		p := data[key]
		bars = append(bars, chart.StackedBar{
			Name:  ColorLabel(keyToColor(key)),
			Width: 120,
			Values: []chart.Value{
				{Value: nonZero(p.Win), Label: fmt.Sprintf("win %.0f%%", p.Win), Style: chart.Style{FillColor: colorWin, FontColor: colorWhite}},
				{Value: nonZero(p.Draw), Label: fmt.Sprintf("draw %.0f%%", p.Draw), Style: chart.Style{FillColor: colorDraw}},
				{Value: nonZero(p.Loss), Label: fmt.Sprintf("loss %.0f%%", p.Loss), Style: chart.Style{FillColor: colorLoss, FontColor: colorWhite}},
			},
		})
	}

	graph := chart.StackedBarChart{
		Title:      "Win Rates by Color",
		Width:      800,
		Height:     500,
		XAxis:      chart.Style{},
		YAxis:      chart.Style{},
		Bars:       bars,
		BarSpacing: 60,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// StatusChart renders a donut of game-ending statuses. Statuses under
// ten percent are folded into "other".
func StatusChart(rows []gamedomain.PlayerGame) ([]byte, error) {
	if len(rows) == 0 {
		return renderNoDataPlaceholder("No games to chart")
	}

	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Status]++
	}
	total := float64(len(rows))

	var values []chart.Value
	other := 0
	for status, count := range counts {
		if float64(count)/total < 0.10 {
			other += count
			continue
		}
		values = append(values, chart.Value{
			Value: float64(count),
			Label: status,
			Style: chart.Style{FillColor: statusColor(status)},
		})
	}
	if other > 0 {
		values = append(values, chart.Value{
			Value: float64(other),
			Label: "other",
			Style: chart.Style{FillColor: colorGray},
		})
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Value > values[j].Value })

	graph := chart.DonutChart{
		Title:  "Game Status Distribution",
		Width:  600,
		Height: 500,
		Values: values,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// OpeningStatsChart renders average adjusted eval bars per opening for
// the given color filter ("" for all games).
func OpeningStatsChart(rows []gamedomain.PlayerGame, color string) ([]byte, error) {
	stats, err := OpeningStats(rows, color)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return renderNoDataPlaceholder("Not enough opening evaluations")
	}

	bars := make([]chart.Value, 0, len(stats))
	for _, s := range stats {
		fill := colorWin
		if s.AvgEval < 0 {
			fill = colorLoss
		}
		bars = append(bars, chart.Value{
			Value: s.AvgEval,
			Label: s.Label,
			Style: chart.Style{FillColor: fill},
		})
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("Opening Performance (%s)", ColorLabel(color)),
		Width:    900,
		Height:   500,
		BarWidth: 50,
		Bars:     bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// RatingHistoryChart renders the player's rating over time, oldest
// game first.
func RatingHistoryChart(rows []gamedomain.PlayerGame) ([]byte, error) {
	var xValues []time.Time
	var yValues []float64
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].PlayerRating == nil {
			continue
		}
		xValues = append(xValues, rows[i].CreatedAt)
		yValues = append(yValues, float64(*rows[i].PlayerRating))
	}
	if len(xValues) < 2 {
		return renderNoDataPlaceholder("Not enough rated games")
	}

	graph := chart.Chart{
		Title:  "Rating Over Time",
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02/01/06"),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Rating",
				XValues: xValues,
				YValues: yValues,
				Style: chart.Style{
					StrokeColor: colorBlue,
					StrokeWidth: 2,
				},
			},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(msg string) ([]byte, error) {
	const (
		width  = 400
		height = 200
	)

	// Chart.Render refuses an empty Series slice, so the placeholder
	// carries one transparent series that never shows up.
	graph := chart.Chart{
		Width:  width,
		Height: height,
		XAxis:  chart.XAxis{Style: chart.Hidden()},
		YAxis:  chart.YAxis{Style: chart.Hidden()},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style: chart.Style{
					StrokeColor: drawing.ColorTransparent,
					DotColor:    drawing.ColorTransparent,
				},
			},
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				r.SetFontColor(colorGray)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func statusColor(status string) drawing.Color {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return colorGray
}

func keyToColor(key string) string {
	if key == "overall" {
		return ""
	}
	return key
}

// nonZero keeps stacked bar segments renderable when a share is zero.
func nonZero(v float64) float64 {
	if v <= 0 {
		return 0.0001
	}
	return v
}
