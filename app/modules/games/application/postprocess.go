package gameservice

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

const createdAtLayout = "02/01/06 15:04"

// PostProcess runs the full enrichment pipeline over flattened games and
// returns one row per perspective the player held, newest first.
func PostProcess(flat []gamedomain.FlatGame, username string, loc *time.Location) []gamedomain.PlayerGame {
	if loc == nil {
		loc = time.UTC
	}

	for i := range flat {
		applyFinalClocks(&flat[i])
		applyAvgTimePerMove(&flat[i])
	}

	rows := make([]gamedomain.PlayerGame, 0, len(flat))
	for _, color := range []string{gamedomain.ColorWhite, gamedomain.ColorBlack} {
		for i := range flat {
			if row, ok := extractPerspective(&flat[i], username, color, loc); ok {
				rows = append(rows, row)
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows
}

// applyFinalClocks assigns the last two clock samples to white and black
// by move parity: an odd sample count means white moved last.
func applyFinalClocks(g *gamedomain.FlatGame) {
	if len(g.Clocks) < 2 {
		return
	}
	last := float64(g.Clocks[len(g.Clocks)-1])
	prev := float64(g.Clocks[len(g.Clocks)-2])
	if len(g.Clocks)%2 == 1 {
		g.WhiteFinalClock = &last
		g.BlackFinalClock = &prev
	} else {
		g.WhiteFinalClock = &prev
		g.BlackFinalClock = &last
	}
}

// applyAvgTimePerMove computes average seconds per move per color from
// the centisecond clock array: (first - last) / (n - 1) / 100.
func applyAvgTimePerMove(g *gamedomain.FlatGame) {
	if len(g.Clocks) < 2 {
		return
	}
	var white, black []int
	for i, c := range g.Clocks {
		if i%2 == 0 {
			white = append(white, c)
		} else {
			black = append(black, c)
		}
	}
	g.WhiteAvgTime = avgMoveTime(white)
	g.BlackAvgTime = avgMoveTime(black)
}

func avgMoveTime(samples []int) *float64 {
	if len(samples) < 2 {
		return nil
	}
	total := float64(samples[0] - samples[len(samples)-1])
	avg := round2(total / float64(len(samples)-1) / 100)
	return &avg
}

func extractPerspective(g *gamedomain.FlatGame, username, color string, loc *time.Location) (gamedomain.PlayerGame, bool) {
	player, opponent := g.White, g.Black
	playerFinal, opponentFinal := g.WhiteFinalClock, g.BlackFinalClock
	playerAvg, opponentAvg := g.WhiteAvgTime, g.BlackAvgTime
	if color == gamedomain.ColorBlack {
		player, opponent = g.Black, g.White
		playerFinal, opponentFinal = g.BlackFinalClock, g.WhiteFinalClock
		playerAvg, opponentAvg = g.BlackAvgTime, g.WhiteAvgTime
	}

	if !strings.EqualFold(player.Name, username) || player.Name == "" {
		return gamedomain.PlayerGame{}, false
	}

	result := gamedomain.ResultDraw
	switch g.Winner {
	case color:
		result = gamedomain.ResultWin
	case opponentColor(color):
		result = gamedomain.ResultLoss
	}

	createdAt := time.UnixMilli(g.CreatedAt).In(loc)
	lastMoveAt := time.UnixMilli(g.LastMoveAt).In(loc)

	halfMoves := 0
	if g.Moves != "" {
		halfMoves = len(strings.Fields(g.Moves))
	}

	row := gamedomain.PlayerGame{
		MatchID:      g.ID,
		PlayerColor:  color,
		PlayerName:   player.Name,
		OpponentName: opponent.Name,
		Result:       result,
		Status:       g.Status,

		PlayerRating:     player.Rating,
		OpponentRating:   opponent.Rating,
		RatingDifference: ratingDifference(player.Rating, opponent.Rating),

		Variant:          g.Variant,
		Speed:            g.Speed,
		Perf:             g.Perf,
		ClockTimeControl: g.ClockInitial,
		ClockIncrement:   g.ClockIncrement,
		TimeControl:      FormatTimeControl(g.ClockInitial, g.ClockIncrement),
		Source:           g.Source,
		Tournament:       g.Tournament,

		DivisionMiddle:    g.DivisionMiddle,
		DivisionEnd:       g.DivisionEnd,
		OpeningEval:       g.OpeningEval,
		OpeningEvalText:   g.OpeningEvalText,
		OpeningEvalSource: g.OpeningEvalSource,

		CreatedAt:        createdAt,
		LastMoveAt:       lastMoveAt,
		CreatedAtLabel:   createdAt.Format(createdAtLayout),
		TimeSpentPlaying: lastMoveAt.Sub(createdAt).Seconds(),

		OpeningECO:        g.OpeningECO,
		OpeningName:       g.OpeningName,
		NormalizedOpening: NormalizeOpeningName(g.OpeningName),
		OpeningPly:        g.OpeningPly,

		PlayerRatingDiff:     player.RatingDiff,
		PlayerFinalClock:     playerFinal,
		PlayerAvgTimePerMove: playerAvg,
		PlayerInaccuracy:     player.Inaccuracy,
		PlayerMistake:        player.Mistake,
		PlayerBlunder:        player.Blunder,
		PlayerAccuracy:       player.Accuracy,

		OpponentRatingDiff:     opponent.RatingDiff,
		OpponentFinalClock:     opponentFinal,
		OpponentAvgTimePerMove: opponentAvg,
		OpponentInaccuracy:     opponent.Inaccuracy,
		OpponentMistake:        opponent.Mistake,
		OpponentBlunder:        opponent.Blunder,
		OpponentAccuracy:       opponent.Accuracy,

		HalfMoves: halfMoves,
		FullMoves: int(math.Ceil(float64(halfMoves) / 2)),
		Moves:     g.Moves,
		Clocks:    g.Clocks,
	}
	return row, true
}

func opponentColor(color string) string {
	if color == gamedomain.ColorWhite {
		return gamedomain.ColorBlack
	}
	return gamedomain.ColorWhite
}

func ratingDifference(player, opponent *int) *int {
	if player == nil || opponent == nil {
		return nil
	}
	d := *player - *opponent
	return &d
}

// FormatTimeControl renders "minutes+increment", with "½" for a 30
// second base and "¼" for 15 seconds.
func FormatTimeControl(initial, increment *int) string {
	if initial == nil {
		return ""
	}
	inc := 0
	if increment != nil {
		inc = *increment
	}
	switch *initial {
	case 30:
		return fmt.Sprintf("½+%d", inc)
	case 15:
		return fmt.Sprintf("¼+%d", inc)
	}
	return fmt.Sprintf("%d+%d", *initial/60, inc)
}

// NormalizeOpeningName keeps only the main opening name, dropping the
// variation after the first colon.
func NormalizeOpeningName(name string) string {
	if name == "" {
		return ""
	}
	main, _, _ := strings.Cut(name, ":")
	return strings.TrimSpace(main)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
