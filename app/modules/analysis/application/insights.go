package analysisservice

import (
	"fmt"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

// Insights is the full textual feedback block of a report.
type Insights struct {
	Winrate    map[string]string   `json:"winrate"`     // white, black, overall
	Openings   map[string]string   `json:"openings"`    // white, black, overall
	PerOpening map[string][]string `json:"per_opening"` // white, black, overall
	Reference  ReferenceInsights   `json:"reference"`
	Conversion ConversionInsights  `json:"conversion"`
}

// ReferenceInsights describe the bundled Lichess opening data.
type ReferenceInsights struct {
	Popular         string `json:"popular"`
	SuccessfulWhite string `json:"successful_white"`
	SuccessfulBlack string `json:"successful_black"`
}

// ConversionInsights compare the player's conversion rates to the
// reference snapshot.
type ConversionInsights struct {
	WhenAhead  string `json:"when_ahead"`
	WhenBehind string `json:"when_behind"`
}

// BuildInsights assembles every insight for a report.
func BuildInsights(rows []gamedomain.PlayerGame, winrate WinrateData, conversion ConversionStats, ref *ReferenceSnapshot) Insights {
	perOpening := map[string][]string{}
	openings := map[string]string{}
	for _, color := range []string{"overall", gamedomain.ColorWhite, gamedomain.ColorBlack} {
		filter := color
		if color == "overall" {
			filter = ""
		}
		openings[color] = OpeningEvalInsight(rows, filter)
		perOpening[color] = PerOpeningInsights(rows, filter)
	}

	return Insights{
		Winrate: map[string]string{
			"overall": WinrateInsight(winrate, "overall"),
			"white":   WinrateInsight(winrate, "white"),
			"black":   WinrateInsight(winrate, "black"),
		},
		Openings:   openings,
		PerOpening: perOpening,
		Reference: ReferenceInsights{
			Popular:         PopularOpeningsInsight(),
			SuccessfulWhite: SuccessfulOpeningsInsight(gamedomain.ColorWhite),
			SuccessfulBlack: SuccessfulOpeningsInsight(gamedomain.ColorBlack),
		},
		Conversion: ConversionInsights{
			WhenAhead:  ConversionInsight(conversion.PctWonWhenAhead, ref, "pct_won_when_ahead"),
			WhenBehind: ConversionInsight(conversion.PctWonOrDrawnWhenBehind, ref, "pct_won_or_drawn_when_behind"),
		},
	}
}

// WinrateInsight interprets the win percentage for a winrate key.
func WinrateInsight(data WinrateData, key string) string {
	winPercent := data[key].Win
	switch {
	case winPercent > 60:
		return "You're dominating your games - well done! Make sure you're still challenging yourself."
	case winPercent > 52:
		return "You are constantly improving and might be underrated. Keep up the good work and don't lose focus!"
	case winPercent >= 48:
		return "You're doing fine, but you might want to check your other analytics on ways to improve."
	case winPercent >= 40:
		return "Your win rate could improve. Review your most common losses and focus on converting drawn positions."
	}
	return "You're losing more often than expected. Use the other graphs to spot patterns and work on fundamentals."
}

// OpeningEvalInsight interprets the mean adjusted opening eval for a
// color ("" means all games).
func OpeningEvalInsight(rows []gamedomain.PlayerGame, color string) string {
	avg, ok := AverageAdjustedEval(rows, color)
	if !ok {
		return "No opening evaluations available for this selection."
	}

	switch color {
	case gamedomain.ColorWhite:
		switch {
		case avg > 0.4:
			return "As White, you're getting very strong positions out of the opening - great work!"
		case avg > 0.1:
			return "As White, you're often coming out slightly ahead - as expected. Solid openings!"
		case avg > -0.1:
			return "As White, you're not taking much advantage of the first move. You may want to sharpen your opening prep."
		}
		return "As White, you're often starting with a disadvantage - review your opening choices and look out for early mistakes."
	case gamedomain.ColorBlack:
		switch {
		case avg > 0.1:
			return "As Black, you're outperforming expectations in the opening - impressive!"
		case avg > -0.2:
			return "As Black, you're holding your ground well in the opening. That's a good sign."
		case avg > -0.4:
			return "As Black, you're often slightly worse after the opening - consider studying lines where you're more comfortable."
		}
		return "As Black, you're struggling in the opening. It may help to build a more solid repertoire or study key defenses."
	}

	switch {
	case avg > 0.2:
		return "Overall, you're getting strong positions after the opening - great consistency!"
	case avg > -0.1:
		return "Your opening play is stable overall. Keep working on both White and Black repertoires."
	}
	return "You're often behind after the opening phase - this might be an area to prioritize."
}

// PerOpeningInsights produces one feedback line per opening the player
// reaches often, most played first.
func PerOpeningInsights(rows []gamedomain.PlayerGame, color string) []string {
	stats, err := OpeningStats(rows, color)
	if err != nil {
		return nil
	}

	var lines []string
	for _, s := range stats {
		avg := round2(s.AvgEval)
		var msg string
		switch {
		case avg > 0.4:
			msg = fmt.Sprintf("With the opening '%s', you often come out of the opening phase clearly ahead (avg eval: +%.2f). That's excellent - it could be a strong weapon in your repertoire.", s.Name, avg)
		case avg > 0.2:
			msg = fmt.Sprintf("The opening '%s' gives you consistent small advantages (avg eval: +%.2f). You're playing it well - keep refining it.", s.Name, avg)
		case avg > 0.05:
			msg = fmt.Sprintf("'%s' tends to lead to slight advantages for you (avg eval: +%.2f). It might be worth studying deeper lines to increase your edge.", s.Name, avg)
		case avg > -0.05:
			msg = fmt.Sprintf("You're reaching equal positions with '%s' (avg eval: %+.2f). Try exploring variations to create more dynamic opportunities.", s.Name, avg)
		case avg > -0.2:
			msg = fmt.Sprintf("The opening '%s' often leaves you slightly worse (avg eval: %+.2f). You might want to revisit key lines or common traps in it.", s.Name, avg)
		default:
			msg = fmt.Sprintf("'%s' seems to be giving you trouble (avg eval: %+.2f). Consider replacing it or deeply reviewing your approach to it.", s.Name, avg)
		}
		lines = append(lines, msg)
	}
	return lines
}

// PopularOpeningsInsight describes the most played openings on Lichess.
func PopularOpeningsInsight() string {
	return "Among the most popular openings, we see several unorthodox lines, especially A00, " +
		"which includes many offbeat first moves commonly played by beginners. A40, B00, " +
		"D00 also appear - they represent generic starts with 1.d4 and 1.e4 before " +
		"transposing into known openings. Interestingly, the Scandinavian Defense (B01) " +
		"stands out among these as a defined and respectable response to 1.e4, suggesting " +
		"it's a frequent choice even at early levels."
}

// SuccessfulOpeningsInsight describes the best scoring openings for a
// color on Lichess.
func SuccessfulOpeningsInsight(color string) string {
	return fmt.Sprintf("The most successful openings for %s include either highly specific lines "+
		"or rare choices. Some of these may reflect the preferences of individual strong "+
		"players using them consistently, while others represent deep, theoretical "+
		"variations that tend to lead to early advantages. This suggests that in these "+
		"games, preparation or unfamiliarity played a key role.", color)
}

// ConversionInsight compares one conversion percentage to the
// reference snapshot, with a five point band counting as average.
func ConversionInsight(playerValue *float64, ref *ReferenceSnapshot, statKey string) string {
	if playerValue == nil || ref == nil {
		return "Insufficient data to provide insight."
	}

	switch statKey {
	case "pct_won_when_ahead":
		refValue := ref.ConversionStats.PctWonWhenAhead
		switch {
		case *playerValue < refValue-5:
			return "Compared to the average, you often fail to convert winning positions. This could be due to rushed attacks or blunders. Practice converting advantages into wins."
		case *playerValue > refValue+5:
			return "You convert winning positions more reliably than most players. This shows strong technique and discipline - great job!"
		}
		return "Your ability to convert winning positions is close to average. Keep working on your technique to consistently finish strong positions."
	case "pct_won_or_drawn_when_behind":
		refValue := ref.ConversionStats.PctWonOrDrawnWhenBehind
		switch {
		case *playerValue < refValue-5:
			return "Compared to average players, you struggle to recover when behind. Consider practicing defensive and counter-attacking tactics to improve your resilience."
		case *playerValue > refValue+5:
			return "You outperform most players when behind. This shows strong defensive skills and mental resilience."
		}
		return "Your recovery rate from losing positions is around average. Keep working on your defense and focus during tough games."
	}
	return "No insight available for this statistic."
}
