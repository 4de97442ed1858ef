package reportservice

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

// exportHeader is the column order for CSV and XLSX downloads.
var exportHeader = []string{
	"match_id", "player_color", "player_name", "opponent_name", "result",
	"status", "player_rating", "opponent_rating", "rating_difference",
	"variant", "speed", "time_control", "source", "tournament",
	"created_at", "time_spent_playing", "opening_eco", "opening_name",
	"normalized_opening_name", "opening_eval", "opening_eval_text",
	"player_final_clock", "player_avg_time_per_move", "player_accuracy",
	"player_inaccuracy", "player_mistake", "player_blunder",
	"half_moves", "full_moves", "moves",
}

func exportRow(g gamedomain.PlayerGame) []string {
	return []string{
		g.MatchID,
		g.PlayerColor,
		g.PlayerName,
		g.OpponentName,
		g.Result,
		g.Status,
		intPtrString(g.PlayerRating),
		intPtrString(g.OpponentRating),
		intPtrString(g.RatingDifference),
		g.Variant,
		g.Speed,
		g.TimeControl,
		g.Source,
		g.Tournament,
		g.CreatedAtLabel,
		strconv.FormatFloat(g.TimeSpentPlaying, 'f', -1, 64),
		g.OpeningECO,
		g.OpeningName,
		g.NormalizedOpening,
		floatPtrString(g.OpeningEval),
		g.OpeningEvalText,
		floatPtrString(g.PlayerFinalClock),
		floatPtrString(g.PlayerAvgTimePerMove),
		floatPtrString(g.PlayerAccuracy),
		intPtrString(g.PlayerInaccuracy),
		intPtrString(g.PlayerMistake),
		intPtrString(g.PlayerBlunder),
		strconv.Itoa(g.HalfMoves),
		strconv.Itoa(g.FullMoves),
		g.Moves,
	}
}

// ExportCSV renders games as a CSV download body.
func ExportCSV(rows []gamedomain.PlayerGame) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, g := range rows {
		if err := w.Write(exportRow(g)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportXLSX renders games as an Excel workbook with a single Games sheet.
func ExportXLSX(rows []gamedomain.PlayerGame) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Games"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, g := range rows {
		values := exportRow(g)
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func intPtrString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatPtrString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
