package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/notnil/chess"
)

const unknownOpening = "Unknown Opening"

// OpeningResolver names openings for games that only carry an ECO code.
// It matches the longest UCI move prefix against a reference table and
// falls back to an ECO code lookup.
type OpeningResolver struct {
	byMoves map[string]string // "e2e4 e7e5 ..." -> name
	byECO   map[string]string
}

// NewOpeningResolver loads the reference tables. openingsPath is a TSV
// with eco, name, and space-separated UCI moves columns; ecoPath is a
// CSV with eco and name columns.
func NewOpeningResolver(openingsPath, ecoPath string) (*OpeningResolver, error) {
	byMoves, err := loadOpeningsTSV(openingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load openings table: %w", err)
	}
	byECO, err := loadECOMapping(ecoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load eco mapping: %w", err)
	}
	return &OpeningResolver{byMoves: byMoves, byECO: byECO}, nil
}

// Resolve returns the best opening name for a game. Moves are SAN; when
// no move prefix matches, the ECO code decides.
func (r *OpeningResolver) Resolve(eco, sanMoves string) string {
	if uci, err := sanToUCI(sanMoves); err == nil {
		for i := len(uci); i >= 1; i-- {
			if name, ok := r.byMoves[strings.Join(uci[:i], " ")]; ok {
				return name
			}
		}
	}
	if name, ok := r.byECO[eco]; ok {
		return name
	}
	return unknownOpening
}

func sanToUCI(sanMoves string) ([]string, error) {
	game := chess.NewGame()
	for _, san := range strings.Fields(sanMoves) {
		if err := game.MoveStr(san); err != nil {
			return nil, fmt.Errorf("invalid move %q: %w", san, err)
		}
	}
	moves := game.Moves()
	positions := game.Positions()
	enc := chess.UCINotation{}
	uci := make([]string, 0, len(moves))
	for i, m := range moves {
		uci = append(uci, enc.Encode(positions[i], m))
	}
	return uci, nil
}

func loadOpeningsTSV(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	table := make(map[string]string, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue
		}
		moves := strings.TrimSpace(row[2])
		if moves == "" {
			continue
		}
		table[moves] = row[1]
	}
	return table, nil
}

func loadECOMapping(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]string, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		// first occurrence wins, matching the reference data layout
		if _, ok := mapping[row[0]]; !ok {
			mapping[row[0]] = row[1]
		}
	}
	return mapping, nil
}
