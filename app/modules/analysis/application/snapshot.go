package analysisservice

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReferenceSnapshot is the bundled aggregate of public Lichess data the
// player's numbers are compared against.
type ReferenceSnapshot struct {
	ConversionStats struct {
		PctWonWhenAhead         float64 `json:"pct_won_when_ahead"`
		PctWonOrDrawnWhenBehind float64 `json:"pct_won_or_drawn_when_behind"`
	} `json:"conversion_stats"`
	PopularOpenings    []NameCount            `json:"popular_openings"`
	SuccessfulOpenings map[string][]NameCount `json:"successful_openings"` // keyed by color
}

// LoadReferenceSnapshot reads the snapshot JSON from disk.
func LoadReferenceSnapshot(path string) (*ReferenceSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference snapshot: %w", err)
	}
	var snap ReferenceSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse reference snapshot: %w", err)
	}
	return &snap, nil
}
