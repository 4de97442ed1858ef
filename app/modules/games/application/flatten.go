// Package gameservice turns raw platform game payloads into the
// player-centric rows a report is built from.
package gameservice

import (
	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
)

// Flatten pulls the nested fields of a raw game payload up into a
// FlatGame. Missing nested fields leave the corresponding pointer nil;
// a malformed field is treated the same as a missing one.
func Flatten(raw map[string]any) gamedomain.FlatGame {
	g := gamedomain.FlatGame{
		ID:         getString(raw, "id"),
		Rated:      getBool(raw, "rated"),
		Variant:    getString(raw, "variant"),
		Speed:      getString(raw, "speed"),
		Perf:       getString(raw, "perf"),
		CreatedAt:  getInt64(raw, "createdAt"),
		LastMoveAt: getInt64(raw, "lastMoveAt"),
		Status:     getString(raw, "status"),
		Winner:     getString(raw, "winner"),
		Moves:      getString(raw, "moves"),
		Clocks:     getIntSlice(raw, "clocks"),
		Source:     getString(raw, "source"),
		Tournament: getString(raw, "tournament"),

		White: flattenPlayer(raw, gamedomain.ColorWhite),
		Black: flattenPlayer(raw, gamedomain.ColorBlack),

		ClockInitial:   intAt(raw, "clock", "initial"),
		ClockIncrement: intAt(raw, "clock", "increment"),
		ClockTotalTime: intAt(raw, "clock", "totalTime"),

		DivisionMiddle: intAt(raw, "division", "middle"),
		DivisionEnd:    intAt(raw, "division", "end"),

		OpeningECO:  stringAt(raw, "opening", "eco"),
		OpeningName: stringAt(raw, "opening", "name"),
		OpeningPly:  intAt(raw, "opening", "ply"),
	}
	return g
}

// FlattenAll flattens a batch of raw games, preserving order.
func FlattenAll(raws []map[string]any) []gamedomain.FlatGame {
	flat := make([]gamedomain.FlatGame, 0, len(raws))
	for _, raw := range raws {
		flat = append(flat, Flatten(raw))
	}
	return flat
}

func flattenPlayer(raw map[string]any, color string) gamedomain.PlayerFeatures {
	return gamedomain.PlayerFeatures{
		Name:       stringAt(raw, "players", color, "user", "name"),
		Rating:     intAt(raw, "players", color, "rating"),
		RatingDiff: intAt(raw, "players", color, "ratingDiff"),
		Inaccuracy: intAt(raw, "players", color, "analysis", "inaccuracy"),
		Mistake:    intAt(raw, "players", color, "analysis", "mistake"),
		Blunder:    intAt(raw, "players", color, "analysis", "blunder"),
		ACPL:       intAt(raw, "players", color, "analysis", "acpl"),
		Accuracy:   floatAt(raw, "players", color, "analysis", "accuracy"),
	}
}

// safeGet walks nested maps and returns nil as soon as a key is absent.
func safeGet(d map[string]any, keys ...string) any {
	var cur any = d
	for _, key := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

func stringAt(d map[string]any, keys ...string) string {
	if s, ok := safeGet(d, keys...).(string); ok {
		return s
	}
	return ""
}

func intAt(d map[string]any, keys ...string) *int {
	switch v := safeGet(d, keys...).(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		n := v
		return &n
	}
	return nil
}

func floatAt(d map[string]any, keys ...string) *float64 {
	switch v := safeGet(d, keys...).(type) {
	case float64:
		f := v
		return &f
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func getString(d map[string]any, key string) string {
	return stringAt(d, key)
}

func getBool(d map[string]any, key string) bool {
	b, _ := d[key].(bool)
	return b
}

func getInt64(d map[string]any, key string) int64 {
	switch v := d[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func getIntSlice(d map[string]any, key string) []int {
	raw, ok := d[key].([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			out = append(out, int(n))
		case int:
			out = append(out, n)
		}
	}
	return out
}
