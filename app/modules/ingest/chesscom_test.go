package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const samplePGN = `[Event "Live Chess"]
[Site "Chess.com"]
[White "alice"]
[Black "bob"]
[Result "1-0"]
[ECO "C20"]
[WhiteElo "1500"]
[BlackElo "1480"]
[TimeControl "300+5"]
[Termination "alice won by checkmate"]
[UTCDate "2024.03.10"]
[UTCTime "12:00:00"]
[EndDate "2024.03.10"]
[EndTime "12:08:30"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0`

func sampleRawChessComGame() map[string]any {
	return map[string]any{
		"url":        "https://www.chess.com/game/live/987654321",
		"pgn":        samplePGN,
		"time_class": "blitz",
		"rules":      "chess",
		"rated":      true,
		"end_time":   float64(time.Date(2024, 3, 10, 12, 8, 30, 0, time.UTC).Unix()),
		"white": map[string]any{
			"@id": "https://api.chess.com/pub/player/alice",
		},
		"black": map[string]any{
			"@id": "https://api.chess.com/pub/player/bob",
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransformGame(t *testing.T) {
	client := NewChessComClient(newTestResolver(t), discardLogger())

	game, err := client.transformGame(sampleRawChessComGame())
	if err != nil {
		t.Fatalf("transformGame returned error: %v", err)
	}

	if got := getString(game, "id"); got != "987654321" {
		t.Errorf("id = %q, want %q", got, "987654321")
	}
	if got := getString(game, "speed"); got != "blitz" {
		t.Errorf("speed = %q, want %q", got, "blitz")
	}
	if got := getString(game, "perf"); got != "blitz" {
		t.Errorf("perf = %q, want %q", got, "blitz")
	}
	if got := getString(game, "variant"); got != "standard" {
		t.Errorf("variant = %q, want %q", got, "standard")
	}
	if !getBool(game, "rated") {
		t.Error("rated = false, want true")
	}
	if got := getString(game, "status"); got != "mate" {
		t.Errorf("status = %q, want %q", got, "mate")
	}
	if got := getString(game, "winner"); got != "white" {
		t.Errorf("winner = %q, want %q", got, "white")
	}

	wantCreated := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
	if got := game["createdAt"].(int64); got != wantCreated {
		t.Errorf("createdAt = %d, want %d", got, wantCreated)
	}
	wantLast := time.Date(2024, 3, 10, 12, 8, 30, 0, time.UTC).UnixMilli()
	if got := game["lastMoveAt"].(int64); got != wantLast {
		t.Errorf("lastMoveAt = %d, want %d", got, wantLast)
	}

	if got := stringAt(game, "players", "white", "user", "name"); got != "alice" {
		t.Errorf("white name = %q, want %q", got, "alice")
	}
	if got := stringAt(game, "players", "black", "user", "id"); got != "bob" {
		t.Errorf("black id = %q, want %q", got, "bob")
	}
	white := game["players"].(map[string]any)["white"].(map[string]any)
	if got := white["rating"].(float64); got != 1500 {
		t.Errorf("white rating = %v, want 1500", got)
	}

	if got := getString(game, "moves"); got != "e4 e5 Qh5 Nc6 Bc4 Nf6 Qxf7#" {
		t.Errorf("moves = %q", got)
	}
	if got := stringAt(game, "opening", "eco"); got != "C20" {
		t.Errorf("opening eco = %q, want %q", got, "C20")
	}
	if got := stringAt(game, "opening", "name"); got != "King's Pawn Game" {
		t.Errorf("opening name = %q, want %q", got, "King's Pawn Game")
	}

	clock := game["clock"].(map[string]any)
	if clock["initial"].(float64) != 300 || clock["increment"].(float64) != 5 {
		t.Errorf("clock = %v, want initial 300 increment 5", clock)
	}
	if clocks := game["clocks"].([]any); len(clocks) != 0 {
		t.Errorf("clocks = %v, want empty", clocks)
	}
}

func TestTransformGameWithoutResolver(t *testing.T) {
	client := NewChessComClient(nil, discardLogger())

	game, err := client.transformGame(sampleRawChessComGame())
	if err != nil {
		t.Fatalf("transformGame returned error: %v", err)
	}
	if got := stringAt(game, "opening", "name"); got != unknownOpening {
		t.Errorf("opening name = %q, want %q", got, unknownOpening)
	}
	if got := stringAt(game, "opening", "eco"); got != "C20" {
		t.Errorf("opening eco = %q, want %q", got, "C20")
	}
}

func TestTransformGameNoPGN(t *testing.T) {
	client := NewChessComClient(newTestResolver(t), discardLogger())

	raw := sampleRawChessComGame()
	delete(raw, "pgn")
	if _, err := client.transformGame(raw); err == nil {
		t.Error("expected error for game without PGN")
	}
}

func TestTranslateTermination(t *testing.T) {
	tests := []struct {
		termination string
		want        string
	}{
		{"alice won by resignation", "resign"},
		{"bob won - game abandoned", "resign"},
		{"alice won on time", "outoftime"},
		{"bob won by checkmate", "mate"},
		{"Game drawn by repetition", "draw"},
		{"something else", ""},
	}

	for _, tt := range tests {
		if got := translateTermination(tt.termination); got != tt.want {
			t.Errorf("translateTermination(%q) = %q, want %q", tt.termination, got, tt.want)
		}
	}
}

func TestParseTimeControl(t *testing.T) {
	tests := []struct {
		tc            string
		wantInitial   any
		wantIncrement float64
	}{
		{"300+5", float64(300), 5},
		{"600", float64(600), 0},
		{"1/86400", nil, 0},
	}

	for _, tt := range tests {
		clock := parseTimeControl(tt.tc)
		initial, ok := clock["initial"]
		if tt.wantInitial == nil {
			if ok {
				t.Errorf("parseTimeControl(%q) initial = %v, want absent", tt.tc, initial)
			}
		} else if initial != tt.wantInitial {
			t.Errorf("parseTimeControl(%q) initial = %v, want %v", tt.tc, initial, tt.wantInitial)
		}
		if clock["increment"] != tt.wantIncrement {
			t.Errorf("parseTimeControl(%q) increment = %v, want %v", tt.tc, clock["increment"], tt.wantIncrement)
		}
	}
}

func TestFetchGamesFiltersArchives(t *testing.T) {
	rapid := sampleRawChessComGame()
	rapid["time_class"] = "rapid"
	unrated := sampleRawChessComGame()
	unrated["rated"] = false
	variant := sampleRawChessComGame()
	variant["rules"] = "chess960"

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/games/archives"):
			fmt.Fprintf(w, `{"archives": ["%s/archive/2024/03"]}`, server.URL)
		case strings.HasSuffix(r.URL.Path, "/archive/2024/03"):
			writeGamesJSON(t, w, []map[string]any{rapid, unrated, variant, sampleRawChessComGame()})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewChessComClient(newTestResolver(t), discardLogger())
	client.baseURL = server.URL

	games, err := client.FetchGames(context.Background(), "alice", FetchOptions{
		MaxGames: 10,
		PerfType: "blitz",
	})
	if err != nil {
		t.Fatalf("FetchGames returned error: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("got %d games, want 1", len(games))
	}
	if got := getString(games[0], "id"); got != "987654321" {
		t.Errorf("game id = %q, want %q", got, "987654321")
	}
}

func TestFetchGamesSinceFilter(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/games/archives"):
			fmt.Fprintf(w, `{"archives": ["%s/archive/2024/03"]}`, server.URL)
		default:
			writeGamesJSON(t, w, []map[string]any{sampleRawChessComGame()})
		}
	}))
	defer server.Close()

	client := NewChessComClient(newTestResolver(t), discardLogger())
	client.baseURL = server.URL

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	games, err := client.FetchGames(context.Background(), "alice", FetchOptions{
		MaxGames: 10,
		PerfType: "all",
		Since:    &since,
	})
	if err != nil {
		t.Fatalf("FetchGames returned error: %v", err)
	}
	if len(games) != 0 {
		t.Errorf("got %d games, want 0 after since filter", len(games))
	}
}

func writeGamesJSON(t *testing.T, w io.Writer, games []map[string]any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(map[string]any{"games": games}); err != nil {
		t.Fatalf("failed to write response: %v", err)
	}
}
