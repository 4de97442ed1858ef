package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/notnil/chess"
	"golang.org/x/time/rate"

	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"
	"github.com/pedrolmn/chess-report/internal/observability/attr"
)

const chessComBaseURL = "https://api.chess.com/pub"

// ChessComClient fetches games from the Chess.com published-data API
// and converts them into the Lichess game shape.
type ChessComClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	resolver   *OpeningResolver
	logger     *slog.Logger
}

var _ Source = (*ChessComClient)(nil)

// NewChessComClient builds a client. The resolver names openings since
// Chess.com games only carry an ECO code.
func NewChessComClient(resolver *OpeningResolver, logger *slog.Logger) *ChessComClient {
	return &ChessComClient{
		baseURL:    chessComBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		resolver:   resolver,
		logger:     logger,
	}
}

// FetchGames walks the user's monthly archives newest-first, keeping
// rated standard games of the requested time class until the target
// count is reached. Each kept game is transformed to the Lichess shape;
// games that fail to transform are skipped with a warning.
func (c *ChessComClient) FetchGames(ctx context.Context, username string, opts FetchOptions) ([]map[string]any, error) {
	archives, err := c.fetchArchives(ctx, username)
	if err != nil {
		return nil, err
	}

	timeClass := opts.PerfType
	if timeClass == "all" {
		timeClass = ""
	}

	var games []map[string]any
	for i := len(archives) - 1; i >= 0 && len(games) < opts.MaxGames; i-- {
		monthly, err := c.fetchArchive(ctx, archives[i])
		if err != nil {
			return nil, err
		}
		for _, raw := range monthly {
			if len(games) >= opts.MaxGames {
				break
			}
			if timeClass != "" && getString(raw, "time_class") != timeClass {
				continue
			}
			if !getBool(raw, "rated") || getString(raw, "rules") != "chess" {
				continue
			}
			if opts.Since != nil {
				endTime := getInt64(raw, "end_time")
				if endTime > 0 && time.Unix(endTime, 0).Before(*opts.Since) {
					continue
				}
			}
			game, err := c.transformGame(raw)
			if err != nil {
				c.logger.Warn("Skipping untransformable game",
					attr.Username(username),
					attr.Error(err))
				continue
			}
			games = append(games, game)
		}
	}

	c.logger.Info("Fetched games from Chess.com",
		attr.Username(username),
		attr.Int("count", len(games)))
	return games, nil
}

func (c *ChessComClient) fetchArchives(ctx context.Context, username string) ([]string, error) {
	var payload struct {
		Archives []string `json:"archives"`
	}
	reqURL := fmt.Sprintf("%s/player/%s/games/archives", c.baseURL, url.PathEscape(username))
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch archives: %w", err)
	}
	return payload.Archives, nil
}

func (c *ChessComClient) fetchArchive(ctx context.Context, archiveURL string) ([]map[string]any, error) {
	var payload struct {
		Games []map[string]any `json:"games"`
	}
	if err := c.getJSON(ctx, archiveURL, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch archive: %w", err)
	}
	return payload.Games, nil
}

// transformGame converts one raw Chess.com game into the Lichess shape
// consumed by the flatten stage.
func (c *ChessComClient) transformGame(raw map[string]any) (map[string]any, error) {
	pgnStr := getString(raw, "pgn")
	if pgnStr == "" {
		return nil, fmt.Errorf("game has no PGN")
	}

	parsed, err := parsePGN(pgnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PGN: %w", err)
	}

	gameURL := getString(raw, "url")
	parts := strings.Split(gameURL, "/")
	gameID := parts[len(parts)-1]

	createdAt := pgnTimestamp(parsed.headers["UTCDate"], parsed.headers["UTCTime"])
	lastMoveAt := pgnTimestamp(parsed.headers["EndDate"], parsed.headers["EndTime"])

	eco := parsed.headers["ECO"]
	moves := strings.Join(parsed.sanMoves, " ")

	game := map[string]any{
		"id":         gameID,
		"rated":      getBool(raw, "rated"),
		"variant":    "standard",
		"speed":      getString(raw, "time_class"),
		"perf":       getString(raw, "time_class"),
		"createdAt":  createdAt,
		"lastMoveAt": lastMoveAt,
		"status":     translateTermination(parsed.headers["Termination"]),
		"source":     "chess.com",
		"players": map[string]any{
			"white": map[string]any{
				"user": map[string]any{
					"name": parsed.headers["White"],
					"id":   playerID(raw, "white"),
				},
				"rating": atoiOrNil(parsed.headers["WhiteElo"]),
			},
			"black": map[string]any{
				"user": map[string]any{
					"name": parsed.headers["Black"],
					"id":   playerID(raw, "black"),
				},
				"rating": atoiOrNil(parsed.headers["BlackElo"]),
			},
		},
		"opening": map[string]any{
			"eco":  eco,
			"name": c.resolveOpening(eco, moves),
		},
		"moves":  moves,
		"clocks": []any{},
		"clock":  parseTimeControl(parsed.headers["TimeControl"]),
	}

	switch parsed.headers["Result"] {
	case "1-0":
		game["winner"] = "white"
	case "0-1":
		game["winner"] = "black"
	}
	return game, nil
}

// resolveOpening names the opening, falling back to the unknown label
// when the reference tables were not loaded.
func (c *ChessComClient) resolveOpening(eco, moves string) string {
	if c.resolver == nil {
		return unknownOpening
	}
	return c.resolver.Resolve(eco, moves)
}

type parsedPGN struct {
	headers  map[string]string
	sanMoves []string
}

func parsePGN(pgnStr string) (*parsedPGN, error) {
	opt, err := chess.PGN(strings.NewReader(pgnStr))
	if err != nil {
		return nil, err
	}
	game := chess.NewGame(opt)

	headers := make(map[string]string)
	for _, key := range []string{
		"White", "Black", "WhiteElo", "BlackElo", "Result", "Termination",
		"ECO", "TimeControl", "UTCDate", "UTCTime", "EndDate", "EndTime",
	} {
		if tag := game.GetTagPair(key); tag != nil {
			headers[key] = tag.Value
		}
	}

	moves := game.Moves()
	positions := game.Positions()
	enc := chess.AlgebraicNotation{}
	san := make([]string, 0, len(moves))
	for i, m := range moves {
		san = append(san, enc.Encode(positions[i], m))
	}
	return &parsedPGN{headers: headers, sanMoves: san}, nil
}

// translateTermination maps a Chess.com Termination header onto the
// Lichess status vocabulary.
func translateTermination(termination string) string {
	t := strings.ToLower(termination)
	switch {
	case strings.Contains(t, "resignation"), strings.Contains(t, "abandoned"):
		return "resign"
	case strings.Contains(t, "on time"):
		return "outoftime"
	case strings.Contains(t, "checkmate"):
		return "mate"
	case strings.Contains(t, "drawn"):
		return "draw"
	}
	return ""
}

func pgnTimestamp(date, clock string) int64 {
	t, err := time.Parse("2006.01.02 15:04:05", date+" "+clock)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

func parseTimeControl(tc string) map[string]any {
	initial, increment, _ := strings.Cut(tc, "+")
	clock := map[string]any{}
	if n, err := strconv.Atoi(initial); err == nil {
		clock["initial"] = float64(n)
	}
	if n, err := strconv.Atoi(increment); err == nil {
		clock["increment"] = float64(n)
	} else {
		clock["increment"] = float64(0)
	}
	return clock
}

func playerID(raw map[string]any, color string) string {
	id := stringAt(raw, color, "@id")
	if i := strings.LastIndex(id, "player/"); i >= 0 {
		return id[i+len("player/"):]
	}
	return id
}

func atoiOrNil(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return float64(n)
	}
	return nil
}

// FetchProfile merges the Chess.com profile and stats endpoints into
// the Lichess profile shape. Classical and puzzle are zeroed since the
// platform does not report them.
func (c *ChessComClient) FetchProfile(ctx context.Context, username string) (*userdomain.Profile, error) {
	var profile struct {
		PlayerID   int64  `json:"player_id"`
		Username   string `json:"username"`
		Joined     int64  `json:"joined"`
		LastOnline int64  `json:"last_online"`
		URL        string `json:"url"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/player/%s", c.baseURL, url.PathEscape(username)), &profile); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	var stats map[string]struct {
		Last struct {
			Rating int `json:"rating"`
		} `json:"last"`
		Record struct {
			Win  int `json:"win"`
			Draw int `json:"draw"`
			Loss int `json:"loss"`
		} `json:"record"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/player/%s/stats", c.baseURL, url.PathEscape(username)), &stats); err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}

	perfs := make(map[string]userdomain.Perf, 5)
	for _, mode := range []string{"bullet", "blitz", "rapid"} {
		s := stats["chess_"+mode]
		perfs[mode] = userdomain.Perf{
			Rating: s.Last.Rating,
			Games:  s.Record.Win + s.Record.Draw + s.Record.Loss,
		}
	}
	perfs["classical"] = userdomain.Perf{}
	perfs["puzzle"] = userdomain.Perf{}

	return &userdomain.Profile{
		ID:        strconv.FormatInt(profile.PlayerID, 10),
		Username:  profile.Username,
		CreatedAt: profile.Joined * 1000,
		SeenAt:    profile.LastOnline * 1000,
		URL:       profile.URL,
		Perfs:     perfs,
	}, nil
}

func (c *ChessComClient) getJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "chess-report/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request to %s returned status %d", reqURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
