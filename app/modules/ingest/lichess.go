package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"
	"github.com/pedrolmn/chess-report/internal/observability/attr"
)

const lichessBaseURL = "https://lichess.org"

// LichessClient streams games and fetches profiles from the Lichess API.
type LichessClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ Source = (*LichessClient)(nil)

// NewLichessClient builds a client authenticated with the given API
// token. An empty token yields an anonymous client.
func NewLichessClient(ctx context.Context, token string, logger *slog.Logger) *LichessClient {
	httpClient := &http.Client{Timeout: 40 * time.Second}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = 40 * time.Second
	}
	return &LichessClient{
		baseURL:    lichessBaseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		logger:     logger,
	}
}

// FetchGames streams the user's game history as NDJSON. Undecodable
// lines are skipped with a warning.
func (c *LichessClient) FetchGames(ctx context.Context, username string, opts FetchOptions) ([]map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	perfType := opts.PerfType
	if perfType == "all" || perfType == "" {
		perfType = "ultraBullet,bullet,blitz,rapid,classical"
	}

	params := url.Values{}
	params.Set("max", strconv.Itoa(opts.MaxGames))
	params.Set("perfType", perfType)
	params.Set("rated", "true")
	params.Set("accuracy", "true")
	params.Set("division", "true")
	params.Set("opening", "true")
	params.Set("clocks", "true")
	params.Set("evals", "true")
	if opts.Since != nil {
		params.Set("since", strconv.FormatInt(opts.Since.UnixMilli(), 10))
	}

	reqURL := fmt.Sprintf("%s/api/games/user/%s?%s", c.baseURL, url.PathEscape(username), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build games request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("games request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("games request returned status %d", resp.StatusCode)
	}

	var games []map[string]any
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var game map[string]any
		if err := json.Unmarshal(raw, &game); err != nil {
			c.logger.Warn("Skipping undecodable NDJSON line",
				attr.Int("line", line),
				attr.Username(username),
				attr.Error(err))
			continue
		}
		games = append(games, game)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read games stream: %w", err)
	}

	c.logger.Info("Fetched games from Lichess",
		attr.Username(username),
		attr.Int("count", len(games)))
	return games, nil
}

// FetchProfile fetches the user's public profile.
func (c *LichessClient) FetchProfile(ctx context.Context, username string) (*userdomain.Profile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/api/user/%s", c.baseURL, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request returned status %d", resp.StatusCode)
	}

	var profile userdomain.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}
