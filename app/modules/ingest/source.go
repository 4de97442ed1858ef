// Package ingest fetches game history and profiles from the supported
// chess platforms and normalizes everything into the Lichess API shape.
package ingest

import (
	"context"
	"time"

	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"
)

// Platform identifiers accepted by report requests.
const (
	PlatformLichess  = "lichess.org"
	PlatformChessCom = "chess.com"
)

// FetchOptions filter a game history request.
type FetchOptions struct {
	MaxGames int
	PerfType string // "bullet", "blitz", "rapid", "classical", or "all"
	Since    *time.Time
}

// Source fetches games and profiles for one platform. Games come back
// as decoded JSON objects in the Lichess game shape.
type Source interface {
	FetchGames(ctx context.Context, username string, opts FetchOptions) ([]map[string]any, error)
	FetchProfile(ctx context.Context, username string) (*userdomain.Profile, error)
}
