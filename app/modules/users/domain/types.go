// Package userdomain defines the user profile shapes: the raw profile
// fetched from a platform and the processed snapshot stored with a
// report.
package userdomain

import "time"

// Perf is one rating category from a raw platform profile.
type Perf struct {
	Games  int `json:"games"`
	Rating int `json:"rating"`
	Prog   int `json:"prog"`
}

// Profile is a platform user profile in the Lichess API shape.
// Chess.com profiles are converted into this shape by the ingest layer.
type Profile struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	CreatedAt int64           `json:"createdAt"` // unix ms
	SeenAt    int64           `json:"seenAt"`    // unix ms
	PlayTime  PlayTime        `json:"playTime"`
	URL       string          `json:"url"`
	Perfs     map[string]Perf `json:"perfs"`
}

// PlayTime holds total play time in seconds. Nil when the platform does
// not expose it.
type PlayTime struct {
	Total *int `json:"total"`
	TV    *int `json:"tv"`
}

// PerfSnapshot is one rating category in a processed snapshot.
type PerfSnapshot struct {
	Games  int
	Rating int
	Prog   int
}

// Snapshot is the processed profile stored alongside a report.
type Snapshot struct {
	Username        string
	CreatedAt       string // "02/01/06"
	LastSeen        string
	PlayTime        string // "X hours and Y minutes"
	URL             string
	Bullet          PerfSnapshot
	Blitz           PerfSnapshot
	Rapid           PerfSnapshot
	Classical       PerfSnapshot
	Puzzle          PerfSnapshot
	ReportCreatedAt time.Time
}
