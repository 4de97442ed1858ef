// Package userservice turns raw platform profiles into the snapshot
// rows stored with each report.
package userservice

import (
	"fmt"
	"time"

	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"
)

const dateLayout = "02/01/06"

// ProcessProfile converts a raw profile into a report snapshot. Times
// are rendered in UTC; play time becomes a human-readable duration.
func ProcessProfile(p *userdomain.Profile, now time.Time) userdomain.Snapshot {
	return userdomain.Snapshot{
		Username:        p.Username,
		CreatedAt:       time.UnixMilli(p.CreatedAt).UTC().Format(dateLayout),
		LastSeen:        time.UnixMilli(p.SeenAt).UTC().Format(dateLayout),
		PlayTime:        FormatPlayTime(p.PlayTime.Total),
		URL:             p.URL,
		Bullet:          perfSnapshot(p, "bullet"),
		Blitz:           perfSnapshot(p, "blitz"),
		Rapid:           perfSnapshot(p, "rapid"),
		Classical:       perfSnapshot(p, "classical"),
		Puzzle:          perfSnapshot(p, "puzzle"),
		ReportCreatedAt: now,
	}
}

func perfSnapshot(p *userdomain.Profile, key string) userdomain.PerfSnapshot {
	perf := p.Perfs[key]
	return userdomain.PerfSnapshot{
		Games:  perf.Games,
		Rating: perf.Rating,
		Prog:   perf.Prog,
	}
}

// FormatPlayTime renders total seconds as "X hours and Y minutes".
func FormatPlayTime(totalSeconds *int) string {
	if totalSeconds == nil {
		return ""
	}
	hours := *totalSeconds / 3600
	minutes := (*totalSeconds % 3600) / 60
	return fmt.Sprintf("%d hours and %d minutes", hours, minutes)
}
