// Package attr provides thin slog attribute constructors so call sites
// stay terse and consistent across the codebase.
package attr

import (
	"log/slog"
	"time"
)

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

func Float64(key string, value float64) slog.Attr {
	return slog.Float64(key, value)
}

func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

func Time(key string, value time.Time) slog.Attr {
	return slog.Time(key, value)
}

func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Username tags log records with the player a report is built for.
func Username(value string) slog.Attr {
	return slog.String("username", value)
}

// ReportID tags log records with a report slug.
func ReportID(value string) slog.Attr {
	return slog.String("report_id", value)
}

// Platform tags log records with the chess platform ("lichess" or "chess.com").
func Platform(value string) slog.Attr {
	return slog.String("platform", value)
}
