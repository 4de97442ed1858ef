package userservice

import (
	"testing"
	"time"

	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"
)

func intPtr(v int) *int { return &v }

func TestProcessProfile(t *testing.T) {
	p := &userdomain.Profile{
		ID:        "magnus",
		Username:  "Magnus",
		CreatedAt: time.Date(2015, 6, 1, 10, 0, 0, 0, time.UTC).UnixMilli(),
		SeenAt:    time.Date(2024, 3, 10, 22, 30, 0, 0, time.UTC).UnixMilli(),
		URL:       "https://lichess.org/@/Magnus",
		PlayTime:  userdomain.PlayTime{Total: intPtr(7500)},
		Perfs: map[string]userdomain.Perf{
			"blitz":  {Games: 1200, Rating: 2870, Prog: 12},
			"bullet": {Games: 300, Rating: 2950, Prog: -5},
		},
	}

	now := time.Now()
	snap := ProcessProfile(p, now)

	if snap.Username != "Magnus" {
		t.Errorf("username = %q", snap.Username)
	}
	if snap.CreatedAt != "01/06/15" {
		t.Errorf("created at = %q, want 01/06/15", snap.CreatedAt)
	}
	if snap.LastSeen != "10/03/24" {
		t.Errorf("last seen = %q, want 10/03/24", snap.LastSeen)
	}
	if snap.PlayTime != "2 hours and 5 minutes" {
		t.Errorf("play time = %q, want 2 hours and 5 minutes", snap.PlayTime)
	}
	if snap.Blitz.Rating != 2870 || snap.Blitz.Games != 1200 {
		t.Errorf("blitz = %+v", snap.Blitz)
	}
	if snap.Bullet.Prog != -5 {
		t.Errorf("bullet prog = %d, want -5", snap.Bullet.Prog)
	}
	// missing perf keys come back zeroed
	if snap.Classical.Games != 0 || snap.Classical.Rating != 0 {
		t.Errorf("classical = %+v, want zeros", snap.Classical)
	}
	if !snap.ReportCreatedAt.Equal(now) {
		t.Errorf("report created at = %v", snap.ReportCreatedAt)
	}
}

func TestFormatPlayTime(t *testing.T) {
	tests := []struct {
		name string
		in   *int
		want string
	}{
		{"nil", nil, ""},
		{"zero", intPtr(0), "0 hours and 0 minutes"},
		{"minutes only", intPtr(180), "0 hours and 3 minutes"},
		{"hours and minutes", intPtr(3725), "1 hours and 2 minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPlayTime(tt.in); got != tt.want {
				t.Errorf("FormatPlayTime() = %q, want %q", got, tt.want)
			}
		})
	}
}
