package userdb

import (
	"time"

	"github.com/uptrace/bun"

	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"
)

// UserProfile is a processed profile snapshot tied to a report.
type UserProfile struct {
	bun.BaseModel `bun:"table:users_processed,alias:u"`

	ID       int64  `bun:"id,pk,autoincrement" json:"-"`
	ReportID int64  `bun:"report_id,notnull,unique" json:"-"`
	Username string `bun:"username,notnull" json:"username"`

	AccountCreatedAt string `bun:"account_created_at" json:"created_at"`
	LastSeen         string `bun:"last_seen" json:"seen_at"`
	PlayTime         string `bun:"play_time" json:"play_time"`
	URL              string `bun:"url" json:"url"`

	BulletGames     int `bun:"bullet_games" json:"bullet_games"`
	BulletRating    int `bun:"bullet_rating" json:"bullet_rating"`
	BlitzGames      int `bun:"blitz_games" json:"blitz_games"`
	BlitzRating     int `bun:"blitz_rating" json:"blitz_rating"`
	RapidGames      int `bun:"rapid_games" json:"rapid_games"`
	RapidRating     int `bun:"rapid_rating" json:"rapid_rating"`
	ClassicalGames  int `bun:"classical_games" json:"classical_games"`
	ClassicalRating int `bun:"classical_rating" json:"classical_rating"`
	PuzzleGames     int `bun:"puzzle_games" json:"puzzle_games"`
	PuzzleRating    int `bun:"puzzle_rating" json:"puzzle_rating"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"-"`
}

// FromSnapshot converts a processed profile for persistence.
func FromSnapshot(reportID int64, s userdomain.Snapshot) *UserProfile {
	return &UserProfile{
		ReportID:         reportID,
		Username:         s.Username,
		AccountCreatedAt: s.CreatedAt,
		LastSeen:         s.LastSeen,
		PlayTime:         s.PlayTime,
		URL:              s.URL,
		BulletGames:      s.Bullet.Games,
		BulletRating:     s.Bullet.Rating,
		BlitzGames:       s.Blitz.Games,
		BlitzRating:      s.Blitz.Rating,
		RapidGames:       s.Rapid.Games,
		RapidRating:      s.Rapid.Rating,
		ClassicalGames:   s.Classical.Games,
		ClassicalRating:  s.Classical.Rating,
		PuzzleGames:      s.Puzzle.Games,
		PuzzleRating:     s.Puzzle.Rating,
	}
}

// ToSnapshot converts a stored row back to the processing shape.
func (u *UserProfile) ToSnapshot() userdomain.Snapshot {
	return userdomain.Snapshot{
		Username:        u.Username,
		CreatedAt:       u.AccountCreatedAt,
		LastSeen:        u.LastSeen,
		PlayTime:        u.PlayTime,
		URL:             u.URL,
		Bullet:          userdomain.PerfSnapshot{Games: u.BulletGames, Rating: u.BulletRating},
		Blitz:           userdomain.PerfSnapshot{Games: u.BlitzGames, Rating: u.BlitzRating},
		Rapid:           userdomain.PerfSnapshot{Games: u.RapidGames, Rating: u.RapidRating},
		Classical:       userdomain.PerfSnapshot{Games: u.ClassicalGames, Rating: u.ClassicalRating},
		Puzzle:          userdomain.PerfSnapshot{Games: u.PuzzleGames, Rating: u.PuzzleRating},
		ReportCreatedAt: u.CreatedAt,
	}
}
