package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ErrProfileNotFound indicates no profile snapshot exists for a report.
var ErrProfileNotFound = errors.New("user profile not found")

// UserDB handles persistence of profile snapshots.
type UserDB interface {
	SaveProfile(ctx context.Context, profile *UserProfile) error
	GetByReportID(ctx context.Context, reportID int64) (*UserProfile, error)
}

// UserDBImpl is the bun-backed implementation of UserDB.
type UserDBImpl struct {
	DB *bun.DB
}

// SaveProfile stores a profile snapshot, replacing any previous one for the report.
func (db *UserDBImpl) SaveProfile(ctx context.Context, profile *UserProfile) error {
	_, err := db.DB.NewInsert().
		Model(profile).
		On("CONFLICT (report_id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("account_created_at = EXCLUDED.account_created_at").
		Set("last_seen = EXCLUDED.last_seen").
		Set("play_time = EXCLUDED.play_time").
		Set("url = EXCLUDED.url").
		Set("bullet_games = EXCLUDED.bullet_games").
		Set("bullet_rating = EXCLUDED.bullet_rating").
		Set("blitz_games = EXCLUDED.blitz_games").
		Set("blitz_rating = EXCLUDED.blitz_rating").
		Set("rapid_games = EXCLUDED.rapid_games").
		Set("rapid_rating = EXCLUDED.rapid_rating").
		Set("classical_games = EXCLUDED.classical_games").
		Set("classical_rating = EXCLUDED.classical_rating").
		Set("puzzle_games = EXCLUDED.puzzle_games").
		Set("puzzle_rating = EXCLUDED.puzzle_rating").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save user profile: %w", err)
	}
	return nil
}

// GetByReportID fetches the profile snapshot stored for a report.
func (db *UserDBImpl) GetByReportID(ctx context.Context, reportID int64) (*UserProfile, error) {
	profile := new(UserProfile)
	err := db.DB.NewSelect().
		Model(profile).
		Where("report_id = ?", reportID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile for report %d: %w", reportID, err)
	}
	return profile, nil
}
