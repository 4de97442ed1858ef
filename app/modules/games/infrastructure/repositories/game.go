package gamedb

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ErrNoGames indicates a report has no stored games for the requested page.
var ErrNoGames = errors.New("no games found")

// GameDB handles persistence of processed games.
type GameDB interface {
	InsertGames(ctx context.Context, reportID int64, games []*Game) error
	GetByReportID(ctx context.Context, reportID int64, limit, offset int) ([]Game, error)
	CountByReportID(ctx context.Context, reportID int64) (int, error)
	DeleteByReportID(ctx context.Context, reportID int64) error
}

// GameDBImpl is the bun-backed implementation of GameDB.
type GameDBImpl struct {
	DB *bun.DB
}

// InsertGames stores a batch of processed games in a single transaction.
func (db *GameDBImpl) InsertGames(ctx context.Context, reportID int64, games []*Game) error {
	if len(games) == 0 {
		return nil
	}

	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, g := range games {
		g.ReportID = reportID
	}

	if _, err := tx.NewInsert().Model(&games).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert games: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByReportID fetches a page of games for a report, most recent first.
func (db *GameDBImpl) GetByReportID(ctx context.Context, reportID int64, limit, offset int) ([]Game, error) {
	var games []Game
	q := db.DB.NewSelect().
		Model(&games).
		Where("report_id = ?", reportID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch games for report %d: %w", reportID, err)
	}
	return games, nil
}

// CountByReportID returns how many games a report has stored.
func (db *GameDBImpl) CountByReportID(ctx context.Context, reportID int64) (int, error) {
	count, err := db.DB.NewSelect().
		Model((*Game)(nil)).
		Where("report_id = ?", reportID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count games for report %d: %w", reportID, err)
	}
	return count, nil
}

// DeleteByReportID removes all games belonging to a report.
func (db *GameDBImpl) DeleteByReportID(ctx context.Context, reportID int64) error {
	if _, err := db.DB.NewDelete().
		Model((*Game)(nil)).
		Where("report_id = ?", reportID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete games for report %d: %w", reportID, err)
	}
	return nil
}
