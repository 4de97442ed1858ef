package reportdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrReportNotFound indicates no report exists for the given public ID.
var ErrReportNotFound = errors.New("report not found")

// ReportDB handles report persistence.
type ReportDB interface {
	CreateReport(ctx context.Context, report *Report) error
	GetByPublicID(ctx context.Context, publicID string) (*Report, error)
	UpdateStatus(ctx context.Context, id int64, status, errMsg string) error
	SetResult(ctx context.Context, id int64, numberOfGames int, executionTime float64) error
	ListRecent(ctx context.Context, limit int) ([]Report, error)
}

// ReportDBImpl is the bun-backed implementation of ReportDB.
type ReportDBImpl struct {
	DB *bun.DB
}

// CreateReport inserts a new report row.
func (db *ReportDBImpl) CreateReport(ctx context.Context, report *Report) error {
	if report.Status == "" {
		report.Status = StatusPending
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now

	if _, err := db.DB.NewInsert().Model(report).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByPublicID fetches a report by its public identifier.
func (db *ReportDBImpl) GetByPublicID(ctx context.Context, publicID string) (*Report, error) {
	report := new(Report)
	err := db.DB.NewSelect().
		Model(report).
		Where("public_id = ?", publicID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to fetch report %s: %w", publicID, err)
	}
	return report, nil
}

// UpdateStatus moves a report to a new status, recording the failure reason
// when the status is failed.
func (db *ReportDBImpl) UpdateStatus(ctx context.Context, id int64, status, errMsg string) error {
	res, err := db.DB.NewUpdate().
		Model((*Report)(nil)).
		Set("status = ?", status).
		Set("error = ?", errMsg).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrReportNotFound
	}
	return nil
}

// SetResult marks a report done and records its final game count and build time.
func (db *ReportDBImpl) SetResult(ctx context.Context, id int64, numberOfGames int, executionTime float64) error {
	res, err := db.DB.NewUpdate().
		Model((*Report)(nil)).
		Set("status = ?", StatusDone).
		Set("number_of_games = ?", numberOfGames).
		Set("execution_time = ?", executionTime).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrReportNotFound
	}
	return nil
}

// ListRecent returns the newest reports, most recent first.
func (db *ReportDBImpl) ListRecent(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	var reports []Report
	err := db.DB.NewSelect().
		Model(&reports).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}
