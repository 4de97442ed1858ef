package reportmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating reports table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS reports (
				id BIGSERIAL PRIMARY KEY,
				public_id TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL,
				platform TEXT NOT NULL,
				number_of_games INT NOT NULL DEFAULT 0,
				time_control TEXT,
				since TIMESTAMPTZ,
				status TEXT NOT NULL DEFAULT 'pending',
				error TEXT,
				execution_time DOUBLE PRECISION,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create reports table: %w", err)
		}

		_, err = db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_reports_username
				ON reports (username, created_at DESC);
		`)
		if err != nil {
			return fmt.Errorf("failed to create reports index: %w", err)
		}

		fmt.Println("Reports table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping reports table...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS reports;`)
		if err != nil {
			return fmt.Errorf("failed to drop reports table: %w", err)
		}

		fmt.Println("Reports table dropped successfully!")
		return nil
	})
}
