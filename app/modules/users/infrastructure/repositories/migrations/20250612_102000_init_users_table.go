package usermigrations

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
		fmt.Println("Creating users_processed table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS users_processed (
				id BIGSERIAL PRIMARY KEY,
				report_id BIGINT NOT NULL UNIQUE REFERENCES reports(id) ON DELETE CASCADE,
				username TEXT NOT NULL,
				account_created_at TEXT,
				last_seen TEXT,
				play_time TEXT,
				url TEXT,
				bullet_games INT NOT NULL DEFAULT 0,
				bullet_rating INT NOT NULL DEFAULT 0,
				blitz_games INT NOT NULL DEFAULT 0,
				blitz_rating INT NOT NULL DEFAULT 0,
				rapid_games INT NOT NULL DEFAULT 0,
				rapid_rating INT NOT NULL DEFAULT 0,
				classical_games INT NOT NULL DEFAULT 0,
				classical_rating INT NOT NULL DEFAULT 0,
				puzzle_games INT NOT NULL DEFAULT 0,
				puzzle_rating INT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create users_processed table: %w", err)
		}

		fmt.Println("users_processed table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping users_processed table...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS users_processed;`)
		if err != nil {
			return fmt.Errorf("failed to drop users_processed table: %w", err)
		}

		fmt.Println("users_processed table dropped successfully!")
		return nil
	})
}
