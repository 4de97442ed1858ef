package gamemigrations

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
		fmt.Println("Creating games_processed table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS games_processed (
				id BIGSERIAL PRIMARY KEY,
				report_id BIGINT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
				match_id TEXT NOT NULL,
				player_color TEXT NOT NULL,
				player_name TEXT NOT NULL,
				opponent_name TEXT,
				result TEXT NOT NULL,
				status TEXT,
				player_rating INT,
				opponent_rating INT,
				rating_difference INT,
				variant TEXT,
				speed TEXT,
				perf TEXT,
				clock_time_control INT,
				clock_increment INT,
				time_control_with_increment TEXT,
				source TEXT,
				tournament TEXT,
				division_middle INT,
				division_end INT,
				opening_eval DOUBLE PRECISION,
				opening_eval_text TEXT,
				opening_eval_source TEXT,
				created_at TIMESTAMPTZ NOT NULL,
				last_move_at TIMESTAMPTZ,
				time_spent_playing DOUBLE PRECISION,
				opening_eco TEXT,
				opening_name TEXT,
				normalized_opening_name TEXT,
				opening_ply INT,
				player_rating_diff INT,
				player_final_clock DOUBLE PRECISION,
				player_avg_time_per_move DOUBLE PRECISION,
				player_inaccuracy INT,
				player_mistake INT,
				player_blunder INT,
				player_accuracy DOUBLE PRECISION,
				opponent_rating_diff INT,
				opponent_final_clock DOUBLE PRECISION,
				opponent_avg_time_per_move DOUBLE PRECISION,
				opponent_inaccuracy INT,
				opponent_mistake INT,
				opponent_blunder INT,
				opponent_accuracy DOUBLE PRECISION,
				half_moves INT,
				full_moves INT,
				moves TEXT,
				clocks JSONB
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create games_processed table: %w", err)
		}

		_, err = db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_games_processed_report_id
				ON games_processed (report_id, created_at DESC);
		`)
		if err != nil {
			return fmt.Errorf("failed to create games_processed index: %w", err)
		}

		fmt.Println("games_processed table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping games_processed table...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS games_processed;`)
		if err != nil {
			return fmt.Errorf("failed to drop games_processed table: %w", err)
		}

		fmt.Println("games_processed table dropped successfully!")
		return nil
	})
}
