package lanternmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating lantern tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lantern_teams (
					id UUID PRIMARY KEY,
					name TEXT NOT NULL UNIQUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create lantern_teams table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lantern_team_members (
					user_id TEXT PRIMARY KEY,
					team_id UUID NOT NULL REFERENCES lantern_teams(id) ON DELETE CASCADE,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_lantern_team_members_team ON lantern_team_members(team_id);
			`); err != nil {
				return fmt.Errorf("failed to create lantern_team_members table: %w", err)
			}

			// owner_team_id is null exactly when boosting_signal is 0.
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lantern_stations (
					id UUID PRIMARY KEY,
					name TEXT NOT NULL,
					signal_value INTEGER NOT NULL CHECK (signal_value BETWEEN 0 AND 100),
					baseline_signal INTEGER NOT NULL CHECK (baseline_signal BETWEEN 0 AND 100),
					boosting_signal INTEGER NOT NULL DEFAULT 0 CHECK (boosting_signal >= 0),
					owner_team_id UUID REFERENCES lantern_teams(id) ON DELETE SET NULL,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					version BIGINT NOT NULL DEFAULT 1,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT lantern_stations_owner_boost CHECK ((owner_team_id IS NULL) = (boosting_signal = 0))
				);
			`); err != nil {
				return fmt.Errorf("failed to create lantern_stations table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lantern_round (
					id SMALLINT PRIMARY KEY CHECK (id = 1),
					start_time TIMESTAMPTZ NOT NULL,
					end_time TIMESTAMPTZ NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT FALSE,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CHECK (start_time < end_time)
				);
			`); err != nil {
				return fmt.Errorf("failed to create lantern_round table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS lantern_hack_sessions (
					owner_id TEXT NOT NULL,
					station_id UUID NOT NULL REFERENCES lantern_stations(id) ON DELETE CASCADE,
					tries_left INTEGER NOT NULL CHECK (tries_left >= 0),
					real_password JSONB NOT NULL,
					decoy_passwords JSONB NOT NULL DEFAULT '[]'::jsonb,
					station_version BIGINT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (owner_id, station_id)
				);
				CREATE INDEX IF NOT EXISTS idx_lantern_hack_sessions_station ON lantern_hack_sessions(station_id);
			`); err != nil {
				return fmt.Errorf("failed to create lantern_hack_sessions table: %w", err)
			}

			fmt.Println("Lantern tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping lantern tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS lantern_hack_sessions;
				DROP TABLE IF EXISTS lantern_round;
				DROP TABLE IF EXISTS lantern_stations;
				DROP TABLE IF EXISTS lantern_team_members;
				DROP TABLE IF EXISTS lantern_teams;
			`); err != nil {
				return fmt.Errorf("failed to drop lantern tables: %w", err)
			}
			return nil
		})
	})
}
