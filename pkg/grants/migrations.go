package grants

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the grant store migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create groups table",
			SQL: `
				CREATE TABLE IF NOT EXISTS groups (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					creator_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(name)
				);

				CREATE INDEX idx_groups_creator_id ON groups(creator_id);
			`,
		},
		{
			Version:     2,
			Description: "Create group_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS group_members (
					id BIGSERIAL PRIMARY KEY,
					group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					added_by BIGINT REFERENCES profiles(id) ON DELETE SET NULL,
					added_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(group_id, profile_id)
				);

				CREATE INDEX idx_group_members_group_id ON group_members(group_id);
				CREATE INDEX idx_group_members_profile_id ON group_members(profile_id);
			`,
		},
		{
			Version:     3,
			Description: "Create grants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS grants (
					id BIGSERIAL PRIMARY KEY,
					subject_id BIGINT REFERENCES profiles(id) ON DELETE CASCADE,
					group_id BIGINT REFERENCES groups(id) ON DELETE CASCADE,
					object_type VARCHAR(50) NOT NULL,
					object_id BIGINT NOT NULL,
					capability VARCHAR(20) NOT NULL,
					granted_by BIGINT REFERENCES profiles(id) ON DELETE SET NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CHECK ((subject_id IS NULL) != (group_id IS NULL))
				);

				-- One of subject_id and group_id is always NULL, and plain
				-- UNIQUE treats NULL as distinct, so the dedupe needs an
				-- expression index.
				CREATE UNIQUE INDEX idx_grants_unique ON grants(COALESCE(subject_id, 0), COALESCE(group_id, 0), object_type, object_id, capability);
				CREATE INDEX idx_grants_subject ON grants(subject_id, object_type, object_id);
				CREATE INDEX idx_grants_group ON grants(group_id, object_type, object_id);
				CREATE INDEX idx_grants_object ON grants(object_type, object_id);
			`,
		},
	}
}

// RunMigrations applies the grant store migrations in order, each in
// its own transaction. The core migrations in pkg/store must have run
// first so the profile references resolve.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range GetMigrations() {
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("grant migration %d (%s): failed to begin transaction: %w", m.Version, m.Description, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("grant migration %d (%s) failed: %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("grant migration %d (%s): commit failed: %w", m.Version, m.Description, err)
	}
	return nil
}
