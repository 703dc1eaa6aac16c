package store

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

// GetMigrations returns the core entity migrations. Grant tables are
// owned by pkg/grants and must be applied after these.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create profiles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS profiles (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(255) NOT NULL,
					display_name VARCHAR(255) NOT NULL DEFAULT '',
					bio TEXT NOT NULL DEFAULT '',
					is_public BOOLEAN NOT NULL DEFAULT FALSE,
					deactivated BOOLEAN NOT NULL DEFAULT FALSE,
					reputation BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(username)
				);

				CREATE INDEX idx_profiles_deactivated ON profiles(deactivated);
			`,
		},
		{
			Version:     2,
			Description: "Create corpora table",
			SQL: `
				CREATE TABLE IF NOT EXISTS corpora (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					creator_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					is_public BOOLEAN NOT NULL DEFAULT FALSE,
					deleted_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(slug)
				);

				CREATE INDEX idx_corpora_creator_id ON corpora(creator_id);
				CREATE INDEX idx_corpora_is_public ON corpora(is_public);
			`,
		},
		{
			Version:     3,
			Description: "Create documents table",
			SQL: `
				CREATE TABLE IF NOT EXISTS documents (
					id BIGSERIAL PRIMARY KEY,
					corpus_id BIGINT NOT NULL REFERENCES corpora(id) ON DELETE CASCADE,
					creator_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					title VARCHAR(512) NOT NULL,
					body TEXT NOT NULL DEFAULT '',
					is_public BOOLEAN NOT NULL DEFAULT FALSE,
					upvote_count BIGINT NOT NULL DEFAULT 0,
					downvote_count BIGINT NOT NULL DEFAULT 0,
					vote_score BIGINT NOT NULL DEFAULT 0,
					deleted_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_documents_corpus_id ON documents(corpus_id);
				CREATE INDEX idx_documents_creator_id ON documents(creator_id);
			`,
		},
		{
			Version:     4,
			Description: "Create conversations and messages tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS conversations (
					id BIGSERIAL PRIMARY KEY,
					corpus_id BIGINT NOT NULL REFERENCES corpora(id) ON DELETE CASCADE,
					creator_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					topic VARCHAR(512) NOT NULL,
					is_public BOOLEAN NOT NULL DEFAULT FALSE,
					locked BOOLEAN NOT NULL DEFAULT FALSE,
					pinned BOOLEAN NOT NULL DEFAULT FALSE,
					deleted_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_conversations_corpus_id ON conversations(corpus_id);
				CREATE INDEX idx_conversations_pinned ON conversations(pinned);

				CREATE TABLE IF NOT EXISTS messages (
					id BIGSERIAL PRIMARY KEY,
					conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
					author_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					body TEXT NOT NULL,
					upvote_count BIGINT NOT NULL DEFAULT 0,
					downvote_count BIGINT NOT NULL DEFAULT 0,
					vote_score BIGINT NOT NULL DEFAULT 0,
					locked BOOLEAN NOT NULL DEFAULT FALSE,
					pinned BOOLEAN NOT NULL DEFAULT FALSE,
					deleted_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_messages_conversation_id ON messages(conversation_id);
				CREATE INDEX idx_messages_author_id ON messages(author_id);
			`,
		},
		{
			Version:     5,
			Description: "Create badges table",
			SQL: `
				CREATE TABLE IF NOT EXISTS badges (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					creator_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					corpus_id BIGINT REFERENCES corpora(id) ON DELETE CASCADE,
					is_public BOOLEAN NOT NULL DEFAULT TRUE,
					auto_award BOOLEAN NOT NULL DEFAULT FALSE,
					criteria_type VARCHAR(100),
					criteria_config JSONB,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(name)
				);

				CREATE INDEX idx_badges_corpus_id ON badges(corpus_id);
				CREATE INDEX idx_badges_auto_award ON badges(auto_award);
			`,
		},
		{
			Version:     6,
			Description: "Create votes table",
			SQL: `
				CREATE TABLE IF NOT EXISTS votes (
					id BIGSERIAL PRIMARY KEY,
					voter_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					target_type VARCHAR(50) NOT NULL,
					target_id BIGINT NOT NULL,
					value SMALLINT NOT NULL CHECK (value IN (1, -1)),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(voter_id, target_type, target_id)
				);

				CREATE INDEX idx_votes_target ON votes(target_type, target_id);
				CREATE INDEX idx_votes_voter_id ON votes(voter_id);
			`,
		},
		{
			Version:     7,
			Description: "Create awards table",
			SQL: `
				CREATE TABLE IF NOT EXISTS awards (
					id BIGSERIAL PRIMARY KEY,
					profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					badge_id BIGINT NOT NULL REFERENCES badges(id) ON DELETE CASCADE,
					corpus_id BIGINT REFERENCES corpora(id) ON DELETE CASCADE,
					granted_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				-- Plain UNIQUE would treat NULL corpus_id rows as distinct,
				-- letting a global badge be granted twice.
				CREATE UNIQUE INDEX idx_awards_unique ON awards(profile_id, badge_id, COALESCE(corpus_id, 0));
				CREATE INDEX idx_awards_profile_id ON awards(profile_id);
				CREATE INDEX idx_awards_badge_id ON awards(badge_id);
			`,
		},
		{
			Version:     8,
			Description: "Create notifications table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notifications (
					id BIGSERIAL PRIMARY KEY,
					recipient_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					kind VARCHAR(50) NOT NULL,
					actor_id BIGINT REFERENCES profiles(id) ON DELETE SET NULL,
					target_type VARCHAR(50),
					target_id BIGINT,
					message TEXT NOT NULL,
					request_id VARCHAR(100),
					read_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_notifications_recipient ON notifications(recipient_id, created_at DESC);
			`,
		},
		{
			Version:     9,
			Description: "Create moderation_records table",
			SQL: `
				CREATE TABLE IF NOT EXISTS moderation_records (
					id BIGSERIAL PRIMARY KEY,
					target_type VARCHAR(50) NOT NULL,
					target_id BIGINT NOT NULL,
					action VARCHAR(50) NOT NULL,
					actor_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					reason TEXT NOT NULL DEFAULT '',
					request_id VARCHAR(100),
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_moderation_records_target ON moderation_records(target_type, target_id, created_at DESC);
			`,
		},
		{
			Version:     10,
			Description: "Create reputation_scores table",
			SQL: `
				CREATE TABLE IF NOT EXISTS reputation_scores (
					id BIGSERIAL PRIMARY KEY,
					profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					corpus_id BIGINT REFERENCES corpora(id) ON DELETE CASCADE,
					score BIGINT NOT NULL DEFAULT 0,
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(profile_id, corpus_id)
				);

				CREATE INDEX idx_reputation_scores_profile ON reputation_scores(profile_id);
			`,
		},
	}
}

// RunMigrations applies the core migrations in order, each in its own
// transaction so a failing migration leaves no partial schema behind.
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
		return fmt.Errorf("store migration %d (%s): failed to begin transaction: %w", m.Version, m.Description, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("store migration %d (%s) failed: %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store migration %d (%s): commit failed: %w", m.Version, m.Description, err)
	}
	return nil
}
