package store

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// NewTestDB opens an in-memory SQLite database with the full schema.
// Engine tests across packages share this fixture so they exercise the
// real queries rather than mocks.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// SQLite rendition of the postgres migrations.
	_, err = db.Exec(`
		CREATE TABLE profiles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			deactivated BOOLEAN NOT NULL DEFAULT FALSE,
			reputation INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE corpora (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			creator_id INTEGER NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			corpus_id INTEGER NOT NULL,
			creator_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			upvote_count INTEGER NOT NULL DEFAULT 0,
			downvote_count INTEGER NOT NULL DEFAULT 0,
			vote_score INTEGER NOT NULL DEFAULT 0,
			deleted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			corpus_id INTEGER NOT NULL,
			creator_id INTEGER NOT NULL,
			topic TEXT NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			pinned BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL,
			author_id INTEGER NOT NULL,
			body TEXT NOT NULL,
			upvote_count INTEGER NOT NULL DEFAULT 0,
			downvote_count INTEGER NOT NULL DEFAULT 0,
			vote_score INTEGER NOT NULL DEFAULT 0,
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			pinned BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE badges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			creator_id INTEGER NOT NULL,
			corpus_id INTEGER,
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			auto_award BOOLEAN NOT NULL DEFAULT FALSE,
			criteria_type TEXT,
			criteria_config TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			voter_id INTEGER NOT NULL,
			target_type TEXT NOT NULL,
			target_id INTEGER NOT NULL,
			value INTEGER NOT NULL CHECK (value IN (1, -1)),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(voter_id, target_type, target_id)
		);

		CREATE TABLE awards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id INTEGER NOT NULL,
			badge_id INTEGER NOT NULL,
			corpus_id INTEGER,
			granted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE UNIQUE INDEX idx_awards_unique ON awards(profile_id, badge_id, COALESCE(corpus_id, 0));

		CREATE TABLE notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			actor_id INTEGER,
			target_type TEXT,
			target_id INTEGER,
			message TEXT NOT NULL,
			request_id TEXT,
			read_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE moderation_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			target_type TEXT NOT NULL,
			target_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			actor_id INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			request_id TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE reputation_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id INTEGER NOT NULL,
			corpus_id INTEGER,
			score INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(profile_id, corpus_id)
		);

		CREATE TABLE groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			creator_id INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE group_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id INTEGER NOT NULL,
			profile_id INTEGER NOT NULL,
			added_by INTEGER,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(group_id, profile_id)
		);

		CREATE TABLE grants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject_id INTEGER,
			group_id INTEGER,
			object_type TEXT NOT NULL,
			object_id INTEGER NOT NULL,
			capability TEXT NOT NULL,
			granted_by INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK ((subject_id IS NULL) != (group_id IS NULL))
		);

		CREATE UNIQUE INDEX idx_grants_unique ON grants(COALESCE(subject_id, 0), COALESCE(group_id, 0), object_type, object_id, capability);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	return db
}
