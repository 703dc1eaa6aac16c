// Package store persists the core entities and guards every point read
// behind the visibility resolver.
//
// # Overview
//
// The Store handles profiles, corpora, documents, conversations,
// messages, and badge definitions over database/sql. Reads never take a
// bare id: every Get and List composes the caller's visibility
// predicate into the WHERE clause, so a row the subject may not see
// behaves exactly like a row that does not exist.
//
//	st := store.New(db)
//	doc, err := st.GetDocument(ctx, sub, id, false)
//	if errors.Is(err, model.ErrNotFound) {
//		// missing or not visible, indistinguishable on purpose
//	}
//
// # Writes
//
// Creates validate ownership and container state before inserting.
// Posting into a locked conversation or contributing to a corpus whose
// contribution policy excludes the subject fails with
// model.ErrPermissionDenied. Duplicate natural keys (usernames, corpus
// slugs) surface as model.ErrConflict.
//
// # Soft Deletion
//
// Entities are never removed. The moderation machine flips deleted_at,
// and the includeDeleted flag lets moderation and grant authority
// checks look through soft deletion while ordinary reads stay scoped.
//
// # Migrations
//
// GetMigrations returns the ordered schema migrations; RunMigrations
// applies them in order, one transaction per migration, so a failure
// leaves no partial schema. The grant tables live in pkg/grants and
// are applied afterwards. Test databases are built with NewTestDB,
// which runs the same DDL against in-memory SQLite.
//
// # Related Packages
//
//   - pkg/visibility: the predicate compiler used in every read
//   - pkg/grants: capability grants consulted by contribution checks
//   - pkg/moderation: lifecycle transitions over these entities
package store
