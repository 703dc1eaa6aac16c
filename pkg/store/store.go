package store

import (
	"database/sql"

	"github.com/folioworks/folio/pkg/visibility"
)

// Store is the single repository over all visible entities. Every point
// lookup intersects the requested id with the subject's visibility
// predicate, so a forbidden row and an absent row produce the identical
// model.ErrNotFound; callers can never distinguish the two.
//
// Soft deletion is handled with one explicit includeDeleted parameter per
// accessor rather than parallel default-excluding and all-inclusive
// repositories.
type Store struct {
	db       *sql.DB
	resolver *visibility.Resolver
}

// New creates a store over the given database.
func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		resolver: visibility.NewResolver(),
	}
}

// DB exposes the underlying handle for collaborators that share the
// store's transaction discipline.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Resolver exposes the visibility resolver.
func (s *Store) Resolver() *visibility.Resolver {
	return s.resolver
}
