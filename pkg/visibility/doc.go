// Package visibility compiles a subject's view of the world into SQL
// predicates.
//
// # Overview
//
// The Resolver answers one question per entity type: which rows may
// this subject see. The answer is a Predicate, a function that renders
// a WHERE fragment against an Args accumulator so placeholder numbering
// stays correct no matter where the fragment lands in the final query.
//
//	a := &visibility.Args{}
//	clause := resolver.Visible(sub, model.EntityDocument)(a)
//	rows, err := db.QueryContext(ctx,
//		"SELECT id, title FROM documents WHERE "+clause, a.Values()...)
//
// # Rules
//
// Superusers match everything. Deactivated owners hide their entire
// subtree regardless of any grant. Otherwise a row is visible when it
// is public, owned by the subject, or covered by a read grant held
// directly or through group membership. Documents and conversations
// additionally require their containing corpus to be visible, and
// messages delegate entirely to their conversation. Notifications are
// recipient-only.
//
// Predicates compose with And, Or, MatchAll, and MatchNone, so callers
// can narrow a resolved view further without breaking argument order.
//
// # Related Packages
//
//   - pkg/store: applies these predicates on every read
//   - pkg/grants: the grant tables the predicates join against
package visibility
