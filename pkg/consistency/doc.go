// Package consistency keeps vote counters and reputation in step with
// the votes table.
//
// # Overview
//
// Votes are the source of truth; upvote_count, downvote_count,
// vote_score, and per-corpus reputation rows are derived aggregates.
// The Engine recomputes aggregates from scratch inside the same
// transaction as the vote mutation, so a crash can never wedge a
// counter out of line with the rows that produced it.
//
//	vote, err := engine.CastVote(ctx, sub, model.EntityDocument, doc.ID, model.Upvote)
//	err = engine.RemoveVote(ctx, sub, model.EntityDocument, doc.ID)
//
// Casting against a target the subject cannot see fails with
// model.ErrNotFound. A second vote on the same target, in either
// direction, is model.ErrConflict; changing a vote means removing it
// first.
//
// # Reputation
//
// Reputation is the net score of a profile's live content, tracked
// per corpus. Soft-deleted content drops out of the sum on the next
// recompute, which the moderation machine triggers as part of the
// delete and restore transitions.
//
// RecomputeTarget and RecomputeReputation are idempotent and accept
// any Querier, so callers already inside a transaction pass their tx
// and standalone repairs pass the db handle.
//
// # Related Packages
//
//   - pkg/moderation: triggers recomputes on lifecycle transitions
//   - pkg/criteria: reads reputation for badge thresholds
package consistency
