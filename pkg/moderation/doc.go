// Package moderation applies lifecycle transitions and keeps the
// append-only record of who did what.
//
// # Overview
//
// The Machine is the only writer of lifecycle state (locked, pinned,
// deleted_at). Apply authorizes the actor, validates the action
// against the target type, flips the state, appends a moderation
// record, and notifies the content creator, all in one transaction.
//
//	rec, err := machine.Apply(ctx, sub, model.ActionLock,
//		model.EntityConversation, conv.ID, "flame war")
//
// Authority comes from superuser, ownership of the containing corpus,
// or an update grant (delete grant for soft delete and restore) held on
// the target or its corpus. A denied or invalid action leaves no trace;
// re-applying the current state is accepted and still audited, because
// the record of the attempt is the point.
//
// # Records
//
// Records are insert-only. ListForTarget returns them newest first and
// is deliberately unauthorized beyond target visibility: the audit
// trail of a visible object is public.
//
// Soft delete and restore recompute the affected creator's reputation
// through the consistency engine before the transaction commits.
//
// # Related Packages
//
//   - pkg/consistency: reputation recomputation on delete and restore
//   - pkg/notify: creator notifications for third-party actions
package moderation
