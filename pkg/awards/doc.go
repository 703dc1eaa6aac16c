// Package awards grants badges, manually and by sweep.
//
// # Overview
//
// The Service owns the award ledger. Grant is the moderator path and
// requires grant authority over the badge; EvaluateAndGrant is the
// automatic path and only inserts when the criteria evaluator says the
// profile qualifies. Both paths share one insert that treats the
// (badge, profile) pair as unique, so a duplicate grant is a
// model.ErrConflict, never a second row.
//
//	award, err := svc.Grant(ctx, sub, badge.ID, profile.ID)
//	granted, err := svc.EvaluateAndGrant(ctx, badge, profile.ID)
//
// Every successful grant notifies the recipient.
//
// # Sweep
//
// Sweep walks every auto-award badge against every active profile and
// grants what is missing. Evaluations fan out over a bounded errgroup;
// per-profile failures are logged and skipped so one bad row cannot
// poison the pass. The folio-sweeper binary runs Sweep on a cron
// schedule.
//
// # Definitions
//
// Badge definitions can be loaded from YAML and synced into the badge
// table by name, which is how the seed catalog ships:
//
//	defs, err := svc.LoadDefinitions("badges.yaml")
//	err = svc.SyncDefinitions(ctx, systemProfileID, defs)
//
// # Related Packages
//
//   - pkg/criteria: decides whether a profile qualifies
//   - cmd/folio-sweeper: scheduled sweep runner
package awards
