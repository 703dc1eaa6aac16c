// Package grants stores capability grants for profiles and groups.
//
// # Overview
//
// A grant binds a capability (read, create, update, delete) to exactly
// one subject, either a profile or a group, for one object. Effective
// capabilities for a profile are the union of its direct grants and
// the grants of every group it belongs to. Absence of any grant is the
// default-deny state.
//
//	err := gs.CreateGrant(ctx, &grants.Grant{
//		SubjectID:  &profileID,
//		ObjectType: model.EntityCorpus,
//		ObjectID:   corpus.ID,
//		Capability: grants.CapabilityRead,
//		GrantedBy:  &owner.ID,
//	})
//
//	ok, err := gs.HasCapability(ctx, profileID, model.EntityCorpus, corpus.ID, grants.CapabilityRead)
//
// Exactly one of SubjectID and GroupID must be set; anything else fails
// validation. Duplicate (subject, object, capability) tuples return
// model.ErrConflict.
//
// # Groups
//
// Groups are flat membership lists. Removing a member immediately
// withdraws whatever visibility the member had through that group's
// grants; there is no per-member state to clean up because capability
// resolution always joins through the membership table.
//
// # Revocation
//
// RevokeGrant removes a single grant; RevokeAllForObject clears every
// grant on an object for administrative removal paths. Revocation takes
// effect on the next visibility resolution, nothing is cached here.
//
// # Related Packages
//
//   - pkg/visibility: folds grant checks into SQL predicates
//   - pkg/api: grant management endpoints and owner authority checks
package grants
