// Package api provides the HTTP surface over the visibility engine.
//
// # Overview
//
// Handlers are deliberately thin: they parse the request, pull the
// resolved subject off the context, hand the work to the engine
// packages, and translate the engine's error taxonomy into JSON
// responses. All authorization lives below this package.
//
// # Identity
//
// The engine never authenticates. The upstream gateway terminates
// credentials and forwards the resolved identity in headers:
//
//	X-Folio-Profile-ID: 42
//	X-Folio-Subject: superuser   (optional, privileged ingress only)
//
// Requests without identity headers run as the anonymous subject. A
// profile id that does not resolve to an active profile is rejected
// with 401 rather than downgraded.
//
// # Error Mapping
//
//	model.ErrNotFound          -> 404 {"error": "not found"}
//	model.ErrPermissionDenied  -> 403
//	model.ErrValidation        -> 400
//	model.ErrConflict          -> 409
//	anything else              -> 500 (detail logged, not echoed)
//
// Point lookups return the same 404 body for missing and forbidden
// objects, so identifiers cannot be probed.
//
// # Routes
//
// All routes live under /api/v1. Point reads go through the safe
// lookup gateway; anonymous responses to point reads are cached in the
// two-tier cache and invalidated at mutation sites.
//
// # Related Packages
//
//   - pkg/store: safe lookup gateway and entity persistence
//   - pkg/consistency: vote and reputation recomputation
//   - pkg/moderation: lifecycle state machine and audit records
//   - pkg/awards: badge granting and the population sweep
package api
