// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error
// responses and parameter parsing. Every error body has the same shape,
// {"error": message}, so clients parse one format everywhere.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, profiles)
//	httputil.WriteCreated(w, document)
//	httputil.WriteNoContent(w)
//
// Error responses:
//
//	httputil.WriteBadRequest(w, "title is required")
//	httputil.WriteUnauthorized(w, "invalid profile identity")
//	httputil.WriteForbidden(w, "permission denied")
//	httputil.WriteNotFoundError(w, "not found")
//	httputil.WriteConflict(w, "username already taken")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req CreateDocumentRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	vars := httputil.GetPathVars(r)
//
// Query parameters:
//
//	limit, err := httputil.ParseQueryInt(r, "limit", 50)
//	corpusID, err := httputil.ParseQueryInt64(r, "corpus_id", 0)
//	sort := httputil.ParseQueryString(r, "sort", "created")
//
// # Validation
//
//	if !httputil.RequireNonEmpty(w, req.Title, "title") {
//		return
//	}
//	if !httputil.RequirePositive(w, req.TargetID, "target_id") {
//		return
//	}
//
// # Related Packages
//
//   - pkg/api: HTTP handlers built on these helpers
//   - pkg/middleware: Write rate limiting middleware
package httputil
