package api

import (
	"net/http"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/model"
)

// castVote handles POST /api/v1/votes. The engine recomputes the
// target's counters before the response is written.
func (s *Server) castVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetType string `json:"target_type"`
		TargetID   int64  `json:"target_id"`
		Value      int    `json:"value"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.TargetType, "target_type") {
		return
	}
	if !httputil.RequirePositive(w, req.TargetID, "target_id") {
		return
	}

	targetType, err := parseEntityType(req.TargetType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sub := auth.SubjectFrom(r.Context())
	vote, err := s.engine.CastVote(r.Context(), sub, targetType, req.TargetID, model.VoteValue(req.Value))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cacheInvalidate(r.Context(), string(targetType), req.TargetID)
	httputil.WriteCreated(w, vote)
}

// removeVote handles DELETE /api/v1/votes. The target is named by query
// parameters since DELETE bodies are not reliable across proxies.
func (s *Server) removeVote(w http.ResponseWriter, r *http.Request) {
	rawType := httputil.ParseQueryString(r, "target_type", "")
	if !httputil.RequireNonEmpty(w, rawType, "target_type") {
		return
	}
	targetID, err := httputil.ParseQueryInt64(r, "target_id", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if !httputil.RequirePositive(w, targetID, "target_id") {
		return
	}

	targetType, err := parseEntityType(rawType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.engine.RemoveVote(r.Context(), sub, targetType, targetID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cacheInvalidate(r.Context(), string(targetType), targetID)
	httputil.WriteNoContent(w)
}
