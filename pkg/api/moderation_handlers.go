package api

import (
	"net/http"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/model"
)

// applyModeration handles POST /api/v1/moderation.
func (s *Server) applyModeration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action     string `json:"action"`
		TargetType string `json:"target_type"`
		TargetID   int64  `json:"target_id"`
		Reason     string `json:"reason"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Action, "action") {
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
	rec, err := s.moderation.Apply(r.Context(), sub, model.ModerationAction(req.Action), targetType, req.TargetID, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cacheInvalidate(r.Context(), string(targetType), req.TargetID)
	httputil.WriteCreated(w, rec)
}

// listModerationRecords handles GET /api/v1/moderation/{target_type}/{id}/records.
// The audit trail for a target is only readable by subjects that can
// see the target itself; a forbidden target reads as absent.
func (s *Server) listModerationRecords(w http.ResponseWriter, r *http.Request) {
	vars := httputil.GetPathVars(r)
	targetType, err := parseEntityType(vars["target_type"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.requireVisibleTarget(r, sub, targetType, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.moderation.Records().ListForTarget(r.Context(), targetType, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, records)
}

// requireVisibleTarget resolves a moderatable target through the safe
// lookup gateway, soft-deleted rows included so a restore's audit trail
// stays reachable for whoever could still see the target.
func (s *Server) requireVisibleTarget(r *http.Request, sub auth.Subject, targetType model.EntityType, id int64) error {
	ctx := r.Context()
	switch targetType {
	case model.EntityConversation:
		_, err := s.store.GetConversation(ctx, sub, id, true)
		return err
	case model.EntityMessage:
		_, err := s.store.GetMessage(ctx, sub, id, true)
		return err
	case model.EntityDocument:
		_, err := s.store.GetDocument(ctx, sub, id, true)
		return err
	default:
		return model.ValidationError("moderation does not apply to %s targets", targetType)
	}
}
