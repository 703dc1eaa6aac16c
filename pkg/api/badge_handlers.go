package api

import (
	"net/http"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/model"
)

// createBadge handles POST /api/v1/badges. Auto-awarded badges are
// validated against the criteria registry before anything is stored.
func (s *Server) createBadge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string                 `json:"name"`
		Description    string                 `json:"description"`
		CorpusID       *int64                 `json:"corpus_id"`
		IsPublic       bool                   `json:"is_public"`
		AutoAward      bool                   `json:"auto_award"`
		CriteriaType   string                 `json:"criteria_type"`
		CriteriaConfig map[string]interface{} `json:"criteria_config"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	if req.AutoAward {
		var config interface{}
		if req.CriteriaConfig != nil {
			config = req.CriteriaConfig
		}
		if err := s.registry.Validate(req.CriteriaType, config); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	sub := auth.SubjectFrom(r.Context())
	badge := &model.Badge{
		Name:           req.Name,
		Description:    req.Description,
		CorpusID:       req.CorpusID,
		IsPublic:       req.IsPublic,
		AutoAward:      req.AutoAward,
		CriteriaType:   req.CriteriaType,
		CriteriaConfig: req.CriteriaConfig,
	}
	if err := s.store.CreateBadge(r.Context(), sub, badge); err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, badge)
}

// listBadges handles GET /api/v1/badges.
func (s *Server) listBadges(w http.ResponseWriter, r *http.Request) {
	sub := auth.SubjectFrom(r.Context())
	badges, err := s.store.ListBadges(r.Context(), sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, badges)
}

// getBadge handles GET /api/v1/badges/{id}.
func (s *Server) getBadge(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	if payload, ok := s.cachedGet(r, "badge", sub, id); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
		return
	}

	badge, err := s.store.GetBadge(r.Context(), sub, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cachePut(r, "badge", sub, id, badge)
	httputil.WriteSuccess(w, badge)
}

// listCriteria handles GET /api/v1/criteria. Exposes the closed
// registry so clients can discover configurable criteria types.
func (s *Server) listCriteria(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.registry.Types())
}

// grantAward handles POST /api/v1/awards.
func (s *Server) grantAward(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BadgeID   int64 `json:"badge_id"`
		ProfileID int64 `json:"profile_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.BadgeID, "badge_id") {
		return
	}
	if !httputil.RequirePositive(w, req.ProfileID, "profile_id") {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	award, err := s.awards.Grant(r.Context(), sub, req.BadgeID, req.ProfileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, award)
}

// revokeAward handles DELETE /api/v1/awards/{id}.
func (s *Server) revokeAward(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.awards.Revoke(r.Context(), sub, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
