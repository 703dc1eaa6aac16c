package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/cache"
	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/model"
)

// createProfile handles POST /api/v1/profiles. Registration is open;
// the profile starts private unless is_public is set.
func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Bio         string `json:"bio"`
		IsPublic    bool   `json:"is_public"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}

	profile := &model.Profile{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		IsPublic:    req.IsPublic,
	}
	if err := s.store.CreateProfile(r.Context(), profile); err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, profile)
}

// listProfiles handles GET /api/v1/profiles.
func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	sub := auth.SubjectFrom(r.Context())
	profiles, err := s.store.ListProfiles(r.Context(), sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, profiles)
}

// getProfile handles GET /api/v1/profiles/{id}.
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	if payload, ok := s.cachedGet(r, "profile", sub, id); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
		return
	}

	profile, err := s.store.GetProfile(r.Context(), sub, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cachePut(r, "profile", sub, id, profile)
	httputil.WriteSuccess(w, profile)
}

// deactivateProfile handles POST /api/v1/profiles/{id}/deactivate.
func (s *Server) deactivateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	if err := s.store.DeactivateProfile(r.Context(), sub, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cacheInvalidate(r.Context(), "profile", id)
	httputil.WriteNoContent(w)
}

// getReputation handles GET /api/v1/profiles/{id}/reputation. The
// optional corpus_id query parameter scopes the score to one corpus.
func (s *Server) getReputation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	// Reputation is only readable for profiles the subject can see.
	if _, err := s.store.GetProfile(r.Context(), sub, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	var corpusID *int64
	if raw, err := httputil.ParseQueryInt64(r, "corpus_id", 0); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	} else if raw != 0 {
		corpusID = &raw
	}

	score, err := s.engine.Reputation(r.Context(), id, corpusID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, struct {
		ProfileID int64  `json:"profile_id"`
		CorpusID  *int64 `json:"corpus_id,omitempty"`
		Score     int64  `json:"score"`
	}{ProfileID: id, CorpusID: corpusID, Score: score})
}

// listProfileAwards handles GET /api/v1/profiles/{id}/awards.
func (s *Server) listProfileAwards(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	if _, err := s.store.GetProfile(r.Context(), sub, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.awards.ListForProfile(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// cachedGet returns a cached payload for anonymous point reads. Only
// anonymous responses are cached so an entry can never carry one
// subject's view of an entity to another.
func (s *Server) cachedGet(r *http.Request, keyType string, sub auth.Subject, id int64) ([]byte, bool) {
	if s.cache == nil || !sub.IsAnonymous() {
		return nil, false
	}
	return s.cache.Get(r.Context(), keyType, cacheKey(keyType, id))
}

// cachePut stores an anonymous point-read payload.
func (s *Server) cachePut(r *http.Request, keyType string, sub auth.Subject, id int64, v interface{}) {
	if s.cache == nil || !sub.IsAnonymous() {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.cache.Set(r.Context(), keyType, cacheKey(keyType, id), payload)
}

// cacheInvalidate drops the anonymous payload for an entity after a
// mutation touches it.
func (s *Server) cacheInvalidate(ctx context.Context, keyType string, id int64) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, cacheKey(keyType, id))
}

// cacheKey builds the anonymous-view key for an entity. Subject id zero
// is the anonymous scope.
func cacheKey(keyType string, id int64) string {
	return cache.Key(keyType, 0, id)
}
