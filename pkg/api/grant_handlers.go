package api

import (
	"net/http"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/grants"
	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/model"
)

// createGrant handles POST /api/v1/grants. Sharing decisions rest with
// the object's owner: only the owner or a superuser may grant.
func (s *Server) createGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID  *int64 `json:"subject_id"`
		GroupID    *int64 `json:"group_id"`
		ObjectType string `json:"object_type"`
		ObjectID   int64  `json:"object_id"`
		Capability string `json:"capability"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ObjectType, "object_type") {
		return
	}
	if !httputil.RequirePositive(w, req.ObjectID, "object_id") {
		return
	}

	objectType, err := parseEntityType(req.ObjectType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.requireGrantAuthority(r, sub, objectType, req.ObjectID); err != nil {
		s.writeError(w, r, err)
		return
	}

	grant := &grants.Grant{
		SubjectID:  req.SubjectID,
		GroupID:    req.GroupID,
		ObjectType: objectType,
		ObjectID:   req.ObjectID,
		Capability: grants.Capability(req.Capability),
	}
	if !sub.IsAnonymous() {
		grantedBy := sub.ProfileID
		grant.GrantedBy = &grantedBy
	}

	if err := s.grants.CreateGrant(r.Context(), grant); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, grant)
}

// revokeGrant handles DELETE /api/v1/grants.
func (s *Server) revokeGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID  *int64 `json:"subject_id"`
		GroupID    *int64 `json:"group_id"`
		ObjectType string `json:"object_type"`
		ObjectID   int64  `json:"object_id"`
		Capability string `json:"capability"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ObjectType, "object_type") {
		return
	}
	if !httputil.RequirePositive(w, req.ObjectID, "object_id") {
		return
	}

	objectType, err := parseEntityType(req.ObjectType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.requireGrantAuthority(r, sub, objectType, req.ObjectID); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.grants.RevokeGrant(r.Context(), req.SubjectID, req.GroupID, objectType, req.ObjectID, grants.Capability(req.Capability)); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// listGrants handles GET /api/v1/grants/{object_type}/{id}.
func (s *Server) listGrants(w http.ResponseWriter, r *http.Request) {
	vars := httputil.GetPathVars(r)
	objectType, err := parseEntityType(vars["object_type"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.requireGrantAuthority(r, sub, objectType, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.grants.ListGrantsForObject(r.Context(), objectType, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// requireGrantAuthority allows superusers and the object's owner to
// manage grants on it. The owner lookup goes through the gateway, so a
// subject that cannot see the object learns nothing from the error.
func (s *Server) requireGrantAuthority(r *http.Request, sub auth.Subject, objectType model.EntityType, objectID int64) error {
	if sub.IsSuperuser() {
		return nil
	}
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}

	ctx := r.Context()
	var ownerID int64
	switch objectType {
	case model.EntityProfile:
		ownerID = objectID
	case model.EntityCorpus:
		corpus, err := s.store.GetCorpus(ctx, sub, objectID, true)
		if err != nil {
			return err
		}
		ownerID = corpus.CreatorID
	case model.EntityDocument:
		doc, err := s.store.GetDocument(ctx, sub, objectID, true)
		if err != nil {
			return err
		}
		ownerID = doc.CreatorID
	case model.EntityConversation:
		conv, err := s.store.GetConversation(ctx, sub, objectID, true)
		if err != nil {
			return err
		}
		ownerID = conv.CreatorID
	case model.EntityMessage:
		msg, err := s.store.GetMessage(ctx, sub, objectID, true)
		if err != nil {
			return err
		}
		ownerID = msg.AuthorID
	case model.EntityBadge:
		badge, err := s.store.GetBadge(ctx, sub, objectID)
		if err != nil {
			return err
		}
		ownerID = badge.CreatorID
	default:
		return model.ValidationError("grants do not apply to %s objects", objectType)
	}

	if ownerID != sub.ProfileID {
		return model.ErrPermissionDenied
	}
	return nil
}

// createGroup handles POST /api/v1/groups.
func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if sub.IsAnonymous() {
		s.writeError(w, r, model.ErrPermissionDenied)
		return
	}

	group := &grants.Group{Name: req.Name, CreatorID: sub.ProfileID}
	if err := s.grants.CreateGroup(r.Context(), group); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, group)
}

// addGroupMember handles POST /api/v1/groups/{id}/members.
func (s *Server) addGroupMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		ProfileID int64 `json:"profile_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.ProfileID, "profile_id") {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.requireGroupAuthority(r, sub, groupID); err != nil {
		s.writeError(w, r, err)
		return
	}

	member := &grants.GroupMember{GroupID: groupID, ProfileID: req.ProfileID}
	if !sub.IsAnonymous() {
		addedBy := sub.ProfileID
		member.AddedBy = &addedBy
	}
	if err := s.grants.AddGroupMember(r.Context(), member); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, member)
}

// removeGroupMember handles DELETE /api/v1/groups/{id}/members/{profile_id}.
func (s *Server) removeGroupMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	profileID, ok := httputil.ParsePathInt64OrError(w, r, "profile_id")
	if !ok {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.requireGroupAuthority(r, sub, groupID); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.grants.RemoveGroupMember(r.Context(), groupID, profileID); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// requireGroupAuthority allows superusers and the group's creator to
// manage membership.
func (s *Server) requireGroupAuthority(r *http.Request, sub auth.Subject, groupID int64) error {
	if sub.IsSuperuser() {
		return nil
	}
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}

	group, err := s.grants.GetGroup(r.Context(), groupID)
	if err != nil {
		return err
	}
	if group.CreatorID != sub.ProfileID {
		return model.ErrPermissionDenied
	}
	return nil
}
