package api

import (
	"net/http"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/httputil"
)

// listNotifications handles GET /api/v1/notifications. Listing is
// recipient-scoped through the resolver, so the handler never names a
// recipient id.
func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseQueryInt(r, "limit", 50)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	sub := auth.SubjectFrom(r.Context())
	list, err := s.notifier.ListForRecipient(r.Context(), sub, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// markNotificationRead handles POST /api/v1/notifications/{id}/read.
func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	if err := s.notifier.MarkRead(r.Context(), sub, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
