package api

import (
	"net/http"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/model"
)

// createConversation handles POST /api/v1/corpora/{id}/conversations.
func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	corpusID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Topic    string `json:"topic"`
		IsPublic bool   `json:"is_public"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Topic, "topic") {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	conv := &model.Conversation{
		CorpusID: corpusID,
		Topic:    req.Topic,
		IsPublic: req.IsPublic,
	}
	if err := s.store.CreateConversation(r.Context(), sub, conv); err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, conv)
}

// listConversations handles GET /api/v1/corpora/{id}/conversations.
func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	corpusID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	convs, err := s.store.ListConversations(r.Context(), sub, corpusID, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, convs)
}

// getConversation handles GET /api/v1/conversations/{id}.
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	conv, err := s.store.GetConversation(r.Context(), sub, id, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, conv)
}

// postMessage handles POST /api/v1/conversations/{id}/messages. Posting
// into a locked conversation is rejected by the store.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Body, "body") {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	msg := &model.Message{
		ConversationID: conversationID,
		Body:           req.Body,
	}
	if err := s.store.PostMessage(r.Context(), sub, msg); err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, msg)
}

// listMessages handles GET /api/v1/conversations/{id}/messages.
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	msgs, err := s.store.ListMessages(r.Context(), sub, conversationID, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, msgs)
}

// getMessage handles GET /api/v1/messages/{id}.
func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	msg, err := s.store.GetMessage(r.Context(), sub, id, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, msg)
}
