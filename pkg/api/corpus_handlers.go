package api

import (
	"net/http"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/httputil"
	"github.com/folioworks/folio/pkg/model"
)

// createCorpus handles POST /api/v1/corpora.
func (s *Server) createCorpus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		IsPublic    bool   `json:"is_public"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	corpus := &model.Corpus{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := s.store.CreateCorpus(r.Context(), sub, corpus); err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, corpus)
}

// listCorpora handles GET /api/v1/corpora.
func (s *Server) listCorpora(w http.ResponseWriter, r *http.Request) {
	sub := auth.SubjectFrom(r.Context())
	corpora, err := s.store.ListCorpora(r.Context(), sub, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, corpora)
}

// getCorpus handles GET /api/v1/corpora/{id}.
func (s *Server) getCorpus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	if payload, ok := s.cachedGet(r, "corpus", sub, id); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
		return
	}

	corpus, err := s.store.GetCorpus(r.Context(), sub, id, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cachePut(r, "corpus", sub, id, corpus)
	httputil.WriteSuccess(w, corpus)
}

// createDocument handles POST /api/v1/corpora/{id}/documents.
func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	corpusID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Title    string `json:"title"`
		Body     string `json:"body"`
		IsPublic bool   `json:"is_public"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	sub := auth.SubjectFrom(r.Context())
	doc := &model.Document{
		CorpusID: corpusID,
		Title:    req.Title,
		Body:     req.Body,
		IsPublic: req.IsPublic,
	}
	if err := s.store.CreateDocument(r.Context(), sub, doc); err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, doc)
}

// listDocuments handles GET /api/v1/corpora/{id}/documents.
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	corpusID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	docs, err := s.store.ListDocuments(r.Context(), sub, corpusID, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, docs)
}

// getDocument handles GET /api/v1/documents/{id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	sub := auth.SubjectFrom(r.Context())

	if payload, ok := s.cachedGet(r, "document", sub, id); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
		return
	}

	doc, err := s.store.GetDocument(r.Context(), sub, id, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cachePut(r, "document", sub, id, doc)
	httputil.WriteSuccess(w, doc)
}
