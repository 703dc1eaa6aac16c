package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/folioworks/folio/pkg/awards"
	"github.com/folioworks/folio/pkg/cache"
	"github.com/folioworks/folio/pkg/consistency"
	"github.com/folioworks/folio/pkg/criteria"
	"github.com/folioworks/folio/pkg/grants"
	"github.com/folioworks/folio/pkg/middleware"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/moderation"
	"github.com/folioworks/folio/pkg/notify"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/store"
)

// Deps carries the engine components the HTTP surface exposes.
type Deps struct {
	DB         *sql.DB
	Store      *store.Store
	Grants     *grants.Store
	Engine     *consistency.Engine
	Moderation *moderation.Machine
	Awards     *awards.Service
	Registry   *criteria.Registry
	Notifier   *notify.Recorder
	Cache      *cache.TwoTier
	Metrics    *observability.Metrics
	Logger     *logrus.Logger

	// RateLimiter throttles write requests when set.
	RateLimiter *middleware.WriteLimiter
}

// Server is the HTTP front for the visibility engine. Handlers stay
// thin: parse, hand off to the engine with the resolved subject, map
// the error taxonomy to status codes.
type Server struct {
	router     *mux.Router
	db         *sql.DB
	store      *store.Store
	grants     *grants.Store
	engine     *consistency.Engine
	moderation *moderation.Machine
	awards     *awards.Service
	registry   *criteria.Registry
	notifier   *notify.Recorder
	cache      *cache.TwoTier
	metrics    *observability.Metrics
	logger     *logrus.Logger
}

// NewServer creates the API server and wires all routes.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		router:     mux.NewRouter(),
		db:         deps.DB,
		store:      deps.Store,
		grants:     deps.Grants,
		engine:     deps.Engine,
		moderation: deps.Moderation,
		awards:     deps.Awards,
		registry:   deps.Registry,
		notifier:   deps.Notifier,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
	}

	s.router.Use(requestIDMiddleware)
	s.router.Use(s.actorMiddleware)
	if deps.RateLimiter != nil {
		s.router.Use(deps.RateLimiter.Handler)
	}
	s.router.Use(loggingMiddleware(logger))
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes.
func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	// Profiles
	v1.HandleFunc("/profiles", s.createProfile).Methods("POST")
	v1.HandleFunc("/profiles", s.listProfiles).Methods("GET")
	v1.HandleFunc("/profiles/{id:[0-9]+}", s.getProfile).Methods("GET")
	v1.HandleFunc("/profiles/{id:[0-9]+}/deactivate", s.deactivateProfile).Methods("POST")
	v1.HandleFunc("/profiles/{id:[0-9]+}/reputation", s.getReputation).Methods("GET")
	v1.HandleFunc("/profiles/{id:[0-9]+}/awards", s.listProfileAwards).Methods("GET")

	// Corpora and documents
	v1.HandleFunc("/corpora", s.createCorpus).Methods("POST")
	v1.HandleFunc("/corpora", s.listCorpora).Methods("GET")
	v1.HandleFunc("/corpora/{id:[0-9]+}", s.getCorpus).Methods("GET")
	v1.HandleFunc("/corpora/{id:[0-9]+}/documents", s.createDocument).Methods("POST")
	v1.HandleFunc("/corpora/{id:[0-9]+}/documents", s.listDocuments).Methods("GET")
	v1.HandleFunc("/documents/{id:[0-9]+}", s.getDocument).Methods("GET")

	// Conversations and messages
	v1.HandleFunc("/corpora/{id:[0-9]+}/conversations", s.createConversation).Methods("POST")
	v1.HandleFunc("/corpora/{id:[0-9]+}/conversations", s.listConversations).Methods("GET")
	v1.HandleFunc("/conversations/{id:[0-9]+}", s.getConversation).Methods("GET")
	v1.HandleFunc("/conversations/{id:[0-9]+}/messages", s.postMessage).Methods("POST")
	v1.HandleFunc("/conversations/{id:[0-9]+}/messages", s.listMessages).Methods("GET")
	v1.HandleFunc("/messages/{id:[0-9]+}", s.getMessage).Methods("GET")

	// Votes
	v1.HandleFunc("/votes", s.castVote).Methods("POST")
	v1.HandleFunc("/votes", s.removeVote).Methods("DELETE")

	// Moderation
	v1.HandleFunc("/moderation", s.applyModeration).Methods("POST")
	v1.HandleFunc("/moderation/{target_type}/{id:[0-9]+}/records", s.listModerationRecords).Methods("GET")

	// Notifications
	v1.HandleFunc("/notifications", s.listNotifications).Methods("GET")
	v1.HandleFunc("/notifications/{id:[0-9]+}/read", s.markNotificationRead).Methods("POST")

	// Badges, criteria and awards
	v1.HandleFunc("/badges", s.createBadge).Methods("POST")
	v1.HandleFunc("/badges", s.listBadges).Methods("GET")
	v1.HandleFunc("/badges/{id:[0-9]+}", s.getBadge).Methods("GET")
	v1.HandleFunc("/criteria", s.listCriteria).Methods("GET")
	v1.HandleFunc("/awards", s.grantAward).Methods("POST")
	v1.HandleFunc("/awards/{id:[0-9]+}", s.revokeAward).Methods("DELETE")

	// Grants and groups
	v1.HandleFunc("/grants", s.createGrant).Methods("POST")
	v1.HandleFunc("/grants", s.revokeGrant).Methods("DELETE")
	v1.HandleFunc("/grants/{object_type}/{id:[0-9]+}", s.listGrants).Methods("GET")
	v1.HandleFunc("/groups", s.createGroup).Methods("POST")
	v1.HandleFunc("/groups/{id:[0-9]+}/members", s.addGroupMember).Methods("POST")
	v1.HandleFunc("/groups/{id:[0-9]+}/members/{profile_id:[0-9]+}", s.removeGroupMember).Methods("DELETE")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// writeError maps engine errors to responses and logs server faults.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, model.ErrNotFound) &&
		!errors.Is(err, model.ErrPermissionDenied) &&
		!errors.Is(err, model.ErrValidation) &&
		!errors.Is(err, model.ErrConflict) {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	writeEngineError(w, err)
}

// parseEntityType validates a target/object type path or body value.
func parseEntityType(raw string) (model.EntityType, error) {
	switch et := model.EntityType(raw); et {
	case model.EntityProfile, model.EntityCorpus, model.EntityDocument,
		model.EntityConversation, model.EntityMessage, model.EntityBadge,
		model.EntityNotification:
		return et, nil
	}
	return "", model.ValidationError("unknown entity type %q", raw)
}
