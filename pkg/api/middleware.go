package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/httputil"
)

// Header names for the identity resolved by the upstream gateway. The
// engine never authenticates; it trusts the ingress to have already
// verified credentials and hands the engine a resolved profile id.
const (
	HeaderProfileID = "X-Folio-Profile-ID"
	HeaderSubject   = "X-Folio-Subject"
	HeaderRequestID = "X-Request-ID"
)

// actorMiddleware resolves the request's subject from the identity
// headers. Requests without identity headers proceed as anonymous.
// A profile id that does not resolve to an active profile is rejected
// rather than silently downgraded, so a stale session cannot masquerade
// as an anonymous reader.
func (s *Server) actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderProfileID)
		if raw == "" {
			ctx := auth.WithSubject(r.Context(), auth.Anonymous())
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		profileID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || profileID <= 0 {
			httputil.WriteUnauthorized(w, "invalid profile identity")
			return
		}

		var username string
		var deactivated bool
		query := `SELECT username, deactivated FROM profiles WHERE id = $1`
		err = s.db.QueryRowContext(r.Context(), query, profileID).Scan(&username, &deactivated)
		if err == sql.ErrNoRows || (err == nil && deactivated) {
			httputil.WriteUnauthorized(w, "unknown or deactivated profile")
			return
		}
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}

		sub := auth.User(profileID, username)
		if r.Header.Get(HeaderSubject) == string(auth.KindSuperuser) {
			sub = auth.Superuser(profileID, username)
		}

		ctx := auth.WithSubject(r.Context(), sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDMiddleware attaches a correlation id to the request and
// echoes it on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware emits one structured log line per request.
func loggingMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			sub := auth.SubjectFrom(r.Context())
			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start).String(),
				"subject":    string(sub.Kind),
				"profile_id": sub.ProfileID,
				"request_id": w.Header().Get(HeaderRequestID),
			}).Info("request handled")
		})
	}
}
