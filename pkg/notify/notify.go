package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/visibility"
)

// Notifier delivers a notification to its recipient. Implementations
// must not fail the caller's business operation on delivery errors;
// callers treat Notify failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

// Recorder persists notifications to the database.
type Recorder struct {
	db       *sql.DB
	resolver *visibility.Resolver
	metrics  *observability.Metrics
}

// NewRecorder creates a database-backed notifier. metrics may be nil.
func NewRecorder(db *sql.DB, metrics *observability.Metrics) *Recorder {
	return &Recorder{
		db:       db,
		resolver: visibility.NewResolver(),
		metrics:  metrics,
	}
}

// Notify inserts the notification row.
func (r *Recorder) Notify(ctx context.Context, n *model.Notification) error {
	if n.RecipientID == 0 {
		return model.ValidationError("notification requires a recipient")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO notifications (recipient_id, kind, actor_id, target_type, target_id, message, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		n.RecipientID, n.Kind, n.ActorID, n.TargetType, n.TargetID, n.Message, n.RequestID, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	if r.metrics != nil {
		r.metrics.NotificationsTotal.WithLabelValues(string(n.Kind)).Inc()
	}
	return nil
}

// ListForRecipient returns the subject's own notifications, newest
// first. Other subjects' notifications are never visible.
func (r *Recorder) ListForRecipient(ctx context.Context, sub auth.Subject, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	args := &visibility.Args{}
	cond := r.resolver.Visible(sub, model.EntityNotification)(args)
	query := fmt.Sprintf(`
		SELECT id, recipient_id, kind, actor_id, target_type, target_id, message, request_id, read_at, created_at
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT %s
	`, cond, args.Add(limit))

	rows, err := r.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		var actorID sql.NullInt64
		var targetType, requestID sql.NullString
		var targetID sql.NullInt64
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &actorID, &targetType, &targetID, &n.Message, &requestID, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if actorID.Valid {
			n.ActorID = &actorID.Int64
		}
		if targetType.Valid {
			n.TargetType = model.EntityType(targetType.String)
		}
		if targetID.Valid {
			n.TargetID = targetID.Int64
		}
		if requestID.Valid {
			n.RequestID = requestID.String
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead stamps the subject's own notification as read. Unknown or
// foreign notifications report not found.
func (r *Recorder) MarkRead(ctx context.Context, sub auth.Subject, id int64) error {
	if sub.IsAnonymous() {
		return model.ErrNotFound
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = $1 WHERE id = $2 AND recipient_id = $3 AND read_at IS NULL`,
		time.Now(), id, sub.ProfileID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Noop discards notifications. Used in tests and in tools that mutate
// state without fanning out to users.
type Noop struct{}

func (Noop) Notify(ctx context.Context, n *model.Notification) error { return nil }
