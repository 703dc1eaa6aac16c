package moderation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/folioworks/folio/pkg/model"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Records is the append-only audit trail of moderation actions. Rows are
// never updated or deleted.
type Records struct {
	db *sql.DB
}

// NewRecords creates the audit record store.
func NewRecords(db *sql.DB) *Records {
	return &Records{db: db}
}

// append inserts an audit record inside the caller's transaction.
func (r *Records) append(ctx context.Context, q Querier, rec *model.ModerationRecord) error {
	query := `
		INSERT INTO moderation_records (target_type, target_id, action, actor_id, reason, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := q.QueryRowContext(ctx, query,
		rec.TargetType, rec.TargetID, rec.Action, rec.ActorID, rec.Reason, rec.RequestID, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to append moderation record: %w", err)
	}
	return nil
}

// ListForTarget returns the full audit history for a target, newest
// first.
func (r *Records) ListForTarget(ctx context.Context, targetType model.EntityType, targetID int64) ([]*model.ModerationRecord, error) {
	query := `
		SELECT id, target_type, target_id, action, actor_id, reason, request_id, created_at
		FROM moderation_records
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list moderation records: %w", err)
	}
	defer rows.Close()

	var out []*model.ModerationRecord
	for rows.Next() {
		rec := &model.ModerationRecord{}
		var requestID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.TargetType, &rec.TargetID, &rec.Action, &rec.ActorID, &rec.Reason, &requestID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan moderation record: %w", err)
		}
		if requestID.Valid {
			rec.RequestID = requestID.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
