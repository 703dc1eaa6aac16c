package consistency

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/store"
)

// Querier is satisfied by *sql.DB and *sql.Tx so recomputation can run
// inside the mutating transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Engine keeps denormalized aggregates equal to a pure function of their
// authoritative child records. Every mutation recomputes from scratch;
// nothing is incrementally patched, so duplicate or out-of-order triggers
// converge on the same value.
//
// Trigger sites are explicit: CastVote and RemoveVote are the only vote
// mutations, and each one recomputes synchronously before returning.
type Engine struct {
	db      *sql.DB
	store   *store.Store
	metrics *observability.Metrics
}

// NewEngine creates a consistency engine. metrics may be nil.
func NewEngine(db *sql.DB, metrics *observability.Metrics) *Engine {
	return &Engine{
		db:      db,
		store:   store.New(db),
		metrics: metrics,
	}
}

// CastVote records a vote on a document or message and synchronously
// recomputes the target's counters and the owner's reputation. A second
// vote on the same target by the same voter returns model.ErrConflict.
func (e *Engine) CastVote(ctx context.Context, sub auth.Subject, targetType model.EntityType, targetID int64, value model.VoteValue) (*model.Vote, error) {
	if sub.IsAnonymous() {
		return nil, model.ErrPermissionDenied
	}
	if value != model.Upvote && value != model.Downvote {
		return nil, model.ValidationError("vote value must be +1 or -1")
	}

	owner, corpusID, err := e.resolveTarget(ctx, sub, targetType, targetID)
	if err != nil {
		return nil, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	vote := &model.Vote{
		VoterID:    sub.ProfileID,
		TargetType: targetType,
		TargetID:   targetID,
		Value:      value,
		CreatedAt:  time.Now(),
	}

	insert := `
		INSERT INTO votes (voter_id, target_type, target_id, value, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insert, vote.VoterID, vote.TargetType, vote.TargetID, int(vote.Value), vote.CreatedAt).Scan(&vote.ID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: already voted on this target", model.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}

	if err := e.recomputeAll(ctx, tx, targetType, targetID, owner, corpusID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}
	return vote, nil
}

// RemoveVote deletes the subject's vote on a target and synchronously
// recomputes. Removing a vote that does not exist returns
// model.ErrNotFound.
func (e *Engine) RemoveVote(ctx context.Context, sub auth.Subject, targetType model.EntityType, targetID int64) error {
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}

	owner, corpusID, err := e.resolveTarget(ctx, sub, targetType, targetID)
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM votes WHERE voter_id = $1 AND target_type = $2 AND target_id = $3`,
		sub.ProfileID, targetType, targetID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return model.ErrNotFound
	}

	if err := e.recomputeAll(ctx, tx, targetType, targetID, owner, corpusID); err != nil {
		return err
	}

	return tx.Commit()
}

// RecomputeTarget rewrites the target's vote counters from the votes
// table. Idempotent: with no intervening child mutation, repeated calls
// produce the same aggregate.
func (e *Engine) RecomputeTarget(ctx context.Context, q Querier, targetType model.EntityType, targetID int64) error {
	start := time.Now()

	var table string
	switch targetType {
	case model.EntityDocument:
		table = "documents"
	case model.EntityMessage:
		table = "messages"
	default:
		return model.ValidationError("unvotable target type %q", targetType)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			upvote_count = (SELECT COUNT(*) FROM votes v WHERE v.target_type = $1 AND v.target_id = %s.id AND v.value = 1),
			downvote_count = (SELECT COUNT(*) FROM votes v WHERE v.target_type = $2 AND v.target_id = %s.id AND v.value = -1),
			vote_score = (SELECT COALESCE(SUM(v.value), 0) FROM votes v WHERE v.target_type = $3 AND v.target_id = %s.id)
		WHERE id = $4
	`, table, table, table, table)

	if _, err := q.ExecContext(ctx, query, targetType, targetType, targetType, targetID); err != nil {
		return fmt.Errorf("failed to recompute %s counters: %w", targetType, err)
	}

	if e.metrics != nil {
		e.metrics.RecomputeTotal.WithLabelValues(string(targetType)).Inc()
		e.metrics.RecomputeDuration.WithLabelValues(string(targetType)).Observe(time.Since(start).Seconds())
	}
	return nil
}

// RecomputeReputation rewrites a profile's reputation from scratch: the
// sum of vote values across every non-deleted record the profile owns,
// globally and within the given corpus when one is named. Global
// reputation lives on the profile row; per-corpus scores live in
// reputation_scores.
func (e *Engine) RecomputeReputation(ctx context.Context, q Querier, profileID int64, corpusID *int64) error {
	start := time.Now()

	globalQuery := `
		UPDATE profiles SET reputation =
			(SELECT COALESCE(SUM(v.value), 0)
			 FROM votes v JOIN documents d ON d.id = v.target_id
			 WHERE v.target_type = 'document' AND d.creator_id = profiles.id AND d.deleted_at IS NULL)
			+
			(SELECT COALESCE(SUM(v.value), 0)
			 FROM votes v JOIN messages m ON m.id = v.target_id
			 WHERE v.target_type = 'message' AND m.author_id = profiles.id AND m.deleted_at IS NULL)
		WHERE id = $1
	`
	if _, err := q.ExecContext(ctx, globalQuery, profileID); err != nil {
		return fmt.Errorf("failed to recompute global reputation: %w", err)
	}

	if corpusID != nil {
		scopedScore := `
			SELECT
				(SELECT COALESCE(SUM(v.value), 0)
				 FROM votes v JOIN documents d ON d.id = v.target_id
				 WHERE v.target_type = 'document' AND d.creator_id = $1 AND d.corpus_id = $2 AND d.deleted_at IS NULL)
				+
				(SELECT COALESCE(SUM(v.value), 0)
				 FROM votes v
				 JOIN messages m ON m.id = v.target_id
				 JOIN conversations cv ON cv.id = m.conversation_id
				 WHERE v.target_type = 'message' AND m.author_id = $3 AND cv.corpus_id = $4 AND m.deleted_at IS NULL)
		`
		var score int64
		if err := q.QueryRowContext(ctx, scopedScore, profileID, *corpusID, profileID, *corpusID).Scan(&score); err != nil {
			return fmt.Errorf("failed to compute corpus reputation: %w", err)
		}

		upsert := `
			INSERT INTO reputation_scores (profile_id, corpus_id, score, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (profile_id, corpus_id) DO UPDATE SET score = $5, updated_at = $6
		`
		now := time.Now()
		if _, err := q.ExecContext(ctx, upsert, profileID, *corpusID, score, now, score, now); err != nil {
			return fmt.Errorf("failed to upsert corpus reputation: %w", err)
		}
	}

	if e.metrics != nil {
		e.metrics.RecomputeTotal.WithLabelValues("reputation").Inc()
		e.metrics.RecomputeDuration.WithLabelValues("reputation").Observe(time.Since(start).Seconds())
	}
	return nil
}

// Reputation reads a profile's reputation for a scope.
func (e *Engine) Reputation(ctx context.Context, profileID int64, corpusID *int64) (int64, error) {
	var score int64
	var err error
	if corpusID == nil {
		err = e.db.QueryRowContext(ctx, `SELECT reputation FROM profiles WHERE id = $1`, profileID).Scan(&score)
	} else {
		err = e.db.QueryRowContext(ctx,
			`SELECT COALESCE((SELECT score FROM reputation_scores WHERE profile_id = $1 AND corpus_id = $2), 0)`,
			profileID, *corpusID,
		).Scan(&score)
	}
	if err == sql.ErrNoRows {
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read reputation: %w", err)
	}
	return score, nil
}

// resolveTarget authorizes the read of the vote target and returns its
// owner and corpus. Invisible targets report not found.
func (e *Engine) resolveTarget(ctx context.Context, sub auth.Subject, targetType model.EntityType, targetID int64) (ownerID int64, corpusID int64, err error) {
	switch targetType {
	case model.EntityDocument:
		doc, err := e.store.GetDocument(ctx, sub, targetID, false)
		if err != nil {
			return 0, 0, err
		}
		return doc.CreatorID, doc.CorpusID, nil
	case model.EntityMessage:
		msg, err := e.store.GetMessage(ctx, sub, targetID, false)
		if err != nil {
			return 0, 0, err
		}
		conv, err := e.store.GetConversation(ctx, sub, msg.ConversationID, true)
		if err != nil {
			return 0, 0, err
		}
		return msg.AuthorID, conv.CorpusID, nil
	default:
		return 0, 0, model.ValidationError("unvotable target type %q", targetType)
	}
}

func (e *Engine) recomputeAll(ctx context.Context, q Querier, targetType model.EntityType, targetID, ownerID, corpusID int64) error {
	if err := e.RecomputeTarget(ctx, q, targetType, targetID); err != nil {
		return err
	}
	return e.RecomputeReputation(ctx, q, ownerID, &corpusID)
}
