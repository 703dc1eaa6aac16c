package criteria

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/observability"
)

// Evaluator answers whether a profile currently satisfies a badge's
// criteria. Evaluation always reads live aggregates: satisfaction is
// not sticky, a profile that later falls below a threshold no longer
// satisfies the criteria (existing awards are unaffected).
type Evaluator struct {
	db       *sql.DB
	registry *Registry
	metrics  *observability.Metrics
}

// NewEvaluator creates an evaluator. metrics may be nil.
func NewEvaluator(db *sql.DB, registry *Registry, metrics *observability.Metrics) *Evaluator {
	return &Evaluator{db: db, registry: registry, metrics: metrics}
}

// Satisfied evaluates the badge's criteria for a profile. The
// configuration is re-validated first, so a badge whose stored config
// has rotted (for example after a registry change) fails with a
// validation error rather than evaluating garbage.
func (e *Evaluator) Satisfied(ctx context.Context, badge *model.Badge, profileID int64) (bool, error) {
	if err := e.registry.Validate(badge.CriteriaType, configAsInterface(badge.CriteriaConfig)); err != nil {
		return false, err
	}

	var ok bool
	var err error
	switch badge.CriteriaType {
	case TypeMessageCount:
		ok, err = e.messageCount(ctx, badge, profileID)
	case TypeReputation:
		ok, err = e.reputation(ctx, badge, profileID)
	case TypeFirstDocument:
		ok, err = e.firstDocument(ctx, badge, profileID)
	default:
		return false, model.ValidationError("unknown criteria type %q", badge.CriteriaType)
	}
	if err != nil {
		return false, err
	}

	if e.metrics != nil {
		result := "unsatisfied"
		if ok {
			result = "satisfied"
		}
		e.metrics.CriteriaEvaluationsTotal.WithLabelValues(badge.CriteriaType, result).Inc()
	}
	return ok, nil
}

func (e *Evaluator) messageCount(ctx context.Context, badge *model.Badge, profileID int64) (bool, error) {
	threshold, err := configNumber(badge.CriteriaConfig, "value")
	if err != nil {
		return false, err
	}

	includeDeleted := configBool(badge.CriteriaConfig, "include_deleted")

	var count int64
	if badge.CorpusID != nil {
		query := `
			SELECT COUNT(*)
			FROM messages m JOIN conversations cv ON cv.id = m.conversation_id
			WHERE m.author_id = $1 AND cv.corpus_id = $2
		`
		if !includeDeleted {
			query += ` AND m.deleted_at IS NULL`
		}
		err = e.db.QueryRowContext(ctx, query, profileID, *badge.CorpusID).Scan(&count)
	} else {
		query := `SELECT COUNT(*) FROM messages WHERE author_id = $1`
		if !includeDeleted {
			query += ` AND deleted_at IS NULL`
		}
		err = e.db.QueryRowContext(ctx, query, profileID).Scan(&count)
	}
	if err != nil {
		return false, fmt.Errorf("failed to count messages: %w", err)
	}
	return float64(count) >= threshold, nil
}

func (e *Evaluator) reputation(ctx context.Context, badge *model.Badge, profileID int64) (bool, error) {
	threshold, err := configNumber(badge.CriteriaConfig, "value")
	if err != nil {
		return false, err
	}

	var score int64
	if badge.CorpusID != nil {
		query := `SELECT COALESCE((SELECT score FROM reputation_scores WHERE profile_id = $1 AND corpus_id = $2), 0)`
		err = e.db.QueryRowContext(ctx, query, profileID, *badge.CorpusID).Scan(&score)
	} else {
		query := `SELECT reputation FROM profiles WHERE id = $1`
		err = e.db.QueryRowContext(ctx, query, profileID).Scan(&score)
	}
	if err == sql.ErrNoRows {
		return false, model.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read reputation: %w", err)
	}
	if configText(badge.CriteriaConfig, "comparison", "at_least") == "above" {
		return float64(score) > threshold, nil
	}
	return float64(score) >= threshold, nil
}

func (e *Evaluator) firstDocument(ctx context.Context, badge *model.Badge, profileID int64) (bool, error) {
	var exists bool
	var err error
	if badge.CorpusID != nil {
		query := `SELECT EXISTS (SELECT 1 FROM documents WHERE creator_id = $1 AND corpus_id = $2 AND deleted_at IS NULL)`
		err = e.db.QueryRowContext(ctx, query, profileID, *badge.CorpusID).Scan(&exists)
	} else {
		query := `SELECT EXISTS (SELECT 1 FROM documents WHERE creator_id = $1 AND deleted_at IS NULL)`
		err = e.db.QueryRowContext(ctx, query, profileID).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check documents: %w", err)
	}
	return exists, nil
}

func configAsInterface(config map[string]interface{}) interface{} {
	if config == nil {
		return nil
	}
	return config
}

func configBool(config map[string]interface{}, key string) bool {
	v, _ := config[key].(bool)
	return v
}

func configText(config map[string]interface{}, key, fallback string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return fallback
}

func configNumber(config map[string]interface{}, key string) (float64, error) {
	raw, ok := config[key]
	if !ok {
		return 0, model.ValidationError("missing required field %q", key)
	}
	v, err := asNumber(raw)
	if err != nil {
		return 0, model.ValidationError("field %q must be a number", key)
	}
	return v, nil
}
