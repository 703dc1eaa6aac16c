package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/visibility"
)

const badgeColumns = `badges.id, badges.name, badges.description, badges.creator_id, badges.corpus_id, badges.is_public, badges.auto_award, badges.criteria_type, badges.criteria_config, badges.created_at`

// CreateBadge persists a badge definition. Corpus-scoped badges require
// contribution rights on the corpus. Auto-award badges must carry a
// criteria type; its configuration is validated by the awards service
// before this is called and re-validated at evaluation time.
func (s *Store) CreateBadge(ctx context.Context, sub auth.Subject, badge *model.Badge) error {
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}
	if badge.AutoAward && badge.CriteriaType == "" {
		return model.ValidationError("auto-awarded badges must have criteria configuration")
	}
	if badge.CorpusID != nil {
		if err := s.requireContribution(ctx, sub, *badge.CorpusID); err != nil {
			return err
		}
	}
	badge.CreatorID = sub.ProfileID

	var configJSON []byte
	if badge.CriteriaConfig != nil {
		var err error
		configJSON, err = json.Marshal(badge.CriteriaConfig)
		if err != nil {
			return fmt.Errorf("failed to marshal criteria config: %w", err)
		}
	}

	query := `
		INSERT INTO badges (name, description, creator_id, corpus_id, is_public, auto_award, criteria_type, criteria_config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		badge.Name, badge.Description, badge.CreatorID, badge.CorpusID, badge.IsPublic,
		badge.AutoAward, badge.CriteriaType, nullableString(configJSON), now,
	).Scan(&badge.ID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: badge name already in use", model.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create badge: %w", err)
	}

	badge.CreatedAt = now
	return nil
}

// GetBadge resolves a badge through the safe lookup gateway.
func (s *Store) GetBadge(ctx context.Context, sub auth.Subject, id int64) (*model.Badge, error) {
	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("badges.id = %s", args.Add(id))}
	conds = append(conds, s.resolver.Visible(sub, model.EntityBadge)(args))

	query := `SELECT ` + badgeColumns + ` FROM badges WHERE ` + strings.Join(conds, " AND ")

	b, err := scanBadge(s.db.QueryRowContext(ctx, query, args.Values()...))
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	return b, nil
}

// ListBadges returns the badges visible to the subject.
func (s *Store) ListBadges(ctx context.Context, sub auth.Subject) ([]*model.Badge, error) {
	args := &visibility.Args{}
	where := s.resolver.Visible(sub, model.EntityBadge)(args)

	query := `SELECT ` + badgeColumns + ` FROM badges WHERE ` + where + ` ORDER BY badges.name ASC`

	rows, err := s.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var out []*model.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListAutoAwardBadges returns every auto-awarded badge definition. Used
// by the population sweep, which runs unscoped.
func (s *Store) ListAutoAwardBadges(ctx context.Context) ([]*model.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE badges.auto_award = TRUE ORDER BY badges.id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-award badges: %w", err)
	}
	defer rows.Close()

	var out []*model.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBadge(row rowScanner) (*model.Badge, error) {
	var b model.Badge
	var corpusID sql.NullInt64
	var criteriaType sql.NullString
	var configJSON sql.NullString
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.CreatorID, &corpusID, &b.IsPublic, &b.AutoAward, &criteriaType, &configJSON, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if corpusID.Valid {
		id := corpusID.Int64
		b.CorpusID = &id
	}
	if criteriaType.Valid {
		b.CriteriaType = criteriaType.String
	}
	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &b.CriteriaConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal criteria config: %w", err)
		}
	}
	return &b, nil
}

func nullableString(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
