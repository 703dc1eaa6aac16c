package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/visibility"
)

const corpusColumns = `corpora.id, corpora.name, corpora.slug, corpora.description, corpora.creator_id, corpora.is_public, corpora.deleted_at, corpora.created_at, corpora.updated_at`

// CreateCorpus persists a new corpus owned by the subject. Anonymous
// subjects cannot create.
func (s *Store) CreateCorpus(ctx context.Context, sub auth.Subject, corpus *model.Corpus) error {
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}
	if corpus.Slug == "" {
		corpus.Slug = slugify(corpus.Name)
	}
	corpus.CreatorID = sub.ProfileID

	query := `
		INSERT INTO corpora (name, slug, description, creator_id, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		corpus.Name, corpus.Slug, corpus.Description, corpus.CreatorID, corpus.IsPublic, now, now,
	).Scan(&corpus.ID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: slug already in use", model.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create corpus: %w", err)
	}

	corpus.CreatedAt = now
	corpus.UpdatedAt = now
	return nil
}

// GetCorpus resolves a corpus through the safe lookup gateway. With
// includeDeleted set, soft-deleted corpora still resolve for subjects
// that could otherwise see them, preserving referential integrity for
// children.
func (s *Store) GetCorpus(ctx context.Context, sub auth.Subject, id int64, includeDeleted bool) (*model.Corpus, error) {
	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("corpora.id = %s", args.Add(id))}
	if !includeDeleted {
		conds = append(conds, "corpora.deleted_at IS NULL")
	}
	conds = append(conds, s.resolver.Visible(sub, model.EntityCorpus)(args))

	query := `SELECT ` + corpusColumns + ` FROM corpora WHERE ` + strings.Join(conds, " AND ")

	c, err := scanCorpus(s.db.QueryRowContext(ctx, query, args.Values()...))
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get corpus: %w", err)
	}
	return c, nil
}

// ListCorpora returns the corpora visible to the subject, excluding
// soft-deleted ones unless includeDeleted is set.
func (s *Store) ListCorpora(ctx context.Context, sub auth.Subject, includeDeleted bool) ([]*model.Corpus, error) {
	args := &visibility.Args{}
	conds := []string{}
	if !includeDeleted {
		conds = append(conds, "corpora.deleted_at IS NULL")
	}
	conds = append(conds, s.resolver.Visible(sub, model.EntityCorpus)(args))

	query := `SELECT ` + corpusColumns + ` FROM corpora WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY corpora.name ASC`

	rows, err := s.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpora: %w", err)
	}
	defer rows.Close()

	var out []*model.Corpus
	for rows.Next() {
		c, err := scanCorpus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan corpus: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCorpus(row rowScanner) (*model.Corpus, error) {
	var c model.Corpus
	var deletedAt sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatorID, &c.IsPublic, &deletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return &c, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	return strings.Trim(slug, "-")
}
