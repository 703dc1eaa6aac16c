package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/grants"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/visibility"
)

const documentColumns = `documents.id, documents.corpus_id, documents.creator_id, documents.title, documents.body, documents.is_public, documents.upvote_count, documents.downvote_count, documents.vote_score, documents.deleted_at, documents.created_at, documents.updated_at`

// CreateDocument persists a new document. The subject must be able to see
// the corpus and must be its creator or hold a CREATE grant on it; a
// merely public corpus grants reading, not contribution.
func (s *Store) CreateDocument(ctx context.Context, sub auth.Subject, doc *model.Document) error {
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}
	if err := s.requireContribution(ctx, sub, doc.CorpusID); err != nil {
		return err
	}
	doc.CreatorID = sub.ProfileID

	query := `
		INSERT INTO documents (corpus_id, creator_id, title, body, is_public, upvote_count, downvote_count, vote_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		doc.CorpusID, doc.CreatorID, doc.Title, doc.Body, doc.IsPublic, now, now,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

// GetDocument resolves a document through the safe lookup gateway.
func (s *Store) GetDocument(ctx context.Context, sub auth.Subject, id int64, includeDeleted bool) (*model.Document, error) {
	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("documents.id = %s", args.Add(id))}
	if !includeDeleted {
		conds = append(conds, "documents.deleted_at IS NULL")
	}
	conds = append(conds, s.resolver.Visible(sub, model.EntityDocument)(args))

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` + strings.Join(conds, " AND ")

	d, err := scanDocument(s.db.QueryRowContext(ctx, query, args.Values()...))
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns the documents of a corpus visible to the subject.
// An invisible corpus lists as not found, never as forbidden.
func (s *Store) ListDocuments(ctx context.Context, sub auth.Subject, corpusID int64, includeDeleted bool) ([]*model.Document, error) {
	if _, err := s.GetCorpus(ctx, sub, corpusID, includeDeleted); err != nil {
		return nil, err
	}

	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("documents.corpus_id = %s", args.Add(corpusID))}
	if !includeDeleted {
		conds = append(conds, "documents.deleted_at IS NULL")
	}
	conds = append(conds, s.resolver.Visible(sub, model.EntityDocument)(args))

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY documents.created_at DESC, documents.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// requireContribution checks the subject may add content to the corpus:
// creator, or holder of a CREATE grant. Invisible corpora report not
// found so contribution probes cannot enumerate them.
func (s *Store) requireContribution(ctx context.Context, sub auth.Subject, corpusID int64) error {
	if sub.IsSuperuser() {
		return nil
	}

	corpus, err := s.GetCorpus(ctx, sub, corpusID, false)
	if err != nil {
		return err
	}
	if corpus.CreatorID == sub.ProfileID {
		return nil
	}

	gs := grants.NewStore(s.db)
	ok, err := gs.HasCapability(ctx, sub.ProfileID, model.EntityCorpus, corpusID, grants.CapabilityCreate)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrPermissionDenied
	}
	return nil
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	var deletedAt sql.NullTime
	err := row.Scan(&d.ID, &d.CorpusID, &d.CreatorID, &d.Title, &d.Body, &d.IsPublic, &d.UpvoteCount, &d.DownvoteCount, &d.VoteScore, &deletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	return &d, nil
}
