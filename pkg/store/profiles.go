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

const profileColumns = `profiles.id, profiles.username, profiles.display_name, profiles.bio, profiles.is_public, profiles.deactivated, profiles.reputation, profiles.created_at, profiles.updated_at`

// CreateProfile persists a new profile. A duplicate username returns
// model.ErrConflict.
func (s *Store) CreateProfile(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (username, display_name, bio, is_public, deactivated, reputation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		ON CONFLICT DO NOTHING
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		profile.Username, profile.DisplayName, profile.Bio, profile.IsPublic, profile.Deactivated, now, now,
	).Scan(&profile.ID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: username already taken", model.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	profile.CreatedAt = now
	profile.UpdatedAt = now
	return nil
}

// GetProfile resolves a profile through the safe lookup gateway.
func (s *Store) GetProfile(ctx context.Context, sub auth.Subject, id int64) (*model.Profile, error) {
	args := &visibility.Args{}
	conds := []string{fmt.Sprintf("profiles.id = %s", args.Add(id))}
	conds = append(conds, s.resolver.Visible(sub, model.EntityProfile)(args))

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + strings.Join(conds, " AND ")

	p, err := scanProfile(s.db.QueryRowContext(ctx, query, args.Values()...))
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns the profiles visible to the subject.
func (s *Store) ListProfiles(ctx context.Context, sub auth.Subject) ([]*model.Profile, error) {
	args := &visibility.Args{}
	where := s.resolver.Visible(sub, model.EntityProfile)(args)

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + where + ` ORDER BY profiles.username ASC`

	rows, err := s.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeactivateProfile marks a profile deactivated. Only the profile itself
// or a superuser may do this; the target is known to the caller, so
// denial is reported as such.
func (s *Store) DeactivateProfile(ctx context.Context, sub auth.Subject, id int64) error {
	if !sub.IsSuperuser() && sub.ProfileID != id {
		return model.ErrPermissionDenied
	}

	query := `UPDATE profiles SET deactivated = TRUE, updated_at = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate profile: %w", err)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.IsPublic, &p.Deactivated, &p.Reputation, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
