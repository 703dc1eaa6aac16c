package grants

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/folioworks/folio/pkg/model"
)

// Store handles grant and group persistence. All reads and writes run
// inside the caller's request; there is no caching of decisions.
type Store struct {
	db *sql.DB
}

// NewStore creates a new grant store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateGrant records a grant. A duplicate (subject/group, object,
// capability) returns model.ErrConflict.
func (s *Store) CreateGrant(ctx context.Context, grant *Grant) error {
	if !grant.Capability.Valid() {
		return model.ValidationError("unknown capability %q", grant.Capability)
	}
	if (grant.SubjectID == nil) == (grant.GroupID == nil) {
		return model.ValidationError("grant must name exactly one of subject or group")
	}

	query := `
		INSERT INTO grants (subject_id, group_id, object_type, object_id, capability, granted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		grant.SubjectID,
		grant.GroupID,
		grant.ObjectType,
		grant.ObjectID,
		grant.Capability,
		grant.GrantedBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create grant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: grant already exists", model.ErrConflict)
	}

	grant.CreatedAt = now
	return nil
}

// RevokeGrant removes a grant by its components. Revoking a grant that
// does not exist is a no-op.
func (s *Store) RevokeGrant(ctx context.Context, subjectID *int64, groupID *int64, objectType model.EntityType, objectID int64, capability Capability) error {
	query := `
		DELETE FROM grants
		WHERE (subject_id = $1 OR (subject_id IS NULL AND $2 IS NULL))
		  AND (group_id = $3 OR (group_id IS NULL AND $4 IS NULL))
		  AND object_type = $5 AND object_id = $6 AND capability = $7
	`
	_, err := s.db.ExecContext(ctx, query, subjectID, subjectID, groupID, groupID, objectType, objectID, capability)
	if err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}
	return nil
}

// RevokeAllForObject removes every grant attached to an object. Used when
// an object is hard-removed by an administrative path.
func (s *Store) RevokeAllForObject(ctx context.Context, objectType model.EntityType, objectID int64) error {
	query := `DELETE FROM grants WHERE object_type = $1 AND object_id = $2`
	_, err := s.db.ExecContext(ctx, query, objectType, objectID)
	if err != nil {
		return fmt.Errorf("failed to revoke grants for object: %w", err)
	}
	return nil
}

// EffectiveCapabilities returns the union of the profile's direct grants
// and the grants of every group it belongs to, for one object.
func (s *Store) EffectiveCapabilities(ctx context.Context, profileID int64, objectType model.EntityType, objectID int64) ([]Capability, error) {
	query := `
		SELECT DISTINCT g.capability
		FROM grants g
		WHERE g.object_type = $1 AND g.object_id = $2
		  AND (g.subject_id = $3
		       OR g.group_id IN (SELECT gm.group_id FROM group_members gm WHERE gm.profile_id = $4))
		ORDER BY g.capability ASC
	`

	rows, err := s.db.QueryContext(ctx, query, objectType, objectID, profileID, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query effective capabilities: %w", err)
	}
	defer rows.Close()

	var caps []Capability
	for rows.Next() {
		var c Capability
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}
		caps = append(caps, c)
	}

	return caps, rows.Err()
}

// HasCapability reports whether the profile holds the capability on the
// object, directly or through a group.
func (s *Store) HasCapability(ctx context.Context, profileID int64, objectType model.EntityType, objectID int64, capability Capability) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM grants g
			WHERE g.object_type = $1 AND g.object_id = $2 AND g.capability = $3
			  AND (g.subject_id = $4
			       OR g.group_id IN (SELECT gm.group_id FROM group_members gm WHERE gm.profile_id = $5))
		)
	`

	var exists bool
	err := s.db.QueryRowContext(ctx, query, objectType, objectID, capability, profileID, profileID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check capability: %w", err)
	}
	return exists, nil
}

// ListGrantsForObject returns all grants attached to an object, newest
// first.
func (s *Store) ListGrantsForObject(ctx context.Context, objectType model.EntityType, objectID int64) ([]Grant, error) {
	query := `
		SELECT id, subject_id, group_id, object_type, object_id, capability, granted_by, created_at
		FROM grants
		WHERE object_type = $1 AND object_id = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, objectType, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		var g Grant
		var subjectID, groupID, grantedBy sql.NullInt64
		if err := rows.Scan(&g.ID, &subjectID, &groupID, &g.ObjectType, &g.ObjectID, &g.Capability, &grantedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		if subjectID.Valid {
			id := subjectID.Int64
			g.SubjectID = &id
		}
		if groupID.Valid {
			id := groupID.Int64
			g.GroupID = &id
		}
		if grantedBy.Valid {
			id := grantedBy.Int64
			g.GrantedBy = &id
		}
		out = append(out, g)
	}

	return out, rows.Err()
}

// CreateGroup creates a named group.
func (s *Store) CreateGroup(ctx context.Context, group *Group) error {
	query := `
		INSERT INTO groups (name, creator_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query, group.Name, group.CreatorID, now).Scan(&group.ID)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	group.CreatedAt = now
	return nil
}

// GetGroup fetches a group by id. A missing group returns
// model.ErrNotFound.
func (s *Store) GetGroup(ctx context.Context, id int64) (*Group, error) {
	query := `SELECT id, name, creator_id, created_at FROM groups WHERE id = $1`

	var group Group
	err := s.db.QueryRowContext(ctx, query, id).Scan(&group.ID, &group.Name, &group.CreatorID, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

// AddGroupMember adds a profile to a group. A duplicate membership
// returns model.ErrConflict.
func (s *Store) AddGroupMember(ctx context.Context, member *GroupMember) error {
	query := `
		INSERT INTO group_members (group_id, profile_id, added_by, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query, member.GroupID, member.ProfileID, member.AddedBy, now)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: profile is already a member", model.ErrConflict)
	}

	member.AddedAt = now
	return nil
}

// RemoveGroupMember removes a profile from a group.
func (s *Store) RemoveGroupMember(ctx context.Context, groupID, profileID int64) error {
	query := `DELETE FROM group_members WHERE group_id = $1 AND profile_id = $2`
	_, err := s.db.ExecContext(ctx, query, groupID, profileID)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	return nil
}

// GroupsFor returns the IDs of every group the profile belongs to.
func (s *Store) GroupsFor(ctx context.Context, profileID int64) ([]int64, error) {
	query := `SELECT group_id FROM group_members WHERE profile_id = $1 ORDER BY group_id ASC`

	rows, err := s.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		out = append(out, id)
	}

	return out, rows.Err()
}
