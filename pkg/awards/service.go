package awards

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/criteria"
	"github.com/folioworks/folio/pkg/model"
	"github.com/folioworks/folio/pkg/notify"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/store"
)

// sweepConcurrency bounds the number of profiles evaluated in parallel
// during a sweep.
const sweepConcurrency = 8

// Service manages badge awards. An award is unique per (profile, badge,
// corpus); granting an already-held award is a conflict.
type Service struct {
	db        *sql.DB
	store     *store.Store
	registry  *criteria.Registry
	evaluator *criteria.Evaluator
	notifier  notify.Notifier
	metrics   *observability.Metrics
	logger    *observability.Logger
}

// NewService creates the award service. metrics and logger may be nil.
func NewService(db *sql.DB, registry *criteria.Registry, evaluator *criteria.Evaluator, notifier notify.Notifier, metrics *observability.Metrics, logger *observability.Logger) *Service {
	return &Service{
		db:        db,
		store:     store.New(db),
		registry:  registry,
		evaluator: evaluator,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
	}
}

// Grant manually awards a badge to a profile. Only superusers and the
// badge's creator may grant manually. Holding the award already is a
// conflict.
func (s *Service) Grant(ctx context.Context, sub auth.Subject, badgeID, profileID int64) (*model.Award, error) {
	if sub.IsAnonymous() {
		return nil, model.ErrPermissionDenied
	}

	badge, err := s.store.GetBadge(ctx, sub, badgeID)
	if err != nil {
		return nil, err
	}
	if !sub.IsSuperuser() && badge.CreatorID != sub.ProfileID {
		return nil, model.ErrPermissionDenied
	}

	if _, err := s.store.GetProfile(ctx, sub, profileID); err != nil {
		return nil, err
	}

	award, granted, err := s.insertAward(ctx, badge, profileID)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, fmt.Errorf("%w: award already granted", model.ErrConflict)
	}

	s.notifyAward(ctx, badge, profileID)
	return award, nil
}

// Revoke removes an award. Only superusers and the badge's creator may
// revoke.
func (s *Service) Revoke(ctx context.Context, sub auth.Subject, awardID int64) error {
	if sub.IsAnonymous() {
		return model.ErrPermissionDenied
	}

	var badgeID int64
	err := s.db.QueryRowContext(ctx, `SELECT badge_id FROM awards WHERE id = $1`, awardID).Scan(&badgeID)
	if err == sql.ErrNoRows {
		return model.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load award: %w", err)
	}

	badge, err := s.store.GetBadge(ctx, sub, badgeID)
	if err != nil {
		return err
	}
	if !sub.IsSuperuser() && badge.CreatorID != sub.ProfileID {
		return model.ErrPermissionDenied
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM awards WHERE id = $1`, awardID)
	if err != nil {
		return fmt.Errorf("failed to revoke award: %w", err)
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

// ListForProfile returns a profile's awards, newest first.
func (s *Service) ListForProfile(ctx context.Context, profileID int64) ([]*model.Award, error) {
	query := `
		SELECT id, profile_id, badge_id, corpus_id, granted_at
		FROM awards
		WHERE profile_id = $1
		ORDER BY granted_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	defer rows.Close()

	var out []*model.Award
	for rows.Next() {
		a := &model.Award{}
		var corpusID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.ProfileID, &a.BadgeID, &corpusID, &a.GrantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		if corpusID.Valid {
			a.CorpusID = &corpusID.Int64
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// EvaluateAndGrant evaluates an auto-award badge for a profile and
// grants it if the criteria are satisfied and the award is not already
// held. Returns true when a new award was granted.
func (s *Service) EvaluateAndGrant(ctx context.Context, badge *model.Badge, profileID int64) (bool, error) {
	if !badge.AutoAward {
		return false, model.ValidationError("badge %d is not auto-awarded", badge.ID)
	}

	ok, err := s.evaluator.Satisfied(ctx, badge, profileID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	_, granted, err := s.insertAward(ctx, badge, profileID)
	if err != nil {
		return false, err
	}
	if granted {
		s.notifyAward(ctx, badge, profileID)
	}
	return granted, nil
}

// Sweep evaluates every auto-award badge against every active profile.
// Profiles are evaluated concurrently with bounded parallelism; a
// failure on one profile aborts the sweep.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	start := time.Now()

	badges, err := s.store.ListAutoAwardBadges(ctx)
	if err != nil {
		return 0, err
	}
	if len(badges) == 0 {
		return 0, nil
	}

	profileIDs, err := s.activeProfileIDs(ctx)
	if err != nil {
		return 0, err
	}

	var granted int64
	grantedCh := make(chan int, len(profileIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, profileID := range profileIDs {
		profileID := profileID
		g.Go(func() error {
			count := 0
			for _, badge := range badges {
				ok, err := s.EvaluateAndGrant(gctx, badge, profileID)
				if err != nil {
					return fmt.Errorf("sweep failed for profile %d badge %d: %w", profileID, badge.ID, err)
				}
				if ok {
					count++
				}
			}
			grantedCh <- count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(grantedCh)
	for count := range grantedCh {
		granted += int64(count)
	}

	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"badges":   len(badges),
			"profiles": len(profileIDs),
			"granted":  granted,
			"duration": time.Since(start).String(),
		}).Info("award sweep complete")
	}
	return int(granted), nil
}

// insertAward writes the award row. The second return is false when the
// award was already held.
func (s *Service) insertAward(ctx context.Context, badge *model.Badge, profileID int64) (*model.Award, bool, error) {
	award := &model.Award{
		ProfileID: profileID,
		BadgeID:   badge.ID,
		CorpusID:  badge.CorpusID,
		GrantedAt: time.Now(),
	}

	query := `
		INSERT INTO awards (profile_id, badge_id, corpus_id, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, award.ProfileID, award.BadgeID, award.CorpusID, award.GrantedAt).Scan(&award.ID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert award: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AwardsGrantedTotal.WithLabelValues(badge.CriteriaType).Inc()
	}
	return award, true, nil
}

func (s *Service) activeProfileIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM profiles WHERE deactivated = FALSE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan profile id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// notifyAward tells the recipient. Delivery failure does not fail the
// grant.
func (s *Service) notifyAward(ctx context.Context, badge *model.Badge, profileID int64) {
	n := &model.Notification{
		RecipientID: profileID,
		Kind:        model.NotifyAward,
		TargetType:  model.EntityBadge,
		TargetID:    badge.ID,
		Message:     fmt.Sprintf("You earned the %q badge", badge.Name),
	}
	if err := s.notifier.Notify(ctx, n); err != nil && s.logger != nil {
		s.logger.WithError(err).
			WithField("badge_id", badge.ID).
			WithField("profile_id", profileID).
			Warn("failed to deliver award notification")
	}
}
